// Package objectstore provides ObjectStore implementations: a MinIO/S3
// backend and a self-hosted local backend that signs handles against the
// engine's own blob endpoints.
package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/filedock/filedock"
	"github.com/filedock/filedock/filesystem"
)

// Local issues presigned URLs against the engine's own /blob endpoints and
// stores the bytes in a sandboxed filesystem store. The HTTP layer verifies
// the signature with the matching SignatureVerifier before streaming.
type Local struct {
	signer  *filedock.Presigner
	baseURL url.URL
	blobs   *filesystem.Store
	now     func() time.Time
}

// NewLocal creates a Local store. baseURL is the externally reachable address
// of this server (scheme and host); handles are minted under its /blob path.
func NewLocal(signer *filedock.Presigner, baseURL string, blobs *filesystem.Store) (*Local, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("new local store: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("new local store: base url must include scheme and host: %w", filedock.ErrInvalidInput)
	}

	return &Local{signer: signer, baseURL: *u, blobs: blobs, now: time.Now}, nil
}

// Blobs exposes the underlying filesystem store for the blob HTTP handlers.
func (l *Local) Blobs() *filesystem.Store {
	return l.blobs
}

func (l *Local) WriteHandle(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return l.presign("PUT", key, ttl)
}

func (l *Local) ReadHandle(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return l.presign("GET", key, ttl)
}

func (l *Local) Remove(ctx context.Context, key string) error {
	return l.blobs.Delete(ctx, key)
}

func (l *Local) ListBlobs(ctx context.Context) ([]filedock.BlobInfo, error) {
	return l.blobs.ListBlobs(ctx)
}

func (l *Local) presign(method, key string, ttl time.Duration) (string, error) {
	u := l.baseURL
	u.Path = path.Join(u.Path, "blob", key)

	signed, err := l.signer.Presign(method, u, ttl, l.now())
	if err != nil {
		return "", fmt.Errorf("presign %s %s: %w", method, key, err)
	}
	return signed, nil
}
