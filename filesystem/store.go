// Package filesystem provides the blob backend for the local object store.
// Bytes are stored under a sandboxed root keyed by storage key, with atomic
// writes via temp files and SHA256-based etags.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/filedock/filedock"
)

// SaveResult reports the outcome of a blob write.
type SaveResult struct {
	BytesWritten int64
	Etag         string
}

// Store provides file system blob operations.
type Store struct {
	root *os.Root
}

// NewStore creates a Store rooted at the given directory. The root provides
// sandboxed file operations preventing path traversal.
func NewStore(root *os.Root) *Store {
	return &Store{root: root}
}

// Get opens the blob at key for reading. Returns filedock.ErrNotFound if no
// blob exists there.
func (s *Store) Get(ctx context.Context, key string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, filedock.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, nil
}

// Stat returns size and modification time for the blob at key.
func (s *Store) Stat(ctx context.Context, key string) (os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := s.root.Stat(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, filedock.ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return info, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Write atomically writes content to key using a temp file and rename. It
// creates intermediate directories as needed and returns the number of bytes
// written and a SHA256-based etag. The operation respects context
// cancellation.
func (s *Store) Write(ctx context.Context, key string, content io.Reader) (SaveResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return SaveResult{}, ctxErr
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return SaveResult{}, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(t.Name()); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(h, t)

	bytesWritten, err := io.Copy(w, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return SaveResult{}, fmt.Errorf("could not copy file contents: %w", err)
	}

	err = t.Sync()
	if err != nil {
		return SaveResult{}, fmt.Errorf("could not sync written file: %w", err)
	}

	destDir := filepath.Dir(key)
	if destDir != "." {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			return SaveResult{}, fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	if renameErr := s.root.Rename(tmpFile, key); renameErr != nil {
		return SaveResult{}, fmt.Errorf("failed to rename file: %w", renameErr)
	}

	etag := hex.EncodeToString(h.Sum(nil))
	success = true

	return SaveResult{BytesWritten: bytesWritten, Etag: etag}, nil
}

// Delete removes the blob at key. Returns filedock.ErrNotFound if no blob
// exists there.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.root.Remove(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return filedock.ErrNotFound
		}
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

// ListBlobs walks the storage root and returns every stored blob. In-flight
// temp files are skipped.
func (s *Store) ListBlobs(ctx context.Context) ([]filedock.BlobInfo, error) {
	var blobs []filedock.BlobInfo

	err := fs.WalkDir(s.root.FS(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		blobs = append(blobs, filedock.BlobInfo{
			Key:     path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}

	return blobs, nil
}

func tmpFileName() string {
	return ".tmp-" + uuid.New().String()
}
