package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/filedock/filedock"
	"github.com/filedock/filedock/config"
	"github.com/filedock/filedock/filesystem"
	"github.com/filedock/filedock/keybackend"
	"github.com/filedock/filedock/objectstore"
)

// buildObjectStore constructs the configured object store backend. The
// returned filesystem store is non-nil only for the local backend, where the
// server itself must serve the blob routes.
func buildObjectStore(ctx context.Context, cfg *config.Config) (filedock.ObjectStore, *filesystem.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "local":
		return buildLocalStore(cfg)
	case "minio":
		store, err := objectstore.NewMinio(ctx, cfg.Storage.Minio)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

func buildLocalStore(cfg *config.Config) (filedock.ObjectStore, *filesystem.Store, func(), error) {
	storagePath := cfg.Storage.Local.Path
	if err := os.MkdirAll(storagePath, 0o750); err != nil {
		return nil, nil, nil, fmt.Errorf("create storage directory: %w", err)
	}

	root, err := os.OpenRoot(storagePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open storage root: %w", err)
	}

	blobs := filesystem.NewStore(root)

	accessKey, secretKey, err := signingKeys(cfg.Auth.Keys)
	if err != nil {
		_ = root.Close()
		return nil, nil, nil, err
	}

	signer := &filedock.Presigner{
		Region:    cfg.Auth.Region,
		Service:   cfg.Auth.Service,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}

	store, err := objectstore.NewLocal(signer, cfg.Server.BaseURL, blobs)
	if err != nil {
		_ = root.Close()
		return nil, nil, nil, err
	}

	cleanup := func() { _ = root.Close() }
	return store, blobs, cleanup, nil
}

// signingKeys picks the credential pair used to presign blob URLs: the first
// complete inline pair, then the first complete pair in the key file.
func signingKeys(cfg keybackend.KeysConfig) (string, string, error) {
	pairs := cfg.Inline
	if cfg.File != "" {
		filePairs, err := keybackend.ReadKeyFile(cfg.File)
		if err != nil {
			return "", "", err
		}
		pairs = append(pairs, filePairs...)
	}

	for _, p := range pairs {
		if p.AccessKey != "" && p.SecretKey != "" {
			return p.AccessKey, p.SecretKey, nil
		}
	}

	return "", "", errors.New("no signing keys configured: set auth.keys.inline or auth.keys.file")
}
