package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/filedock/filedock"
)

// MinioConfig holds connection settings for a MinIO or S3-compatible store.
type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Minio issues presigned handles against a MinIO or S3-compatible bucket.
type Minio struct {
	client *minio.Client
	bucket string
}

// NewMinio connects to the configured endpoint and ensures the bucket exists.
func NewMinio(ctx context.Context, cfg MinioConfig) (*Minio, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("new minio store: endpoint, access_key, secret_key and bucket are required: %w", filedock.ErrInvalidInput)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("new minio store: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("new minio store: check bucket: %w: %w", filedock.ErrUnavailable, err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("new minio store: create bucket %s: %w: %w", cfg.Bucket, filedock.ErrUnavailable, err)
		}
	}

	return &Minio{client: client, bucket: cfg.Bucket}, nil
}

func (m *Minio) WriteHandle(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	u, err := m.client.PresignedPutObject(ctx, m.bucket, key, ttl)
	if err != nil {
		return "", fmt.Errorf("write handle %s: %w: %w", key, filedock.ErrUnavailable, err)
	}
	return u.String(), nil
}

func (m *Minio) ReadHandle(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("read handle %s: %w: %w", key, filedock.ErrUnavailable, err)
	}
	return u.String(), nil
}

func (m *Minio) Remove(ctx context.Context, key string) error {
	err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("remove %s: %w: %w", key, filedock.ErrUnavailable, err)
	}
	return nil
}

func (m *Minio) ListBlobs(ctx context.Context) ([]filedock.BlobInfo, error) {
	var blobs []filedock.BlobInfo

	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("list blobs: %w: %w", filedock.ErrUnavailable, object.Err)
		}
		blobs = append(blobs, filedock.BlobInfo{
			Key:     object.Key,
			Size:    object.Size,
			ModTime: object.LastModified,
		})
	}

	return blobs, nil
}
