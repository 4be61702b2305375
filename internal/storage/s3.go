// Package storage puts user uploads into an S3-compatible object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"skillswap/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotConfigured is returned when no object store endpoint is set.
var ErrNotConfigured = errors.New("object storage is not configured")

// S3Storage writes objects into one bucket.
type S3Storage struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string

	ensureOnce sync.Once
	ensureErr  error
}

// NewS3Client builds a minio client from configuration.
func NewS3Client(cfg *config.Config) (*minio.Client, error) {
	endpoint := strings.TrimSpace(cfg.S3Endpoint)
	if endpoint == "" {
		return nil, ErrNotConfigured
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return client, nil
}

// NewS3Storage wraps client. Public URLs are publicBaseURL/<key>, or the
// path-style endpoint URL when publicBaseURL is empty.
func NewS3Storage(client *minio.Client, bucket, publicBaseURL string) *S3Storage {
	base := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
	bucket = strings.TrimSpace(bucket)
	if base == "" && client != nil {
		base = strings.TrimRight(client.EndpointURL().String(), "/") + "/" + bucket
	}
	return &S3Storage{client: client, bucket: bucket, publicBaseURL: base}
}

// EnsureBucket creates the bucket on first use.
func (s *S3Storage) EnsureBucket(ctx context.Context) error {
	if s.client == nil {
		return ErrNotConfigured
	}
	if s.bucket == "" {
		return errors.New("s3 bucket is empty")
	}

	s.ensureOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.ensureErr = err
			return
		}
		if exists {
			return
		}
		s.ensureErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	})

	if s.ensureErr != nil {
		return fmt.Errorf("ensure s3 bucket %q: %w", s.bucket, s.ensureErr)
	}
	return nil
}

// Put stores body under key and returns its public URL.
func (s *S3Storage) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if err := s.EnsureBucket(ctx); err != nil {
		return "", err
	}
	if key == "" || body == nil || size <= 0 {
		return "", errors.New("empty object")
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object to s3: %w", err)
	}
	return s.URL(key), nil
}

// Delete removes key. Missing objects are not an error.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if s.client == nil || key == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// URL returns the public URL of key.
func (s *S3Storage) URL(key string) string {
	return s.publicBaseURL + "/" + strings.TrimLeft(key, "/")
}
