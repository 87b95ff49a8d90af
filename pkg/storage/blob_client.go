package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bstardust/photo-meta/internal/logger"
	"github.com/bstardust/photo-meta/pkg/common"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
)

// BlobStore stores objects in any gocloud.dev/blob bucket (file://, mem://, ...)
type BlobStore struct {
	bucket *blob.Bucket
	config Config
}

// NewBlob opens the bucket at cfg.BlobURL
func NewBlob(ctx context.Context, cfg Config) (Store, error) {
	if cfg.BlobURL == "" {
		return nil, common.NewConfigError("blob URL is required")
	}

	bucket, err := blob.OpenBucket(ctx, cfg.BlobURL)
	if err != nil {
		return nil, common.NewStorageError(fmt.Sprintf("failed to open bucket %s", cfg.BlobURL), err)
	}

	logger.Info("Opened blob bucket %s", cfg.BlobURL)

	return NewBlobWithBucket(bucket, cfg), nil
}

// NewBlobWithBucket wraps an already open bucket
func NewBlobWithBucket(bucket *blob.Bucket, cfg Config) *BlobStore {
	return &BlobStore{bucket: bucket, config: cfg}
}

// Put writes an object
func (s *BlobStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string, metadata map[string]string) error {
	key = s.config.objectKey(key)

	wr, err := s.bucket.NewWriter(ctx, key, &blob.WriterOptions{
		ContentType: contentType,
		Metadata:    metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to create writer for %s: %w", key, err)
	}

	n, err := io.Copy(wr, reader)
	if err != nil {
		_ = wr.Close()
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}

	if err := wr.Close(); err != nil {
		return fmt.Errorf("failed to close writer for %s: %w", key, err)
	}

	logger.Debug("Wrote object %s (%d bytes)", key, n)
	return nil
}

// URL returns a signed, public or bucket-relative URL for the object
func (s *BlobStore) URL(ctx context.Context, key string) (string, error) {
	key = s.config.objectKey(key)

	if s.config.PresignExpiry > 0 {
		u, err := s.bucket.SignedURL(ctx, key, &blob.SignedURLOptions{Expiry: s.config.PresignExpiry})
		if err != nil {
			return "", fmt.Errorf("failed to generate signed URL: %w", err)
		}
		return u, nil
	}

	if u := s.config.publicURL(key); u != "" {
		return u, nil
	}

	base := s.config.BlobURL
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	return strings.TrimSuffix(base, "/") + "/" + escapeKey(key), nil
}

// Delete deletes an object from the bucket
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	key = s.config.objectKey(key)

	if err := s.bucket.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	logger.Debug("Deleted object %s", key)
	return nil
}

// Close closes the underlying bucket
func (s *BlobStore) Close() error {
	return s.bucket.Close()
}
