package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/bstardust/photo-meta/internal/logger"
	"github.com/bstardust/photo-meta/pkg/common"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioAPI is the subset of *minio.Client used by MinioStore
type minioAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// MinioStore stores objects in any S3-compatible service using the MinIO SDK
type MinioStore struct {
	client minioAPI
	config Config
}

// NewMinIO creates a new MinIO-backed store
func NewMinIO(ctx context.Context, cfg Config) (Store, error) {
	// Validate configuration
	if cfg.Endpoint == "" {
		return nil, common.NewConfigError("S3 endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, common.NewConfigError("S3 bucket name is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, common.NewConfigError("S3 access key and secret key are required")
	}

	// Remove protocol prefix if present
	endpoint := cfg.Endpoint
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupAuto,
	})
	if err != nil {
		return nil, common.NewStorageError("failed to create S3 client", err)
	}

	// Check if bucket exists
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, common.NewStorageError("failed to check if bucket exists", err)
	}
	if !exists {
		return nil, common.NewStorageError(fmt.Sprintf("bucket %s does not exist", cfg.Bucket), ErrBucketNotFound)
	}

	logger.Info("Connected to S3 endpoint %s, bucket %s using MinIO SDK", endpoint, cfg.Bucket)

	return &MinioStore{
		client: client,
		config: cfg,
	}, nil
}

// Put uploads an object
func (s *MinioStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string, metadata map[string]string) error {
	key = s.config.objectKey(key)

	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	}

	info, err := s.client.PutObject(ctx, s.config.Bucket, key, reader, size, opts)
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}

	logger.Debug("Uploaded object %s (%d bytes, etag: %s)", key, info.Size, info.ETag)
	return nil
}

// URL returns a presigned, public or endpoint URL for the object
func (s *MinioStore) URL(ctx context.Context, key string) (string, error) {
	key = s.config.objectKey(key)

	if s.config.PresignExpiry > 0 {
		u, err := s.client.PresignedGetObject(ctx, s.config.Bucket, key, s.config.PresignExpiry, nil)
		if err != nil {
			return "", fmt.Errorf("failed to generate presigned URL: %w", err)
		}
		return u.String(), nil
	}

	if u := s.config.publicURL(key); u != "" {
		return u, nil
	}
	return s.config.endpointURL(key), nil
}

// Delete deletes an object from the bucket
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	key = s.config.objectKey(key)

	if err := s.client.RemoveObject(ctx, s.config.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	logger.Debug("Deleted object %s", key)
	return nil
}

// Close is a no-op; the MinIO client holds no resources that need releasing
func (s *MinioStore) Close() error {
	return nil
}
