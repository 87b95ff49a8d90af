package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/bstardust/photo-meta/internal/logger"
	"github.com/bstardust/photo-meta/pkg/common"
)

// multipartThreshold is the size above which uploads go through s3manager
const multipartThreshold = 10 * 1024 * 1024

// AWSStore stores objects in S3 using the AWS SDK
type AWSStore struct {
	client s3iface.S3API
	config Config
}

// NewAWS creates a new AWS S3 store. Endpoint is optional; when set the
// store talks path-style to that endpoint instead of AWS.
func NewAWS(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Bucket == "" {
		return nil, common.NewConfigError("S3 bucket name is required")
	}

	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			if cfg.UseSSL {
				endpoint = "https://" + endpoint
			} else {
				endpoint = "http://" + endpoint
			}
		}
		awsCfg.Endpoint = aws.String(endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
		awsCfg.DisableSSL = aws.Bool(!cfg.UseSSL)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, common.NewStorageError("failed to create AWS session", err)
	}

	client := s3.New(sess)

	// Validate bucket exists
	_, err = client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, common.NewStorageError("failed to check if bucket exists", err)
	}

	logger.Info("Connected to S3 bucket %s in %s using AWS SDK", cfg.Bucket, cfg.Region)

	return &AWSStore{
		client: client,
		config: cfg,
	}, nil
}

// Put uploads an object, switching to multipart for large bodies
func (s *AWSStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string, metadata map[string]string) error {
	key = s.config.objectKey(key)

	awsMetadata := make(map[string]*string, len(metadata))
	for k, v := range metadata {
		awsMetadata[k] = aws.String(v)
	}

	if size >= 0 && size < multipartThreshold {
		buf := &bytes.Buffer{}
		if _, err := io.Copy(buf, reader); err != nil {
			return fmt.Errorf("failed to buffer object: %w", err)
		}

		_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.config.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(buf.Bytes()),
			ContentType: aws.String(contentType),
			Metadata:    awsMetadata,
		})
		if err != nil {
			return fmt.Errorf("failed to upload object: %w", err)
		}
	} else {
		uploader := s3manager.NewUploaderWithClient(s.client, func(u *s3manager.Uploader) {
			u.PartSize = multipartThreshold
			u.Concurrency = 4
			u.LeavePartsOnError = false
		})

		_, err := uploader.UploadWithContext(ctx, &s3manager.UploadInput{
			Bucket:      aws.String(s.config.Bucket),
			Key:         aws.String(key),
			Body:        reader,
			ContentType: aws.String(contentType),
			Metadata:    awsMetadata,
		})
		if err != nil {
			return fmt.Errorf("failed to upload object: %w", err)
		}
	}

	logger.Debug("Uploaded object %s (%d bytes)", key, size)
	return nil
}

// URL returns a presigned, public or bucket URL for the object
func (s *AWSStore) URL(ctx context.Context, key string) (string, error) {
	key = s.config.objectKey(key)

	if s.config.PresignExpiry > 0 {
		req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
			Bucket: aws.String(s.config.Bucket),
			Key:    aws.String(key),
		})
		req.SetContext(ctx)

		u, err := req.Presign(s.config.PresignExpiry)
		if err != nil {
			return "", fmt.Errorf("failed to generate presigned URL: %w", err)
		}
		return u, nil
	}

	if u := s.config.publicURL(key); u != "" {
		return u, nil
	}
	if s.config.Endpoint != "" {
		return s.config.endpointURL(key), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.Bucket, s.config.Region, escapeKey(key)), nil
}

// Delete deletes an object from the bucket
func (s *AWSStore) Delete(ctx context.Context, key string) error {
	key = s.config.objectKey(key)

	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	logger.Debug("Deleted object %s", key)
	return nil
}

// Close is a no-op for the AWS SDK
func (s *AWSStore) Close() error {
	return nil
}
