package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

// Config represents the configuration for an object store
type Config struct {
	Backend       string
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Prefix        string
	PublicBaseURL string
	PresignExpiry time.Duration
	BlobURL       string
}

// Constructors per backend, replaceable in tests
var (
	NewMinIOFunc = NewMinIO
	NewAWSFunc   = NewAWS
	NewBlobFunc  = NewBlob
)

// New creates a store for the configured backend
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "minio":
		return NewMinIOFunc(ctx, cfg)
	case "aws":
		return NewAWSFunc(ctx, cfg)
	case "blob":
		return NewBlobFunc(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// objectKey returns the full object key with prefix
func (c Config) objectKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	if c.Prefix == "" {
		return key
	}
	return path.Join(strings.Trim(c.Prefix, "/"), key)
}

// publicURL joins PublicBaseURL and the full key, or returns "" if no base is set
func (c Config) publicURL(fullKey string) string {
	if c.PublicBaseURL == "" {
		return ""
	}
	return strings.TrimSuffix(c.PublicBaseURL, "/") + "/" + escapeKey(fullKey)
}

// endpointURL returns scheme://endpoint/bucket/key for S3-compatible backends
func (c Config) endpointURL(fullKey string) string {
	endpoint := c.Endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if c.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	return strings.TrimSuffix(endpoint, "/") + "/" + c.Bucket + "/" + escapeKey(fullKey)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
