package storage

import (
	"context"
	"io"
)

// Store defines the operations an object store must implement
type Store interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string, metadata map[string]string) error
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Close() error
}
