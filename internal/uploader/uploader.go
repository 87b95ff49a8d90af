package uploader

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"github.com/bstardust/photo-meta/internal/config"
	"github.com/bstardust/photo-meta/internal/logger"
	"github.com/bstardust/photo-meta/internal/metadata"
	"github.com/bstardust/photo-meta/pkg/storage"
	"github.com/corona10/goimagehash"
	"github.com/google/uuid"
)

// Source is recorded on every stored object
const Source = "photo-meta"

const cleanupTimeout = 10 * time.Second

// Uploader persists converted photos to object storage
type Uploader struct {
	store   storage.Store
	retry   RetryConfig
	timeout time.Duration
	now     func() time.Time
	newID   func() string
}

// New creates a new Uploader
func New(store storage.Store, cfg config.UploadConfig) *Uploader {
	retry := DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries
	if cfg.InitialBackoff > 0 {
		retry.InitialBackoff = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		retry.MaxBackoff = cfg.MaxBackoff
	}

	return &Uploader{
		store:   store,
		retry:   retry,
		timeout: cfg.Timeout,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Persist uploads a JPEG under a fresh <yyyy>/<mm>/<uuid>.jpg key and
// returns the URL it can be fetched from.
func (u *Uploader) Persist(ctx context.Context, data []byte, rec metadata.Record) (string, error) {
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	now := u.now().UTC()
	key := fmt.Sprintf("%04d/%02d/%s.jpg", now.Year(), int(now.Month()), u.newID())

	meta := rec.ToMap()
	meta["source"] = Source
	for k, v := range imageHashes(data) {
		meta[k] = v
	}

	err := RetryWithBackoff(ctx, "upload "+key, func() error {
		return u.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "image/jpeg", meta)
	}, u.retry)
	if err != nil {
		logger.Warn("Upload of %s failed: %s", key, storage.FormatError(err))
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	url, err := u.store.URL(ctx, key)
	if err != nil {
		u.discard(ctx, key)
		return "", fmt.Errorf("failed to resolve URL for %s: %w", key, err)
	}

	logger.Info("Stored %s (%d bytes)", key, len(data))
	return url, nil
}

// discard removes an object that was stored but cannot be handed out.
// It runs even if ctx has already expired.
func (u *Uploader) discard(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := u.store.Delete(ctx, key); err != nil && !storage.IsNotFoundError(err) {
		logger.Warn("Failed to remove orphaned object %s: %s", key, storage.FormatError(err))
		return
	}
	logger.Debug("Removed orphaned object %s", key)
}

// imageHashes computes perceptual fingerprints of a JPEG.
// Undecodable input yields no hashes rather than an error.
func imageHashes(data []byte) map[string]string {
	im, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		logger.Debug("Skipping image hashes: %v", err)
		return nil
	}

	hashes := make(map[string]string, 2)
	for name, fn := range map[string]func(image.Image) (*goimagehash.ImageHash, error){
		"average-hash":    goimagehash.AverageHash,
		"difference-hash": goimagehash.DifferenceHash,
	} {
		h, err := fn(im)
		if err != nil {
			logger.Debug("Skipping %s: %v", name, err)
			continue
		}
		hashes[name] = h.ToString()
	}
	return hashes
}
