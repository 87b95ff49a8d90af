package cli

import (
	"context"
	"fmt"

	"github.com/bstardust/photo-meta/internal/api/handlers"
	"github.com/bstardust/photo-meta/internal/config"
	"github.com/bstardust/photo-meta/internal/convert"
	"github.com/bstardust/photo-meta/internal/exif"
	"github.com/bstardust/photo-meta/internal/exiftool"
	"github.com/bstardust/photo-meta/internal/logger"
	"github.com/bstardust/photo-meta/internal/metadata"
	"github.com/bstardust/photo-meta/internal/uploader"
	"github.com/bstardust/photo-meta/pkg/storage"
)

func newExtractor(cfg config.ExtractorConfig) (metadata.Extractor, error) {
	switch cfg.Kind {
	case "goexif":
		return exif.NewExtractor(), nil
	case "exiftool":
		et, err := exiftool.New(cfg.ExiftoolPath)
		if err != nil {
			return nil, fmt.Errorf("failed to start exiftool: %w", err)
		}
		return et, nil
	}

	if exiftool.Available(cfg.ExiftoolPath) {
		et, err := exiftool.New(cfg.ExiftoolPath)
		if err == nil {
			logger.Info("Using exiftool for metadata extraction")
			return et, nil
		}
		logger.Warn("Could not start exiftool, falling back: %v", err)
	}

	logger.Info("Using built-in EXIF reader for metadata extraction")
	return exif.NewExtractor(), nil
}

// newConverter returns nil when conversion is disabled
func newConverter(cfg config.ConverterConfig) convert.Converter {
	if !cfg.Enabled {
		return nil
	}

	var c convert.Converter
	switch cfg.Kind {
	case "command":
		c = convert.NewCommand(cfg.Command, cfg.Quality)
	default:
		c = convert.NewNative(cfg.Quality)
	}
	return convert.NewLimited(c, cfg.MaxConcurrent)
}

func storageConfig(cfg config.StorageConfig) storage.Config {
	return storage.Config{
		Backend:       cfg.Backend,
		Endpoint:      cfg.Endpoint,
		Region:        cfg.Region,
		Bucket:        cfg.Bucket,
		AccessKey:     cfg.AccessKey,
		SecretKey:     cfg.SecretKey,
		UseSSL:        cfg.UseSSL,
		Prefix:        cfg.Prefix,
		PublicBaseURL: cfg.PublicBaseURL,
		PresignExpiry: cfg.PresignExpiry,
		BlobURL:       cfg.BlobURL,
	}
}

// newPersister returns nil when storage is disabled. The returned store must
// be closed by the caller.
func newPersister(ctx context.Context, cfg *config.Config) (handlers.Persister, storage.Store, error) {
	if !cfg.Storage.Enabled {
		return nil, nil, nil
	}

	store, err := storage.New(ctx, storageConfig(cfg.Storage))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}

	return uploader.New(store, cfg.Upload), store, nil
}
