package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/bstardust/photo-meta/internal/api"
	"github.com/bstardust/photo-meta/internal/api/handlers"
	"github.com/bstardust/photo-meta/internal/config"
	"github.com/bstardust/photo-meta/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP metadata service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(map[string]*pflag.Flag{
				"server.addr":        cmd.Flags().Lookup("addr"),
				"server.temp_dir":    cmd.Flags().Lookup("temp-dir"),
				"extractor.kind":     cmd.Flags().Lookup("extractor"),
				"server.cors_origin": cmd.Flags().Lookup("cors-origin"),
				"converter.enabled":  cmd.Flags().Lookup("convert"),
				"storage.enabled":    cmd.Flags().Lookup("store"),
			})
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("addr", ":3000", "Listen address")
	cmd.Flags().String("temp-dir", "", "Directory for staged uploads (default: system temp dir)")
	cmd.Flags().String("extractor", "auto", "Metadata extractor (auto, exiftool, goexif)")
	cmd.Flags().String("cors-origin", "*", "Allowed CORS origin, empty to disable")
	cmd.Flags().Bool("convert", false, "Convert uploads to JPEG")
	cmd.Flags().Bool("store", false, "Store converted JPEGs in object storage")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	extractor, err := newExtractor(cfg.Extractor)
	if err != nil {
		return err
	}
	defer func() {
		if err := extractor.Close(); err != nil {
			logger.Warn("Failed to close extractor: %v", err)
		}
	}()

	persister, store, err := newPersister(ctx, cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	converter := newConverter(cfg.Converter)
	if converter != nil && persister == nil {
		logger.Warn("converter.enabled has no effect without storage.enabled; photos will not be converted")
		converter = nil
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(&handlers.ExtractHandler{
		Extractor:      extractor,
		Converter:      converter,
		Persister:      persister,
		TempDir:        cfg.Server.TempDir,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, cfg.Server.CORSOrigin)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ErrorLog:          log.New(logger.Writer(), "", 0),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening on %s (converter: %t, storage: %t)", srv.Addr, cfg.Converter.Enabled, cfg.Storage.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
