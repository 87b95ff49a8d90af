// pkg/cli/root.go
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bstardust/photo-meta/internal/config"
	"github.com/bstardust/photo-meta/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// rootOptions carries the global flags and the viper key each flag overrides
type rootOptions struct {
	configFile string
	flags      map[string]*pflag.Flag
}

// load reads and validates the configuration, then applies the log level.
// local maps config keys to the running command's own flags.
func (o *rootOptions) load(local map[string]*pflag.Flag) (*config.Config, error) {
	flags := make(map[string]*pflag.Flag, len(o.flags)+len(local))
	for k, f := range o.flags {
		flags[k] = f
	}
	for k, f := range local {
		flags[k] = f
	}

	cfg, err := config.Load(o.configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{flags: make(map[string]*pflag.Flag)}

	rootCmd := &cobra.Command{
		Use:           "photo-meta",
		Short:         "Extract GPS, capture time and camera metadata from photos",
		Long:          `A service that accepts photo uploads over HTTP, reports their embedded location, capture time and camera, and optionally stores a normalized JPEG copy in object storage.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to a config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	opts.flags["log_level"] = rootCmd.PersistentFlags().Lookup("log-level")

	// Add commands
	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newInspectCommand(opts))

	return rootCmd
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interruption signals
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		logger.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		logger.Error("Error executing command: %v", err)
		os.Exit(1)
	}
}
