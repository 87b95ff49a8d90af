package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bstardust/photo-meta/internal/config"
	"github.com/bstardust/photo-meta/internal/metadata"
	"github.com/bstardust/photo-meta/internal/progress"
	"github.com/bstardust/photo-meta/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type inspectResult struct {
	File string `json:"file"`
	metadata.Record
	Error string `json:"error,omitempty"`
}

func newInspectCommand(opts *rootOptions) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "inspect [flags] <photo>...",
		Short: "Print the metadata record of local photos as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(map[string]*pflag.Flag{
				"extractor.kind": cmd.Flags().Lookup("extractor"),
			})
			if err != nil {
				return err
			}
			return runInspect(cmd, cfg, concurrency, args)
		},
	}

	cmd.Flags().String("extractor", "auto", "Metadata extractor (auto, exiftool, goexif)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Number of files read concurrently")

	return cmd
}

func runInspect(cmd *cobra.Command, cfg *config.Config, concurrency int, paths []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	extractor, err := newExtractor(cfg.Extractor)
	if err != nil {
		return err
	}
	defer extractor.Close()

	results := make([]inspectResult, len(paths))
	pool := worker.NewPool(concurrency)
	reporter := progress.New()
	reporter.Start(len(paths))

	for i, path := range paths {
		i, path := i, path
		err := pool.Submit(ctx, func() {
			results[i].File = path

			tags, err := extractor.Extract(ctx, path)
			if err != nil {
				results[i].Error = err.Error()
				reporter.Error(path, err)
				return
			}
			results[i].Record = metadata.BuildRecord(tags)
			reporter.Done(path, results[i].HasLocationData)
		})
		if err != nil {
			pool.Wait()
			return err
		}
	}
	pool.Wait()
	summary := reporter.Finish()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	if summary.Errors > 0 {
		return fmt.Errorf("%d of %d files could not be read", summary.Errors, summary.Total)
	}
	return nil
}
