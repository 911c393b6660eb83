package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/timmy/phototag/internal/config"
	"github.com/timmy/phototag/internal/encoder"
	"github.com/timmy/phototag/internal/logger"
	"github.com/timmy/phototag/internal/repository"
	"github.com/timmy/phototag/internal/service"
	"github.com/timmy/phototag/internal/storage"
	"github.com/timmy/phototag/internal/store"
)

type options struct {
	configPath string
	workers    int
	limit      int
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "index",
		Short:         "Build and inspect the photo embedding index",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetDefaultLogger(logger.NewFromEnv(logger.LoadFromEnv("phototag-index")))
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file")

	root.AddCommand(newBuildCmd(opts), newRunsCmd(opts), newInspectCmd(opts))
	return root
}

func newBuildCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Embed every image and replace the embedding store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if opts.workers > 0 {
				cfg.Index.Workers = opts.workers
			}
			if err := cfg.Encoder.ValidateWithAPIKey(); err != nil {
				return err
			}

			fs := afero.NewOsFs()
			src, err := storage.NewImageSource(fs, cfg.Storage)
			if err != nil {
				return fmt.Errorf("failed to initialize image source: %w", err)
			}
			enc, err := encoder.New(&cfg.Encoder)
			if err != nil {
				return err
			}

			var runs service.IndexRunRecorder
			if cfg.Database.Enabled {
				db, err := repository.InitDB(&cfg.Database)
				if err != nil {
					return fmt.Errorf("failed to initialize database: %w", err)
				}
				runs = repository.NewIndexRunRepository(db)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			indexer := service.NewIndexer(fs, enc, runs, logger.GetDefault(), &service.IndexerConfig{
				StorePath: cfg.Paths.Embeddings,
				Workers:   cfg.Index.Workers,
			})
			result, runErr := indexer.Run(ctx, src)
			if result != nil {
				printSummary(cmd, result)
			}
			return runErr
		},
	}
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "number of concurrent encoder calls (default from config)")
	return cmd
}

func printSummary(cmd *cobra.Command, result *service.BatchResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d images, %d indexed, %d failed, dimension %d, %s\n",
		result.RunID, result.Total, result.Succeeded, result.Failed, result.Dimension, result.Duration().Round(1e6))
	for _, f := range result.Failures {
		fmt.Fprintf(out, "  %s: %s\n", f.ID, f.Reason)
	}
	if !result.Persisted {
		fmt.Fprintln(out, "embedding store was not replaced")
	}
}

func newRunsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded indexing runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !cfg.Database.Enabled {
				return fmt.Errorf("run history is disabled (database.enabled=false)")
			}
			db, err := repository.InitDB(&cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}

			runs, err := repository.NewIndexRunRepository(db).List(context.Background(), opts.limit, 0)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			return writeJSON(cmd, runs)
		},
	}
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "number of runs to show")
	return cmd
}

func newInspectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show what the persisted stores contain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			fs := afero.NewOsFs()

			embeddings, err := store.LoadEmbeddingStore(fs, cfg.Paths.Embeddings)
			if err != nil {
				return err
			}
			tags, err := store.LoadTagStore(fs, cfg.Paths.Tags)
			if err != nil {
				return err
			}

			return writeJSON(cmd, map[string]any{
				"embeddings": map[string]any{
					"path":      cfg.Paths.Embeddings,
					"present":   embeddings.Present(),
					"model":     embeddings.Model(),
					"dimension": embeddings.Dimension(),
					"images":    embeddings.Len(),
				},
				"tags": map[string]any{
					"path":    cfg.Paths.Tags,
					"present": tags.Present(),
					"tagged":  tags.Len(),
				},
			})
		},
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
