package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abramin/symgraph/internal/index"
	"github.com/abramin/symgraph/internal/telemetry"
)

var indexProject string

var indexCmd = &cobra.Command{
	Use:   "index [paths...]",
	Short: "Replay event logs and build the symbol graph",
	Long: `Replay the event logs of every translation unit and persist the
resulting symbol graph.

The index command:
- Discovers event logs (*.jsonl by default) under the given paths
- Replays each log on its own builder, in parallel
- Merges the builders and resolves edge targets
- Persists symbols, edges and diagnostics to .symgraph/index.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := GetConfig()
		fmt.Printf("Indexing event logs in: %s\n", indexProject)

		indexer := index.NewIndexer(cfg, indexProject,
			index.WithLogger(logger),
			index.WithMetrics(telemetry.NewMetrics()),
			index.WithProgress(func(current, total int) {
				logger.Debug("progress", "done", current, "total", total)
			}),
		)
		result, err := indexer.Run(ctx, args)
		if err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}

		fmt.Println()
		fmt.Printf("Indexing complete!\n")
		fmt.Printf("  Event logs:  %d\n", result.EventLogs)
		fmt.Printf("  Events:      %d (%d skipped, %d dropped)\n", result.Events, result.Skipped, result.Dropped)
		fmt.Printf("  Symbols:     %d\n", result.Symbols)
		fmt.Printf("  Edges:       %d (%d dangling)\n", result.Edges, result.Dangling)
		fmt.Printf("  Diagnostics: %d\n", result.Diagnostics)
		fmt.Printf("  Duration:    %s\n", result.Duration.Round(time.Millisecond))
		fmt.Printf("  Database:    %s\n", result.DBPath)
		fmt.Printf("  Metrics:     %s\n", filepath.Join(filepath.Dir(result.DBPath), index.MetricsFile))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVarP(&indexProject, "project", "C", ".", "project directory that holds the data dir")
}
