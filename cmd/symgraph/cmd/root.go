package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abramin/symgraph/internal/config"
	"github.com/abramin/symgraph/internal/logging"
	"github.com/abramin/symgraph/internal/telemetry"
)

var (
	cfgFile      string
	logLevel     string
	traceEnabled bool
	cfg          *config.Config
	logger       *slog.Logger

	shutdownTracing telemetry.ShutdownFunc
)

var rootCmd = &cobra.Command{
	Use:   "symgraph",
	Short: "symgraph - Build symbol graphs from source indexing events",
	Long: `symgraph consumes the declaration and relation events a source indexer
emits for each translation unit and builds a deduplicated symbol graph:
typed symbols with their locations, and call, inheritance and usage edges
between them.

Edges whose targets were never declared are kept as dangling edges so
incomplete indexes can still be inspected.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		logger, err = logging.NewLogger(os.Stderr, logging.LevelFromString(cfg.Log.Level), cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		slog.SetDefault(logger)

		if traceEnabled {
			cfg.Trace.Enabled = true
		}
		if cfg.Trace.Enabled {
			if err := setupTracing(cfg.Trace.Output); err != nil {
				return err
			}
		}
		return nil
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := shutdownTracing(ctx); serr != nil {
			logger.Warn("flushing spans", "error", serr)
		}
	}
	return err
}

// setupTracing installs the span exporter. output is a file path, or empty
// or "stderr" for standard error.
func setupTracing(output string) error {
	var w io.Writer = os.Stderr
	var file *os.File
	if output != "" && output != "stderr" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("opening trace output: %w", err)
		}
		w, file = f, f
	}

	shutdown, err := telemetry.SetupTracing(w)
	if err != nil {
		if file != nil {
			file.Close()
		}
		return err
	}
	shutdownTracing = func(ctx context.Context) error {
		err := shutdown(ctx)
		if file != nil {
			if cerr := file.Close(); err == nil {
				err = cerr
			}
		}
		return err
	}
	logger.Debug("tracing enabled", "output", output)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./symgraph.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error or silent")
	rootCmd.PersistentFlags().BoolVar(&traceEnabled, "trace", false, "export spans as JSON (see trace.output in the config)")
}

func GetConfig() *config.Config {
	return cfg
}
