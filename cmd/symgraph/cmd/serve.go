package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abramin/symgraph/internal/server"
	"github.com/abramin/symgraph/internal/telemetry"
)

var (
	servePort    int
	serveProject string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the indexed symbol graph over HTTP",
	Long: `Start a local HTTP server over the persisted symbol graph.

The API provides:
- Symbol search and lookup
- Callers and callees of a symbol, including dangling calls
- Bounded call graphs rooted at a symbol
- Diagnostics recorded while building
- Prometheus metrics at /metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := GetConfig()
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv, err := server.New(server.Config{
			Port:    port,
			DataDir: cfg.DataDirFor(serveProject),
			Logger:  logger,
			Metrics: telemetry.NewMetrics(),
		})
		if err != nil {
			return err
		}
		return srv.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "port to run the server on")
	serveCmd.Flags().StringVarP(&serveProject, "project", "C", ".", "project directory that holds the data dir")
}
