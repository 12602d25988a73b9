package main

import (
	"os"
	"os/signal"

	"github.com/sandevgo/arcus/pkg/log"
	"github.com/sandevgo/arcus/pkg/srv"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Arcus MCP server (stdio transport)",
	Long:  `Serves the budgeting engine over the Model Context Protocol so an orchestrator can call allocate_budget and build_context as tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting arcus")

		services := NewServices(ctx)

		srv.StartServices(ctx, services)

		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("arcus has been shut down gracefully")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
