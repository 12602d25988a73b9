package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/arcus/internal/config"
	"github.com/sandevgo/arcus/internal/providers/token"
	"github.com/sandevgo/arcus/internal/service/budget"
	"github.com/sandevgo/arcus/internal/storage/sqlite"
	"github.com/sandevgo/arcus/internal/transport/mcp"
	"github.com/sandevgo/arcus/pkg/log"
	"github.com/sandevgo/arcus/pkg/srv"
)

// NewServices wires the engine and its MCP transport for `serve`.
func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	budgetCfg := config.NewBudgetConfig(ctx)

	// 2. Engine
	engine, cleanup := newEngine(ctx, appCfg, budgetCfg)
	if cleanup != nil {
		services = append(services, srv.NewCleanup(cleanup))
	}

	// 3. Transport
	services = append(services, mcp.NewService(engine, appCfg, budgetCfg))

	return services
}

// newEngine builds the engine with its estimator and, when enabled, the
// sqlite telemetry sink. The returned cleanup closes the database.
func newEngine(ctx context.Context, appCfg *config.AppConfig, budgetCfg *config.BudgetConfig) (*budget.Engine, func() error) {
	logger := log.FromCtx(ctx)

	estimator, err := token.NewEstimator(ctx, budgetCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize token estimator")
	}

	opts := []budget.Option{}
	var cleanup func() error

	if appCfg.EnableTelemetry {
		db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
		if err != nil {
			// Telemetry is best-effort; the engine works without it.
			logger.Warn().Err(err).Msg("telemetry storage disabled")
		} else {
			opts = append(opts, budget.WithTelemetry(sqlite.NewTelemetryRepo(db)))
			cleanup = db.Close
		}
	}

	return budget.NewEngine(budgetCfg, estimator, opts...), cleanup
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
