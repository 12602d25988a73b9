// Package mcp exposes the budgeting engine over the Model Context
// Protocol (stdio transport), so an orchestrator can call it as a tool.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sandevgo/arcus/internal/config"
	"github.com/sandevgo/arcus/internal/core"
	"github.com/sandevgo/arcus/internal/service/budget"
	"github.com/sandevgo/arcus/pkg/log"
	"github.com/sandevgo/arcus/pkg/srv"
)

const serverInstructions = `Arcus selects the highest-value knowledge fragments that fit a model's
context window. Call allocate_budget to see the per-category token split
for a capacity, or build_context to rank, pack and render candidate
fragments into an injectable context payload.`

var _ srv.Service = (*Service)(nil)

// Service runs the MCP server over stdio as a managed service.
type Service struct {
	mcp *server.MCPServer
}

func NewService(engine *budget.Engine, appCfg *config.AppConfig, budgetCfg *config.BudgetConfig) *Service {
	s := server.NewMCPServer(
		core.ArcusName,
		core.ArcusVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)

	allocateTool := NewAllocateTool(engine, appCfg, budgetCfg)
	s.AddTool(allocateTool.Definition(), allocateTool.Handle)

	buildTool := NewBuildTool(engine, appCfg, budgetCfg)
	s.AddTool(buildTool.Definition(), buildTool.Handle)

	return &Service{mcp: s}
}

// Start serves until stdin closes. Logs go to stderr, so they never
// corrupt the stdio transport.
func (s *Service) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting mcp server on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Service) Shutdown(ctx context.Context) error {
	// The stdio server terminates with its stdin; nothing to release.
	return nil
}
