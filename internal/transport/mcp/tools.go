package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sandevgo/arcus/internal/config"
	"github.com/sandevgo/arcus/internal/core"
	"github.com/sandevgo/arcus/internal/service/budget"
)

// AllocateTool handles the allocate_budget MCP tool.
type AllocateTool struct {
	engine    *budget.Engine
	appCfg    *config.AppConfig
	budgetCfg *config.BudgetConfig
}

func NewAllocateTool(engine *budget.Engine, appCfg *config.AppConfig, budgetCfg *config.BudgetConfig) *AllocateTool {
	return &AllocateTool{engine: engine, appCfg: appCfg, budgetCfg: budgetCfg}
}

func (t *AllocateTool) Definition() mcp.Tool {
	return mcp.NewTool("allocate_budget",
		mcp.WithDescription(
			"Split a model's context capacity into per-category token quotas "+
				"(procedural, semantic, episodic, graph) after subtracting the "+
				"base prompt, expected response and overhead reservations.",
		),
		mcp.WithNumber("total_capacity",
			mcp.Description("Total model context capacity in tokens (default: the configured model's limit)"),
		),
		mcp.WithNumber("base_prompt_tokens",
			mcp.Description("Tokens already consumed by the system prompt"),
		),
		mcp.WithNumber("response_tokens",
			mcp.Description("Tokens reserved for the model's response"),
		),
		mcp.WithString("task",
			mcp.Description("Optional task profile for weight presets (code_review, conversation, research, ...)"),
		),
	)
}

func (t *AllocateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	total := intArg(req, "total_capacity", t.appCfg.ContextLimit())
	basePrompt := intArg(req, "base_prompt_tokens", 0)
	response := intArg(req, "response_tokens", t.budgetCfg.ResponseReserve)
	weights := config.TaskWeights(strArg(req, "task", ""))

	alloc, err := t.engine.Allocate(total, basePrompt, response, weights)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("allocation failed: %v", err)), nil
	}

	return jsonResult(alloc)
}

// BuildTool handles the build_context MCP tool.
type BuildTool struct {
	engine    *budget.Engine
	appCfg    *config.AppConfig
	budgetCfg *config.BudgetConfig
}

func NewBuildTool(engine *budget.Engine, appCfg *config.AppConfig, budgetCfg *config.BudgetConfig) *BuildTool {
	return &BuildTool{engine: engine, appCfg: appCfg, budgetCfg: budgetCfg}
}

func (t *BuildTool) Definition() mcp.Tool {
	return mcp.NewTool("build_context",
		mcp.WithDescription(
			"Rank candidate knowledge fragments, pack the highest-value subset "+
				"under the token budget and render the result as an injectable "+
				"context payload with selection telemetry.",
		),
		mcp.WithString("candidates",
			mcp.Required(),
			mcp.Description("JSON array of candidate items: {content, category, observed_at, confidence, importance, source, metadata}"),
		),
		mcp.WithString("query",
			mcp.Description("Optional free-text query for relevance scoring"),
		),
		mcp.WithString("ranking",
			mcp.Description("Ranking strategy: recency, confidence, relevance, importance or balanced (default)"),
		),
		mcp.WithString("packing",
			mcp.Description("Packing strategy: greedy (default), diverse or dense"),
		),
		mcp.WithNumber("total_capacity",
			mcp.Description("Total model context capacity in tokens (default: the configured model's limit)"),
		),
		mcp.WithNumber("base_prompt_tokens",
			mcp.Description("Tokens already consumed by the system prompt"),
		),
		mcp.WithNumber("response_tokens",
			mcp.Description("Tokens reserved for the model's response"),
		),
		mcp.WithString("task",
			mcp.Description("Optional task profile for weight presets"),
		),
	)
}

func (t *BuildTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := strArg(req, "candidates", "")
	if raw == "" {
		return mcp.NewToolResultError("'candidates' is required"), nil
	}

	var items []core.CandidateItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid candidates JSON: %v", err)), nil
	}

	candidates := make(map[core.Category][]core.CandidateItem)
	for i, item := range items {
		if !item.Category.Valid() {
			return mcp.NewToolResultError(fmt.Sprintf("candidate %d has unknown category %q", i, item.Category)), nil
		}
		candidates[item.Category] = append(candidates[item.Category], item)
	}

	ranking, err := core.ParseRankingStrategy(strArg(req, "ranking", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	packing, err := core.ParsePackingStrategy(strArg(req, "packing", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	payload, _, err := t.engine.BuildContext(ctx, budget.Request{
		TotalCapacity:    intArg(req, "total_capacity", t.appCfg.ContextLimit()),
		BasePromptTokens: intArg(req, "base_prompt_tokens", 0),
		ResponseTokens:   intArg(req, "response_tokens", t.budgetCfg.ResponseReserve),
		Query:            strArg(req, "query", ""),
		Ranking:          ranking,
		Packing:          packing,
		Candidates:       candidates,
		Weights:          config.TaskWeights(strArg(req, "task", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("context build failed: %v", err)), nil
	}

	return jsonResult(payload)
}

// intArg extracts an integer argument, returning defaultVal if the key
// is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func strArg(req mcp.CallToolRequest, key string, defaultVal string) string {
	v, ok := req.GetArguments()[key].(string)
	if !ok {
		return defaultVal
	}
	return v
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
