package token

import (
	"context"
	"fmt"

	"github.com/sandevgo/arcus/internal/config"
	"github.com/sandevgo/arcus/internal/core"
	"github.com/sandevgo/arcus/pkg/log"
)

// NewEstimator builds the estimator selected by config.
func NewEstimator(ctx context.Context, cfg *config.BudgetConfig) (core.Estimator, error) {
	switch cfg.Tokenizer {
	case "", "heuristic":
		return NewHeuristicEstimator(), nil
	case "tiktoken":
		est, err := NewTiktokenEstimator()
		if err != nil {
			return nil, err
		}
		log.FromCtx(ctx).Debug().Msg("using tiktoken estimator")
		return est, nil
	default:
		return nil, fmt.Errorf("unknown tokenizer: %q", cfg.Tokenizer)
	}
}
