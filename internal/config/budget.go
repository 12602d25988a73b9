package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/arcus/internal/core"
	"github.com/sandevgo/arcus/pkg/log"
)

type BudgetConfig struct {
	// OverheadFraction of total capacity is reserved for system
	// prompt formatting and safety margin.
	OverheadFraction float64 `env:"ARCUS_OVERHEAD_FRACTION" envDefault:"0.15"`

	// RecencyHalfLife controls the exponential decay of the recency
	// sub-score. 168h = 7 days.
	RecencyHalfLife time.Duration `env:"ARCUS_RECENCY_HALF_LIFE" envDefault:"168h"`

	// Default category weights. Must sum to 1.0.
	ProceduralWeight float64 `env:"ARCUS_WEIGHT_PROCEDURAL" envDefault:"0.35"`
	SemanticWeight   float64 `env:"ARCUS_WEIGHT_SEMANTIC" envDefault:"0.30"`
	EpisodicWeight   float64 `env:"ARCUS_WEIGHT_EPISODIC" envDefault:"0.25"`
	GraphWeight      float64 `env:"ARCUS_WEIGHT_GRAPH" envDefault:"0.10"`

	// Tokenizer selects the estimator backend: heuristic or tiktoken.
	Tokenizer string `env:"ARCUS_TOKENIZER" envDefault:"heuristic"`

	// ResponseReserve is the default expected-response reservation.
	ResponseReserve int `env:"ARCUS_RESPONSE_RESERVE" envDefault:"4000"`
}

func NewBudgetConfig(ctx context.Context) *BudgetConfig {
	c := &BudgetConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Budget config")
	}
	return c
}

func (c *BudgetConfig) Weights() map[core.Category]float64 {
	return map[core.Category]float64{
		core.CategoryProcedural: c.ProceduralWeight,
		core.CategorySemantic:   c.SemanticWeight,
		core.CategoryEpisodic:   c.EpisodicWeight,
		core.CategoryGraph:      c.GraphWeight,
	}
}
