package budget

import (
	"strconv"
	"time"

	"github.com/sandevgo/arcus/internal/config"
	"github.com/sandevgo/arcus/internal/core"
)

// stubEstimator lets tests control token counts exactly: the item size
// comes from the "tokens" metadata key when present, otherwise one
// token per 4 characters.
type stubEstimator struct{}

func (stubEstimator) Estimate(item core.CandidateItem) core.TokenEstimate {
	tokens := len(item.Content) / 4
	if v, ok := item.Metadata["tokens"]; ok {
		tokens, _ = strconv.Atoi(v)
	}
	return core.TokenEstimate{
		ContentTokens: tokens,
		TotalTokens:   tokens,
		Confidence:    1.0,
	}
}

func (stubEstimator) EstimateText(text string) int {
	return len(text) / 4
}

// charEstimator counts one token per character, which makes rendering
// overhead dominate and forces the assembler's trim path.
type charEstimator struct{}

func (charEstimator) Estimate(item core.CandidateItem) core.TokenEstimate {
	n := len(item.Content)
	return core.TokenEstimate{ContentTokens: n, TotalTokens: n, Confidence: 1.0}
}

func (charEstimator) EstimateText(text string) int {
	return len(text)
}

func defaultWeights() map[core.Category]float64 {
	return map[core.Category]float64{
		core.CategoryProcedural: 0.35,
		core.CategorySemantic:   0.30,
		core.CategoryEpisodic:   0.25,
		core.CategoryGraph:      0.10,
	}
}

func equalWeights() map[core.Category]float64 {
	return map[core.Category]float64{
		core.CategoryProcedural: 0.25,
		core.CategorySemantic:   0.25,
		core.CategoryEpisodic:   0.25,
		core.CategoryGraph:      0.25,
	}
}

func testBudgetConfig() *config.BudgetConfig {
	return &config.BudgetConfig{
		OverheadFraction: 0.15,
		RecencyHalfLife:  168 * time.Hour,
		ProceduralWeight: 0.35,
		SemanticWeight:   0.30,
		EpisodicWeight:   0.25,
		GraphWeight:      0.10,
		Tokenizer:        "heuristic",
		ResponseReserve:  4000,
	}
}

// sizedCandidate builds a candidate whose stub-estimated size is exactly
// the given token count.
func sizedCandidate(category core.Category, source string, tokens int) core.CandidateItem {
	return core.CandidateItem{
		Content:    "item from " + source,
		Category:   category,
		Confidence: 0.8,
		Source:     source,
		Metadata:   map[string]string{"tokens": strconv.Itoa(tokens)},
	}
}

// sizedRanked builds a pre-scored item for packer tests, bypassing the
// ranker.
func sizedRanked(source string, rank float64, tokens int) core.RankedItem {
	return core.RankedItem{
		Item: core.CandidateItem{
			Content: "item from " + source,
			Source:  source,
		},
		Estimate:  core.TokenEstimate{ContentTokens: tokens, TotalTokens: tokens, Confidence: 1.0},
		RankScore: rank,
	}
}

// allocFor builds an allocation whose available budget is the quota sum.
func allocFor(quotas map[core.Category]int) core.BudgetAllocation {
	available := 0
	for _, q := range quotas {
		available += q
	}
	return core.BudgetAllocation{
		AvailableForContext: available,
		Quotas:              quotas,
	}
}
