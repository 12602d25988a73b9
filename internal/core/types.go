package core

import (
	"fmt"
	"time"
)

const (
	ArcusName          = "Arcus"
	ArcusVersion       = "0.1.0"
	ArcusRepositoryURL = "https://github.com/sandevgo/arcus"
)

// Category is one of the four fixed knowledge partitions.
type Category string

const (
	CategoryEpisodic   Category = "episodic"
	CategorySemantic   Category = "semantic"
	CategoryProcedural Category = "procedural"
	CategoryGraph      Category = "graph"
)

// Categories returns all categories in precedence order. The order is
// load-bearing: the allocator hands the rounding remainder to the first
// max-weight category in this order, and the assembler renders sections
// in this order.
func Categories() []Category {
	return []Category{CategoryProcedural, CategorySemantic, CategoryEpisodic, CategoryGraph}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryEpisodic, CategorySemantic, CategoryProcedural, CategoryGraph:
		return true
	}
	return false
}

// ImportanceTier is the upstream-assigned importance of a candidate.
type ImportanceTier string

const (
	TierLow      ImportanceTier = "low"
	TierNormal   ImportanceTier = "normal"
	TierHigh     ImportanceTier = "high"
	TierCritical ImportanceTier = "critical"
)

// Score maps a tier to its fixed scalar. Unknown tiers score as normal.
func (t ImportanceTier) Score() float64 {
	switch t {
	case TierCritical:
		return 1.0
	case TierHigh:
		return 0.75
	case TierLow:
		return 0.25
	default:
		return 0.5
	}
}

// RankingStrategy selects how sub-scores combine into a rank score.
type RankingStrategy string

const (
	RankRecency    RankingStrategy = "recency"
	RankConfidence RankingStrategy = "confidence"
	RankRelevance  RankingStrategy = "relevance"
	RankImportance RankingStrategy = "importance"
	RankBalanced   RankingStrategy = "balanced"
)

// ParseRankingStrategy maps a wire string to a strategy. The empty
// string means balanced.
func ParseRankingStrategy(s string) (RankingStrategy, error) {
	switch RankingStrategy(s) {
	case RankRecency, RankConfidence, RankRelevance, RankImportance, RankBalanced:
		return RankingStrategy(s), nil
	case "":
		return RankBalanced, nil
	}
	return "", fmt.Errorf("unknown ranking strategy: %q", s)
}

// PackingStrategy selects how ranked items are consumed under a quota.
type PackingStrategy string

const (
	PackGreedy  PackingStrategy = "greedy"
	PackDiverse PackingStrategy = "diverse"
	PackDense   PackingStrategy = "dense"
)

// ParsePackingStrategy maps a wire string to a strategy. The empty
// string means greedy.
func ParsePackingStrategy(s string) (PackingStrategy, error) {
	switch PackingStrategy(s) {
	case PackGreedy, PackDiverse, PackDense:
		return PackingStrategy(s), nil
	case "":
		return PackGreedy, nil
	}
	return "", fmt.Errorf("unknown packing strategy: %q", s)
}

// CandidateItem is a knowledge fragment offered for inclusion. It is
// produced by the upstream stores and read-only inside the engine.
type CandidateItem struct {
	Content    string            `json:"content"`
	Category   Category          `json:"category"`
	ObservedAt time.Time         `json:"observed_at,omitzero"`
	Confidence float64           `json:"confidence"`
	Importance ImportanceTier    `json:"importance,omitempty"`
	Source     string            `json:"source,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// TokenEstimate is the approximate size cost of a candidate.
type TokenEstimate struct {
	ContentTokens  int     `json:"content_tokens"`
	MetadataTokens int     `json:"metadata_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	Confidence     float64 `json:"confidence"`
}

// BudgetAllocation is the per-request split of model capacity.
// Invariant: the quotas sum to AvailableForContext exactly.
type BudgetAllocation struct {
	TotalAvailable      int                  `json:"total_available"`
	ReservedPrompt      int                  `json:"reserved_for_prompt"`
	ReservedResponse    int                  `json:"reserved_for_response"`
	ReservedOverhead    int                  `json:"reserved_for_overhead"`
	AvailableForContext int                  `json:"available_for_context"`
	Quotas              map[Category]int     `json:"quotas"`
	Weights             map[Category]float64 `json:"weights"`
}

// RankedItem is a candidate plus its scores. Within a category, ranked
// items are totally ordered: rank score desc, then confidence desc,
// then recency desc, then original input order.
type RankedItem struct {
	Item            CandidateItem `json:"item"`
	Estimate        TokenEstimate `json:"estimate"`
	RecencyScore    float64       `json:"recency_score"`
	ConfidenceScore float64       `json:"confidence_score"`
	RelevanceScore  float64       `json:"relevance_score"`
	ImportanceScore float64       `json:"importance_score"`
	RankScore       float64       `json:"rank_score"`
	Selected        bool          `json:"selected"`
}

// PackedContext is the result of selection under the budget.
// Invariants: TotalTokens never exceeds the allocation's
// AvailableForContext, and TotalItems+DroppedItems equals the number of
// candidates considered.
type PackedContext struct {
	// Items holds the selected items per category, in selection order.
	Items            map[Category][]RankedItem `json:"-"`
	TokensByCategory map[Category]int          `json:"tokens_by_category"`
	TotalTokens      int                       `json:"total_tokens"`
	TotalItems       int                       `json:"total_items"`
	DroppedItems     int                       `json:"dropped_items"`
	// OversizedItems counts candidates dropped because a single item
	// exceeded its entire category quota.
	OversizedItems  int                  `json:"oversized_items"`
	Coverage        map[Category]float64 `json:"coverage"`
	Utilization     map[Category]float64 `json:"utilization"`
	RankingStrategy RankingStrategy      `json:"ranking_strategy"`
	PackingStrategy PackingStrategy      `json:"packing_strategy"`
}

// ContextPayload is the final rendered context ready for injection.
type ContextPayload struct {
	Text        string              `json:"text"`
	Sections    map[Category]string `json:"sections"`
	TotalTokens int                 `json:"total_tokens"`
	Meta        PayloadMeta         `json:"meta"`
}

// PayloadMeta mirrors the packed-context accounting for the consumer.
type PayloadMeta struct {
	TotalItems      int                  `json:"total_items"`
	DroppedItems    int                  `json:"dropped_items"`
	OversizedItems  int                  `json:"oversized_items"`
	Coverage        map[Category]float64 `json:"coverage"`
	Utilization     map[Category]float64 `json:"utilization"`
	RankingStrategy RankingStrategy      `json:"ranking_strategy"`
	PackingStrategy PackingStrategy      `json:"packing_strategy"`
	// Trimmed reports that formatting overhead forced a last-resort
	// trim during assembly.
	Trimmed bool `json:"trimmed"`
}

// TelemetryRecord is the offline-analysis log entry for one budgeting
// pass. It is written after assembly and never read back in-request.
type TelemetryRecord struct {
	CreatedAt           time.Time            `json:"created_at"`
	Query               string               `json:"query,omitempty"`
	RankingStrategy     RankingStrategy      `json:"ranking_strategy"`
	PackingStrategy     PackingStrategy      `json:"packing_strategy"`
	AvailableForContext int                  `json:"available_for_context"`
	UsedTokens          int                  `json:"used_tokens"`
	TotalItems          int                  `json:"total_items"`
	DroppedItems        int                  `json:"dropped_items"`
	OversizedItems      int                  `json:"oversized_items"`
	RenderTrimmed       bool                 `json:"render_trimmed"`
	Coverage            map[Category]float64 `json:"coverage"`
	Utilization         map[Category]float64 `json:"utilization"`
}
