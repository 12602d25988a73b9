package token

import (
	"sort"
	"strings"

	"github.com/sandevgo/arcus/internal/core"
)

// charsPerToken is the average for GPT/Claude tokenizers.
const charsPerToken = 4.0

// metadataOverheadTokens covers the source id, tier and timestamp that
// accompany a candidate when rendered.
const metadataOverheadTokens = 15

var _ core.Estimator = (*HeuristicEstimator)(nil)

// HeuristicEstimator derives token counts from character counts with
// adjustments for code and structured data. It is cheap and pure, at
// the cost of a lower estimate confidence than a real tokenizer.
type HeuristicEstimator struct {
	charsPerToken float64
}

func NewHeuristicEstimator() *HeuristicEstimator {
	return &HeuristicEstimator{charsPerToken: charsPerToken}
}

func (e *HeuristicEstimator) Estimate(item core.CandidateItem) core.TokenEstimate {
	contentTokens := e.EstimateText(item.Content)

	metadataTokens := metadataOverheadTokens
	if len(item.Metadata) > 0 {
		metadataTokens += e.EstimateText(metadataText(item.Metadata))
	}

	charCount := len(item.Content)

	// Longer content averages out tokenizer quirks, so the estimate
	// confidence grows with length, capped below certainty.
	confidence := 0.5 + float64(charCount)/10000*0.45
	if confidence > 0.95 {
		confidence = 0.95
	}

	return core.TokenEstimate{
		ContentTokens:  contentTokens,
		MetadataTokens: metadataTokens,
		TotalTokens:    contentTokens + metadataTokens,
		Confidence:     confidence,
	}
}

func (e *HeuristicEstimator) EstimateText(text string) int {
	if text == "" {
		return 0
	}
	return int(float64(len(text)) / e.charsPerToken * contentMultiplier(text))
}

// contentMultiplier adjusts for content that tokenizes denser than
// prose: code and JSON-like structures use more tokens per character.
func contentMultiplier(text string) float64 {
	codeIndicators := []string{
		"def ", "class ", "func ", "function ", "const ", "let ", "var ",
		"import ", "from ", "export ", "return ", "async ", "await ",
	}
	codeCount := 0
	for _, indicator := range codeIndicators {
		if strings.Contains(text, indicator) {
			codeCount++
		}
	}

	jsonIndicators := []string{"{", "}", "[", "]", `": `, `': `}
	jsonCount := 0
	for _, indicator := range jsonIndicators {
		jsonCount += strings.Count(text, indicator)
	}

	multiplier := 1.0

	if codeCount > 3 {
		multiplier *= 1.2
	} else if codeCount > 0 {
		multiplier *= 1.1
	}

	if jsonCount > 10 {
		multiplier *= 1.15
	}

	return multiplier
}

// metadataText renders a metadata map as key-sorted lines so that the
// estimate is deterministic regardless of map iteration order.
func metadataText(metadata map[string]string) string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(metadata[k])
		sb.WriteString("\n")
	}
	return sb.String()
}
