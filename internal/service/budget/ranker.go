package budget

import (
	"math"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/sandevgo/arcus/internal/core"
)

const defaultHalfLife = 7 * 24 * time.Hour

// neutralScore is used when a sub-score has no signal to work with: no
// query for relevance, no timestamp for recency. Neutral keeps the
// factor from dominating or zeroing the combination.
const neutralScore = 0.5

// phraseBoost rewards an exact query phrase match on top of the token
// overlap.
const phraseBoost = 0.3

// Ranker scores and orders candidates within a category. Ranking is a
// pure function of (candidates, strategy, query, now).
type Ranker struct {
	estimator core.Estimator
	halfLife  time.Duration
}

func NewRanker(estimator core.Estimator, halfLife time.Duration) *Ranker {
	if halfLife <= 0 {
		halfLife = defaultHalfLife
	}
	return &Ranker{
		estimator: estimator,
		halfLife:  halfLife,
	}
}

// Rank returns the candidates ordered descending by rank score, with
// selection flags cleared. Ties break on confidence, then recency, then
// original input order, so reruns are reproducible.
func (r *Ranker) Rank(items []core.CandidateItem, strategy core.RankingStrategy, query string, now time.Time) []core.RankedItem {
	if len(items) == 0 {
		return nil
	}

	queryTokens := tokenize(query)

	ranked := make([]core.RankedItem, 0, len(items))
	for _, item := range items {
		recency := r.scoreRecency(item.ObservedAt, now)
		confidence := clamp01(item.Confidence)
		relevance := neutralScore
		if query != "" {
			relevance = scoreRelevance(item.Content, query, queryTokens)
		}
		importance := item.Importance.Score()

		ranked = append(ranked, core.RankedItem{
			Item:            item,
			Estimate:        r.estimator.Estimate(item),
			RecencyScore:    recency,
			ConfidenceScore: confidence,
			RelevanceScore:  relevance,
			ImportanceScore: importance,
			RankScore:       combineScores(strategy, recency, confidence, relevance, importance),
		})
	}

	slices.SortStableFunc(ranked, func(a, b core.RankedItem) int {
		switch {
		case a.RankScore > b.RankScore:
			return -1
		case a.RankScore < b.RankScore:
			return 1
		}
		switch {
		case a.ConfidenceScore > b.ConfidenceScore:
			return -1
		case a.ConfidenceScore < b.ConfidenceScore:
			return 1
		}
		switch {
		case a.Item.ObservedAt.After(b.Item.ObservedAt):
			return -1
		case a.Item.ObservedAt.Before(b.Item.ObservedAt):
			return 1
		}
		// Stable sort keeps original input order for full ties.
		return 0
	})

	return ranked
}

// scoreRecency decays exponentially with age; the configured half-life
// puts an item of exactly that age at 0.5.
func (r *Ranker) scoreRecency(observedAt, now time.Time) float64 {
	if observedAt.IsZero() {
		return neutralScore
	}

	age := now.Sub(observedAt).Seconds()
	if age <= 0 {
		return 1.0
	}

	lambda := math.Ln2 / r.halfLife.Seconds()
	return clamp01(math.Exp(-lambda * age))
}

// scoreRelevance is the Jaccard similarity of the query and content
// token sets, boosted for an exact phrase match.
func scoreRelevance(content, query string, queryTokens map[string]struct{}) float64 {
	contentTokens := tokenize(content)
	if len(queryTokens) == 0 || len(contentTokens) == 0 {
		return neutralScore
	}

	intersection := 0
	for tok := range queryTokens {
		if _, ok := contentTokens[tok]; ok {
			intersection++
		}
	}
	union := len(queryTokens) + len(contentTokens) - intersection

	score := float64(intersection) / float64(union)

	if strings.Contains(strings.ToLower(content), strings.ToLower(query)) {
		score += phraseBoost
	}

	return clamp01(score)
}

func combineScores(strategy core.RankingStrategy, recency, confidence, relevance, importance float64) float64 {
	switch strategy {
	case core.RankRecency:
		return recency
	case core.RankConfidence:
		return confidence
	case core.RankRelevance:
		return relevance
	case core.RankImportance:
		return importance
	default:
		return (recency + confidence + relevance + importance) / 4
	}
}

func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
