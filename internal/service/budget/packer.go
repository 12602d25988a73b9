package budget

import (
	"context"
	"fmt"
	"slices"

	"github.com/sandevgo/arcus/internal/core"
	"github.com/sandevgo/arcus/pkg/log"
)

// Packer selects ranked items per category under the allocated quotas.
// Selection is single-pass per strategy; the global ceiling is enforced
// after all categories are packed.
type Packer struct{}

func NewPacker() *Packer {
	return &Packer{}
}

type categoryResult struct {
	selected  []core.RankedItem
	used      int
	oversized int
}

// Pack consumes the ranked lists under the allocation. Cancellation is
// checked at each category boundary; a cancelled pass returns an error
// and no partial result.
func (p *Packer) Pack(ctx context.Context, ranked map[core.Category][]core.RankedItem, alloc core.BudgetAllocation, strategy core.PackingStrategy) (core.PackedContext, error) {
	packed := core.PackedContext{
		Items:            make(map[core.Category][]core.RankedItem, len(ranked)),
		TokensByCategory: make(map[core.Category]int, len(ranked)),
		Coverage:         make(map[core.Category]float64, len(ranked)),
		Utilization:      make(map[core.Category]float64, len(ranked)),
		PackingStrategy:  strategy,
	}

	totalCandidates := 0
	for _, c := range core.Categories() {
		items, ok := ranked[c]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return core.PackedContext{}, fmt.Errorf("packing cancelled before %s: %w", c, err)
		}

		quota := alloc.Quotas[c]
		var res categoryResult
		switch strategy {
		case core.PackDense:
			res = packDense(ctx, c, items, quota)
		case core.PackDiverse:
			res = packDiverse(ctx, c, items, quota)
		default:
			res = packGreedy(ctx, c, items, quota)
		}

		totalCandidates += len(items)
		packed.Items[c] = res.selected
		packed.TokensByCategory[c] = res.used
		packed.TotalTokens += res.used
		packed.TotalItems += len(res.selected)
		packed.OversizedItems += res.oversized
		packed.Coverage[c] = ratio(len(res.selected), len(items))
		packed.Utilization[c] = ratio(res.used, quota)
	}

	enforceCeiling(ctx, &packed, alloc)

	packed.DroppedItems = totalCandidates - packed.TotalItems

	return packed, nil
}

// packGreedy walks the ranked list once, taking every item that still
// fits. An early large item can shadow smaller later ones; that is the
// accepted price of O(n) determinism.
func packGreedy(ctx context.Context, category core.Category, items []core.RankedItem, quota int) categoryResult {
	var res categoryResult
	for _, it := range items {
		size := it.Estimate.TotalTokens
		if size > quota {
			res.oversized++
			warnOversized(ctx, category, it, quota)
			continue
		}
		if res.used+size <= quota {
			it.Selected = true
			res.selected = append(res.selected, it)
			res.used += size
		}
	}
	return res
}

// packDense re-sorts by value density before the greedy walk, which
// approximates a fractional-knapsack bound when item sizes vary widely.
func packDense(ctx context.Context, category core.Category, items []core.RankedItem, quota int) categoryResult {
	dense := slices.Clone(items)
	slices.SortStableFunc(dense, func(a, b core.RankedItem) int {
		da, db := density(a), density(b)
		switch {
		case da > db:
			return -1
		case da < db:
			return 1
		}
		switch {
		case a.RankScore > b.RankScore:
			return -1
		case a.RankScore < b.RankScore:
			return 1
		}
		return 0
	})
	return packGreedy(ctx, category, dense, quota)
}

func density(it core.RankedItem) float64 {
	if it.Estimate.TotalTokens <= 0 {
		// A free item has unbounded value density.
		return it.RankScore * 1e9
	}
	return it.RankScore / float64(it.Estimate.TotalTokens)
}

// packDiverse rotates across source identifiers, taking each source's
// best remaining item per round, so no single source monopolizes the
// category. Sources rotate in order of their best-ranked item.
func packDiverse(ctx context.Context, category core.Category, items []core.RankedItem, quota int) categoryResult {
	var order []string
	bySource := make(map[string][]core.RankedItem)
	for _, it := range items {
		src := it.Item.Source
		if _, seen := bySource[src]; !seen {
			order = append(order, src)
		}
		bySource[src] = append(bySource[src], it)
	}

	var res categoryResult
	cursor := make(map[string]int, len(order))

	for {
		progress := false
		for _, src := range order {
			queue := bySource[src]
			for cursor[src] < len(queue) {
				it := queue[cursor[src]]
				cursor[src]++
				progress = true

				size := it.Estimate.TotalTokens
				if size > quota {
					res.oversized++
					warnOversized(ctx, category, it, quota)
					continue
				}
				if res.used+size > quota {
					// Skipped for good; single pass per item.
					continue
				}

				it.Selected = true
				res.selected = append(res.selected, it)
				res.used += size
				break
			}
		}
		if !progress {
			return res
		}
	}
}

// enforceCeiling trims selections if the category totals ever drift
// above the available budget: drop the lowest-rank selected item from
// the category with the largest overrun until the ceiling holds.
func enforceCeiling(ctx context.Context, packed *core.PackedContext, alloc core.BudgetAllocation) {
	for packed.TotalTokens > alloc.AvailableForContext {
		c, ok := worstOverrun(packed, alloc)
		if !ok {
			return
		}

		idx := lowestRankIndex(packed.Items[c])
		dropped := packed.Items[c][idx]
		packed.Items[c] = slices.Delete(packed.Items[c], idx, idx+1)

		size := dropped.Estimate.TotalTokens
		packed.TokensByCategory[c] -= size
		packed.TotalTokens -= size
		packed.TotalItems--

		log.FromCtx(ctx).Warn().
			Str("category", string(c)).
			Int("tokens", size).
			Msg("trimming selection to hold the context ceiling")
	}
}

func worstOverrun(packed *core.PackedContext, alloc core.BudgetAllocation) (core.Category, bool) {
	var (
		best      core.Category
		bestScore = -1
		found     bool
	)
	for _, c := range core.Categories() {
		if len(packed.Items[c]) == 0 {
			continue
		}
		score := packed.TokensByCategory[c] - alloc.Quotas[c]
		if score < 0 {
			score = 0
		}
		// Prefer the largest overrun; fall back to heaviest usage.
		score = score*1000000 + packed.TokensByCategory[c]
		if !found || score > bestScore {
			best, bestScore, found = c, score, true
		}
	}
	return best, found
}

func lowestRankIndex(items []core.RankedItem) int {
	idx := 0
	for i, it := range items {
		if it.RankScore <= items[idx].RankScore {
			idx = i
		}
	}
	return idx
}

func warnOversized(ctx context.Context, category core.Category, it core.RankedItem, quota int) {
	log.FromCtx(ctx).Warn().
		Str("category", string(category)).
		Str("source", it.Item.Source).
		Int("tokens", it.Estimate.TotalTokens).
		Int("quota", quota).
		Msg("candidate exceeds its category quota, dropping")
}

func ratio(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole)
}
