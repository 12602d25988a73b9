package budget

import (
	"fmt"
	"math"

	"github.com/sandevgo/arcus/internal/core"
)

// weightTolerance bounds the accepted drift of the weight sum from 1.0.
const weightTolerance = 1e-6

// Allocator converts total model capacity and reservations into
// per-category token quotas.
type Allocator struct {
	overheadFraction float64
	weights          map[core.Category]float64
}

func NewAllocator(overheadFraction float64, weights map[core.Category]float64) *Allocator {
	return &Allocator{
		overheadFraction: overheadFraction,
		weights:          weights,
	}
}

// Allocate splits the capacity left after reservations across the
// categories. Quotas are floored; the rounding remainder goes to the
// category with the largest weight (ties broken by the fixed category
// precedence order) so no capacity is lost.
//
// A nil weights argument uses the allocator's defaults.
func (a *Allocator) Allocate(total, basePrompt, responseReserve int, weights map[core.Category]float64) (core.BudgetAllocation, error) {
	if weights == nil {
		weights = a.weights
	}
	if err := validateWeights(weights); err != nil {
		return core.BudgetAllocation{}, err
	}

	if basePrompt+responseReserve >= total {
		return core.BudgetAllocation{}, fmt.Errorf(
			"%w: total=%d prompt=%d response=%d",
			core.ErrInvalidReservations, total, basePrompt, responseReserve,
		)
	}

	overhead := int(math.Ceil(float64(total) * a.overheadFraction))
	available := total - basePrompt - responseReserve - overhead
	if available <= 0 {
		return core.BudgetAllocation{}, fmt.Errorf(
			"%w: total=%d prompt=%d response=%d overhead=%d",
			core.ErrBudgetExhausted, total, basePrompt, responseReserve, overhead,
		)
	}

	quotas := make(map[core.Category]int, len(core.Categories()))
	assigned := 0
	for _, c := range core.Categories() {
		q := int(float64(available) * weights[c])
		quotas[c] = q
		assigned += q
	}

	// Hand the floor-rounding remainder to the heaviest category.
	if remainder := available - assigned; remainder > 0 {
		quotas[maxWeightCategory(weights)] += remainder
	}

	return core.BudgetAllocation{
		TotalAvailable:      total,
		ReservedPrompt:      basePrompt,
		ReservedResponse:    responseReserve,
		ReservedOverhead:    overhead,
		AvailableForContext: available,
		Quotas:              quotas,
		Weights:             weights,
	}, nil
}

func validateWeights(weights map[core.Category]float64) error {
	sum := 0.0
	for _, c := range core.Categories() {
		w := weights[c]
		if w < 0 {
			return fmt.Errorf("%w: negative weight %.4f for %s", core.ErrInvalidWeights, w, c)
		}
		sum += w
	}
	for c := range weights {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown category %q", core.ErrInvalidWeights, c)
		}
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %.6f, want 1.0", core.ErrInvalidWeights, sum)
	}
	return nil
}

func maxWeightCategory(weights map[core.Category]float64) core.Category {
	best := core.Categories()[0]
	for _, c := range core.Categories() {
		if weights[c] > weights[best] {
			best = c
		}
	}
	return best
}
