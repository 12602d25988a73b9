package budget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sandevgo/arcus/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTelemetry struct {
	mu      sync.Mutex
	records []core.TelemetryRecord
	err     error
}

func (f *fakeTelemetry) Save(_ context.Context, rec core.TelemetryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func testCandidates(now time.Time) map[core.Category][]core.CandidateItem {
	fresh := func(c core.CandidateItem, age time.Duration) core.CandidateItem {
		c.ObservedAt = now.Add(-age)
		return c
	}
	return map[core.Category][]core.CandidateItem{
		core.CategoryEpisodic: {
			fresh(sizedCandidate(core.CategoryEpisodic, "session-1", 120), time.Hour),
			fresh(sizedCandidate(core.CategoryEpisodic, "session-2", 80), 48*time.Hour),
		},
		core.CategorySemantic: {
			fresh(sizedCandidate(core.CategorySemantic, "facts", 200), 24*time.Hour),
			fresh(sizedCandidate(core.CategorySemantic, "patterns", 90), 240*time.Hour),
		},
		core.CategoryProcedural: {
			fresh(sizedCandidate(core.CategoryProcedural, "workflow", 150), 12*time.Hour),
		},
		core.CategoryGraph: {
			fresh(sizedCandidate(core.CategoryGraph, "org-chart", 60), 6*time.Hour),
		},
	}
}

func TestBuildContext_Deterministic(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(testBudgetConfig(), stubEstimator{})

	req := Request{
		TotalCapacity:    32000,
		BasePromptTokens: 1000,
		ResponseTokens:   2000,
		Query:            "workflow",
		Ranking:          core.RankBalanced,
		Packing:          core.PackGreedy,
		Candidates:       testCandidates(now),
		Now:              now,
	}

	payload1, record1, err := engine.BuildContext(context.Background(), req)
	require.NoError(t, err)
	payload2, record2, err := engine.BuildContext(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, payload1.Text, payload2.Text)
	assert.Equal(t, payload1.TotalTokens, payload2.TotalTokens)
	assert.Equal(t, record1, record2)
}

func TestBuildContext_Defaults(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(testBudgetConfig(), stubEstimator{})

	_, record, err := engine.BuildContext(context.Background(), Request{
		TotalCapacity:  32000,
		ResponseTokens: 2000,
		Candidates:     testCandidates(now),
		Now:            now,
	})
	require.NoError(t, err)

	assert.Equal(t, core.RankBalanced, record.RankingStrategy)
	assert.Equal(t, core.PackGreedy, record.PackingStrategy)
}

func TestBuildContext_Accounting(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(testBudgetConfig(), stubEstimator{})
	candidates := testCandidates(now)

	total := 0
	for _, items := range candidates {
		total += len(items)
	}

	payload, record, err := engine.BuildContext(context.Background(), Request{
		TotalCapacity:  32000,
		ResponseTokens: 2000,
		Candidates:     candidates,
		Now:            now,
	})
	require.NoError(t, err)

	assert.Equal(t, total, record.TotalItems+record.DroppedItems,
		"every candidate is either selected or dropped")
	assert.LessOrEqual(t, record.UsedTokens, record.AvailableForContext)
	assert.LessOrEqual(t, payload.TotalTokens, record.AvailableForContext)
	assert.Equal(t, record.TotalItems, payload.Meta.TotalItems)
}

func TestBuildContext_TinyBudgetDropsEverything(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(testBudgetConfig(), stubEstimator{})

	// Capacity leaves a sliver of context smaller than any candidate.
	payload, record, err := engine.BuildContext(context.Background(), Request{
		TotalCapacity: 30,
		Candidates:    testCandidates(now),
		Now:           now,
	})
	require.NoError(t, err)

	assert.Zero(t, record.TotalItems)
	assert.NotZero(t, record.DroppedItems)
	assert.Empty(t, payload.Text)
}

func TestBuildContext_ExhaustedBudget(t *testing.T) {
	engine := NewEngine(testBudgetConfig(), stubEstimator{})

	// Reservations fit, but the 15% overhead margin wipes out the rest.
	_, _, err := engine.BuildContext(context.Background(), Request{
		TotalCapacity:    10000,
		BasePromptTokens: 6000,
		ResponseTokens:   3000,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrBudgetExhausted))
}

func TestBuildContext_InvalidReservations(t *testing.T) {
	engine := NewEngine(testBudgetConfig(), stubEstimator{})

	_, _, err := engine.BuildContext(context.Background(), Request{
		TotalCapacity:    10000,
		BasePromptTokens: 9000,
		ResponseTokens:   4000,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidReservations))
}

func TestBuildContext_Cancelled(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(testBudgetConfig(), stubEstimator{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := engine.BuildContext(ctx, Request{
		TotalCapacity: 32000,
		Candidates:    testCandidates(now),
		Now:           now,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBuildContext_TelemetrySaved(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	sink := &fakeTelemetry{}
	engine := NewEngine(testBudgetConfig(), stubEstimator{}, WithTelemetry(sink))

	_, record, err := engine.BuildContext(context.Background(), Request{
		TotalCapacity: 32000,
		Candidates:    testCandidates(now),
		Now:           now,
	})
	require.NoError(t, err)

	require.Len(t, sink.records, 1)
	assert.Equal(t, record, sink.records[0])
}

func TestBuildContext_TelemetryFailureIsSwallowed(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	sink := &fakeTelemetry{err: errors.New("disk full")}
	engine := NewEngine(testBudgetConfig(), stubEstimator{}, WithTelemetry(sink))

	_, _, err := engine.BuildContext(context.Background(), Request{
		TotalCapacity: 32000,
		Candidates:    testCandidates(now),
		Now:           now,
	})
	require.NoError(t, err, "telemetry failures never fail the pass")
}

func TestEngine_AllocatePassthrough(t *testing.T) {
	engine := NewEngine(testBudgetConfig(), stubEstimator{})

	alloc, err := engine.Allocate(200000, 5000, 4000, nil)
	require.NoError(t, err)
	assert.Equal(t, 161000, alloc.AvailableForContext)
	assert.Equal(t, 56350, alloc.Quotas[core.CategoryProcedural])
}
