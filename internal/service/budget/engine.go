package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sandevgo/arcus/internal/config"
	"github.com/sandevgo/arcus/internal/core"
	"github.com/sandevgo/arcus/pkg/log"
	"github.com/sandevgo/arcus/pkg/retry"
	"golang.org/x/sync/errgroup"
)

// Request is one stateless budgeting pass: capacity and reservations,
// the candidate pool per category, and the chosen strategies. Weights
// and Now are optional; nil/zero values use configured defaults.
type Request struct {
	TotalCapacity    int
	BasePromptTokens int
	ResponseTokens   int

	Query   string
	Ranking core.RankingStrategy
	Packing core.PackingStrategy

	Candidates map[core.Category][]core.CandidateItem

	Weights map[core.Category]float64
	Now     time.Time
}

// Engine runs the full allocate, rank, pack, assemble chain. It holds
// no request state; every call is independent.
type Engine struct {
	allocator *Allocator
	ranker    *Ranker
	packer    *Packer
	assembler *Assembler

	telemetry core.TelemetryRepository
	retrier   *retry.Retrier
}

type Option func(*Engine)

// WithTelemetry attaches a best-effort telemetry sink.
func WithTelemetry(repo core.TelemetryRepository) Option {
	return func(e *Engine) {
		e.telemetry = repo
		e.retrier = retry.NewWriteRetrier()
	}
}

// WithRenderStyle overrides the default markdown rendering.
func WithRenderStyle(estimator core.Estimator, style RenderStyle) Option {
	return func(e *Engine) {
		e.assembler = NewAssembler(estimator, style)
	}
}

func NewEngine(cfg *config.BudgetConfig, estimator core.Estimator, opts ...Option) *Engine {
	e := &Engine{
		allocator: NewAllocator(cfg.OverheadFraction, cfg.Weights()),
		ranker:    NewRanker(estimator, cfg.RecencyHalfLife),
		packer:    NewPacker(),
		assembler: NewAssembler(estimator, StyleMarkdown),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Allocate exposes budget allocation on its own, for callers that want
// the quota split without packing anything.
func (e *Engine) Allocate(total, basePrompt, responseReserve int, weights map[core.Category]float64) (core.BudgetAllocation, error) {
	return e.allocator.Allocate(total, basePrompt, responseReserve, weights)
}

// BuildContext runs one budgeting pass and returns the rendered payload
// plus its telemetry record. On cancellation it returns an error, never
// a half-packed result.
func (e *Engine) BuildContext(ctx context.Context, req Request) (core.ContextPayload, core.TelemetryRecord, error) {
	ranking := req.Ranking
	if ranking == "" {
		ranking = core.RankBalanced
	}
	packing := req.Packing
	if packing == "" {
		packing = core.PackGreedy
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	alloc, err := e.allocator.Allocate(req.TotalCapacity, req.BasePromptTokens, req.ResponseTokens, req.Weights)
	if err != nil {
		return core.ContextPayload{}, core.TelemetryRecord{}, err
	}

	ranked, err := e.rankAll(ctx, req.Candidates, ranking, req.Query, now)
	if err != nil {
		return core.ContextPayload{}, core.TelemetryRecord{}, err
	}

	packed, err := e.packer.Pack(ctx, ranked, alloc, packing)
	if err != nil {
		return core.ContextPayload{}, core.TelemetryRecord{}, err
	}
	packed.RankingStrategy = ranking

	payload := e.assembler.Assemble(ctx, packed, alloc)

	record := core.TelemetryRecord{
		CreatedAt:           now,
		Query:               req.Query,
		RankingStrategy:     ranking,
		PackingStrategy:     packing,
		AvailableForContext: alloc.AvailableForContext,
		UsedTokens:          packed.TotalTokens,
		TotalItems:          packed.TotalItems,
		DroppedItems:        packed.DroppedItems,
		OversizedItems:      packed.OversizedItems,
		RenderTrimmed:       payload.Meta.Trimmed,
		Coverage:            packed.Coverage,
		Utilization:         packed.Utilization,
	}
	e.saveTelemetry(ctx, record)

	return payload, record, nil
}

// rankAll ranks the categories concurrently. Ranking is pure, so the
// join order cannot change the result; only the per-category order is
// meaningful.
func (e *Engine) rankAll(ctx context.Context, candidates map[core.Category][]core.CandidateItem, strategy core.RankingStrategy, query string, now time.Time) (map[core.Category][]core.RankedItem, error) {
	ranked := make(map[core.Category][]core.RankedItem, len(candidates))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range core.Categories() {
		items, ok := candidates[c]
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("ranking cancelled before %s: %w", c, err)
			}
			result := e.ranker.Rank(items, strategy, query, now)
			mu.Lock()
			ranked[c] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ranked, nil
}

// saveTelemetry persists the record when a sink is configured. Failures
// are logged and swallowed: telemetry is offline-analysis data and must
// never fail a budgeting pass.
func (e *Engine) saveTelemetry(ctx context.Context, rec core.TelemetryRecord) {
	if e.telemetry == nil {
		return
	}
	err := e.retrier.Do(ctx, func() error {
		return e.telemetry.Save(ctx, rec)
	})
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("failed to persist telemetry record")
	}
}
