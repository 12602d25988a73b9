package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sandevgo/arcus/internal/core"
)

var _ core.TelemetryRepository = (*TelemetryRepo)(nil)

// TelemetryRepo is the append-only sink for budgeting-pass records.
type TelemetryRepo struct {
	db *sql.DB
}

func NewTelemetryRepo(db *sql.DB) *TelemetryRepo {
	return &TelemetryRepo{db: db}
}

func (r *TelemetryRepo) Save(ctx context.Context, rec core.TelemetryRecord) error {
	coverage, err := json.Marshal(rec.Coverage)
	if err != nil {
		return fmt.Errorf("failed to encode coverage: %w", err)
	}
	utilization, err := json.Marshal(rec.Utilization)
	if err != nil {
		return fmt.Errorf("failed to encode utilization: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO telemetry
			(created_at, query, ranking_strategy, packing_strategy,
			 available_tokens, used_tokens, total_items, dropped_items,
			 oversized_items, render_trimmed, coverage, utilization)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CreatedAt.UTC(), rec.Query, string(rec.RankingStrategy), string(rec.PackingStrategy),
		rec.AvailableForContext, rec.UsedTokens, rec.TotalItems, rec.DroppedItems,
		rec.OversizedItems, rec.RenderTrimmed, string(coverage), string(utilization),
	)
	if err != nil {
		return fmt.Errorf("failed to insert telemetry record: %w", err)
	}
	return nil
}

// Recent returns the newest records for offline inspection.
func (r *TelemetryRepo) Recent(ctx context.Context, limit int) ([]core.TelemetryRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT created_at, query, ranking_strategy, packing_strategy,
			available_tokens, used_tokens, total_items, dropped_items,
			oversized_items, render_trimmed, coverage, utilization
		 FROM telemetry
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry: %w", err)
	}
	defer rows.Close()

	var records []core.TelemetryRecord
	for rows.Next() {
		var (
			rec          core.TelemetryRecord
			createdAt    time.Time
			ranking      string
			packing      string
			coverageJSON string
			utilJSON     string
		)
		if err := rows.Scan(
			&createdAt, &rec.Query, &ranking, &packing,
			&rec.AvailableForContext, &rec.UsedTokens, &rec.TotalItems, &rec.DroppedItems,
			&rec.OversizedItems, &rec.RenderTrimmed, &coverageJSON, &utilJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan telemetry row: %w", err)
		}
		rec.CreatedAt = createdAt
		rec.RankingStrategy = core.RankingStrategy(ranking)
		rec.PackingStrategy = core.PackingStrategy(packing)
		if err := json.Unmarshal([]byte(coverageJSON), &rec.Coverage); err != nil {
			return nil, fmt.Errorf("failed to decode coverage: %w", err)
		}
		if err := json.Unmarshal([]byte(utilJSON), &rec.Utilization); err != nil {
			return nil, fmt.Errorf("failed to decode utilization: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
