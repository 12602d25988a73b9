package core

import "context"

// Estimator estimates the token cost of content. Implementations must
// be pure: same input, same output, no I/O.
type Estimator interface {
	Estimate(item CandidateItem) TokenEstimate
	EstimateText(text string) int
}

// TelemetryRepository persists budgeting-pass records for offline
// analysis. Writes are best-effort; the engine never reads them back
// within a request.
type TelemetryRepository interface {
	Save(ctx context.Context, rec TelemetryRecord) error
}
