package core

import "errors"

var (
	// ErrInvalidWeights rejects a weight mapping that is negative or
	// does not sum to 1.0 within tolerance. Raised before any ranking
	// or packing happens.
	ErrInvalidWeights = errors.New("category weights are invalid")

	// ErrInvalidReservations rejects prompt and response reservations
	// that alone meet or exceed the total capacity. A configuration
	// problem, not a tight budget.
	ErrInvalidReservations = errors.New("reservations exceed total capacity")

	// ErrBudgetExhausted means the overhead margin consumed what the
	// reservations left. The caller must shrink reservations or pick a
	// larger model.
	ErrBudgetExhausted = errors.New("no context budget available after reservations")
)
