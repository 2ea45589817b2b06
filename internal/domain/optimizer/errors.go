package optimizer

import (
	"context"
	"errors"
)

// Sentinel kinds for optimization failures. All of them are fatal for the run.
var (
	ErrMissingScoreOrPrice = errors.New("missing score or price")
	ErrInsufficientPool    = errors.New("insufficient pool")
	ErrMalformedRoster     = errors.New("malformed roster")
	ErrInvalidPrice        = errors.New("invalid price")
	ErrInvalidBudget       = errors.New("invalid budget")
)

// Reason maps an optimization error to a short metrics label.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingScoreOrPrice):
		return "missing_score_or_price"
	case errors.Is(err, ErrInsufficientPool):
		return "insufficient_pool"
	case errors.Is(err, ErrMalformedRoster):
		return "malformed_roster"
	case errors.Is(err, ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, ErrInvalidBudget):
		return "invalid_budget"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "unknown"
	}
}
