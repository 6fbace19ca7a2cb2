package pricing

import "errors"

// Global error declarations.
var (
	// ErrInvalidConfiguration covers construction-time validation failures:
	// conflicting locations, future pricing dates, bad date ranges. Callers
	// can branch on it with errors.Is.
	ErrInvalidConfiguration = errors.New("invalid pricing configuration")

	// ErrNoValuer is returned by Calc when no valuation backend is reachable
	// from the context stack.
	ErrNoValuer = errors.New("no valuation backend configured")
)
