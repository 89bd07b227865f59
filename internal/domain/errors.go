package domain

import "errors"

// Recoverable error kinds of the prediction engine.
// Callers handle these locally; anything else is a programming error.
var (
	// ErrDataIncomplete is returned when a row lacks the tier fields a rule needs.
	// The row is skipped and never counted as an evaluation.
	ErrDataIncomplete = errors.New("data incomplete")

	// ErrUnresolvableReference is returned when a position name or operand
	// cannot be resolved to a slot.
	ErrUnresolvableReference = errors.New("unresolvable reference")

	// ErrInsufficientHistory is returned when the history is shorter than
	// the window an operation requires. Results are empty, never partial.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrAggregationInputMissing marks an optional scoring signal that was
	// not supplied. It contributes zero.
	ErrAggregationInputMissing = errors.New("aggregation input missing")
)
