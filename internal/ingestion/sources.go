// Package ingestion imports draw results from external sources into a
// DrawStore, in chronological order and without duplicates.
package ingestion

import (
	"context"

	"lottery-bridge-lab/internal/domain"
)

// DrawSource provides draw results from an external source.
type DrawSource interface {
	// Fetch returns the draws of the source. Draws may be unordered;
	// Manager enforces chronological ordering.
	Fetch(ctx context.Context) ([]*domain.Draw, error)
}
