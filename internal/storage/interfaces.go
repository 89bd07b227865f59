package storage

import (
	"context"

	"lottery-bridge-lab/internal/domain"
)

// DrawStore provides access to draws storage.
type DrawStore interface {
	// Insert adds a new draw. Returns ErrDuplicateKey if period_id exists.
	Insert(ctx context.Context, d *domain.Draw) error

	// InsertBulk adds multiple draws atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, draws []*domain.Draw) error

	// GetAll retrieves every draw, ordered by seq ASC.
	GetAll(ctx context.Context) ([]*domain.Draw, error)

	// GetLatest retrieves the n most recent draws, ordered by seq ASC.
	GetLatest(ctx context.Context, n int) ([]*domain.Draw, error)

	// GetByPeriod retrieves a draw by its period. Returns ErrNotFound if not exists.
	GetByPeriod(ctx context.Context, periodID string) (*domain.Draw, error)
}

// ManagedBridgeStore provides access to managed_bridges storage.
// Unlike the append-only stores, managed bridges are mutable.
type ManagedBridgeStore interface {
	// Upsert inserts or replaces a bridge by bridge_id.
	// Returns ErrNameConflict if another bridge already uses the normalized name.
	Upsert(ctx context.Context, b *domain.ManagedBridge) error

	// GetByID retrieves a bridge by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, bridgeID string) (*domain.ManagedBridge, error)

	// GetByName retrieves a bridge by normalized name. Returns ErrNotFound if not exists.
	GetByName(ctx context.Context, normalizedName string) (*domain.ManagedBridge, error)

	// GetAll retrieves bridges ordered by name ASC, optionally only enabled ones.
	GetAll(ctx context.Context, onlyEnabled bool) ([]*domain.ManagedBridge, error)

	// UpdateState writes the lifecycle-owned fields of a bridge.
	// Returns ErrNotFound if not exists.
	UpdateState(ctx context.Context, bridgeID string, state domain.BridgeState) error

	// Delete removes a bridge. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, bridgeID string) error
}

// BacktestHistoryStore provides access to backtest_history storage.
type BacktestHistoryStore interface {
	// InsertBulk adds history rows. Fails entire batch on any duplicate
	// (run_id, bridge_id, day).
	InsertBulk(ctx context.Context, records []*domain.BacktestRecord) error

	// GetByBridge retrieves the rows of one run for a bridge, ordered by day ASC.
	GetByBridge(ctx context.Context, runID, bridgeID string) ([]*domain.BacktestRecord, error)
}

// ScanResultStore provides access to scan_results storage.
type ScanResultStore interface {
	// InsertBulk adds candidate snapshots. Fails entire batch on any duplicate
	// (run_id, rank).
	InsertBulk(ctx context.Context, snapshots []*domain.ScanSnapshot) error

	// GetByRun retrieves the snapshots of a scan run, ordered by rank ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.ScanSnapshot, error)
}
