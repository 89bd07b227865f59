package backtest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"lottery-bridge-lab/internal/bridge"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/position"
	"lottery-bridge-lab/internal/storage"
)

// Range errors
var (
	ErrInvalidRange = errors.New("invalid backtest range")
	ErrNoHistory    = errors.New("backtest history store not configured")
)

// MinRangeLen is the shortest window a backtest can run on:
// one draw to predict from and one to check.
const MinRangeLen = 2

// ValidateRange checks a draw window [start, end) against a history of n draws.
func ValidateRange(start, end, n int) error {
	if start < 0 || end > n || end-start < MinRangeLen {
		return fmt.Errorf("[%d, %d) of %d draws: %w", start, end, n, ErrInvalidRange)
	}
	return nil
}

// Runner executes backtests for bridge specs and optionally persists history.
type Runner struct {
	history storage.BacktestHistoryStore
	logger  *log.Logger
}

// NewRunner creates a new backtest runner.
// history may be nil when results are not persisted.
func NewRunner(history storage.BacktestHistoryStore, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		history: history,
		logger:  logger,
	}
}

// Run backtests one spec over the whole series.
func (r *Runner) Run(ctx context.Context, s *position.Series, spec domain.BridgeSpec, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rule, err := bridge.FromSpec(spec)
	if err != nil {
		return nil, err
	}
	return Run(s, rule, opts), nil
}

// RunRange backtests one spec over the draws [start, end) of s.
func (r *Runner) RunRange(ctx context.Context, s *position.Series, spec domain.BridgeSpec, start, end int, opts Options) (*Result, error) {
	if err := ValidateRange(start, end, s.Len()); err != nil {
		return nil, err
	}
	return r.Run(ctx, s.Slice(start, end), spec, opts)
}

// RunAll backtests specs in order, checking ctx between specs.
// optsFor selects the options per spec.
func (r *Runner) RunAll(ctx context.Context, s *position.Series, specs []domain.BridgeSpec, optsFor func(domain.BridgeSpec) Options) ([]*Result, error) {
	results := make([]*Result, 0, len(specs))
	for _, spec := range specs {
		res, err := r.Run(ctx, s, spec, optsFor(spec))
		if err != nil {
			return results, fmt.Errorf("backtest %s: %w", bridge.Name(spec), err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Persist writes the history rows of a result under runID/bridgeID.
// The result must have been produced with Options.History.
func (r *Runner) Persist(ctx context.Context, runID, bridgeID string, res *Result) error {
	if r.history == nil {
		return ErrNoHistory
	}
	if len(res.History) == 0 {
		return nil
	}
	records := make([]*domain.BacktestRecord, len(res.History))
	for i := range res.History {
		rec := res.History[i]
		rec.RunID = runID
		rec.BridgeID = bridgeID
		records[i] = &rec
	}
	if err := r.history.InsertBulk(ctx, records); err != nil {
		return fmt.Errorf("persist history for %s: %w", bridgeID, err)
	}
	r.logger.Printf("persisted %d history rows for %s (run %s)", len(records), bridgeID, runID)
	return nil
}
