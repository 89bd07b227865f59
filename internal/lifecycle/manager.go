// Package lifecycle keeps the managed bridge catalog current: it refreshes
// bridge metrics from the draw history and enables or disables bridges
// through a per-market hysteresis band.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"lottery-bridge-lab/internal/backtest"
	"lottery-bridge-lab/internal/bridge"
	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/idhash"
	"lottery-bridge-lab/internal/position"
	"lottery-bridge-lab/internal/storage"
)

// ErrAuditOnly is returned when promoting a kind that must never be managed.
var ErrAuditOnly = errors.New("audit-only bridge cannot be promoted")

// Options configures a Manager.
type Options struct {
	Config config.Config
	Store  storage.ManagedBridgeStore
	Logger *log.Logger
	Now    func() time.Time // defaults to time.Now
}

// Manager runs lifecycle passes against a managed bridge store.
type Manager struct {
	cfg       config.Config
	store     storage.ManagedBridgeStore
	runner    *backtest.Runner
	evaluator *Evaluator
	logger    *log.Logger
	now       func() time.Time
}

// NewManager creates a new lifecycle manager.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		cfg:       opts.Config,
		store:     opts.Store,
		runner:    backtest.NewRunner(nil, logger),
		evaluator: NewEvaluator(opts.Config),
		logger:    logger,
		now:       now,
	}
}

// Recompute re-runs the backtest of every bridge over the configured
// recompute window and refreshes its metrics and next prediction.
// A bridge that cannot be backtested, or has no resolved frame in the
// window, keeps its last known metrics and prediction and is flagged
// NeedsEvaluation. The input bridges are updated in place.
func (m *Manager) Recompute(ctx context.Context, series *position.Series, bridges []*domain.ManagedBridge) error {
	window := series.Tail(m.cfg.Lifecycle.RecomputeWindow)
	for _, b := range bridges {
		res, err := m.runner.Run(ctx, window, b.Spec, backtest.Options{
			Mode:         backtest.ModeFor(m.cfg.Backtest, b.Spec.Kind),
			RecentWindow: m.cfg.Backtest.RecentWindow,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			m.logger.Printf("recompute %s: %v", b.Name, err)
			b.NeedsEvaluation = true
			continue
		}
		if res.Metrics.TestedDays == 0 {
			b.NeedsEvaluation = true
			continue
		}

		metrics := res.Metrics
		b.Metrics = &metrics
		b.NeedsEvaluation = false
		b.Pending = res.NextPhase == domain.PhaseAwaitingN2
		if res.NextAvailable {
			next := res.Next
			b.NextPrediction = &next
		} else {
			b.NextPrediction = nil
		}
	}
	return nil
}

// Plan evaluates every bridge without touching the store.
func (m *Manager) Plan(bridges []*domain.ManagedBridge) *Report {
	report := &Report{}
	for _, b := range bridges {
		report.add(m.evaluator.Evaluate(b))
	}
	return report
}

// Apply writes the decisions and refreshed metrics back to the store.
// bridges must be the slice the report was planned from.
func (m *Manager) Apply(ctx context.Context, bridges []*domain.ManagedBridge, report *Report) error {
	if len(bridges) != len(report.Decisions) {
		return fmt.Errorf("apply: %d bridges for %d decisions: %w", len(bridges), len(report.Decisions), storage.ErrInvalidInput)
	}
	ts := m.now().UnixMilli()
	for i, b := range bridges {
		d := report.Decisions[i]
		if d.BridgeID != b.BridgeID {
			return fmt.Errorf("apply: decision %d is for %s, not %s: %w", i, d.BridgeID, b.BridgeID, storage.ErrInvalidInput)
		}
		state := domain.BridgeState{
			Enabled:         d.Enabled,
			NeedsEvaluation: d.Action == ActionEvaluate,
			Metrics:         b.Metrics,
			NextPrediction:  b.NextPrediction,
			Pending:         b.Pending,
			UpdatedAt:       ts,
		}
		if err := m.store.UpdateState(ctx, b.BridgeID, state); err != nil {
			return fmt.Errorf("update %s: %w", b.Name, err)
		}
		b.Enabled = state.Enabled
		b.NeedsEvaluation = state.NeedsEvaluation
		b.UpdatedAt = ts
		if d.Changed() {
			m.logger.Printf("%s %s (%.2f%%)", d.Action, d.Name, d.Rate)
		}
	}
	return nil
}

// Run loads every managed bridge, recomputes, plans and applies.
func (m *Manager) Run(ctx context.Context, series *position.Series) (*Report, error) {
	bridges, err := m.store.GetAll(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load managed bridges: %w", err)
	}
	if err := m.Recompute(ctx, series, bridges); err != nil {
		return nil, err
	}
	report := m.Plan(bridges)
	if err := m.Apply(ctx, bridges, report); err != nil {
		return nil, err
	}
	m.logger.Printf("lifecycle: %d bridges, %d enabled, %d disabled, %d kept, %d manual, %d need evaluation",
		len(bridges), report.Enabled, report.Disabled, report.Kept, report.Manual, report.NeedsEvaluation)
	return report, nil
}

// SeedClassic adds every classic Lô bridge missing from the catalog.
// Seeded bridges start disabled and flagged NeedsEvaluation; the next Run
// scores them and enables those that clear the add threshold.
func (m *Manager) SeedClassic(ctx context.Context) (int, error) {
	ts := m.now().UnixMilli()
	added := 0
	for _, spec := range bridge.ClassicSpecs() {
		name := bridge.Name(spec)
		normalized := bridge.NormalizeName(name)
		if _, err := m.store.GetByName(ctx, normalized); err == nil {
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			return added, fmt.Errorf("seed %s: %w", name, err)
		}
		b := &domain.ManagedBridge{
			BridgeID:        idhash.ComputeBridgeID(spec),
			Name:            name,
			NormalizedName:  normalized,
			Description:     bridge.Describe(spec),
			Spec:            spec,
			NeedsEvaluation: true,
			CreatedAt:       ts,
			UpdatedAt:       ts,
		}
		if err := m.store.Upsert(ctx, b); err != nil {
			return added, fmt.Errorf("seed %s: %w", name, err)
		}
		added++
	}
	if added > 0 {
		m.logger.Printf("seeded %d classic bridges", added)
	}
	return added, nil
}

// Promote adds a scan candidate to the catalog as an enabled bridge.
// Returns storage.ErrNameConflict if a bridge with the same normalized
// name is already managed.
func (m *Manager) Promote(ctx context.Context, c domain.Candidate) (*domain.ManagedBridge, error) {
	if c.Audit || c.Spec.Kind.IsAuditOnly() {
		return nil, ErrAuditOnly
	}
	if _, err := m.store.GetByName(ctx, c.NormalizedName); err == nil {
		return nil, fmt.Errorf("promote %s: %w", c.Name, storage.ErrNameConflict)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("promote %s: %w", c.Name, err)
	}

	ts := m.now().UnixMilli()
	b := &domain.ManagedBridge{
		BridgeID:       idhash.ComputeBridgeID(c.Spec),
		Name:           c.Name,
		NormalizedName: c.NormalizedName,
		Description:    c.Description,
		Spec:           c.Spec,
		Enabled:        true,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
	next := c.Next
	b.NextPrediction = &next
	if err := m.store.Upsert(ctx, b); err != nil {
		return nil, fmt.Errorf("promote %s: %w", c.Name, err)
	}
	return b, nil
}

// Revive re-enables a disabled managed bridge reported by a scan.
func (m *Manager) Revive(ctx context.Context, c domain.Candidate) error {
	b, err := m.store.GetByName(ctx, c.NormalizedName)
	if err != nil {
		return fmt.Errorf("revive %s: %w", c.Name, err)
	}
	if b.ManualOverride {
		return nil
	}
	next := c.Next
	state := domain.BridgeState{
		Enabled:         true,
		NeedsEvaluation: b.NeedsEvaluation,
		Metrics:         b.Metrics,
		NextPrediction:  &next,
		Pending:         false,
		UpdatedAt:       m.now().UnixMilli(),
	}
	if err := m.store.UpdateState(ctx, b.BridgeID, state); err != nil {
		return fmt.Errorf("revive %s: %w", c.Name, err)
	}
	m.logger.Printf("revived %s", b.Name)
	return nil
}
