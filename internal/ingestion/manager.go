package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/idhash"
	"lottery-bridge-lab/internal/observability"
	"lottery-bridge-lab/internal/storage"
)

// Rejection reasons, used as metric labels.
const (
	RejectIncomplete = "incomplete"
	RejectConflict   = "conflict"
	RejectRepeated   = "repeated"
)

// Manager orchestrates ingestion from a source to the draw store.
// It enforces chronological ordering and assigns sequence numbers after the
// latest stored draw.
type Manager struct {
	source DrawSource
	store  storage.DrawStore
	logger *log.Logger
	now    func() time.Time
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	Source DrawSource
	Store  storage.DrawStore
	Logger *log.Logger
	Now    func() time.Time
}

// NewManager creates a new ingestion manager.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		source: opts.Source,
		store:  opts.Store,
		logger: logger,
		now:    now,
	}
}

// Result contains statistics from an ingestion run.
type Result struct {
	Read       int
	Imported   int
	Duplicates int            // already stored with identical content
	Rejected   map[string]int // by reason
}

// Ingest fetches draws and stores the new ones.
//
// A draw already stored under the same period is skipped when its content
// hash matches and rejected as a conflict when it does not; stored results
// are never rewritten. Incomplete draws are rejected.
func (m *Manager) Ingest(ctx context.Context) (*Result, error) {
	if m.source == nil || m.store == nil {
		return nil, fmt.Errorf("ingest: source and store are required: %w", storage.ErrInvalidInput)
	}

	draws, err := m.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch draws: %w", err)
	}
	result := &Result{Read: len(draws), Rejected: make(map[string]int)}
	if len(draws) == 0 {
		return result, nil
	}

	SortDraws(draws)

	fresh := make([]*domain.Draw, 0, len(draws))
	batch := make(map[string]struct{}, len(draws))
	for _, d := range draws {
		if !d.IsComplete() {
			m.reject(result, d, RejectIncomplete)
			continue
		}
		if _, dup := batch[d.PeriodID]; dup {
			m.reject(result, d, RejectRepeated)
			continue
		}
		batch[d.PeriodID] = struct{}{}

		stored, err := m.store.GetByPeriod(ctx, d.PeriodID)
		switch {
		case err == nil:
			if drawHash(stored) == drawHash(d) {
				result.Duplicates++
			} else {
				m.reject(result, d, RejectConflict)
			}
			continue
		case !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("lookup %s: %w", d.PeriodID, err)
		}
		fresh = append(fresh, d)
	}

	if err := ValidateDrawOrdering(fresh); err != nil {
		return nil, err
	}
	if len(fresh) == 0 {
		return result, nil
	}

	last, err := m.lastSeq(ctx)
	if err != nil {
		return nil, err
	}
	AssignSeq(fresh, last)
	ts := m.now().UnixMilli()
	for _, d := range fresh {
		d.CreatedAt = ts
	}

	if err := m.store.InsertBulk(ctx, fresh); err != nil {
		return nil, fmt.Errorf("insert draws: %w", err)
	}
	result.Imported = len(fresh)
	observability.RecordDrawsImported(len(fresh), m.now().Unix())
	m.logger.Printf("imported %d draws (%s..%s), %d duplicates, %d rejected",
		len(fresh), fresh[0].PeriodID, fresh[len(fresh)-1].PeriodID, result.Duplicates, result.RejectedTotal())
	return result, nil
}

// RejectedTotal returns the number of rejected draws.
func (r *Result) RejectedTotal() int {
	var n int
	for _, c := range r.Rejected {
		n += c
	}
	return n
}

func (m *Manager) reject(result *Result, d *domain.Draw, reason string) {
	result.Rejected[reason]++
	observability.RecordDrawRejected(reason)
	m.logger.Printf("reject %s: %s", d.PeriodID, reason)
}

func (m *Manager) lastSeq(ctx context.Context) (int64, error) {
	latest, err := m.store.GetLatest(ctx, 1)
	if err != nil {
		return 0, fmt.Errorf("load latest draw: %w", err)
	}
	if len(latest) == 0 {
		return 0, nil
	}
	return latest[0].Seq, nil
}

func drawHash(d *domain.Draw) string {
	return idhash.ComputeDrawHash(d.PeriodID, d.Tiers[:])
}
