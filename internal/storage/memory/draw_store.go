package memory

import (
	"context"
	"sort"
	"sync"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/storage"
)

// DrawStore is an in-memory implementation of storage.DrawStore.
type DrawStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Draw // keyed by period_id
}

// NewDrawStore creates a new in-memory draw store.
func NewDrawStore() *DrawStore {
	return &DrawStore{
		data: make(map[string]*domain.Draw),
	}
}

// Insert adds a new draw. Returns ErrDuplicateKey if period_id exists.
func (s *DrawStore) Insert(_ context.Context, d *domain.Draw) error {
	if d == nil || d.PeriodID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.PeriodID]; exists {
		return storage.ErrDuplicateKey
	}

	drawCopy := *d
	s.data[d.PeriodID] = &drawCopy
	return nil
}

// InsertBulk adds multiple draws atomically. Fails entire batch on any duplicate.
func (s *DrawStore) InsertBulk(_ context.Context, draws []*domain.Draw) error {
	if len(draws) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(draws))
	for _, d := range draws {
		if d == nil || d.PeriodID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[d.PeriodID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[d.PeriodID]; exists {
			return storage.ErrDuplicateKey
		}
		batch[d.PeriodID] = struct{}{}
	}

	for _, d := range draws {
		drawCopy := *d
		s.data[d.PeriodID] = &drawCopy
	}
	return nil
}

// GetAll retrieves every draw ordered by seq ASC.
func (s *DrawStore) GetAll(_ context.Context) ([]*domain.Draw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sorted(), nil
}

// GetLatest retrieves the n most recent draws ordered by seq ASC.
func (s *DrawStore) GetLatest(_ context.Context, n int) ([]*domain.Draw, error) {
	if n < 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sorted()
	if n < len(all) {
		all = all[len(all)-n:]
	}
	return all, nil
}

// GetByPeriod retrieves a draw by its period. Returns ErrNotFound if not exists.
func (s *DrawStore) GetByPeriod(_ context.Context, periodID string) (*domain.Draw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.data[periodID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	drawCopy := *d
	return &drawCopy, nil
}

// sorted returns copies of all draws ordered by seq, then period. Caller holds the lock.
func (s *DrawStore) sorted() []*domain.Draw {
	result := make([]*domain.Draw, 0, len(s.data))
	for _, d := range s.data {
		drawCopy := *d
		result = append(result, &drawCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Seq != result[j].Seq {
			return result[i].Seq < result[j].Seq
		}
		return result[i].PeriodID < result[j].PeriodID
	})
	return result
}

// Verify interface compliance at compile time.
var _ storage.DrawStore = (*DrawStore)(nil)
