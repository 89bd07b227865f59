package memory

import (
	"context"
	"sort"
	"sync"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/storage"
)

// ManagedBridgeStore is an in-memory implementation of storage.ManagedBridgeStore.
type ManagedBridgeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ManagedBridge // keyed by bridge_id
}

// NewManagedBridgeStore creates a new in-memory managed bridge store.
func NewManagedBridgeStore() *ManagedBridgeStore {
	return &ManagedBridgeStore{
		data: make(map[string]*domain.ManagedBridge),
	}
}

// copyBridge deep-copies the pointer fields so stored bridges cannot be
// mutated through returned values.
func copyBridge(b *domain.ManagedBridge) *domain.ManagedBridge {
	c := *b
	if b.Metrics != nil {
		m := *b.Metrics
		c.Metrics = &m
	}
	if b.NextPrediction != nil {
		p := *b.NextPrediction
		p.Numbers = append([]string(nil), b.NextPrediction.Numbers...)
		p.Touches = append([]int(nil), b.NextPrediction.Touches...)
		c.NextPrediction = &p
	}
	return &c
}

// Upsert inserts or replaces a bridge by bridge_id.
// Returns ErrNameConflict if another bridge already uses the normalized name.
func (s *ManagedBridgeStore) Upsert(_ context.Context, b *domain.ManagedBridge) error {
	if b == nil || b.BridgeID == "" || b.NormalizedName == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.data {
		if id != b.BridgeID && existing.NormalizedName == b.NormalizedName {
			return storage.ErrNameConflict
		}
	}

	s.data[b.BridgeID] = copyBridge(b)
	return nil
}

// GetByID retrieves a bridge by its ID. Returns ErrNotFound if not exists.
func (s *ManagedBridgeStore) GetByID(_ context.Context, bridgeID string) (*domain.ManagedBridge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.data[bridgeID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyBridge(b), nil
}

// GetByName retrieves a bridge by normalized name. Returns ErrNotFound if not exists.
func (s *ManagedBridgeStore) GetByName(_ context.Context, normalizedName string) (*domain.ManagedBridge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.data {
		if b.NormalizedName == normalizedName {
			return copyBridge(b), nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetAll retrieves bridges ordered by name ASC, optionally only enabled ones.
func (s *ManagedBridgeStore) GetAll(_ context.Context, onlyEnabled bool) ([]*domain.ManagedBridge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ManagedBridge, 0, len(s.data))
	for _, b := range s.data {
		if onlyEnabled && !b.Enabled {
			continue
		}
		result = append(result, copyBridge(b))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// UpdateState writes the lifecycle-owned fields of a bridge.
func (s *ManagedBridgeStore) UpdateState(_ context.Context, bridgeID string, state domain.BridgeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.data[bridgeID]
	if !exists {
		return storage.ErrNotFound
	}

	updated := copyBridge(&domain.ManagedBridge{
		Metrics:        state.Metrics,
		NextPrediction: state.NextPrediction,
	})
	b.Enabled = state.Enabled
	b.NeedsEvaluation = state.NeedsEvaluation
	b.Metrics = updated.Metrics
	b.NextPrediction = updated.NextPrediction
	b.Pending = state.Pending
	b.UpdatedAt = state.UpdatedAt
	return nil
}

// Delete removes a bridge. Returns ErrNotFound if not exists.
func (s *ManagedBridgeStore) Delete(_ context.Context, bridgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[bridgeID]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, bridgeID)
	return nil
}

// Verify interface compliance at compile time.
var _ storage.ManagedBridgeStore = (*ManagedBridgeStore)(nil)
