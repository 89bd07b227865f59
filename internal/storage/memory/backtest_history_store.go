package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/storage"
)

// BacktestHistoryStore is an in-memory implementation of storage.BacktestHistoryStore.
type BacktestHistoryStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.BacktestRecord // keyed by run_id|bridge_id
	keys map[string]struct{}                 // run_id|bridge_id|day
}

// NewBacktestHistoryStore creates a new in-memory backtest history store.
func NewBacktestHistoryStore() *BacktestHistoryStore {
	return &BacktestHistoryStore{
		data: make(map[string][]*domain.BacktestRecord),
		keys: make(map[string]struct{}),
	}
}

func historyKey(runID, bridgeID string) string {
	return fmt.Sprintf("%s|%s", runID, bridgeID)
}

func historyRowKey(r *domain.BacktestRecord) string {
	return fmt.Sprintf("%s|%s|%d", r.RunID, r.BridgeID, r.Day)
}

// InsertBulk adds history rows atomically. Fails entire batch on any duplicate.
func (s *BacktestHistoryStore) InsertBulk(_ context.Context, records []*domain.BacktestRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.RunID == "" || r.BridgeID == "" {
			return storage.ErrInvalidInput
		}
		key := historyRowKey(r)
		if _, exists := s.keys[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[key]; exists {
			return storage.ErrDuplicateKey
		}
		batch[key] = struct{}{}
	}

	for _, r := range records {
		recCopy := *r
		s.keys[historyRowKey(r)] = struct{}{}
		k := historyKey(r.RunID, r.BridgeID)
		s.data[k] = append(s.data[k], &recCopy)
	}
	return nil
}

// GetByBridge retrieves the rows of one run for a bridge, ordered by day ASC.
func (s *BacktestHistoryStore) GetByBridge(_ context.Context, runID, bridgeID string) ([]*domain.BacktestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.data[historyKey(runID, bridgeID)]
	result := make([]*domain.BacktestRecord, len(rows))
	for i, r := range rows {
		recCopy := *r
		result[i] = &recCopy
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Day < result[j].Day
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.BacktestHistoryStore = (*BacktestHistoryStore)(nil)
