package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/storage"
)

// ScanResultStore is an in-memory implementation of storage.ScanResultStore.
type ScanResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ScanSnapshot // keyed by run_id|rank
}

// NewScanResultStore creates a new in-memory scan result store.
func NewScanResultStore() *ScanResultStore {
	return &ScanResultStore{
		data: make(map[string]*domain.ScanSnapshot),
	}
}

func snapshotKey(runID string, rank int) string {
	return fmt.Sprintf("%s|%d", runID, rank)
}

func copySnapshot(sn *domain.ScanSnapshot) *domain.ScanSnapshot {
	c := *sn
	c.Candidate.Next.Numbers = append([]string(nil), sn.Candidate.Next.Numbers...)
	c.Candidate.Next.Touches = append([]int(nil), sn.Candidate.Next.Touches...)
	return &c
}

// InsertBulk adds snapshots atomically. Fails entire batch on any duplicate.
func (s *ScanResultStore) InsertBulk(_ context.Context, snapshots []*domain.ScanSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(snapshots))
	for _, sn := range snapshots {
		if sn == nil || sn.RunID == "" || sn.Rank < 0 {
			return storage.ErrInvalidInput
		}
		key := snapshotKey(sn.RunID, sn.Rank)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[key]; exists {
			return storage.ErrDuplicateKey
		}
		batch[key] = struct{}{}
	}

	for _, sn := range snapshots {
		s.data[snapshotKey(sn.RunID, sn.Rank)] = copySnapshot(sn)
	}
	return nil
}

// GetByRun retrieves the snapshots of a scan run, ordered by rank ASC.
func (s *ScanResultStore) GetByRun(_ context.Context, runID string) ([]*domain.ScanSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScanSnapshot
	for _, sn := range s.data {
		if sn.RunID == runID {
			result = append(result, copySnapshot(sn))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Rank < result[j].Rank
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ScanResultStore = (*ScanResultStore)(nil)
