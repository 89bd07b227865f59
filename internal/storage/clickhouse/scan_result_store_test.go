package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/storage"
)

func TestScanResultStore_InsertAndGetByRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScanResultStore(conn)
	ctx := context.Background()

	snapshots := []*domain.ScanSnapshot{
		{
			RunID: "scan-1", Rank: 1, ScannedAt: 1700000000000,
			Candidate: domain.Candidate{
				Spec:           domain.BridgeSpec{Kind: domain.KindDeKiller, OperandA: 4, OperandB: 9},
				Name:           "killer-4-9",
				NormalizedName: "killer-4-9",
				Streak:         15,
				FrameRate:      88.5,
				RatesMissing:   true,
				Next:           domain.Prediction{Kind: domain.PredictExclude, Touches: []int{7}},
				Audit:          true,
			},
		},
		{
			RunID: "scan-1", Rank: 0, ScannedAt: 1700000000000,
			Candidate: domain.Candidate{
				Spec:            domain.BridgeSpec{Kind: domain.KindLoPosition, OperandA: 10, OperandB: 40},
				Name:            "lo-pos-10-40",
				NormalizedName:  "lo-pos-10-40",
				Description:     "GDB[0] + G1[2]",
				Streak:          6,
				RecentWins:      8,
				MaxLosingStreak: 2,
				ShortRate:       80,
				FrameRate:       72.5,
				Next:            domain.Prediction{Kind: domain.PredictPair, Numbers: []string{"36", "63"}, Label: "36-63"},
				Score:           6.75,
			},
		},
	}
	require.NoError(t, store.InsertBulk(ctx, snapshots))

	got, err := store.GetByRun(ctx, "scan-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, 0, first.Rank)
	assert.Equal(t, snapshots[1].Candidate.Spec, first.Candidate.Spec)
	assert.Equal(t, "GDB[0] + G1[2]", first.Candidate.Description)
	assert.Equal(t, 8, first.Candidate.RecentWins)
	assert.Equal(t, 72.5, first.Candidate.FrameRate)
	assert.Equal(t, []string{"36", "63"}, first.Candidate.Next.Numbers)
	assert.Equal(t, "36-63", first.Candidate.Next.Label)
	assert.Equal(t, 6.75, first.Candidate.Score)

	second := got[1]
	assert.True(t, second.Candidate.Audit)
	assert.True(t, second.Candidate.RatesMissing)
	assert.Equal(t, domain.PredictExclude, second.Candidate.Next.Kind)
	assert.Equal(t, []int{7}, second.Candidate.Next.Touches)
}

func TestScanResultStore_Duplicates(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScanResultStore(conn)
	ctx := context.Background()

	dup := []*domain.ScanSnapshot{{RunID: "scan-1", Rank: 0}, {RunID: "scan-1", Rank: 0}}
	assert.ErrorIs(t, store.InsertBulk(ctx, dup), storage.ErrDuplicateKey)

	require.NoError(t, store.InsertBulk(ctx, []*domain.ScanSnapshot{{RunID: "scan-1", Rank: 0}}))
	err := store.InsertBulk(ctx, []*domain.ScanSnapshot{{RunID: "scan-1", Rank: 1}})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey, "a stored run is never extended")

	err = store.InsertBulk(ctx, []*domain.ScanSnapshot{{RunID: "scan-2", Rank: -1}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
