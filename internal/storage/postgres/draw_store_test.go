package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/storage"
)

func testDraw(seq int64) *domain.Draw {
	return &domain.Draw{
		PeriodID: fmt.Sprintf("P%04d", seq),
		Seq:      seq,
		DrawDate: 1700000000000 + seq*86400000,
		Tiers: [domain.TierCount]string{
			"12345", "54321", "11111,22222", "33333,44444,55555,66666,77777,88888",
			"1234,2345,3456,4567", "5678,6789,7890,8901,9012,0123", "111,222,333", "01,02,03,04",
		},
	}
}

func TestDrawStore_InsertAndGetByPeriod(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDrawStore(pool)
	ctx := context.Background()

	d := testDraw(1)
	require.NoError(t, store.Insert(ctx, d))

	got, err := store.GetByPeriod(ctx, d.PeriodID)
	require.NoError(t, err)
	assert.Equal(t, d.PeriodID, got.PeriodID)
	assert.Equal(t, d.Seq, got.Seq)
	assert.Equal(t, d.DrawDate, got.DrawDate)
	assert.Equal(t, d.Tiers, got.Tiers)
	assert.NotZero(t, got.CreatedAt)

	_, err = store.GetByPeriod(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDrawStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDrawStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testDraw(1)))
	err := store.Insert(ctx, testDraw(1))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	assert.NotErrorIs(t, err, storage.ErrNameConflict)
}

func TestDrawStore_InsertBulkAtomic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDrawStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testDraw(2)))

	err := store.InsertBulk(ctx, []*domain.Draw{testDraw(1), testDraw(2), testDraw(3)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "failed batch must not leave partial rows")
}

func TestDrawStore_GetAllAndLatestOrdered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDrawStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.Draw{testDraw(3), testDraw(1), testDraw(5), testDraw(2), testDraw(4)}))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, d := range all {
		assert.Equal(t, int64(i+1), d.Seq)
	}

	latest, err := store.GetLatest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "P0004", latest[0].PeriodID)
	assert.Equal(t, "P0005", latest[1].PeriodID)

	_, err = store.GetLatest(ctx, -1)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
