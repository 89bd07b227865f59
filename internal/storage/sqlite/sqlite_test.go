package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/storage"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "bridges.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testDraw(seq int64) *domain.Draw {
	return &domain.Draw{
		PeriodID: fmt.Sprintf("P%04d", seq),
		Seq:      seq,
		Tiers:    [domain.TierCount]string{"12345", "54321", "", "", "", "", "", "01,02,03,04"},
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), " ")
	assert.Error(t, err)
}

func TestOpen_ReappliesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridges.db")
	ctx := context.Background()

	db, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, NewDrawStore(db).Insert(ctx, testDraw(1)))
	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	var applied int
	require.NoError(t, db.sqlDB.QueryRowContext(ctx, "SELECT count(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 2, applied)

	got, err := NewDrawStore(db).GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestOpen_InMemory(t *testing.T) {
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	store := NewDrawStore(db)
	require.NoError(t, store.Insert(context.Background(), testDraw(1)))
}

func TestDrawStore(t *testing.T) {
	db := openTestDB(t)
	store := NewDrawStore(db)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.Draw{testDraw(3), testDraw(1), testDraw(2)}))

	got, err := store.GetByPeriod(ctx, "P0001")
	require.NoError(t, err)
	assert.Equal(t, "01,02,03,04", got.Tiers[domain.TierSeventh])
	assert.NotZero(t, got.CreatedAt)

	_, err = store.GetByPeriod(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, store.Insert(ctx, testDraw(2)), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.Insert(ctx, &domain.Draw{}), storage.ErrInvalidInput)

	err = store.InsertBulk(ctx, []*domain.Draw{testDraw(4), testDraw(1)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3, "failed batch must roll back")
	for i, d := range all {
		assert.Equal(t, int64(i+1), d.Seq)
	}

	latest, err := store.GetLatest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "P0002", latest[0].PeriodID)
	assert.Equal(t, "P0003", latest[1].PeriodID)
}

func TestManagedBridgeStore(t *testing.T) {
	db := openTestDB(t)
	store := NewManagedBridgeStore(db)
	ctx := context.Background()

	b := &domain.ManagedBridge{
		BridgeID:       "b1",
		Name:           "de-set-12",
		NormalizedName: "de-set-12",
		Spec:           domain.BridgeSpec{Kind: domain.KindDeSet, OperandA: 5, OperandB: 9},
		Enabled:        true,
		ManualOverride: true,
		Metrics:        &domain.BridgeMetrics{TestedDays: 10, Wins: 4, Losses: 6, WinRate: 40},
		NextPrediction: &domain.Prediction{Kind: domain.PredictNumbers, Numbers: []string{"12", "21", "17"}, Label: "Bộ 12"},
		CreatedAt:      1,
		UpdatedAt:      2,
	}
	require.NoError(t, store.Upsert(ctx, b))

	got, err := store.GetByName(ctx, "de-set-12")
	require.NoError(t, err)
	assert.Equal(t, b.Spec, got.Spec)
	assert.True(t, got.Enabled)
	assert.True(t, got.ManualOverride)
	assert.False(t, got.Pending)
	assert.Equal(t, *b.Metrics, *got.Metrics)
	assert.Equal(t, "Bộ 12", got.NextPrediction.Label)
	assert.Equal(t, []string{"12", "21", "17"}, got.NextPrediction.Numbers)

	other := *b
	other.BridgeID = "b2"
	other.Metrics = nil
	other.NextPrediction = nil
	err = store.Upsert(ctx, &other)
	assert.ErrorIs(t, err, storage.ErrNameConflict)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	other.Name, other.NormalizedName, other.Enabled = "a-first", "a-first", false
	require.NoError(t, store.Upsert(ctx, &other))

	all, err := store.GetAll(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a-first", all[0].Name)
	assert.Nil(t, all[0].Metrics)
	assert.Nil(t, all[0].NextPrediction)

	enabled, err := store.GetAll(ctx, true)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "b1", enabled[0].BridgeID)

	require.NoError(t, store.UpdateState(ctx, "b2", domain.BridgeState{
		Enabled:         true,
		NeedsEvaluation: true,
		Pending:         true,
		NextPrediction:  &domain.Prediction{Kind: domain.PredictTouch, Touches: []int{0, 5}},
		UpdatedAt:       99,
	}))
	got, err = store.GetByID(ctx, "b2")
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.True(t, got.NeedsEvaluation)
	assert.True(t, got.Pending)
	assert.Nil(t, got.Metrics)
	assert.Equal(t, []int{0, 5}, got.NextPrediction.Touches)
	assert.Equal(t, int64(99), got.UpdatedAt)

	assert.ErrorIs(t, store.UpdateState(ctx, "nope", domain.BridgeState{}), storage.ErrNotFound)
	require.NoError(t, store.Delete(ctx, "b2"))
	assert.ErrorIs(t, store.Delete(ctx, "b2"), storage.ErrNotFound)
	_, err = store.GetByID(ctx, "b2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
