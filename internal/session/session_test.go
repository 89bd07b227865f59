package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottery-bridge-lab/internal/bridge"
	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/storage/memory"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func makeDraw(seq int) *domain.Draw {
	return &domain.Draw{
		PeriodID: fmt.Sprintf("p%03d", seq),
		Seq:      int64(seq),
		Tiers: [domain.TierCount]string{
			fmt.Sprintf("100%02d", seq%100),
			"67890",
			"11111,22222",
			"30001,30002,30003,30004,30005,30006",
			"4001,4002,4003,4004",
			"5001,5002,5003,5004,5005,5006",
			"601,602,603",
			"71,72,73,74",
		},
	}
}

func seedStores(t *testing.T, n int, bridges ...*domain.ManagedBridge) (*memory.DrawStore, *memory.ManagedBridgeStore) {
	t.Helper()
	ctx := context.Background()
	draws := memory.NewDrawStore()
	batch := make([]*domain.Draw, n)
	for i := range batch {
		batch[i] = makeDraw(i + 1)
	}
	if n > 0 {
		require.NoError(t, draws.InsertBulk(ctx, batch))
	}
	store := memory.NewManagedBridgeStore()
	for _, b := range bridges {
		require.NoError(t, store.Upsert(ctx, b))
	}
	return draws, store
}

func managed(id string, spec domain.BridgeSpec, enabled bool, m *domain.BridgeMetrics) *domain.ManagedBridge {
	name := bridge.Name(spec)
	return &domain.ManagedBridge{
		BridgeID:       id,
		Name:           name,
		NormalizedName: bridge.NormalizeName(name),
		Spec:           spec,
		Enabled:        enabled,
		Metrics:        m,
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestOpen_LoadsEverything(t *testing.T) {
	b1 := managed("b1", domain.BridgeSpec{Kind: domain.KindLoPosition, OperandA: 0, OperandB: 5}, true,
		&domain.BridgeMetrics{WinRate: 48, RecentWins: 7})
	b2 := managed("b2", domain.BridgeSpec{Kind: domain.KindDeSet, OperandA: 1, OperandB: 9}, false, nil)
	draws, store := seedStores(t, 30, b1, b2)

	s, err := Open(context.Background(), Options{
		Config:  config.Default(),
		Draws:   draws,
		Bridges: store,
		Logger:  quietLogger(),
	})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 30, s.Series().Len())
	assert.Equal(t, "p001", s.Series().PeriodID(0))
	assert.Len(t, s.Bridges(), 2)
	assert.Len(t, s.EnabledBridges(), 1)

	short, frame, ok := s.Rates().Rates(b1.NormalizedName)
	require.True(t, ok)
	assert.InDelta(t, 70, short, 1e-9)
	assert.Equal(t, 48.0, frame)

	_, _, ok = s.Rates().Rates(b2.NormalizedName)
	assert.False(t, ok, "bridges without metrics are not cached")
	assert.Equal(t, 1, s.Rates().Len())
}

func TestOpen_Limit(t *testing.T) {
	draws, store := seedStores(t, 30)
	s, err := Open(context.Background(), Options{
		Config: config.Default(), Draws: draws, Bridges: store, Limit: 10, Logger: quietLogger(),
	})
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, 10, s.Series().Len())
	assert.Equal(t, "p021", s.Series().PeriodID(0))
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), Options{Config: config.Default()})
	assert.ErrorIs(t, err, ErrNoStores)

	draws, store := seedStores(t, 0)
	_, err = Open(context.Background(), Options{Config: config.Default(), Draws: draws, Bridges: store, Logger: quietLogger()})
	assert.ErrorIs(t, err, ErrNoDraws)
}

func TestReload_PicksUpNewBridges(t *testing.T) {
	draws, store := seedStores(t, 5)
	s, err := Open(context.Background(), Options{Config: config.Default(), Draws: draws, Bridges: store, Logger: quietLogger()})
	require.NoError(t, err)
	defer s.Close()
	require.Empty(t, s.Bridges())

	b := managed("b1", domain.BridgeSpec{Kind: domain.KindLoClassic, OperandA: 3}, true, &domain.BridgeMetrics{WinRate: 50})
	require.NoError(t, store.Upsert(context.Background(), b))
	require.NoError(t, s.Reload(context.Background()))

	assert.Len(t, s.Bridges(), 1)
	assert.Equal(t, 1, s.Rates().Len())
}

func TestClose(t *testing.T) {
	draws, store := seedStores(t, 5)
	var order []string
	closers := []io.Closer{
		closerFunc(func() error { order = append(order, "first"); return nil }),
		closerFunc(func() error { order = append(order, "second"); return errors.New("boom") }),
	}
	s, err := Open(context.Background(), Options{
		Config: config.Default(), Draws: draws, Bridges: store, Closers: closers, Logger: quietLogger(),
	})
	require.NoError(t, err)

	err = s.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"second", "first"}, order)

	assert.NoError(t, s.Close(), "second Close is a no-op")
	assert.ErrorIs(t, s.Reload(context.Background()), ErrClosed)
	assert.Nil(t, s.Series())
}

func TestNewScanner_SkipsManaged(t *testing.T) {
	spec := domain.BridgeSpec{Kind: domain.KindLoPosition, OperandA: 0, OperandB: 5}
	draws, store := seedStores(t, 5, managed("b1", spec, true, &domain.BridgeMetrics{WinRate: 50}))
	s, err := Open(context.Background(), Options{Config: config.Default(), Draws: draws, Bridges: store, Logger: quietLogger()})
	require.NoError(t, err)
	defer s.Close()

	assert.NotNil(t, s.NewScanner())
	assert.NotNil(t, s.BridgeStore())
}

func TestRatesCache_Nil(t *testing.T) {
	var c *RatesCache
	_, _, ok := c.Rates("X")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}
