package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/storage"
	"lottery-bridge-lab/internal/storage/memory"
)

// mockSource returns a fixed set of draws.
type mockSource struct {
	draws []*domain.Draw
	err   error
}

func (m *mockSource) Fetch(_ context.Context) ([]*domain.Draw, error) {
	return m.draws, m.err
}

func completeDraw(period string, day int, gdb string) *domain.Draw {
	return &domain.Draw{
		PeriodID: period,
		DrawDate: time.Date(2024, 12, day, 0, 0, 0, 0, time.UTC).UnixMilli(),
		Tiers: [domain.TierCount]string{
			gdb, "67890", "11111,22222", "30001,30002,30003,30004,30005,30006",
			"4001,4002,4003,4004", "5001,5002,5003,5004,5005,5006", "601,602,603", "71,72,73,74",
		},
	}
}

func newTestManager(src DrawSource, store storage.DrawStore) *Manager {
	return NewManager(ManagerOptions{
		Source: src,
		Store:  store,
		Logger: log.New(io.Discard, "", 0),
		Now:    func() time.Time { return time.UnixMilli(1700000000000) },
	})
}

func TestManager_Ingest(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDrawStore()

	src := &mockSource{draws: []*domain.Draw{
		completeDraw("p3", 3, "33333"),
		completeDraw("p1", 1, "11111"),
		completeDraw("p2", 2, "22222"),
	}}
	result, err := newTestManager(src, store).Ingest(ctx)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if result.Read != 3 || result.Imported != 3 || result.RejectedTotal() != 0 {
		t.Errorf("unexpected result %+v", result)
	}

	all, _ := store.GetAll(ctx)
	for i, want := range []string{"p1", "p2", "p3"} {
		if all[i].PeriodID != want || all[i].Seq != int64(i+1) {
			t.Errorf("index %d: got %s seq %d", i, all[i].PeriodID, all[i].Seq)
		}
		if all[i].CreatedAt != 1700000000000 {
			t.Errorf("expected CreatedAt from clock, got %d", all[i].CreatedAt)
		}
	}
}

func TestManager_Ingest_ReimportAndConflicts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDrawStore()
	if _, err := newTestManager(&mockSource{draws: []*domain.Draw{
		completeDraw("p1", 1, "11111"),
		completeDraw("p2", 2, "22222"),
	}}, store).Ingest(ctx); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}

	incomplete := completeDraw("p5", 5, "")
	src := &mockSource{draws: []*domain.Draw{
		completeDraw("p1", 1, "11111"), // identical
		completeDraw("p2", 2, "99999"), // corrected result
		completeDraw("p3", 3, "33333"),
		completeDraw("p3", 3, "33333"),
		incomplete,
	}}
	result, err := newTestManager(src, store).Ingest(ctx)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if result.Imported != 1 || result.Duplicates != 1 {
		t.Errorf("expected 1 imported and 1 duplicate, got %+v", result)
	}
	for reason, want := range map[string]int{RejectConflict: 1, RejectRepeated: 1, RejectIncomplete: 1} {
		if result.Rejected[reason] != want {
			t.Errorf("%s: expected %d, got %d", reason, want, result.Rejected[reason])
		}
	}

	p3, err := store.GetByPeriod(ctx, "p3")
	if err != nil {
		t.Fatalf("GetByPeriod failed: %v", err)
	}
	if p3.Seq != 3 {
		t.Errorf("new draws continue after the stored seq, got %d", p3.Seq)
	}
	p2, _ := store.GetByPeriod(ctx, "p2")
	if p2.Tiers[0] != "22222" {
		t.Error("stored results are never rewritten")
	}
}

func TestManager_Ingest_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := NewManager(ManagerOptions{}).Ingest(ctx); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	boom := fmt.Errorf("source down")
	_, err := newTestManager(&mockSource{err: boom}, memory.NewDrawStore()).Ingest(ctx)
	if !errors.Is(err, boom) {
		t.Errorf("expected source error, got %v", err)
	}

	result, err := newTestManager(&mockSource{}, memory.NewDrawStore()).Ingest(ctx)
	if err != nil || result.Read != 0 {
		t.Errorf("empty source should be a no-op, got %+v, %v", result, err)
	}
}
