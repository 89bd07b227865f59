package memory

import (
	"context"
	"errors"
	"testing"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/storage"
)

func makeBridge(id, name string, enabled bool) *domain.ManagedBridge {
	return &domain.ManagedBridge{
		BridgeID:       id,
		Name:           name,
		NormalizedName: name,
		Spec:           domain.BridgeSpec{Kind: domain.KindLoPosition, OperandA: 0, OperandB: 5},
		Enabled:        enabled,
		CreatedAt:      1704067200000,
	}
}

func TestManagedBridgeStore_UpsertAndGet(t *testing.T) {
	store := NewManagedBridgeStore()
	ctx := context.Background()

	b := makeBridge("b1", "LO_POS_GDB_0__G1_0", true)
	if err := store.Upsert(ctx, b); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "b1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Spec != b.Spec || !got.Enabled {
		t.Errorf("unexpected bridge: %+v", got)
	}

	byName, err := store.GetByName(ctx, "LO_POS_GDB_0__G1_0")
	if err != nil || byName.BridgeID != "b1" {
		t.Errorf("GetByName: got %v, %v", byName, err)
	}

	// Upsert with the same ID replaces.
	b.Description = "updated"
	if err := store.Upsert(ctx, b); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	got, _ = store.GetByID(ctx, "b1")
	if got.Description != "updated" {
		t.Errorf("expected replaced description, got %q", got.Description)
	}
}

func TestManagedBridgeStore_NameConflict(t *testing.T) {
	store := NewManagedBridgeStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, makeBridge("b1", "SAME", true)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, makeBridge("b2", "SAME", true)); !errors.Is(err, storage.ErrNameConflict) {
		t.Errorf("expected ErrNameConflict, got %v", err)
	}
}

func TestManagedBridgeStore_GetAll(t *testing.T) {
	store := NewManagedBridgeStore()
	ctx := context.Background()

	for _, b := range []*domain.ManagedBridge{
		makeBridge("b3", "C", true),
		makeBridge("b1", "A", false),
		makeBridge("b2", "B", true),
	} {
		if err := store.Upsert(ctx, b); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	all, _ := store.GetAll(ctx, false)
	if len(all) != 3 || all[0].Name != "A" || all[2].Name != "C" {
		t.Errorf("unexpected order: %v", all)
	}

	enabled, _ := store.GetAll(ctx, true)
	if len(enabled) != 2 {
		t.Fatalf("expected 2 enabled bridges, got %d", len(enabled))
	}
	for _, b := range enabled {
		if !b.Enabled {
			t.Errorf("disabled bridge %s returned", b.Name)
		}
	}
}

func TestManagedBridgeStore_UpdateState(t *testing.T) {
	store := NewManagedBridgeStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, makeBridge("b1", "A", true)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	metrics := &domain.BridgeMetrics{TestedDays: 10, Wins: 4, WinRate: 40}
	pred := &domain.Prediction{Kind: domain.PredictPair, Numbers: []string{"12", "21"}}
	state := domain.BridgeState{Enabled: false, Metrics: metrics, NextPrediction: pred, Pending: true, UpdatedAt: 42}
	if err := store.UpdateState(ctx, "b1", state); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}

	// Later changes to the caller's values must not leak into the store.
	metrics.Wins = 99
	pred.Numbers[0] = "99"

	got, _ := store.GetByID(ctx, "b1")
	if got.Enabled || !got.Pending || got.UpdatedAt != 42 {
		t.Errorf("state not applied: %+v", got)
	}
	if got.Metrics == nil || got.Metrics.Wins != 4 {
		t.Errorf("unexpected metrics: %+v", got.Metrics)
	}
	if got.NextPrediction == nil || got.NextPrediction.Numbers[0] != "12" {
		t.Errorf("unexpected prediction: %+v", got.NextPrediction)
	}
	if got.Name != "A" {
		t.Errorf("identity fields must survive, got name %q", got.Name)
	}

	if err := store.UpdateState(ctx, "missing", state); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManagedBridgeStore_Delete(t *testing.T) {
	store := NewManagedBridgeStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, makeBridge("b1", "A", true)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Delete(ctx, "b1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, "b1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "b1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
