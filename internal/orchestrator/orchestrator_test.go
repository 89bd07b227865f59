package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"testing"
	"time"

	"lottery-bridge-lab/internal/bridge"
	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/idhash"
	"lottery-bridge-lab/internal/session"
	"lottery-bridge-lab/internal/storage/memory"
)

type testStores struct {
	draws   *memory.DrawStore
	bridges *memory.ManagedBridgeStore
	scans   *memory.ScanResultStore
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func randomDraws(n int, seed int64) []*domain.Draw {
	rng := rand.New(rand.NewSource(seed))
	num := func(width int) string {
		v := 1
		for i := 0; i < width; i++ {
			v *= 10
		}
		return fmt.Sprintf("%0*d", width, rng.Intn(v))
	}
	list := func(count, width int) string {
		out := num(width)
		for i := 1; i < count; i++ {
			out += "," + num(width)
		}
		return out
	}
	draws := make([]*domain.Draw, n)
	for i := range draws {
		draws[i] = &domain.Draw{
			PeriodID: fmt.Sprintf("p%03d", i),
			Seq:      int64(i + 1),
			Tiers: [domain.TierCount]string{
				num(5), num(5), list(2, 5), list(6, 5), list(4, 4), list(6, 4), list(3, 3), list(4, 2),
			},
		}
	}
	return draws
}

func managedBridge(spec domain.BridgeSpec, enabled bool) *domain.ManagedBridge {
	name := bridge.Name(spec)
	return &domain.ManagedBridge{
		BridgeID:       idhash.ComputeBridgeID(spec),
		Name:           name,
		NormalizedName: bridge.NormalizeName(name),
		Spec:           spec,
		Enabled:        enabled,
	}
}

func createTestStores(t *testing.T, n int, bridges ...*domain.ManagedBridge) testStores {
	t.Helper()
	ctx := context.Background()
	stores := testStores{
		draws:   memory.NewDrawStore(),
		bridges: memory.NewManagedBridgeStore(),
		scans:   memory.NewScanResultStore(),
	}
	if err := stores.draws.InsertBulk(ctx, randomDraws(n, 7)); err != nil {
		t.Fatalf("insert draws: %v", err)
	}
	for _, b := range bridges {
		if err := stores.bridges.Upsert(ctx, b); err != nil {
			t.Fatalf("insert bridge: %v", err)
		}
	}
	return stores
}

func openSession(t *testing.T, stores testStores) *session.Session {
	t.Helper()
	return openSessionWith(t, stores, config.Default())
}

func openSessionWith(t *testing.T, stores testStores, cfg config.Config) *session.Session {
	t.Helper()
	sess, err := session.Open(context.Background(), session.Options{
		Config:  cfg,
		Draws:   stores.draws,
		Bridges: stores.bridges,
		Logger:  quietLogger(),
	})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func fixedNow() time.Time {
	return time.Date(2024, 12, 23, 18, 30, 0, 0, time.UTC)
}

func TestNew_RequiresSession(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestOrchestrator_Run_CatalogOnly(t *testing.T) {
	ctx := context.Background()
	lo := managedBridge(domain.BridgeSpec{Kind: domain.KindLoPosition, OperandA: 0, OperandB: 5}, true)
	de := managedBridge(domain.BridgeSpec{Kind: domain.KindDePosSum, OperandA: 1, OperandB: 9}, true)
	stores := createTestStores(t, 40, lo, de)

	cfg := config.Default()
	cfg.Lifecycle.SeedClassic = false
	orch, err := New(Options{
		Session:  openSessionWith(t, stores, cfg),
		Logger:   quietLogger(),
		Now:      fixedNow,
		SkipScan: true,
		Verbose:  true,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.RunID == "" {
		t.Error("expected a run ID")
	}
	if result.Draws != 40 || result.Bridges != 2 {
		t.Errorf("expected 40 draws and 2 bridges, got %d and %d", result.Draws, result.Bridges)
	}
	if result.Lifecycle == nil || len(result.Lifecycle.Decisions) != 2 {
		t.Fatalf("expected 2 lifecycle decisions, got %+v", result.Lifecycle)
	}
	if result.Scan != nil {
		t.Error("scan should be skipped")
	}
	if len(result.Numbers) != 100 {
		t.Errorf("expected 100 scored numbers, got %d", len(result.Numbers))
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}

	// Lifecycle writes refreshed metrics back to the store.
	stored, err := stores.bridges.GetByID(ctx, lo.BridgeID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Metrics == nil || stored.NextPrediction == nil {
		t.Errorf("expected recomputed metrics and prediction, got %+v", stored)
	}
	if stored.UpdatedAt != fixedNow().UnixMilli() {
		t.Errorf("expected UpdatedAt from injected clock, got %d", stored.UpdatedAt)
	}
}

func TestOrchestrator_Run_SeedsClassicBridges(t *testing.T) {
	ctx := context.Background()
	lo := managedBridge(domain.BridgeSpec{Kind: domain.KindLoPosition, OperandA: 0, OperandB: 5}, true)
	stores := createTestStores(t, 40, lo)

	orch, err := New(Options{
		Session:  openSession(t, stores),
		Logger:   quietLogger(),
		Now:      fixedNow,
		SkipScan: true,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if want := 1 + bridge.ClassicCount; result.Bridges != want || len(result.Lifecycle.Decisions) != want {
		t.Fatalf("expected %d bridges and decisions, got %d and %d", want, result.Bridges, len(result.Lifecycle.Decisions))
	}

	for _, spec := range bridge.ClassicSpecs() {
		stored, err := stores.bridges.GetByID(ctx, idhash.ComputeBridgeID(spec))
		if err != nil {
			t.Fatalf("classic bridge %s not seeded: %v", bridge.Name(spec), err)
		}
		if stored.Metrics == nil || stored.Metrics.TestedDays == 0 || stored.NeedsEvaluation {
			t.Errorf("%s: expected evaluated metrics, got %+v", stored.Name, stored.Metrics)
		}
	}

	// A second run finds the classic bridges already managed.
	result, err = orch.Run(ctx)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if result.Bridges != 1+bridge.ClassicCount {
		t.Errorf("expected %d bridges after a second run, got %d", 1+bridge.ClassicCount, result.Bridges)
	}
}

func TestOrchestrator_Run_SingleDraw(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores(t, 1)

	orch, err := New(Options{
		Session:     openSession(t, stores),
		ScanResults: stores.scans,
		Logger:      quietLogger(),
		Now:         fixedNow,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("a single draw must not fail the run, got: %v", err)
	}
	if result.Scan == nil {
		t.Fatal("expected an empty scan result")
	}
	if len(result.Scan.Candidates)+len(result.Scan.Audit)+len(result.Scan.Revived) != 0 {
		t.Errorf("expected no candidates, got %+v", result.Scan)
	}
	if result.Lifecycle.NeedsEvaluation != bridge.ClassicCount {
		t.Errorf("expected %d bridges needing evaluation, got %d", bridge.ClassicCount, result.Lifecycle.NeedsEvaluation)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
}

func TestOrchestrator_Run_SkipLifecycle(t *testing.T) {
	lo := managedBridge(domain.BridgeSpec{Kind: domain.KindLoPosition, OperandA: 0, OperandB: 5}, true)
	stores := createTestStores(t, 20, lo)

	orch, err := New(Options{
		Session:       openSession(t, stores),
		Logger:        quietLogger(),
		SkipLifecycle: true,
		SkipScan:      true,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.Lifecycle != nil {
		t.Error("lifecycle should be skipped")
	}

	stored, err := stores.bridges.GetByID(context.Background(), lo.BridgeID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Metrics != nil {
		t.Error("skipped lifecycle must not write metrics")
	}

	// Without metrics the bridge gives no Đề or Lô signal; missing inputs are reported.
	if len(result.Missing) == 0 {
		t.Error("expected missing scoring inputs")
	}
}

func TestOrchestrator_Run_PersistsScan(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores(t, 60)

	orch, err := New(Options{
		Session:     openSession(t, stores),
		ScanResults: stores.scans,
		Logger:      quietLogger(),
		Now:         fixedNow,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.Scan == nil {
		t.Fatal("expected scan result")
	}
	if result.Scan.Evaluated == 0 {
		t.Error("expected evaluated specs")
	}

	snapshots, err := stores.scans.GetByRun(ctx, result.RunID)
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	want := len(result.Scan.Candidates) + len(result.Scan.Audit)
	if len(snapshots) != want {
		t.Fatalf("expected %d snapshots, got %d", want, len(snapshots))
	}
	for i, sn := range snapshots {
		if sn.Rank != i || sn.ScannedAt != fixedNow().UnixMilli() {
			t.Errorf("snapshot %d: unexpected rank %d / time %d", i, sn.Rank, sn.ScannedAt)
		}
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
}

func TestOrchestrator_Run_Cancelled(t *testing.T) {
	lo := managedBridge(domain.BridgeSpec{Kind: domain.KindLoPosition, OperandA: 0, OperandB: 5}, true)
	stores := createTestStores(t, 30, lo)

	orch, err := New(Options{Session: openSession(t, stores), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := orch.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
