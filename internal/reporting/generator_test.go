package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/lifecycle"
	"lottery-bridge-lab/internal/position"
	"lottery-bridge-lab/internal/scanner"
	"lottery-bridge-lab/internal/storage/memory"
)

func testSeries(n int) *position.Series {
	draws := make([]domain.Draw, n)
	for i := range draws {
		draws[i] = domain.Draw{
			PeriodID: fmt.Sprintf("p%02d", i),
			Seq:      int64(i),
			Tiers: [domain.TierCount]string{
				fmt.Sprintf("100%02d", (i*7)%100),
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
	return position.NewSeries(draws)
}

func setupStore(t *testing.T) *memory.ManagedBridgeStore {
	t.Helper()
	store := memory.NewManagedBridgeStore()
	bridges := []*domain.ManagedBridge{
		{
			BridgeID: "b1", Name: "lo-a", NormalizedName: "lo-a", Enabled: true,
			Spec:    domain.BridgeSpec{Kind: domain.KindLoPosition, OperandA: 1, OperandB: 2},
			Metrics: &domain.BridgeMetrics{TestedDays: 10, Wins: 8, Losses: 2, WinRate: 80, Streak: 3},
		},
		{
			BridgeID: "b2", Name: "de-a", NormalizedName: "de-a",
			Spec: domain.BridgeSpec{Kind: domain.KindDePosSum, OperandA: 1, OperandB: 2},
		},
	}
	for _, b := range bridges {
		if err := store.Upsert(context.Background(), b); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}
	return store
}

func fixedClock() time.Time {
	return time.Date(2024, 12, 23, 18, 30, 0, 0, time.UTC)
}

func TestGenerate_Sections(t *testing.T) {
	gen := NewGenerator(config.Default(), setupStore(t)).WithClock(fixedClock).WithTopN(2)

	in := Inputs{
		Series: testSeries(12),
		Pairs: []domain.ScoredPair{
			{Pair: "12-21", Score: 5},
			{Pair: "33-33", Score: 4},
			{Pair: "45-54", Score: 1},
		},
		Numbers: []domain.ScoredNumber{{Number: "07", Score: 12}},
		Missing: []error{fmt.Errorf("hot: %w", domain.ErrAggregationInputMissing)},
		Scan: &scanner.Result{
			Candidates: []domain.Candidate{{Name: "c1"}, {Name: "c2"}, {Name: "c3"}},
		},
	}

	r, err := gen.Generate(context.Background(), in)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !r.GeneratedAt.Equal(fixedClock()) {
		t.Errorf("unexpected timestamp %v", r.GeneratedAt)
	}
	if r.History.Draws != 12 || r.History.FirstPeriod != "p00" || r.History.LastPeriod != "p11" {
		t.Errorf("unexpected history %+v", r.History)
	}
	if r.History.LatestDe != "77" {
		t.Errorf("expected latest đề 77, got %q", r.History.LatestDe)
	}
	if len(r.Pairs) != 2 || len(r.Candidates) != 2 {
		t.Errorf("expected sections truncated to 2, got %d pairs %d candidates", len(r.Pairs), len(r.Candidates))
	}
	if len(r.Aggregates) != 2 {
		t.Errorf("expected one aggregate per kind, got %d", len(r.Aggregates))
	}
	if len(r.DataQuality.MissingMetrics) != 1 || !strings.Contains(r.DataQuality.MissingMetrics[0], "de-a") {
		t.Errorf("expected de-a flagged, got %v", r.DataQuality.MissingMetrics)
	}
	if len(r.DataQuality.MissingInputs) != 1 || r.DataQuality.OK() {
		t.Errorf("expected one missing input, got %v", r.DataQuality.MissingInputs)
	}
	if r.DeTrends == nil {
		t.Error("expected đề trends")
	}
}

func TestGenerate_EmptyStoreAndHistory(t *testing.T) {
	gen := NewGenerator(config.Default(), memory.NewManagedBridgeStore())

	r, err := gen.Generate(context.Background(), Inputs{Series: testSeries(3)})
	if err != nil {
		t.Fatalf("empty bridge store should not fail: %v", err)
	}
	if len(r.Aggregates) != 0 || !r.DataQuality.OK() {
		t.Errorf("unexpected report %+v", r)
	}

	_, err = gen.Generate(context.Background(), Inputs{})
	if !errors.Is(err, domain.ErrInsufficientHistory) {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestRenderMarkdown(t *testing.T) {
	gen := NewGenerator(config.Default(), setupStore(t)).WithClock(fixedClock)
	r, err := gen.Generate(context.Background(), Inputs{
		Series: testSeries(5),
		Pairs: []domain.ScoredPair{{
			Pair: "12-21", Score: 3.5, Sources: 2, Confidence: 0.25,
			Reasons:        []domain.Reason{{Label: "vote x2", Delta: 2}, {Label: "hot", Delta: 1.5}},
			Recommendation: domain.RecommendConsider,
		}},
		Lifecycle: &lifecycle.Report{Kept: 1},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(r)
	for _, want := range []string{
		"# Bridge Score Report",
		"Generated: 2024-12-23T18:30:00Z",
		"| 1 | 12-21 | 3.50 | 2 | 25% | - | CONSIDER | vote x2 (+2.00), hot (+1.50) |",
		"No numbers scored.",
		"| LO_POS | LO | 1 | 1 |",
		"bridge de-a has no metrics",
		"## Lifecycle Report",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if strings.Contains(md, "## Scan Candidates") {
		t.Error("scan section should be omitted without a scan")
	}
}

func TestWriteHistoryCSV(t *testing.T) {
	var buf bytes.Buffer
	records := []domain.BacktestRecord{
		{Day: 0, PeriodID: "p00", Prediction: "12,21", Status: domain.DayOpen},
		{Day: 1, PeriodID: "p01", Prediction: "12,21", Status: domain.DayWinN2, Streak: 1, Note: "hit, confirmed"},
	}
	if err := WriteHistoryCSV(&buf, records); err != nil {
		t.Fatalf("WriteHistoryCSV failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[2][2] != "12,21" || rows[2][3] != "WIN_N2" || rows[2][5] != "hit, confirmed" {
		t.Errorf("unexpected row %v", rows[2])
	}
}

func TestWriteCandidatesCSV(t *testing.T) {
	var buf bytes.Buffer
	cands := []domain.Candidate{
		{Name: "a", Spec: domain.BridgeSpec{Kind: domain.KindDeSet}, ShortRate: 50, FrameRate: 40, Next: domain.Prediction{Kind: domain.PredictNumbers, Numbers: []string{"12", "21"}}},
		{Name: "b", Spec: domain.BridgeSpec{Kind: domain.KindDeKiller}, RatesMissing: true, Audit: true},
	}
	if err := WriteCandidatesCSV(&buf, cands); err != nil {
		t.Fatalf("WriteCandidatesCSV failed: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}
	if rows[1][8] != "40.00" || rows[1][9] != "12,21" {
		t.Errorf("unexpected row %v", rows[1])
	}
	if rows[2][8] != "" || rows[2][11] != "true" {
		t.Errorf("missing rates should leave frame empty, got %v", rows[2])
	}
}

func TestWritePairsCSV(t *testing.T) {
	var buf bytes.Buffer
	pairs := []domain.ScoredPair{{Pair: "12-21", Score: 2.5, Sources: 3, Confidence: 0.375, Recommendation: domain.RecommendPlay}}
	if err := WritePairsCSV(&buf, pairs); err != nil {
		t.Fatalf("WritePairsCSV failed: %v", err)
	}
	want := "rank,pair,score,sources,confidence,gan_days,recommendation\n1,12-21,2.5000,3,0.3750,0,PLAY\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
