package metrics

import (
	"math"
	"testing"

	"lottery-bridge-lab/internal/domain"
)

func TestComputePercentile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{0.5, 30},
		{0.25, 20},
		{0.9, 46},
		{1, 50},
	}
	for _, tt := range tests {
		if got := computePercentile(sorted, tt.p); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("p=%.2f: expected %f, got %f", tt.p, tt.want, got)
		}
	}

	if computePercentile(nil, 0.5) != 0 {
		t.Error("empty input should yield 0")
	}
	if computePercentile([]float64{7}, 0.9) != 7 {
		t.Error("single value should be returned as is")
	}
}

func TestComputeStddev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mean := computeMean(values)
	if mean != 5 {
		t.Fatalf("expected mean 5, got %f", mean)
	}
	// Sample variance = 32 / 7
	want := math.Sqrt(32.0 / 7.0)
	if got := computeStddev(values, mean); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected stddev %f, got %f", want, got)
	}
	if computeStddev([]float64{1}, 1) != 0 {
		t.Error("a single sample has no sample stddev")
	}
}

func TestComputeWinRate(t *testing.T) {
	if computeWinRate(0, 0) != 0 {
		t.Error("zero total should yield 0")
	}
	if computeWinRate(3, 4) != 75 {
		t.Errorf("expected 75, got %f", computeWinRate(3, 4))
	}
}

func TestComputeFromBridges(t *testing.T) {
	bridges := []*domain.ManagedBridge{
		{Name: "b", Enabled: true, Metrics: &domain.BridgeMetrics{Wins: 6, TestedDays: 10, WinRate: 60, Streak: 2, MaxLosingStreak: 3}},
		{Name: "a", Enabled: true, Pending: true, Metrics: &domain.BridgeMetrics{Wins: 8, TestedDays: 10, WinRate: 80, Streak: 5, MaxLosingStreak: 1}},
		{Name: "c", ManualOverride: true},
	}

	agg := computeFromBridges(domain.KindLoPosition, bridges)

	if agg.Market != domain.MarketLo {
		t.Errorf("expected LO market, got %s", agg.Market)
	}
	if agg.Total != 3 || agg.Enabled != 2 || agg.Evaluated != 2 || agg.Pending != 1 || agg.ManualOverrides != 1 {
		t.Errorf("unexpected counts: %+v", agg)
	}
	if agg.PooledWinRate != 70 || agg.MeanWinRate != 70 || agg.MedianWinRate != 70 {
		t.Errorf("unexpected rates: pooled=%f mean=%f median=%f", agg.PooledWinRate, agg.MeanWinRate, agg.MedianWinRate)
	}
	if agg.MinWinRate != 60 || agg.MaxWinRate != 80 {
		t.Errorf("unexpected range: %f..%f", agg.MinWinRate, agg.MaxWinRate)
	}
	if agg.MaxStreak != 5 || agg.MaxLosingStreak != 3 || agg.BestBridge != "a" {
		t.Errorf("unexpected extremes: %+v", agg)
	}
}

func TestComputeFromBridges_NoMetrics(t *testing.T) {
	agg := computeFromBridges(domain.KindDeSet, []*domain.ManagedBridge{{Name: "x"}})
	if agg.Total != 1 || agg.Evaluated != 0 || agg.MeanWinRate != 0 || agg.BestBridge != "" {
		t.Errorf("unexpected aggregate: %+v", agg)
	}
}
