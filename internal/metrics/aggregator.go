// Package metrics computes market statistics over a draw history and
// aggregate quality figures over the managed bridge catalog.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/storage"
)

// ErrNoBridges is returned when no managed bridges are available for aggregation.
var ErrNoBridges = errors.New("no managed bridges available for aggregation")

// BridgeAggregate summarises the managed bridges of one kind.
// Rates are percentages in [0, 100].
type BridgeAggregate struct {
	Kind   domain.BridgeKind
	Market domain.Market

	// Counts
	Total           int
	Enabled         int
	Evaluated       int // bridges carrying metrics
	Pending         int // bridges with an open frame
	ManualOverrides int

	// Pooled over every evaluated bridge
	Wins          int
	TestedDays    int
	PooledWinRate float64

	// Distribution of per-bridge win rates
	MeanWinRate   float64
	MedianWinRate float64
	P10WinRate    float64
	P90WinRate    float64
	MinWinRate    float64
	MaxWinRate    float64
	StddevWinRate float64

	MaxStreak       int // best current streak
	MaxLosingStreak int // worst losing streak seen
	BestBridge      string
}

// Aggregator computes bridge aggregates from the managed bridge store.
type Aggregator struct {
	store storage.ManagedBridgeStore

	// MissingMetrics tracks bridges that were never evaluated (for data quality reporting).
	MissingMetrics []string
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(store storage.ManagedBridgeStore) *Aggregator {
	return &Aggregator{store: store}
}

// ComputeAggregate computes the aggregate of one bridge kind.
// Returns ErrNoBridges if no bridge of that kind exists.
func (a *Aggregator) ComputeAggregate(ctx context.Context, kind domain.BridgeKind, onlyEnabled bool) (*BridgeAggregate, error) {
	all, err := a.store.GetAll(ctx, onlyEnabled)
	if err != nil {
		return nil, err
	}

	var filtered []*domain.ManagedBridge
	for _, b := range all {
		if b.Spec.Kind == kind {
			filtered = append(filtered, b)
		}
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("%s: %w", kind, ErrNoBridges)
	}
	a.trackMissing(filtered)
	return computeFromBridges(kind, filtered), nil
}

// ComputeAll computes one aggregate per kind present in the store,
// in domain.AllKinds order. Returns ErrNoBridges if the store is empty.
func (a *Aggregator) ComputeAll(ctx context.Context, onlyEnabled bool) ([]*BridgeAggregate, error) {
	all, err := a.store.GetAll(ctx, onlyEnabled)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNoBridges
	}
	a.trackMissing(all)

	byKind := make(map[domain.BridgeKind][]*domain.ManagedBridge)
	for _, b := range all {
		byKind[b.Spec.Kind] = append(byKind[b.Spec.Kind], b)
	}
	var out []*BridgeAggregate
	for _, kind := range domain.AllKinds {
		if bridges, ok := byKind[kind]; ok {
			out = append(out, computeFromBridges(kind, bridges))
		}
	}
	return out, nil
}

func (a *Aggregator) trackMissing(bridges []*domain.ManagedBridge) {
	for _, b := range bridges {
		if b.Metrics == nil {
			a.MissingMetrics = append(a.MissingMetrics, b.Name)
		}
	}
}

// GetMissingMetricsErrors returns data quality errors for bridges without metrics.
// Sorted and de-duplicated for deterministic output.
func (a *Aggregator) GetMissingMetricsErrors() []string {
	if len(a.MissingMetrics) == 0 {
		return nil
	}

	names := append([]string(nil), a.MissingMetrics...)
	sort.Strings(names)

	var errs []string
	for i, name := range names {
		if i > 0 && names[i-1] == name {
			continue
		}
		errs = append(errs, fmt.Sprintf("bridge %s has no metrics, needs evaluation", name))
	}
	return errs
}
