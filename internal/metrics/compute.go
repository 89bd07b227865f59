package metrics

import (
	"math"
	"sort"

	"lottery-bridge-lab/internal/domain"
)

// computeFromBridges calculates the aggregate of bridges of one kind.
// Bridges without metrics count toward Total but not toward the rate figures.
// Bridges are sorted by Name ASC before picking the best bridge, so ties
// resolve deterministically.
func computeFromBridges(kind domain.BridgeKind, bridges []*domain.ManagedBridge) *BridgeAggregate {
	agg := &BridgeAggregate{
		Kind:   kind,
		Market: kind.Market(),
	}
	if len(bridges) == 0 {
		return agg
	}

	sorted := make([]*domain.ManagedBridge, len(bridges))
	copy(sorted, bridges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var rates []float64
	bestRate := -1.0
	for _, b := range sorted {
		agg.Total++
		if b.Enabled {
			agg.Enabled++
		}
		if b.ManualOverride {
			agg.ManualOverrides++
		}
		if b.Pending {
			agg.Pending++
		}
		if b.Metrics == nil {
			continue
		}
		m := b.Metrics
		agg.Evaluated++
		agg.Wins += m.Wins
		agg.TestedDays += m.TestedDays
		rates = append(rates, m.WinRate)
		if m.Streak > agg.MaxStreak {
			agg.MaxStreak = m.Streak
		}
		if m.MaxLosingStreak > agg.MaxLosingStreak {
			agg.MaxLosingStreak = m.MaxLosingStreak
		}
		if m.WinRate > bestRate {
			bestRate = m.WinRate
			agg.BestBridge = b.Name
		}
	}
	if len(rates) == 0 {
		return agg
	}

	sortedRates := make([]float64, len(rates))
	copy(sortedRates, rates)
	sort.Float64s(sortedRates)

	mean := computeMean(rates)
	agg.PooledWinRate = computeWinRate(agg.Wins, agg.TestedDays)
	agg.MeanWinRate = mean
	agg.MedianWinRate = computePercentile(sortedRates, 0.50)
	agg.P10WinRate = computePercentile(sortedRates, 0.10)
	agg.P90WinRate = computePercentile(sortedRates, 0.90)
	agg.MinWinRate = sortedRates[0]
	agg.MaxWinRate = sortedRates[len(sortedRates)-1]
	agg.StddevWinRate = computeStddev(rates, mean)
	return agg
}

// computeWinRate calculates win rate as wins / total, in percent.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

// computeMean calculates arithmetic mean of values.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0 // Need at least 2 samples for sample stddev
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	// Index for percentile (0-based, continuous)
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	// Linear interpolation
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
