package session

import "lottery-bridge-lab/internal/domain"

// Rates are a bridge's previously computed win rates, in percent.
type Rates struct {
	Short float64 // recent wins over the recent window
	Frame float64 // long-run win rate
}

// RatesCache maps normalized bridge names to their last known rates.
// It is built once and read-only afterwards.
type RatesCache struct {
	byName map[string]Rates
}

// NewRatesCache builds the cache from bridges that carry metrics.
// recentWindow is the window RecentWins was counted over.
func NewRatesCache(recentWindow int, bridges []*domain.ManagedBridge) *RatesCache {
	c := &RatesCache{byName: make(map[string]Rates, len(bridges))}
	for _, b := range bridges {
		if b.Metrics == nil || b.NormalizedName == "" {
			continue
		}
		r := Rates{Frame: b.Metrics.WinRate}
		if recentWindow > 0 {
			r.Short = float64(b.Metrics.RecentWins) / float64(recentWindow) * 100
		}
		c.byName[b.NormalizedName] = r
	}
	return c
}

// Rates implements scanner.RatesLookup.
func (c *RatesCache) Rates(normalizedName string) (shortRate, frameRate float64, ok bool) {
	if c == nil {
		return 0, 0, false
	}
	r, ok := c.byName[normalizedName]
	return r.Short, r.Frame, ok
}

// Len returns the number of cached bridges.
func (c *RatesCache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byName)
}
