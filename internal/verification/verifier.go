// Package verification checks that the metrics stored for managed bridges
// match a fresh replay of the same history.
package verification

import (
	"context"
	"math"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/position"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying a single bridge.
type VerificationResult struct {
	BridgeID        string            // verified bridge ID
	Name            string            // display name
	Match           bool              // true if all fields match
	Divergences     []FieldDivergence // list of divergent fields
	StoredWinRate   float64           // win rate from stored metrics
	ReplayedWinRate float64           // win rate from the replay
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalBridges     int                  // bridges verified
	MatchedBridges   int                  // bridges that matched exactly
	DivergentBridges int                  // bridges with divergences
	Unevaluated      int                  // bridges without stored metrics, skipped
	Results          []VerificationResult // individual results
}

// Verifier interface for bridge replay verification.
type Verifier interface {
	// VerifyBridge verifies a single bridge by ID.
	// It loads the stored bridge, replays its spec over series and compares
	// metrics and the next prediction.
	VerifyBridge(ctx context.Context, series *position.Series, bridgeID string) (*VerificationResult, error)

	// VerifyAll verifies all stored bridges that carry metrics.
	VerifyAll(ctx context.Context, series *position.Series) (*VerificationReport, error)
}

// CompareMetrics compares two metric sets and returns divergences.
// Uses FloatTolerance for the win rate.
func CompareMetrics(stored, replayed *domain.BridgeMetrics) []FieldDivergence {
	if stored == nil || replayed == nil {
		if stored == nil && replayed == nil {
			return nil
		}
		return []FieldDivergence{{Field: "Metrics", Expected: stored, Actual: replayed}}
	}

	var divergences []FieldDivergence
	ints := []struct {
		field            string
		expected, actual int
	}{
		{"TestedDays", stored.TestedDays, replayed.TestedDays},
		{"Wins", stored.Wins, replayed.Wins},
		{"Losses", stored.Losses, replayed.Losses},
		{"Streak", stored.Streak, replayed.Streak},
		{"MaxStreak", stored.MaxStreak, replayed.MaxStreak},
		{"RecentWins", stored.RecentWins, replayed.RecentWins},
		{"LosingStreak", stored.LosingStreak, replayed.LosingStreak},
		{"MaxLosingStreak", stored.MaxLosingStreak, replayed.MaxLosingStreak},
	}
	for _, f := range ints {
		if f.expected != f.actual {
			divergences = append(divergences, FieldDivergence{Field: f.field, Expected: f.expected, Actual: f.actual})
		}
	}

	if !floatEquals(stored.WinRate, replayed.WinRate) {
		divergences = append(divergences, FieldDivergence{
			Field:    "WinRate",
			Expected: stored.WinRate,
			Actual:   replayed.WinRate,
		})
	}

	return divergences
}

// ComparePredictions compares two next predictions by their canonical form.
// Returns true if both are nil, or both are non-nil and equal.
func ComparePredictions(stored, replayed *domain.Prediction) bool {
	if stored == nil && replayed == nil {
		return true
	}
	if stored == nil || replayed == nil {
		return false
	}
	return stored.Kind == replayed.Kind && stored.String() == replayed.String()
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
