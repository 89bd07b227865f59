// Package scoring combines bridge, market and probability signals into
// ranked, explainable number lists: Lô pairs and Đề numbers.
//
// Every contribution is recorded as a Reason and the reported score is the
// sum of the reason deltas, in the order they were recorded. Output lists are
// sorted by score DESC; ties keep the order in which entries were first seen.
package scoring

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
)

// Signal groups counted toward a pair's sources.
const (
	GroupVote        = "vote"
	GroupHighWin     = "high_win"
	GroupRisk        = "risk"
	GroupMemory      = "memory"
	GroupForm        = "form"
	GroupHot         = "hot"
	GroupRecent      = "recent"
	GroupProbability = "probability"
)

// Scorer runs both aggregators with one configuration.
type Scorer struct {
	cfg    config.Config
	logger *log.Logger
}

// New creates a new scorer. A nil logger uses log.Default().
func New(cfg config.Config, logger *log.Logger) *Scorer {
	if logger == nil {
		logger = log.Default()
	}
	return &Scorer{cfg: cfg, logger: logger}
}

// entry accumulates the reasons of one pair or number.
type entry struct {
	key     string
	reasons []domain.Reason
	groups  map[string]struct{}
}

func newEntry(key string) *entry {
	return &entry{key: key, groups: make(map[string]struct{})}
}

func (e *entry) add(group, label string, delta float64) {
	e.reasons = append(e.reasons, domain.Reason{Label: label, Delta: delta})
	if group != "" {
		e.groups[group] = struct{}{}
	}
}

// score sums the reason deltas in recording order.
func (e *entry) score() float64 {
	return ReasonSum(e.reasons)
}

// table keeps entries in encounter order.
type table struct {
	order []*entry
	index map[string]*entry
}

func newTable() *table {
	return &table{index: make(map[string]*entry)}
}

func (t *table) get(key string) *entry {
	if e, ok := t.index[key]; ok {
		return e
	}
	e := newEntry(key)
	t.index[key] = e
	t.order = append(t.order, e)
	return e
}

func (t *table) has(key string) bool {
	_, ok := t.index[key]
	return ok
}

// ReasonSum returns the sum of reason deltas.
func ReasonSum(reasons []domain.Reason) float64 {
	total := 0.0
	for _, r := range reasons {
		total += r.Delta
	}
	return total
}

// FormatReasons renders reasons the way reports show them: "vote x2 (+0.42), hot (+1.00)".
func FormatReasons(reasons []domain.Reason) string {
	var sb strings.Builder
	for i, r := range reasons {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s (%+.2f)", r.Label, r.Delta)
	}
	return sb.String()
}

// Recommend derives the categorical label from a score and its source count.
func Recommend(cfg config.ScoringConfig, score float64, sources int) domain.Recommendation {
	switch {
	case score >= cfg.PlayMinScore && sources >= cfg.PlayMinSources:
		return domain.RecommendPlay
	case score >= cfg.ConsiderMinScore || sources >= cfg.ConsiderMinSources:
		return domain.RecommendConsider
	default:
		return domain.RecommendSkip
	}
}

func sortPairs(pairs []domain.ScoredPair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Score > pairs[j].Score
	})
}

func sortNumbers(numbers []domain.ScoredNumber) {
	sort.SliceStable(numbers, func(i, j int) bool {
		return numbers[i].Score > numbers[j].Score
	})
}

func isNumber(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}
