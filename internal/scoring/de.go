package scoring

import (
	"fmt"

	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/metrics"
)

// DeSignal is one Đề bridge's next prediction with its current streak.
type DeSignal struct {
	Name       string
	Kind       domain.BridgeKind
	Streak     int
	Prediction domain.Prediction
}

// IsKiller reports whether the signal predicts its numbers absent.
func (s DeSignal) IsKiller() bool {
	return s.Kind == domain.KindDeKiller || s.Prediction.Kind == domain.PredictExclude
}

// DeInputs collects the Đề number signals. Every field is optional.
type DeInputs struct {
	Bridges []DeSignal
	Trends  *metrics.DeTrends
	Recent  []domain.Outcome // oldest first
}

// Missing reports the absent signals, each wrapping domain.ErrAggregationInputMissing.
func (in DeInputs) Missing() []error {
	var errs []error
	if len(in.Bridges) == 0 {
		errs = append(errs, fmt.Errorf("bridges: %w", domain.ErrAggregationInputMissing))
	}
	if in.Trends == nil {
		errs = append(errs, fmt.Errorf("trends: %w", domain.ErrAggregationInputMissing))
	}
	if len(in.Recent) == 0 {
		errs = append(errs, fmt.Errorf("recent: %w", domain.ErrAggregationInputMissing))
	}
	return errs
}

// DeSignalsFromBridges returns the enabled Đề bridges that carry a next
// prediction and metrics.
func DeSignalsFromBridges(bridges []*domain.ManagedBridge) []DeSignal {
	var out []DeSignal
	for _, b := range bridges {
		if !b.Enabled || b.Market() != domain.MarketDe || b.NextPrediction == nil || b.Metrics == nil {
			continue
		}
		out = append(out, DeSignal{
			Name:       b.Name,
			Kind:       b.Spec.Kind,
			Streak:     b.Metrics.Streak,
			Prediction: *b.NextPrediction,
		})
	}
	return out
}

// DeSignalsFromCandidates returns the Đề candidates of a scan, killers included.
func DeSignalsFromCandidates(cands []domain.Candidate) []DeSignal {
	var out []DeSignal
	for _, c := range cands {
		if c.Spec.Kind.Market() != domain.MarketDe {
			continue
		}
		out = append(out, DeSignal{
			Name:       c.Name,
			Kind:       c.Spec.Kind,
			Streak:     c.Streak,
			Prediction: c.Next,
		})
	}
	return out
}

// Density is the per-number weight of a prediction covering count numbers.
// Small groups (Bộ, doubles) are weighted far above large ones (touches, sums).
func Density(cfg config.DeScoringConfig, count int) float64 {
	if count <= 0 {
		return 0
	}
	if count <= cfg.SmallGroupMax {
		return cfg.SmallGroupConstant / float64(count)
	}
	return cfg.LargeGroupConstant / float64(count)
}

// AttackWeight is the magnitude a bridge adds to (or, for a killer, removes
// from) every number it covers.
func AttackWeight(cfg config.DeScoringConfig, count, streak int) float64 {
	return Density(cfg, count) * (1 + float64(streak)*cfg.StreakFactor)
}

// ScoreNumbers ranks the 100 Đề numbers.
func (s *Scorer) ScoreNumbers(in DeInputs) []domain.ScoredNumber {
	for _, err := range in.Missing() {
		s.logger.Printf("score numbers: %v", err)
	}
	return ScoreNumbers(s.cfg.DeScoring, in)
}

// ScoreNumbers ranks the 100 Đề numbers with cfg. Ties keep numeric order.
func ScoreNumbers(cfg config.DeScoringConfig, in DeInputs) []domain.ScoredNumber {
	t := newTable()
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("%02d", i)
		t.get(key).add("", "base", cfg.BaseScore)
	}

	if tr := in.Trends; tr != nil {
		for _, e := range t.order {
			d1, d2 := int(e.key[0]-'0'), int(e.key[1]-'0')
			if f := float64(tr.TouchFreq[d1]+tr.TouchFreq[d2]) * cfg.FrequencyWeight; f != 0 {
				e.add("", "trend", f)
			}
			if g := maxInt(tr.TouchGan[d1], tr.TouchGan[d2]); g > cfg.GanThreshold {
				e.add("", fmt.Sprintf("gan %d", g), -float64(g-cfg.GanThreshold)*cfg.GanPenaltyPerDay)
			}
		}
	}

	support := make(map[string]int)
	for _, b := range in.Bridges {
		targets := b.Prediction.Targets()
		if len(targets) == 0 {
			continue
		}
		w := AttackWeight(cfg, len(targets), b.Streak)
		for _, n := range targets {
			e, ok := t.index[n]
			if !ok {
				continue
			}
			if b.IsKiller() {
				e.add("", "killer "+b.Name, -w)
				continue
			}
			e.add("", "attack "+b.Name, w)
			support[n]++
		}
	}

	recent := recentDe(in.Recent, cfg.RecentDays)
	for _, e := range t.order {
		if c := support[e.key]; c > 1 && cfg.DuplicateBonus != 0 {
			e.add("", fmt.Sprintf("support x%d", c), float64(c-1)*cfg.DuplicateBonus)
		}
		if _, ok := recent[e.key]; ok && cfg.RecentBonus != 0 {
			e.add("", "recent", cfg.RecentBonus)
		}
	}

	out := make([]domain.ScoredNumber, 0, len(t.order))
	for _, e := range t.order {
		out = append(out, domain.ScoredNumber{
			Number:  e.key,
			Score:   e.score(),
			Reasons: e.reasons,
			Bridges: support[e.key],
		})
	}
	sortNumbers(out)
	return out
}

// recentDe collects the đề numbers of the last n outcomes.
func recentDe(outcomes []domain.Outcome, n int) map[string]struct{} {
	set := make(map[string]struct{})
	if n <= 0 {
		return set
	}
	from := len(outcomes) - n
	if from < 0 {
		from = 0
	}
	for _, o := range outcomes[from:] {
		if o.De != "" {
			set[o.De] = struct{}{}
		}
	}
	return set
}
