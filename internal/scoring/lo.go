package scoring

import (
	"fmt"
	"math"
	"sort"

	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
)

// Vote is the number of distinct bridges predicting a pair.
type Vote struct {
	Pair  string
	Count int
}

// BridgeSignal is one bridge's next Lô prediction with its quality figures.
type BridgeSignal struct {
	Name            string
	Numbers         []string
	WinRate         float64
	RecentWins      int
	MaxLosingStreak int
}

// LoInputs collects the Lô pair signals. Every field is optional; an absent
// signal contributes nothing.
type LoInputs struct {
	Votes         []Vote
	HighWin       []BridgeSignal
	Risks         []BridgeSignal // bridges with an open frame
	Memory        []BridgeSignal // top memory bridges, best first
	Form          []BridgeSignal // enabled bridges rated by recent form
	Hot           map[string]struct{}
	Recent        []domain.Outcome // oldest first
	Gan           map[string]int
	Probabilities map[string]float64 // loto -> probability in [0, 1]
}

// Missing reports the absent signals, each wrapping domain.ErrAggregationInputMissing.
func (in LoInputs) Missing() []error {
	var errs []error
	check := func(name string, present bool) {
		if !present {
			errs = append(errs, fmt.Errorf("%s: %w", name, domain.ErrAggregationInputMissing))
		}
	}
	check("votes", len(in.Votes) > 0)
	check("high win", len(in.HighWin) > 0)
	check("risks", len(in.Risks) > 0)
	check("memory", len(in.Memory) > 0)
	check("form", len(in.Form) > 0)
	check("hot", len(in.Hot) > 0)
	check("recent", len(in.Recent) > 0)
	check("gan", len(in.Gan) > 0)
	check("probabilities", len(in.Probabilities) > 0)
	return errs
}

// PairKey standardizes a Lô prediction to "a-b" with a <= b.
// A single number n becomes "n-n". Anything else is rejected.
func PairKey(numbers []string) (string, bool) {
	switch len(numbers) {
	case 1:
		if !isNumber(numbers[0]) {
			return "", false
		}
		return numbers[0] + "-" + numbers[0], true
	case 2:
		a, b := numbers[0], numbers[1]
		if !isNumber(a) || !isNumber(b) {
			return "", false
		}
		if a > b {
			a, b = b, a
		}
		return a + "-" + b, true
	default:
		return "", false
	}
}

func splitPair(key string) (string, string) {
	return key[:2], key[3:]
}

func signalOf(b *domain.ManagedBridge) BridgeSignal {
	s := BridgeSignal{Name: b.Name, Numbers: b.NextPrediction.Numbers}
	if b.Metrics != nil {
		s.WinRate = b.Metrics.WinRate
		s.RecentWins = b.Metrics.RecentWins
		s.MaxLosingStreak = b.Metrics.MaxLosingStreak
	}
	return s
}

// LoInputsFromBridges derives the bridge signals (votes, high win, risks,
// memory, form) from managed bridges. Only enabled Lô bridges with a pair
// prediction take part. Market statistics and probabilities are left to the
// caller.
func LoInputsFromBridges(cfg config.ScoringConfig, bridges []*domain.ManagedBridge) LoInputs {
	var in LoInputs
	voteIndex := make(map[string]int)
	var memory []BridgeSignal

	for _, b := range bridges {
		if !b.Enabled || b.Market() != domain.MarketLo || b.NextPrediction == nil || b.NextPrediction.Kind != domain.PredictPair {
			continue
		}
		key, ok := PairKey(b.NextPrediction.Numbers)
		if !ok {
			continue
		}
		if i, seen := voteIndex[key]; seen {
			in.Votes[i].Count++
		} else {
			voteIndex[key] = len(in.Votes)
			in.Votes = append(in.Votes, Vote{Pair: key, Count: 1})
		}

		if b.Metrics == nil {
			continue
		}
		sig := signalOf(b)
		isMemory := b.Spec.Kind == domain.KindLoMemorySum || b.Spec.Kind == domain.KindLoMemoryDiff
		switch {
		case isMemory:
			memory = append(memory, sig)
		case b.Metrics.WinRate >= cfg.HighWinThreshold:
			in.HighWin = append(in.HighWin, sig)
		}
		if b.Pending {
			in.Risks = append(in.Risks, sig)
		} else {
			in.Form = append(in.Form, sig)
		}
	}

	in.Memory = TopMemory(memory, cfg.MemoryTopN)
	return in
}

// TopMemory returns the n best memory signals by win rate, stable on ties.
// n <= 0 returns all.
func TopMemory(signals []BridgeSignal, n int) []BridgeSignal {
	out := append([]BridgeSignal(nil), signals...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WinRate > out[j].WinRate
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// MemorySignalsFromCandidates turns scanned Lô memory candidates into
// memory signals rated by their short-horizon rate.
func MemorySignalsFromCandidates(cands []domain.Candidate) []BridgeSignal {
	var out []BridgeSignal
	for _, c := range cands {
		if c.Spec.Kind != domain.KindLoMemorySum && c.Spec.Kind != domain.KindLoMemoryDiff {
			continue
		}
		if c.Next.Kind != domain.PredictPair {
			continue
		}
		out = append(out, BridgeSignal{
			Name:            c.Name,
			Numbers:         c.Next.Numbers,
			WinRate:         c.ShortRate,
			RecentWins:      c.RecentWins,
			MaxLosingStreak: c.MaxLosingStreak,
		})
	}
	return out
}

// formBonus returns the bonus of the highest tier reached by wins.
func formBonus(tiers []config.FormTier, wins int) float64 {
	best, bonus := -1, 0.0
	for _, t := range tiers {
		if wins >= t.MinWins && t.MinWins > best {
			best, bonus = t.MinWins, t.Bonus
		}
	}
	return bonus
}

// ScorePairs ranks Lô pairs.
func (s *Scorer) ScorePairs(in LoInputs) []domain.ScoredPair {
	for _, err := range in.Missing() {
		s.logger.Printf("score pairs: %v", err)
	}
	return ScorePairs(s.cfg.Scoring, in)
}

// ScorePairs ranks Lô pairs with cfg.
func ScorePairs(cfg config.ScoringConfig, in LoInputs) []domain.ScoredPair {
	t := newTable()

	for _, v := range in.Votes {
		if v.Count <= 0 {
			continue
		}
		w := float64(v.Count)
		if cfg.VoteWeighting == config.VoteSqrt {
			w = math.Sqrt(w)
		}
		t.get(v.Pair).add(GroupVote, fmt.Sprintf("vote x%d", v.Count), cfg.VoteWeight*w)
	}

	for _, b := range in.HighWin {
		if key, ok := PairKey(b.Numbers); ok {
			t.get(key).add(GroupHighWin, fmt.Sprintf("high win %s (%.1f%%)", b.Name, b.WinRate), cfg.HighWinBonus)
		}
	}

	for _, b := range in.Risks {
		key, ok := PairKey(b.Numbers)
		if !ok || b.MaxLosingStreak <= cfg.RiskStartThreshold {
			continue
		}
		penalty := float64(b.MaxLosingStreak-cfg.RiskStartThreshold) * cfg.RiskPenaltyPerFrame
		t.get(key).add(GroupRisk, fmt.Sprintf("risk %s (%d frames)", b.Name, b.MaxLosingStreak), -penalty)
	}

	for _, b := range in.Memory {
		if key, ok := PairKey(b.Numbers); ok {
			t.get(key).add(GroupMemory, fmt.Sprintf("memory %s (%.1f%%)", b.Name, b.WinRate), cfg.MemoryBonus)
		}
	}

	for _, b := range in.Form {
		key, ok := PairKey(b.Numbers)
		if !ok {
			continue
		}
		if bonus := formBonus(cfg.FormTiers, b.RecentWins); bonus != 0 {
			t.get(key).add(GroupForm, fmt.Sprintf("form %s (%d/10)", b.Name, b.RecentWins), bonus)
		}
	}

	recent3 := recentLotos(in.Recent, 3)
	recent7 := recentLotos(in.Recent, 7)
	gans := make(map[string]int)

	for _, e := range t.order {
		a, b := splitPair(e.key)
		if _, ok := in.Hot[a]; ok {
			e.add(GroupHot, "hot", cfg.HotBonus)
		} else if _, ok := in.Hot[b]; ok {
			e.add(GroupHot, "hot", cfg.HotBonus)
		}

		switch {
		case inSet(recent3, a, b):
			e.add(GroupRecent, "recent 3", cfg.Recent3Bonus)
		case inSet(recent7, a, b):
			e.add(GroupRecent, "recent 7", cfg.Recent7Bonus)
		}

		gans[e.key] = maxInt(in.Gan[a], in.Gan[b])

		if p := maxProb(in.Probabilities, a, b); p > 0 {
			e.add(GroupProbability, fmt.Sprintf("probability %.1f%%", p*100), p*cfg.ProbabilityWeight)
		}
	}

	// Clean pairs: mirror pairs with no bridge support but a strong probability.
	if len(in.Probabilities) > 0 {
		for i := 0; i < 100; i++ {
			a := fmt.Sprintf("%02d", i)
			if a[0] == a[1] {
				continue
			}
			b := string([]byte{a[1], a[0]})
			key, _ := PairKey([]string{a, b})
			if t.has(key) {
				continue
			}
			p := maxProb(in.Probabilities, a, b)
			if p <= 0 || p < cfg.CleanPairMinProbability {
				continue
			}
			e := t.get(key)
			e.add(GroupProbability, fmt.Sprintf("clean probability %.1f%%", p*100), p*cfg.ProbabilityWeight)
			gans[key] = maxInt(in.Gan[a], in.Gan[b])
		}
	}

	out := make([]domain.ScoredPair, 0, len(t.order))
	for _, e := range t.order {
		a, b := splitPair(e.key)
		sp := domain.ScoredPair{
			Pair:        e.key,
			Score:       e.score(),
			Reasons:     e.reasons,
			GanDays:     gans[e.key],
			Sources:     len(e.groups),
			Probability: maxProb(in.Probabilities, a, b),
		}
		sp.IsGan = sp.GanDays > 0
		if cfg.SignalGroups > 0 {
			sp.Confidence = math.Min(1, float64(sp.Sources)/float64(cfg.SignalGroups))
		}
		sp.Recommendation = Recommend(cfg, sp.Score, sp.Sources)
		out = append(out, sp)
	}
	sortPairs(out)
	return out
}

// recentLotos unions the lotos of the last n outcomes.
func recentLotos(outcomes []domain.Outcome, n int) map[string]struct{} {
	set := make(map[string]struct{})
	from := len(outcomes) - n
	if from < 0 {
		from = 0
	}
	for _, o := range outcomes[from:] {
		for l := range o.Lotos {
			set[l] = struct{}{}
		}
	}
	return set
}

func inSet(set map[string]struct{}, a, b string) bool {
	if _, ok := set[a]; ok {
		return true
	}
	_, ok := set[b]
	return ok
}

func maxProb(probs map[string]float64, a, b string) float64 {
	return math.Max(probs[a], probs[b])
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
