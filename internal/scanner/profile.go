package scanner

import (
	"lottery-bridge-lab/internal/bridge"
	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/position"
)

// Passes reports whether a bridge with the given figures qualifies under p.
func Passes(p config.Profile, streak, recentWins int, rate float64) bool {
	var ok bool
	if p.RequireBoth {
		ok = streak >= p.MinStreak && recentWins >= p.MinRecentWins
	} else {
		ok = streak >= p.MinStreak || recentWins >= p.MinRecentWins
	}
	if p.MinRate > 0 && rate < p.MinRate {
		return false
	}
	return ok
}

// walk is the outcome of evaluating a rule backward from the latest draw.
type walk struct {
	streak  int // consecutive hits ending at the latest draw
	recent  int // hits among the latest recentLen checked draws
	checked int
}

func (w walk) rate(recentLen int) float64 {
	n := recentLen
	if w.checked < n {
		n = w.checked
	}
	if n == 0 {
		return 0
	}
	return float64(w.recent) / float64(n) * 100
}

// walkBack checks rule on at most depth draws, latest first. The walk ends
// at the first draw it cannot check. With stopAfterStreak it also ends at
// the first miss after a streak has started.
func walkBack(s *position.Series, rule bridge.Rule, depth, recentLen int, stopAfterStreak bool) walk {
	var w walk
	last := s.Len() - 1
	for day := last; day >= 1 && last-day < depth; day-- {
		if !s.Complete(day) {
			break
		}
		pred, err := rule.Predict(s, day)
		if err != nil {
			break
		}
		daysAgo := last - day
		w.checked++
		if pred.Hit(s.Outcome(day)) {
			if w.streak == daysAgo {
				w.streak++
			}
			if daysAgo < recentLen {
				w.recent++
			}
		} else if stopAfterStreak && w.streak > 0 {
			break
		}
	}
	return w
}

// validated checks rule on the draws just before the scan window.
// A history too short for a validation window always validates.
func (s *Scanner) validated(series *position.Series, rule bridge.Rule) bool {
	vlen := s.cfg.Scanner.ValidationLen
	if vlen <= 0 {
		return true
	}
	end := series.Len() - s.cfg.Scanner.ScanDepth
	start := end - vlen
	if start < 1 {
		return true
	}

	wins := 0
	for day := start; day < end; day++ {
		if !series.Complete(day) {
			continue
		}
		pred, err := rule.Predict(series, day)
		if err != nil {
			continue
		}
		if pred.Hit(series.Outcome(day)) {
			wins++
		}
	}
	return wins >= s.cfg.Scanner.MinValidationWins
}
