package metrics

import (
	"fmt"
	"sort"

	"lottery-bridge-lab/internal/bridge"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/position"
)

// LotoStat is the frequency of one loto over a trailing window.
type LotoStat struct {
	Loto string
	Hits int // appearances, counting repeats within a draw
	Days int // draws the loto appeared in
}

// GanStat is a loto that has been absent for at least the gan window.
type GanStat struct {
	Loto string
	Days int // draws since the last appearance, or the history length if never seen
}

// HotLotos counts lotos over the last days draws and returns the topN most
// frequent, ordered by hits DESC then loto ASC. topN <= 0 returns all.
func HotLotos(s *position.Series, days, topN int) []LotoStat {
	if s == nil || s.Len() == 0 || days <= 0 {
		return nil
	}
	window := s.Tail(days)

	hits := make(map[string]int)
	dayCount := make(map[string]int)
	for i := 0; i < window.Len(); i++ {
		for _, l := range position.Lotos(window.Draw(i)) {
			hits[l]++
		}
		for l := range position.LotoSet(window.Draw(i)) {
			dayCount[l]++
		}
	}

	stats := make([]LotoStat, 0, len(hits))
	for l, h := range hits {
		stats = append(stats, LotoStat{Loto: l, Hits: h, Days: dayCount[l]})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Hits != stats[j].Hits {
			return stats[i].Hits > stats[j].Hits
		}
		return stats[i].Loto < stats[j].Loto
	})
	if topN > 0 && len(stats) > topN {
		stats = stats[:topN]
	}
	return stats
}

// HotSet returns the lotos of stats as a set.
func HotSet(stats []LotoStat) map[string]struct{} {
	set := make(map[string]struct{}, len(stats))
	for _, st := range stats {
		if st.Hits > 0 {
			set[st.Loto] = struct{}{}
		}
	}
	return set
}

// GanLotos returns every loto absent from the last minDays draws with its
// absence length, ordered by days DESC then loto ASC.
// A history shorter than minDays yields nil.
func GanLotos(s *position.Series, minDays int) []GanStat {
	if s == nil || minDays <= 0 || s.Len() < minDays {
		return nil
	}

	// Walk backward once, recording the most recent sighting of each loto.
	lastSeen := make(map[string]int, 100)
	for i := s.Len() - 1; i >= 0 && len(lastSeen) < 100; i-- {
		for l := range position.LotoSet(s.Draw(i)) {
			if _, ok := lastSeen[l]; !ok {
				lastSeen[l] = s.Len() - 1 - i
			}
		}
	}

	var out []GanStat
	for i := 0; i < 100; i++ {
		l := fmt.Sprintf("%02d", i)
		ago, ok := lastSeen[l]
		switch {
		case !ok:
			out = append(out, GanStat{Loto: l, Days: s.Len()})
		case ago >= minDays:
			out = append(out, GanStat{Loto: l, Days: ago})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Days > out[j].Days
	})
	return out
}

// GanMap indexes gan stats by loto.
func GanMap(stats []GanStat) map[string]int {
	m := make(map[string]int, len(stats))
	for _, st := range stats {
		m[st.Loto] = st.Days
	}
	return m
}

// DeTrends summarises the đề market: short-term touch, sum and set
// frequencies over a trailing window and long-term gaps over the whole
// history. Draws without a đề are ignored.
type DeTrends struct {
	Window    int
	TouchFreq [10]int
	SumFreq   [10]int
	SetFreq   map[bridge.SetKey]int
	TouchGan  [10]int // draws since the digit last appeared in a đề
	SetGan    map[bridge.SetKey]int
}

// AnalyzeDeTrends computes DeTrends over s. window <= 0 uses the whole history.
func AnalyzeDeTrends(s *position.Series, window int) *DeTrends {
	t := &DeTrends{
		Window:  window,
		SetFreq: make(map[bridge.SetKey]int),
		SetGan:  make(map[bridge.SetKey]int),
	}
	if s == nil {
		return t
	}

	recent := s.Tail(window)
	for i := 0; i < recent.Len(); i++ {
		de := position.De(recent.Draw(i))
		if de == "" {
			continue
		}
		d1, d2 := int(de[0]-'0'), int(de[1]-'0')
		t.TouchFreq[d1]++
		if d1 != d2 {
			t.TouchFreq[d2]++
		}
		t.SumFreq[(d1+d2)%10]++
		t.SetFreq[bridge.SetOfDigits(d1, d2)]++
	}

	n := s.Len()
	for d := range t.TouchGan {
		t.TouchGan[d] = n
	}
	sets := bridge.AllSets()
	for _, k := range sets {
		t.SetGan[k] = n
	}
	foundTouch := 0
	foundSet := make(map[bridge.SetKey]bool, len(sets))
	seenTouch := [10]bool{}
	for i := n - 1; i >= 0; i-- {
		if foundTouch == 10 && len(foundSet) == len(sets) {
			break
		}
		de := position.De(s.Draw(i))
		if de == "" {
			continue
		}
		ago := n - 1 - i
		d1, d2 := int(de[0]-'0'), int(de[1]-'0')
		for _, d := range []int{d1, d2} {
			if !seenTouch[d] {
				seenTouch[d] = true
				t.TouchGan[d] = ago
				foundTouch++
			}
		}
		if k := bridge.SetOfDigits(d1, d2); !foundSet[k] {
			foundSet[k] = true
			t.SetGan[k] = ago
		}
	}
	return t
}

// RecentOutcomes returns the outcomes of the last n draws, oldest first.
func RecentOutcomes(s *position.Series, n int) []domain.Outcome {
	if s == nil || n <= 0 {
		return nil
	}
	tail := s.Tail(n)
	out := make([]domain.Outcome, tail.Len())
	for i := range out {
		out[i] = tail.Outcome(i)
	}
	return out
}
