package scanner

import (
	"sort"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/position"
)

// TouchCombinations evaluates every combination of 1..size touch digits
// over the đề of the last window draws. A combination is "thông" when its
// run of hits ending at the latest draw reaches minConsec.
// Draws without a đề are ignored. Results are ordered by the closing run,
// then the longest run, then the rate, smaller combinations first on ties.
func TouchCombinations(series *position.Series, size, window, minConsec int) []domain.TouchCombo {
	if size > 10 {
		size = 10
	}
	var des []string
	tail := series.Tail(window)
	for i := 0; i < tail.Len(); i++ {
		if de := tail.Outcome(i).De; len(de) == 2 {
			des = append(des, de)
		}
	}
	if len(des) == 0 || size <= 0 {
		return nil
	}

	var combos []domain.TouchCombo
	for k := 1; k <= size; k++ {
		for _, touches := range combinations(10, k) {
			combos = append(combos, evalCombo(touches, des, minConsec))
		}
	}

	sort.SliceStable(combos, func(i, j int) bool {
		a, b := combos[i], combos[j]
		if a.ConsecutiveEnd != b.ConsecutiveEnd {
			return a.ConsecutiveEnd > b.ConsecutiveEnd
		}
		if a.MaxConsecutive != b.MaxConsecutive {
			return a.MaxConsecutive > b.MaxConsecutive
		}
		if a.RatePercent != b.RatePercent {
			return a.RatePercent > b.RatePercent
		}
		return len(a.Touches) < len(b.Touches)
	})
	return combos
}

func evalCombo(touches []int, des []string, minConsec int) domain.TouchCombo {
	var in [10]bool
	for _, t := range touches {
		in[t] = true
	}

	c := domain.TouchCombo{Touches: touches, Window: len(des)}
	run := 0
	for _, de := range des {
		if in[de[0]-'0'] || in[de[1]-'0'] {
			c.Hits++
			run++
			if run > c.MaxConsecutive {
				c.MaxConsecutive = run
			}
		} else {
			run = 0
		}
	}
	c.ConsecutiveEnd = run
	c.Thong = minConsec > 0 && run >= minConsec
	c.RatePercent = float64(c.Hits) / float64(len(des)) * 100
	return c
}

// combinations returns every k-subset of 0..n-1 in lexicographic order.
func combinations(n, k int) [][]int {
	var out [][]int
	idx := make([]int, k)
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == k {
			out = append(out, append([]int(nil), idx...))
			return
		}
		for i := start; i <= n-(k-depth); i++ {
			idx[depth] = i
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
	return out
}
