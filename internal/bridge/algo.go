package bridge

import (
	"fmt"
	"sort"

	"lottery-bridge-lab/internal/position"
)

// Algo selects how two operands are combined.
type Algo int

const (
	AlgoSum Algo = iota
	AlgoDiff
)

// String returns the algorithm label used in bridge names.
func (a Algo) String() string {
	if a == AlgoDiff {
		return "DIFF"
	}
	return "SUM"
}

// Pair is a Lô prediction of two zero-padded numbers.
type Pair [2]string

// Numbers returns the pair as a slice.
func (p Pair) Numbers() []string {
	return []string{p[0], p[1]}
}

// FallbackPair is returned alongside ErrDataIncomplete when an operand is null.
var FallbackPair = Pair{"00", "55"}

// PairMirror builds the "song thủ" pair of two digits.
// Equal digits give the double and its mirror double (3,3 -> 33,88),
// otherwise both orderings (1,2 -> 12,21).
func PairMirror(d1, d2 int) Pair {
	if d1 == d2 {
		m := position.Mirror(d1)
		return Pair{fmt.Sprintf("%d%d", d1, d1), fmt.Sprintf("%d%d", m, m)}
	}
	return Pair{fmt.Sprintf("%d%d", d1, d2), fmt.Sprintf("%d%d", d2, d1)}
}

// SumDiff combines two digits and mirrors the result as a double.
func SumDiff(v1, v2 int, algo Algo) Pair {
	combined := (v1 + v2) % 10
	if algo == AlgoDiff {
		combined = abs(v1 - v2)
	}
	return PairMirror(combined, combined)
}

// MemoryPair combines two lotos (0-99) and returns the result with its
// reversal, sorted.
func MemoryPair(l1, l2 int, algo Algo) Pair {
	val := (l1 + l2) % 100
	if algo == AlgoDiff {
		val = abs(l1-l2) % 100
	}
	n := fmt.Sprintf("%02d", val)
	r := string([]byte{n[1], n[0]})
	if r < n {
		return Pair{r, n}
	}
	return Pair{n, r}
}

// PositionSum returns (v1+v2) mod 10.
func PositionSum(v1, v2 int) int {
	return (v1 + v2) % 10
}

// TouchOffset shifts a base digit by k and returns the sorted, de-duplicated
// touches {v1, mirror(v1), v2, mirror(v2)} with v1=(base+k)%10, v2=v1+1.
func TouchOffset(base, k int) []int {
	v1 := mod10(base + k)
	v2 := mod10(base + k + 1)
	return dedupDigits([]int{v1, position.Mirror(v1), v2, position.Mirror(v2)})
}

// PascalReduce sums adjacent digits mod 10 layer by layer until two remain.
// Fewer than two input digits cannot be reduced.
func PascalReduce(digits []int) (int, int, bool) {
	if len(digits) < 2 {
		return 0, 0, false
	}
	layer := append([]int(nil), digits...)
	for len(layer) > 2 {
		for i := 0; i < len(layer)-1; i++ {
			layer[i] = (layer[i] + layer[i+1]) % 10
		}
		layer = layer[:len(layer)-1]
	}
	return layer[0], layer[1], true
}

func dedupDigits(ds []int) []int {
	seen := [10]bool{}
	out := make([]int, 0, len(ds))
	for _, d := range ds {
		if d < 0 || d > 9 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

func mod10(v int) int {
	v %= 10
	if v < 0 {
		v += 10
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
