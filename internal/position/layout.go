// Package position maps a draw onto a fixed vector of digit slots.
//
// The canonical layout walks the prize tiers in announcement order, each
// number left zero-padded to its tier width:
//
//	GDB 1x5, G1 1x5, G2 2x5, G3 6x5, G4 4x4, G5 6x4, G6 3x3, G7 4x2
//
// which gives 107 canonical slots. Slots 107-213 hold the mirror digit of
// the canonical slot at the same offset.
package position

import "lottery-bridge-lab/internal/domain"

const (
	// Canonical is the number of slots taken directly from the draw.
	Canonical = 107
	// Size is the full vector size including mirror slots.
	Size = 2 * Canonical
	// Null marks a slot with no digit.
	Null int8 = -1
)

type tierLayout struct {
	tier  domain.Tier
	count int // numbers in the tier
	width int // digits per number
	start int // first canonical slot
}

var layout = buildLayout([]tierLayout{
	{tier: domain.TierSpecial, count: 1, width: 5},
	{tier: domain.TierFirst, count: 1, width: 5},
	{tier: domain.TierSecond, count: 2, width: 5},
	{tier: domain.TierThird, count: 6, width: 5},
	{tier: domain.TierFourth, count: 4, width: 4},
	{tier: domain.TierFifth, count: 6, width: 4},
	{tier: domain.TierSixth, count: 3, width: 3},
	{tier: domain.TierSeventh, count: 4, width: 2},
})

func buildLayout(tiers []tierLayout) []tierLayout {
	start := 0
	for i := range tiers {
		tiers[i].start = start
		start += tiers[i].count * tiers[i].width
	}
	if start != Canonical {
		panic("position: layout does not cover canonical slots")
	}
	return tiers
}

// TierStart returns the first canonical slot of a tier, or -1.
func TierStart(t domain.Tier) int {
	if !t.IsValid() {
		return -1
	}
	return layout[t].start
}

// TierEnd returns the slot after the last canonical slot of a tier, or -1.
func TierEnd(t domain.Tier) int {
	if !t.IsValid() {
		return -1
	}
	l := layout[t]
	return l.start + l.count*l.width
}

// TierWidth returns the digit width of one number of a tier.
func TierWidth(t domain.Tier) int {
	if !t.IsValid() {
		return 0
	}
	return layout[t].width
}

// TierCount returns how many numbers a tier carries.
func TierCount(t domain.Tier) int {
	if !t.IsValid() {
		return 0
	}
	return layout[t].count
}

var mirrorDigits = [10]int{5, 6, 7, 8, 9, 0, 1, 2, 3, 4}

// Mirror returns the paired digit (0<->5, 1<->6, 2<->7, 3<->8, 4<->9).
// Out-of-range input is returned unchanged.
func Mirror(d int) int {
	if d < 0 || d > 9 {
		return d
	}
	return mirrorDigits[d]
}

// Vector holds one digit per slot, Null where the draw had no usable digit.
type Vector [Size]int8

// Digit returns the digit at slot i and whether it is set.
func (v *Vector) Digit(i int) (int, bool) {
	if i < 0 || i >= Size || v[i] == Null {
		return 0, false
	}
	return int(v[i]), true
}

// Extract builds the position vector of a draw.
// Missing numbers, non-numeric values and values wider than their tier
// leave their slots Null. Extra numbers beyond a tier's count are ignored.
func Extract(d *domain.Draw) Vector {
	var v Vector
	for i := range v {
		v[i] = Null
	}
	if d == nil {
		return v
	}

	for _, l := range layout {
		values := d.Values(l.tier)
		for n := 0; n < l.count && n < len(values); n++ {
			raw := values[n]
			if len(raw) > l.width || !isDigits(raw) {
				continue
			}
			pad := l.width - len(raw)
			base := l.start + n*l.width
			for k := 0; k < l.width; k++ {
				digit := int8(0)
				if k >= pad {
					digit = int8(raw[k-pad] - '0')
				}
				v[base+k] = digit
			}
		}
	}

	for i := 0; i < Canonical; i++ {
		if v[i] != Null {
			v[Canonical+i] = int8(Mirror(int(v[i])))
		}
	}
	return v
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
