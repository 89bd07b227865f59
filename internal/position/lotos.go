package position

import (
	"fmt"

	"lottery-bridge-lab/internal/domain"
)

// MemoryCount is the number of memory lotos: one per number in the draw.
const MemoryCount = 27

// MemoryNames lists the memory loto names in vector order.
var MemoryNames = buildMemoryNames()

func buildMemoryNames() [MemoryCount]string {
	var names [MemoryCount]string
	i := 0
	for _, l := range layout {
		for n := 0; n < l.count; n++ {
			if l.count == 1 {
				names[i] = l.tier.Code()
			} else {
				names[i] = fmt.Sprintf("%s.%d", l.tier.Code(), n+1)
			}
			i++
		}
	}
	return names
}

// MemoryLotos holds the last two digits of each number, -1 when unknown.
type MemoryLotos [MemoryCount]int

// Value returns the loto at index i and whether it is known.
func (m *MemoryLotos) Value(i int) (int, bool) {
	if i < 0 || i >= MemoryCount || m[i] < 0 {
		return 0, false
	}
	return m[i], true
}

// Memory derives the memory lotos from a position vector.
func Memory(v *Vector) MemoryLotos {
	var m MemoryLotos
	i := 0
	for _, l := range layout {
		for n := 0; n < l.count; n++ {
			last := l.start + n*l.width + l.width - 1
			tens, ok1 := v.Digit(last - 1)
			units, ok2 := v.Digit(last)
			if ok1 && ok2 {
				m[i] = tens*10 + units
			} else {
				m[i] = -1
			}
			i++
		}
	}
	return m
}

// Lotos returns the last two digits of every number in every tier, in tier
// order and with repeats. Numbers that are not purely numeric or shorter
// than two digits are ignored.
func Lotos(d *domain.Draw) []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, 27)
	for t := domain.TierSpecial; t <= domain.TierSeventh; t++ {
		for _, v := range d.Values(t) {
			if len(v) < 2 || !isDigits(v) {
				continue
			}
			out = append(out, v[len(v)-2:])
		}
	}
	return out
}

// LotoSet returns the distinct lotos of a draw.
func LotoSet(d *domain.Draw) map[string]struct{} {
	set := make(map[string]struct{}, 27)
	for _, l := range Lotos(d) {
		set[l] = struct{}{}
	}
	return set
}

// De returns the last two digits of the special prize, "" if unavailable.
func De(d *domain.Draw) string {
	if d == nil {
		return ""
	}
	values := d.Values(domain.TierSpecial)
	if len(values) == 0 {
		return ""
	}
	v := values[0]
	if len(v) < 2 || !isDigits(v) {
		return ""
	}
	return v[len(v)-2:]
}

// Outcome builds the outcome predictions are checked against.
func Outcome(d *domain.Draw) domain.Outcome {
	return domain.Outcome{Lotos: LotoSet(d), De: De(d)}
}
