package bridge

import (
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/position"
)

// ClassicCount is the number of fixed classic Lô rules.
const ClassicCount = 15

type classicRule struct {
	label string
	slotA string
	slotB string
	shift int // added mod 10 to both digits; 0 pairs them unchanged
}

// Classic rules read two slots of the previous draw and pair them with
// PairMirror. Rules with a shift move both digits before pairing.
var classicRules = [ClassicCount]classicRule{
	{label: "GDB+5", slotA: "GDB[3]", slotB: "GDB[4]", shift: 5},
	{label: "G6+G7", slotA: "G6.3[2]", slotB: "G7.4[1]"},
	{label: "GDB+G1", slotA: "GDB[4]", slotB: "G1[4]"},
	{label: "GDB+G1", slotA: "GDB[3]", slotB: "G1[4]"},
	{label: "G7+G7", slotA: "G7.1[0]", slotB: "G7.4[1]"},
	{label: "G7+G7", slotA: "G7.2[1]", slotB: "G7.3[0]"},
	{label: "G5+G7", slotA: "G5.1[0]", slotB: "G7.1[0]"},
	{label: "G3+G4", slotA: "G3.1[0]", slotB: "G4.1[0]"},
	{label: "GDB+G1", slotA: "GDB[0]", slotB: "G1[0]"},
	{label: "G2+G3", slotA: "G2.2[1]", slotB: "G3.3[4]"},
	{label: "GDB+G3", slotA: "GDB[1]", slotB: "G3.2[4]"},
	{label: "GDB+G3", slotA: "GDB[4]", slotB: "G3.3[2]"},
	{label: "G7.3+8", slotA: "G7.3[0]", slotB: "G7.3[1]", shift: 8},
	{label: "G1+2", slotA: "G1[3]", slotB: "G1[4]", shift: 2},
	{label: "GDB+7", slotA: "GDB[3]", slotB: "GDB[4]", shift: 7},
}

type resolvedClassic struct {
	a, b  int
	shift int
}

var classicSlots = resolveClassic()

func resolveClassic() [ClassicCount]resolvedClassic {
	var out [ClassicCount]resolvedClassic
	for i, r := range classicRules {
		out[i] = resolvedClassic{
			a:     position.MustIndex(r.slotA),
			b:     position.MustIndex(r.slotB),
			shift: r.shift,
		}
	}
	return out
}

// ClassicSpecs returns the specs of all classic rules in rule order.
func ClassicSpecs() []domain.BridgeSpec {
	specs := make([]domain.BridgeSpec, ClassicCount)
	for i := range specs {
		specs[i] = domain.BridgeSpec{Kind: domain.KindLoClassic, OperandA: i + 1}
	}
	return specs
}

// ClassicLabel returns the short label of classic rule n (1-based).
func ClassicLabel(n int) string {
	if n < 1 || n > ClassicCount {
		return ""
	}
	return classicRules[n-1].label
}

func classicPair(n int, v *position.Vector) (Pair, bool) {
	r := classicSlots[n-1]
	d1, ok1 := v.Digit(r.a)
	d2, ok2 := v.Digit(r.b)
	if !ok1 || !ok2 {
		return FallbackPair, false
	}
	return PairMirror((d1+r.shift)%10, (d2+r.shift)%10), true
}
