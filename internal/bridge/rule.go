// Package bridge turns a BridgeSpec into an executable prediction rule.
package bridge

import (
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/position"
)

// Rule predicts one draw from the draws before it.
type Rule interface {
	// Spec returns the identity of the rule.
	Spec() domain.BridgeSpec

	// Predict returns the prediction for draw day of s using draws [0, day).
	// day may equal s.Len() to predict the next, unseen draw.
	// A null operand yields ErrDataIncomplete together with a fallback
	// prediction (FallbackPair for Lô rules, an empty prediction for Đề
	// rules); callers must not count such rows.
	// day < 1 or day > s.Len() yields ErrInsufficientHistory.
	Predict(s *position.Series, day int) (domain.Prediction, error)
}

func checkDay(s *position.Series, day int) error {
	if day < 1 || day > s.Len() {
		return domain.ErrInsufficientHistory
	}
	return nil
}

func pairPrediction(p Pair) domain.Prediction {
	return domain.Prediction{Kind: domain.PredictPair, Numbers: p.Numbers()}
}

var fallbackPrediction = pairPrediction(FallbackPair)

// PositionRule pairs two slots of the previous draw with PairMirror (LO_POS).
type PositionRule struct {
	spec domain.BridgeSpec
}

func (r *PositionRule) Spec() domain.BridgeSpec { return r.spec }

func (r *PositionRule) Predict(s *position.Series, day int) (domain.Prediction, error) {
	if err := checkDay(s, day); err != nil {
		return domain.Prediction{}, err
	}
	d1, ok1 := s.Digit(day-1, r.spec.OperandA)
	d2, ok2 := s.Digit(day-1, r.spec.OperandB)
	if !ok1 || !ok2 {
		return fallbackPrediction, domain.ErrDataIncomplete
	}
	return pairPrediction(PairMirror(d1, d2)), nil
}

// MemoryRule combines two memory lotos of the previous draw (LO_MEM_*).
type MemoryRule struct {
	spec domain.BridgeSpec
	algo Algo
}

func (r *MemoryRule) Spec() domain.BridgeSpec { return r.spec }

func (r *MemoryRule) Predict(s *position.Series, day int) (domain.Prediction, error) {
	if err := checkDay(s, day); err != nil {
		return domain.Prediction{}, err
	}
	l1, ok1 := s.Memory(day-1, r.spec.OperandA)
	l2, ok2 := s.Memory(day-1, r.spec.OperandB)
	if !ok1 || !ok2 {
		return fallbackPrediction, domain.ErrDataIncomplete
	}
	return pairPrediction(MemoryPair(l1, l2, r.algo)), nil
}

// ClassicRule is one of the fixed classic Lô rules (LO_CLASSIC).
type ClassicRule struct {
	spec domain.BridgeSpec
}

func (r *ClassicRule) Spec() domain.BridgeSpec { return r.spec }

func (r *ClassicRule) Predict(s *position.Series, day int) (domain.Prediction, error) {
	if err := checkDay(s, day); err != nil {
		return domain.Prediction{}, err
	}
	p, ok := classicPair(r.spec.OperandA, s.Vector(day-1))
	if !ok {
		return fallbackPrediction, domain.ErrDataIncomplete
	}
	return pairPrediction(p), nil
}

// SumRule covers the Đề kinds driven by the sum of two slots:
// DE_POS_SUM (touch), DE_DYNAMIC (shifted touches), DE_SET (Bộ of the
// two digits) and DE_KILLER (excluded touch).
type SumRule struct {
	spec domain.BridgeSpec
}

func (r *SumRule) Spec() domain.BridgeSpec { return r.spec }

func (r *SumRule) Predict(s *position.Series, day int) (domain.Prediction, error) {
	if err := checkDay(s, day); err != nil {
		return domain.Prediction{}, err
	}
	d1, ok1 := s.Digit(day-1, r.spec.OperandA)
	d2, ok2 := s.Digit(day-1, r.spec.OperandB)
	if !ok1 || !ok2 {
		return emptyPrediction(r.spec.Kind), domain.ErrDataIncomplete
	}
	return sumPrediction(r.spec, d1, d2), nil
}

func sumPrediction(spec domain.BridgeSpec, d1, d2 int) domain.Prediction {
	switch spec.Kind {
	case domain.KindDeDynamic:
		return domain.Prediction{Kind: domain.PredictTouch, Touches: TouchOffset(PositionSum(d1, d2), spec.KOffset)}
	case domain.KindDeSet:
		key := SetOfDigits(d1, d2)
		return domain.Prediction{Kind: domain.PredictNumbers, Numbers: SetMembers(key), Label: "Bộ " + string(key)}
	case domain.KindDeKiller:
		return domain.Prediction{Kind: domain.PredictExclude, Touches: []int{PositionSum(d1, d2)}}
	default:
		return domain.Prediction{Kind: domain.PredictTouch, Touches: []int{PositionSum(d1, d2)}}
	}
}

func emptyPrediction(kind domain.BridgeKind) domain.Prediction {
	switch kind {
	case domain.KindDeSet, domain.KindDePascal:
		return domain.Prediction{Kind: domain.PredictNumbers}
	case domain.KindDeKiller:
		return domain.Prediction{Kind: domain.PredictExclude}
	default:
		return domain.Prediction{Kind: domain.PredictTouch}
	}
}

// PascalRule reduces the digits of the special and/or first prize of the
// previous draw to a pair (DE_PASCAL).
type PascalRule struct {
	spec  domain.BridgeSpec
	slots []int
}

func (r *PascalRule) Spec() domain.BridgeSpec { return r.spec }

func (r *PascalRule) Predict(s *position.Series, day int) (domain.Prediction, error) {
	if err := checkDay(s, day); err != nil {
		return domain.Prediction{}, err
	}
	digits := make([]int, 0, len(r.slots))
	for _, slot := range r.slots {
		d, ok := s.Digit(day-1, slot)
		if !ok {
			return emptyPrediction(r.spec.Kind), domain.ErrDataIncomplete
		}
		digits = append(digits, d)
	}
	a, b, ok := PascalReduce(digits)
	if !ok {
		return emptyPrediction(r.spec.Kind), domain.ErrDataIncomplete
	}
	numbers := []string{string([]byte{byte('0' + a), byte('0' + b)})}
	if a != b {
		numbers = append(numbers, string([]byte{byte('0' + b), byte('0' + a)}))
	}
	return domain.Prediction{Kind: domain.PredictNumbers, Numbers: numbers}, nil
}

func pascalSlots(src domain.PascalSource) ([]int, bool) {
	gdb := tierSlots(domain.TierSpecial)
	g1 := tierSlots(domain.TierFirst)
	switch src {
	case domain.PascalGDB:
		return gdb, true
	case domain.PascalG1:
		return g1, true
	case domain.PascalGDBG1:
		return append(gdb, g1...), true
	default:
		return nil, false
	}
}

func tierSlots(t domain.Tier) []int {
	out := make([]int, 0, position.TierWidth(t))
	for i := position.TierStart(t); i < position.TierEnd(t); i++ {
		out = append(out, i)
	}
	return out
}
