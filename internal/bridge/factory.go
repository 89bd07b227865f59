package bridge

import (
	"errors"
	"fmt"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/position"
)

// Factory errors
var (
	ErrUnknownKind       = errors.New("unknown bridge kind")
	ErrInvalidPosition   = errors.New("position operand out of range")
	ErrInvalidMemoryLoto = errors.New("memory loto operand out of range")
	ErrInvalidClassic    = errors.New("LO_CLASSIC requires OperandA in 1..15")
	ErrInvalidSource     = errors.New("DE_PASCAL requires a known source")
	ErrInvalidTrigger    = errors.New("DE_MEMORY requires a known trigger")
	ErrInvalidOffset     = errors.New("DE_DYNAMIC requires KOffset in 0..9")
)

// FromSpec creates a Rule from a BridgeSpec.
// Validates operands per kind.
func FromSpec(spec domain.BridgeSpec) (Rule, error) {
	switch spec.Kind {
	case domain.KindLoPosition:
		if err := checkPositions(spec); err != nil {
			return nil, err
		}
		return &PositionRule{spec: spec}, nil

	case domain.KindLoMemorySum, domain.KindLoMemoryDiff:
		if !inRange(spec.OperandA, position.MemoryCount) || !inRange(spec.OperandB, position.MemoryCount) {
			return nil, fmt.Errorf("%s %d,%d: %w", spec.Kind, spec.OperandA, spec.OperandB, ErrInvalidMemoryLoto)
		}
		algo := AlgoSum
		if spec.Kind == domain.KindLoMemoryDiff {
			algo = AlgoDiff
		}
		return &MemoryRule{spec: spec, algo: algo}, nil

	case domain.KindLoClassic:
		if spec.OperandA < 1 || spec.OperandA > ClassicCount {
			return nil, ErrInvalidClassic
		}
		return &ClassicRule{spec: spec}, nil

	case domain.KindDePosSum, domain.KindDeSet, domain.KindDeKiller:
		if err := checkPositions(spec); err != nil {
			return nil, err
		}
		return &SumRule{spec: spec}, nil

	case domain.KindDeDynamic:
		if err := checkPositions(spec); err != nil {
			return nil, err
		}
		if spec.KOffset < 0 || spec.KOffset > 9 {
			return nil, ErrInvalidOffset
		}
		return &SumRule{spec: spec}, nil

	case domain.KindDePascal:
		slots, ok := pascalSlots(domain.PascalSource(spec.OperandA))
		if !ok {
			return nil, ErrInvalidSource
		}
		return &PascalRule{spec: spec, slots: slots}, nil

	case domain.KindDeMemory:
		if _, ok := triggerSlot(domain.MemoryTrigger(spec.OperandA)); !ok {
			return nil, ErrInvalidTrigger
		}
		return &MemoryPatternRule{spec: spec}, nil

	default:
		return nil, fmt.Errorf("%q: %w", spec.Kind, ErrUnknownKind)
	}
}

// MustFromSpec is FromSpec for specs built by the scanner itself.
func MustFromSpec(spec domain.BridgeSpec) Rule {
	r, err := FromSpec(spec)
	if err != nil {
		panic(fmt.Sprintf("bridge: %v", err))
	}
	return r
}

func checkPositions(spec domain.BridgeSpec) error {
	if !inRange(spec.OperandA, position.Size) || !inRange(spec.OperandB, position.Size) {
		return fmt.Errorf("%s %d,%d: %w", spec.Kind, spec.OperandA, spec.OperandB, ErrInvalidPosition)
	}
	return nil
}

func inRange(v, n int) bool {
	return v >= 0 && v < n
}
