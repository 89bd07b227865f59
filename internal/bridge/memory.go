package bridge

import (
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/position"
)

// DefaultMemoryDepth is the number of past draws mined when a DE_MEMORY spec
// leaves the depth unset.
const DefaultMemoryDepth = 90

// PatternStats summarises what followed past draws carrying the same
// trigger digit as the latest one.
type PatternStats struct {
	Signal     int // trigger digit of the draw predicted from
	Touch      int // most frequent đề digit on the following draws
	Count      int // occurrences of Touch
	Total      int // matching draws
	Confidence float64
}

var (
	slotGDBHead = position.MustIndex("GDB[0]")
	slotGDBTail = position.MustIndex("GDB[4]")
	slotG1Tail  = position.MustIndex("G1[4]")
)

func triggerSlot(t domain.MemoryTrigger) (int, bool) {
	switch t {
	case domain.TriggerGDBTail:
		return slotGDBTail, true
	case domain.TriggerGDBHead:
		return slotGDBHead, true
	case domain.TriggerG1Tail:
		return slotG1Tail, true
	default:
		return 0, false
	}
}

// TriggerLabel returns the trigger label used in bridge names.
func TriggerLabel(t domain.MemoryTrigger) string {
	switch t {
	case domain.TriggerGDBTail:
		return "GDB_TAIL"
	case domain.TriggerGDBHead:
		return "GDB_HEAD"
	case domain.TriggerG1Tail:
		return "G1_TAIL"
	default:
		return ""
	}
}

// MinePattern looks at most depth draws back from day-1 for draws whose
// trigger digit equals that of draw day-1 and counts the đề digits of the
// draw after each match. Ties between digits go to the lower digit.
func MinePattern(s *position.Series, day int, trigger domain.MemoryTrigger, depth int) (PatternStats, error) {
	if err := checkDay(s, day); err != nil {
		return PatternStats{}, err
	}
	slot, ok := triggerSlot(trigger)
	if !ok {
		return PatternStats{}, domain.ErrUnresolvableReference
	}
	if depth <= 0 {
		depth = DefaultMemoryDepth
	}

	last := day - 1
	signal, ok := s.Digit(last, slot)
	if !ok {
		return PatternStats{}, domain.ErrDataIncomplete
	}

	start := last - depth
	if start < 0 {
		start = 0
	}
	var counts [10]int
	total := 0
	for k := start; k < last; k++ {
		v, ok := s.Digit(k, slot)
		if !ok || v != signal {
			continue
		}
		de := s.Outcome(k + 1).De
		if len(de) != 2 {
			continue
		}
		counts[de[0]-'0']++
		counts[de[1]-'0']++
		total++
	}
	if total == 0 {
		return PatternStats{Signal: signal}, domain.ErrInsufficientHistory
	}

	best := 0
	for d := 1; d < 10; d++ {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return PatternStats{
		Signal:     signal,
		Touch:      best,
		Count:      counts[best],
		Total:      total,
		Confidence: float64(counts[best]) / float64(total) * 100,
	}, nil
}

// MemoryPatternRule predicts the touch that most often followed the current
// trigger digit (DE_MEMORY).
type MemoryPatternRule struct {
	spec domain.BridgeSpec
}

func (r *MemoryPatternRule) Spec() domain.BridgeSpec { return r.spec }

func (r *MemoryPatternRule) Predict(s *position.Series, day int) (domain.Prediction, error) {
	stats, err := MinePattern(s, day, domain.MemoryTrigger(r.spec.OperandA), r.spec.OperandB)
	if err != nil {
		return emptyPrediction(r.spec.Kind), err
	}
	return domain.Prediction{Kind: domain.PredictTouch, Touches: []int{stats.Touch}}, nil
}
