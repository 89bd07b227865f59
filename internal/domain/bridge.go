package domain

// Market separates the two prediction targets.
type Market string

const (
	MarketLo Market = "LO" // any last-two-digits across all tiers
	MarketDe Market = "DE" // last two digits of the special prize
)

// IsValid checks if the market is a valid value.
func (m Market) IsValid() bool {
	return m == MarketLo || m == MarketDe
}

// BridgeKind is the rule family of a bridge.
type BridgeKind string

const (
	KindLoPosition   BridgeKind = "LO_POS"      // PairMirror over two position slots
	KindLoMemorySum  BridgeKind = "LO_MEM_SUM"  // (l1+l2)%100 over two memory lotos
	KindLoMemoryDiff BridgeKind = "LO_MEM_DIFF" // |l1-l2|%100 over two memory lotos
	KindLoClassic    BridgeKind = "LO_CLASSIC"  // one of the 15 fixed rules, OperandA = 1..15
	KindDePosSum     BridgeKind = "DE_POS_SUM"  // touch (a+b)%10
	KindDeDynamic    BridgeKind = "DE_DYNAMIC"  // TouchOffset((a+b)%10, KOffset)
	KindDeSet        BridgeKind = "DE_SET"      // Bộ of number ab
	KindDePascal     BridgeKind = "DE_PASCAL"   // Pascal reduction of a source, OperandA = PascalSource
	KindDeMemory     BridgeKind = "DE_MEMORY"   // pattern memory, OperandA = MemoryTrigger
	KindDeKiller     BridgeKind = "DE_KILLER"   // touch (a+b)%10 predicted absent
)

// AllKinds lists every bridge kind in a stable order.
var AllKinds = []BridgeKind{
	KindLoPosition, KindLoMemorySum, KindLoMemoryDiff, KindLoClassic,
	KindDePosSum, KindDeDynamic, KindDeSet, KindDePascal, KindDeMemory, KindDeKiller,
}

// IsValid checks if the kind is a known value.
func (k BridgeKind) IsValid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Market returns the market the kind predicts for.
func (k BridgeKind) Market() Market {
	switch k {
	case KindLoPosition, KindLoMemorySum, KindLoMemoryDiff, KindLoClassic:
		return MarketLo
	default:
		return MarketDe
	}
}

// IsSetType reports whether the kind targets a large fixed group of numbers
// and therefore needs the stricter AND filter.
func (k BridgeKind) IsSetType() bool {
	return k == KindDeSet
}

// IsAuditOnly reports whether candidates of this kind must never be promoted.
func (k BridgeKind) IsAuditOnly() bool {
	return k == KindDeKiller
}

// PascalSource selects the digits a Pascal bridge reduces.
type PascalSource int

const (
	PascalGDB PascalSource = iota
	PascalG1
	PascalGDBG1
)

// MemoryTrigger selects the signal digit a pattern-memory bridge matches on.
// A DE_MEMORY spec carries the trigger in OperandA and the mining depth in
// OperandB (0 for the default depth).
type MemoryTrigger int

const (
	TriggerGDBTail MemoryTrigger = iota // last digit of the special prize
	TriggerGDBHead                      // first digit of the special prize
	TriggerG1Tail                       // last digit of the first prize
)

// BridgeSpec is the identity of a bridge: kind plus operands.
// Operands are position indexes (LO_POS, DE_*), memory loto indexes
// (LO_MEM_*), a classic rule number (LO_CLASSIC), a PascalSource or a
// MemoryTrigger depending on Kind. Unused operands are zero.
type BridgeSpec struct {
	Kind     BridgeKind
	OperandA int
	OperandB int
	KOffset  int
}

// BridgeMetrics holds backtest-derived quality figures of a bridge.
// Rates are percentages in [0, 100].
type BridgeMetrics struct {
	TestedDays      int
	Wins            int
	Losses          int
	WinRate         float64
	Streak          int // current win streak, most recent day backward
	MaxStreak       int
	RecentWins      int // wins among the last RecentWindow resolved outcomes
	LosingStreak    int // current losing streak
	MaxLosingStreak int
}

// ManagedBridge is a bridge promoted into the persisted catalog.
// Corresponds to managed_bridges table.
type ManagedBridge struct {
	BridgeID        string // PRIMARY KEY, deterministic hash of Spec
	Name            string // display name, unique
	NormalizedName  string // de-duplication key
	Description     string
	Spec            BridgeSpec
	Enabled         bool
	ManualOverride  bool           // state set by a human, never changed automatically
	NeedsEvaluation bool           // metrics missing at last lifecycle pass
	Metrics         *BridgeMetrics // nil when never evaluated
	NextPrediction  *Prediction    // nil when never evaluated
	Pending         bool           // next prediction is an open frame awaiting N2
	CreatedAt       int64          // ms
	UpdatedAt       int64          // ms
}

// Market returns the market of the bridge's kind.
func (b *ManagedBridge) Market() Market {
	return b.Spec.Kind.Market()
}

// BridgeState is the mutable part of a managed bridge written back by a
// lifecycle pass.
type BridgeState struct {
	Enabled         bool
	NeedsEvaluation bool
	Metrics         *BridgeMetrics
	NextPrediction  *Prediction
	Pending         bool
	UpdatedAt       int64 // ms
}
