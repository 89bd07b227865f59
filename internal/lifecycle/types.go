package lifecycle

import "lottery-bridge-lab/internal/domain"

// Action is the outcome of a lifecycle evaluation for one bridge.
type Action string

const (
	ActionEnable   Action = "ENABLE"
	ActionDisable  Action = "DISABLE"
	ActionKeep     Action = "KEEP"
	ActionManual   Action = "MANUAL"           // manual override, never changed
	ActionEvaluate Action = "NEEDS_EVALUATION" // no metrics to decide on
)

// CriterionResult represents pass/fail for one criterion.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Decision contains the lifecycle outcome of one bridge with its checklist.
type Decision struct {
	BridgeID   string
	Name       string
	Market     domain.Market
	Rate       float64 // win rate the decision was based on (%)
	WasEnabled bool
	Enabled    bool // state after the decision
	Action     Action
	Criteria   []CriterionResult
}

// Changed reports whether the decision flips the enabled state.
func (d Decision) Changed() bool {
	return d.WasEnabled != d.Enabled
}

// Report summarises a lifecycle pass.
type Report struct {
	Decisions       []Decision
	Enabled         int // bridges switched on
	Disabled        int // bridges switched off
	Kept            int
	Manual          int
	NeedsEvaluation int
}

func (r *Report) add(d Decision) {
	r.Decisions = append(r.Decisions, d)
	switch {
	case d.Action == ActionManual:
		r.Manual++
	case d.Action == ActionEvaluate:
		r.NeedsEvaluation++
	case d.Changed() && d.Enabled:
		r.Enabled++
	case d.Changed():
		r.Disabled++
	default:
		r.Kept++
	}
}
