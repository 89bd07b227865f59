package lifecycle

import (
	"fmt"

	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
)

// Evaluator applies the per-market hysteresis band to bridge metrics.
type Evaluator struct {
	cfg config.Config
}

// NewEvaluator creates a new lifecycle evaluator.
func NewEvaluator(cfg config.Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate decides the enabled state of one bridge.
//
// rate >= Add enables, rate < Remove disables, anything in between keeps
// the current state. A rate exactly at Remove therefore keeps an enabled
// bridge. Manual overrides and bridges without current metrics are never
// changed.
func (e *Evaluator) Evaluate(b *domain.ManagedBridge) Decision {
	d := Decision{
		BridgeID:   b.BridgeID,
		Name:       b.Name,
		Market:     b.Market(),
		WasEnabled: b.Enabled,
		Enabled:    b.Enabled,
	}

	manual := CriterionResult{
		Name:      "Manual override",
		Threshold: "false",
		Actual:    fmt.Sprintf("%t", b.ManualOverride),
		Pass:      !b.ManualOverride,
	}
	hasMetrics := b.Metrics != nil && b.Metrics.TestedDays > 0 && !b.NeedsEvaluation
	actual := "0"
	switch {
	case b.NeedsEvaluation:
		actual = "needs evaluation"
	case b.Metrics != nil:
		actual = fmt.Sprintf("%d", b.Metrics.TestedDays)
	}
	available := CriterionResult{
		Name:      "Metrics available",
		Threshold: "tested days > 0",
		Actual:    actual,
		Pass:      hasMetrics,
	}
	d.Criteria = []CriterionResult{manual, available}

	if b.ManualOverride {
		d.Action = ActionManual
		return d
	}
	if !hasMetrics {
		d.Action = ActionEvaluate
		return d
	}

	band := e.cfg.ThresholdsFor(d.Market)
	d.Rate = b.Metrics.WinRate
	enable := d.Rate >= band.Add
	disable := d.Rate < band.Remove

	d.Criteria = append(d.Criteria,
		CriterionResult{
			Name:      "Enable threshold",
			Threshold: fmt.Sprintf(">= %.2f%%", band.Add),
			Actual:    fmt.Sprintf("%.2f%%", d.Rate),
			Pass:      enable,
		},
		CriterionResult{
			Name:      "Above remove threshold",
			Threshold: fmt.Sprintf(">= %.2f%%", band.Remove),
			Actual:    fmt.Sprintf("%.2f%%", d.Rate),
			Pass:      !disable,
		},
	)

	switch {
	case enable:
		d.Enabled = true
	case disable:
		d.Enabled = false
	}
	switch {
	case !d.Changed():
		d.Action = ActionKeep
	case d.Enabled:
		d.Action = ActionEnable
	default:
		d.Action = ActionDisable
	}
	return d
}
