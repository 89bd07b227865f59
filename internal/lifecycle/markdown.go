package lifecycle

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders a lifecycle Report as Markdown string.
func RenderMarkdown(report *Report) string {
	var sb strings.Builder

	sb.WriteString("# Lifecycle Report\n\n")
	sb.WriteString(fmt.Sprintf("Enabled: %d, Disabled: %d, Kept: %d, Manual: %d, Needs evaluation: %d\n\n",
		report.Enabled, report.Disabled, report.Kept, report.Manual, report.NeedsEvaluation))

	sb.WriteString("## Decisions\n\n")
	sb.WriteString("| # | Bridge | Market | Rate | Before | After | Action |\n")
	sb.WriteString("|---|--------|--------|------|--------|-------|--------|\n")
	for i, d := range report.Decisions {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %.2f%% | %s | %s | %s |\n",
			i+1, d.Name, d.Market, d.Rate, onOff(d.WasEnabled), onOff(d.Enabled), d.Action))
	}
	sb.WriteString("\n")

	// Checklists only for bridges whose state changed.
	for _, d := range report.Decisions {
		if !d.Changed() {
			continue
		}
		sb.WriteString(fmt.Sprintf("### %s: %s\n\n", d.Name, d.Action))
		sb.WriteString("| Criterion | Threshold | Actual | Pass |\n")
		sb.WriteString("|-----------|-----------|--------|------|\n")
		for _, c := range d.Criteria {
			passStr := "PASS"
			if !c.Pass {
				passStr = "FAIL"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", c.Name, c.Threshold, c.Actual, passStr))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
