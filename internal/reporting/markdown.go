package reporting

import (
	"fmt"
	"strings"
	"time"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/lifecycle"
	"lottery-bridge-lab/internal/scoring"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Bridge Score Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// History
	sb.WriteString("## History\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Draws | %d |\n", r.History.Draws))
	sb.WriteString(fmt.Sprintf("| First Period | %s |\n", r.History.FirstPeriod))
	sb.WriteString(fmt.Sprintf("| Last Period | %s |\n", r.History.LastPeriod))
	sb.WriteString(fmt.Sprintf("| Latest Đề | %s |\n", dash(r.History.LatestDe)))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if r.DataQuality.OK() {
		sb.WriteString("No gaps found.\n\n")
	} else {
		for _, e := range r.DataQuality.MissingMetrics {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		for _, e := range r.DataQuality.MissingInputs {
			sb.WriteString(fmt.Sprintf("- scoring input missing: %s\n", e))
		}
		sb.WriteString("\n")
	}

	// Lô pairs
	sb.WriteString("## Lô Pairs\n\n")
	if len(r.Pairs) > 0 {
		sb.WriteString("| # | Pair | Score | Sources | Confidence | Gan | Recommendation | Reasons |\n")
		sb.WriteString("|---|------|-------|---------|------------|-----|----------------|---------|\n")
		for i, p := range r.Pairs {
			gan := "-"
			if p.IsGan {
				gan = fmt.Sprintf("%d", p.GanDays)
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | %.2f | %d | %.0f%% | %s | %s | %s |\n",
				i+1, p.Pair, p.Score, p.Sources, p.Confidence*100, gan, p.Recommendation,
				escapePipes(scoring.FormatReasons(p.Reasons))))
		}
	} else {
		sb.WriteString("No pairs scored.\n")
	}
	sb.WriteString("\n")

	// Đề numbers
	sb.WriteString("## Đề Numbers\n\n")
	if len(r.Numbers) > 0 {
		sb.WriteString("| # | Number | Score | Bridges | Reasons |\n")
		sb.WriteString("|---|--------|-------|---------|---------|\n")
		for i, n := range r.Numbers {
			sb.WriteString(fmt.Sprintf("| %d | %s | %.2f | %d | %s |\n",
				i+1, n.Number, n.Score, n.Bridges, escapePipes(scoring.FormatReasons(n.Reasons))))
		}
	} else {
		sb.WriteString("No numbers scored.\n")
	}
	sb.WriteString("\n")

	// Market statistics
	sb.WriteString("## Market\n\n")
	if len(r.Hot) > 0 {
		parts := make([]string, len(r.Hot))
		for i, h := range r.Hot {
			parts[i] = fmt.Sprintf("%s (%d)", h.Loto, h.Hits)
		}
		sb.WriteString(fmt.Sprintf("Hot lotos: %s\n\n", strings.Join(parts, ", ")))
	}
	if len(r.Gan) > 0 {
		parts := make([]string, len(r.Gan))
		for i, g := range r.Gan {
			parts[i] = fmt.Sprintf("%s (%d)", g.Loto, g.Days)
		}
		sb.WriteString(fmt.Sprintf("Gan lotos: %s\n\n", strings.Join(parts, ", ")))
	}
	if t := r.DeTrends; t != nil {
		sb.WriteString("| Digit | Touch | Sum | Gan |\n")
		sb.WriteString("|-------|-------|-----|-----|\n")
		for d := 0; d < 10; d++ {
			sb.WriteString(fmt.Sprintf("| %d | %d | %d | %d |\n", d, t.TouchFreq[d], t.SumFreq[d], t.TouchGan[d]))
		}
		sb.WriteString("\n")
	}

	// Bridge aggregates
	sb.WriteString("## Managed Bridges\n\n")
	if len(r.Aggregates) > 0 {
		sb.WriteString("| Kind | Market | Total | Enabled | Pending | Pooled | Mean | Median | P10 | P90 | MaxStreak | MaxLose | Best |\n")
		sb.WriteString("|------|--------|-------|---------|---------|--------|------|--------|-----|-----|-----------|---------|------|\n")
		for _, a := range r.Aggregates {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %.2f | %.2f | %.2f | %.2f | %.2f | %d | %d | %s |\n",
				a.Kind, a.Market, a.Total, a.Enabled, a.Pending,
				a.PooledWinRate, a.MeanWinRate, a.MedianWinRate, a.P10WinRate, a.P90WinRate,
				a.MaxStreak, a.MaxLosingStreak, dash(a.BestBridge)))
		}
	} else {
		sb.WriteString("No managed bridges.\n")
	}
	sb.WriteString("\n")

	// Scan
	if len(r.Candidates) > 0 || len(r.Audit) > 0 {
		sb.WriteString("## Scan Candidates\n\n")
		writeCandidates(&sb, r.Candidates)
		if len(r.Audit) > 0 {
			sb.WriteString("### Audit Only\n\n")
			writeCandidates(&sb, r.Audit)
		}
	}

	if r.Lifecycle != nil {
		// Lifecycle renders its own top-level heading; demote it.
		sb.WriteString("#")
		sb.WriteString(lifecycle.RenderMarkdown(r.Lifecycle))
	}

	return sb.String()
}

func writeCandidates(sb *strings.Builder, cands []domain.Candidate) {
	sb.WriteString("| # | Bridge | Streak | Wins | Short | Frame | Next | Score |\n")
	sb.WriteString("|---|--------|--------|------|-------|-------|------|-------|\n")
	for i, c := range cands {
		frame := fmt.Sprintf("%.2f%%", c.FrameRate)
		if c.RatesMissing {
			frame = "-"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %d | %d | %.2f%% | %s | %s | %.2f |\n",
			i+1, c.Name, c.Streak, c.RecentWins, c.ShortRate, frame, c.Next.String(), c.Score))
	}
	sb.WriteString("\n")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
