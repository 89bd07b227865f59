package reporting

import (
	"time"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/lifecycle"
	"lottery-bridge-lab/internal/metrics"
)

// Report is the score dashboard for the next draw.
type Report struct {
	// Metadata
	GeneratedAt time.Time

	// History the scores were computed from
	History HistorySummary

	// Data quality: bridges without metrics, absent scoring inputs
	DataQuality DataQualitySection

	// Managed bridge aggregates, in domain.AllKinds order
	Aggregates []*metrics.BridgeAggregate

	// Market statistics
	Hot      []metrics.LotoStat
	Gan      []metrics.GanStat
	DeTrends *metrics.DeTrends

	// Ranked output, truncated to the generator's TopN
	Pairs   []domain.ScoredPair
	Numbers []domain.ScoredNumber

	// Optional scan and lifecycle sections
	Candidates []domain.Candidate
	Audit      []domain.Candidate
	Lifecycle  *lifecycle.Report
}

// HistorySummary describes the loaded draw history.
type HistorySummary struct {
	Draws       int
	FirstPeriod string
	LastPeriod  string
	LatestDe    string // đề of the most recent draw, "" if missing
}

// DataQualitySection lists the gaps the report was generated with.
type DataQualitySection struct {
	MissingMetrics []string
	MissingInputs  []string
}

// OK reports whether no gaps were found.
func (d DataQualitySection) OK() bool {
	return len(d.MissingMetrics) == 0 && len(d.MissingInputs) == 0
}
