package reporting

import (
	"context"
	"errors"
	"time"

	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/lifecycle"
	"lottery-bridge-lab/internal/metrics"
	"lottery-bridge-lab/internal/position"
	"lottery-bridge-lab/internal/scanner"
	"lottery-bridge-lab/internal/storage"
)

// DefaultTopN is the number of ranked rows kept per section.
const DefaultTopN = 20

// Inputs are the computed results a report is assembled from.
// Only Series is required.
type Inputs struct {
	Series    *position.Series
	Pairs     []domain.ScoredPair
	Numbers   []domain.ScoredNumber
	Missing   []error // scoring inputs reported absent
	Scan      *scanner.Result
	Lifecycle *lifecycle.Report
}

// Generator produces reports from computed results and the bridge store.
type Generator struct {
	cfg        config.Config
	aggregator *metrics.Aggregator
	topN       int
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(cfg config.Config, store storage.ManagedBridgeStore) *Generator {
	return &Generator{
		cfg:        cfg,
		aggregator: metrics.NewAggregator(store),
		topN:       DefaultTopN,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithTopN sets how many ranked rows each section keeps. n <= 0 keeps all.
func (g *Generator) WithTopN(n int) *Generator {
	g.topN = n
	return g
}

// Generate assembles a report. An empty bridge store is not an error: the
// aggregate section is left empty.
func (g *Generator) Generate(ctx context.Context, in Inputs) (*Report, error) {
	if in.Series == nil || in.Series.Len() == 0 {
		return nil, domain.ErrInsufficientHistory
	}

	aggs, err := g.aggregator.ComputeAll(ctx, false)
	if err != nil && !errors.Is(err, metrics.ErrNoBridges) {
		return nil, err
	}

	r := &Report{
		GeneratedAt: g.now(),
		History:     summarize(in.Series),
		DataQuality: DataQualitySection{
			MissingMetrics: g.aggregator.GetMissingMetricsErrors(),
		},
		Aggregates: aggs,
		Hot:        metrics.HotLotos(in.Series, g.cfg.Stats.HotDays, g.cfg.Stats.HotTopN),
		Gan:        truncate(metrics.GanLotos(in.Series, g.cfg.Stats.GanDays), g.topN),
		DeTrends:   metrics.AnalyzeDeTrends(in.Series, g.cfg.DeScoring.TrendWindow),
		Pairs:      truncate(in.Pairs, g.topN),
		Numbers:    truncate(in.Numbers, g.topN),
		Lifecycle:  in.Lifecycle,
	}
	for _, e := range in.Missing {
		r.DataQuality.MissingInputs = append(r.DataQuality.MissingInputs, e.Error())
	}
	if in.Scan != nil {
		r.Candidates = truncate(in.Scan.Candidates, g.topN)
		r.Audit = truncate(in.Scan.Audit, g.topN)
	}
	return r, nil
}

func summarize(s *position.Series) HistorySummary {
	last := s.Len() - 1
	return HistorySummary{
		Draws:       s.Len(),
		FirstPeriod: s.PeriodID(0),
		LastPeriod:  s.PeriodID(last),
		LatestDe:    s.Outcome(last).De,
	}
}

func truncate[T any](list []T, n int) []T {
	if n > 0 && len(list) > n {
		return list[:n]
	}
	return list
}
