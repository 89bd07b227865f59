// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	DrawsImported prometheus.Counter
	DrawsRejected *prometheus.CounterVec
	DrawsLoaded   prometheus.Gauge
	LatestDrawSeq prometheus.Gauge

	// Backtest metrics
	BacktestsRun     *prometheus.CounterVec
	BacktestDays     *prometheus.CounterVec
	BacktestDuration prometheus.Histogram

	// Scan metrics
	CandidatesFound *prometheus.CounterVec
	ScanDuration    *prometheus.HistogramVec

	// Lifecycle metrics
	LifecycleActions *prometheus.CounterVec
	ManagedBridges   *prometheus.GaugeVec

	// Scoring metrics
	ScoresComputed *prometheus.CounterVec
	TopScore       *prometheus.GaugeVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	ReportsGenerated  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulPipeline  prometheus.Gauge
	UptimeSeconds           prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "lottery_bridge_lab"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Ingestion metrics
		DrawsImported: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "draws_imported_total",
			Help:      "Total number of draws written to the draw store",
		}),
		DrawsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "draws_rejected_total",
			Help:      "Total number of import rows rejected by reason",
		}, []string{"reason"}),
		DrawsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "draws_loaded",
			Help:      "Number of draws in the current session",
		}),
		LatestDrawSeq: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "latest_draw_seq",
			Help:      "Sequence number of the most recent loaded draw",
		}),

		// Backtest metrics
		BacktestsRun: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of bridge backtests by mode",
		}, []string{"mode"}),
		BacktestDays: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "days_total",
			Help:      "Total number of backtest steps by status",
		}, []string{"status"}),
		BacktestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Backtest batch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Scan metrics
		CandidatesFound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "candidates_found_total",
			Help:      "Total number of candidates surfaced by bridge kind",
		}, []string{"kind"}),
		ScanDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "duration_seconds",
			Help:      "Scan duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"market"}),

		// Lifecycle metrics
		LifecycleActions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "actions_total",
			Help:      "Total number of lifecycle decisions by action",
		}, []string{"action"}),
		ManagedBridges: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "managed_bridges",
			Help:      "Number of managed bridges by market and state",
		}, []string{"market", "state"}),

		// Scoring metrics
		ScoresComputed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "runs_total",
			Help:      "Total number of score aggregations by market",
		}, []string{"market"}),
		TopScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "top_score",
			Help:      "Score of the highest ranked number of the last run",
		}, []string{"market"}),

		// Pipeline metrics
		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),
		ReportsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulIngestion: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
		LastSuccessfulPipeline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
		UptimeSeconds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordDrawsImported adds n imported draws and stamps the ingestion time.
func RecordDrawsImported(n int, unixSeconds int64) {
	DefaultMetrics.DrawsImported.Add(float64(n))
	DefaultMetrics.LastSuccessfulIngestion.Set(float64(unixSeconds))
}

// RecordDrawRejected records an import row that could not be stored.
func RecordDrawRejected(reason string) {
	DefaultMetrics.DrawsRejected.WithLabelValues(reason).Inc()
}

// UpdateSession updates the loaded history gauges.
func UpdateSession(draws int, latestSeq int64) {
	DefaultMetrics.DrawsLoaded.Set(float64(draws))
	DefaultMetrics.LatestDrawSeq.Set(float64(latestSeq))
}

// RecordBacktest records one bridge backtest and its per-day statuses.
func RecordBacktest(mode string, statuses map[string]int) {
	DefaultMetrics.BacktestsRun.WithLabelValues(mode).Inc()
	for status, n := range statuses {
		DefaultMetrics.BacktestDays.WithLabelValues(status).Add(float64(n))
	}
}

// RecordBacktestDuration records the wall time of a backtest run.
func RecordBacktestDuration(seconds float64) {
	DefaultMetrics.BacktestDuration.Observe(seconds)
}

// RecordCandidates records the candidates of a scan by kind.
func RecordCandidates(byKind map[string]int) {
	for kind, n := range byKind {
		DefaultMetrics.CandidatesFound.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordScan records a scan duration.
func RecordScan(market string, seconds float64) {
	DefaultMetrics.ScanDuration.WithLabelValues(market).Observe(seconds)
}

// RecordLifecycleAction records one lifecycle decision.
func RecordLifecycleAction(action string) {
	DefaultMetrics.LifecycleActions.WithLabelValues(action).Inc()
}

// UpdateManagedBridges sets the managed bridge gauge for a market.
func UpdateManagedBridges(market string, enabled, disabled int) {
	DefaultMetrics.ManagedBridges.WithLabelValues(market, "enabled").Set(float64(enabled))
	DefaultMetrics.ManagedBridges.WithLabelValues(market, "disabled").Set(float64(disabled))
}

// RecordScores records a scoring run and its leading score.
func RecordScores(market string, top float64) {
	DefaultMetrics.ScoresComputed.WithLabelValues(market).Inc()
	DefaultMetrics.TopScore.WithLabelValues(market).Set(top)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordPipelineRun records a pipeline run.
func RecordPipelineRun(phase, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
}

// MarkPipelineSuccess stamps the last successful pipeline run.
func MarkPipelineSuccess(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulPipeline.Set(float64(unixSeconds))
}

// AddUptime adds elapsed service time.
func AddUptime(seconds float64) {
	DefaultMetrics.UptimeSeconds.Add(seconds)
}

// RecordReport increments the reports generated counter.
func RecordReport() {
	DefaultMetrics.ReportsGenerated.Inc()
}
