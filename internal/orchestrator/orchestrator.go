// Package orchestrator provides E2E pipeline orchestration.
// It coordinates: session load → lifecycle → scan → scoring
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/idhash"
	"lottery-bridge-lab/internal/lifecycle"
	"lottery-bridge-lab/internal/metrics"
	"lottery-bridge-lab/internal/observability"
	"lottery-bridge-lab/internal/position"
	"lottery-bridge-lab/internal/scanner"
	"lottery-bridge-lab/internal/scoring"
	"lottery-bridge-lab/internal/session"
	"lottery-bridge-lab/internal/storage"
)

// loRecentDays is the longest recency window the Lô scorer looks at.
const loRecentDays = 7

// ErrNoSession is returned when the orchestrator has no session to run on.
var ErrNoSession = errors.New("orchestrator requires a session")

// Orchestrator coordinates the E2E pipeline execution.
// Flow: reload → lifecycle → scan → score
type Orchestrator struct {
	cfg     config.Config
	sess    *session.Session
	scans   storage.ScanResultStore
	manager *lifecycle.Manager
	probs   map[string]float64
	logger  *log.Logger
	now     func() time.Time

	// Options
	skipLifecycle bool
	skipScan      bool
	revive        bool
	verbose       bool
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Session *session.Session

	// Optional snapshot store for scan results
	ScanResults storage.ScanResultStore

	// External number probabilities in [0, 1], keyed by 2-digit number
	Probabilities map[string]float64

	Logger *log.Logger
	Now    func() time.Time

	// Options
	SkipLifecycle bool // Skip recompute and enable/disable
	SkipScan      bool // Score the catalog only
	Revive        bool // Re-enable disabled bridges that qualify again
	Verbose       bool
}

// New creates a new Orchestrator. The configuration is the session's.
func New(opts Options) (*Orchestrator, error) {
	if opts.Session == nil {
		return nil, ErrNoSession
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cfg := opts.Session.Config()
	return &Orchestrator{
		cfg:   cfg,
		sess:  opts.Session,
		scans: opts.ScanResults,
		manager: lifecycle.NewManager(lifecycle.Options{
			Config: cfg,
			Store:  opts.Session.BridgeStore(),
			Logger: logger,
			Now:    now,
		}),
		probs:         opts.Probabilities,
		logger:        logger,
		now:           now,
		skipLifecycle: opts.SkipLifecycle,
		skipScan:      opts.SkipScan,
		revive:        opts.Revive || cfg.Scanner.Revive,
		verbose:       opts.Verbose,
	}, nil
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RunID     string
	Draws     int
	Bridges   int
	Lifecycle *lifecycle.Report
	Scan      *scanner.Result
	Revived   int
	Pairs     []domain.ScoredPair
	Numbers   []domain.ScoredNumber
	Missing   []error // scoring inputs that were absent
	Errors    []string
}

// Run executes the full pipeline.
// Phases:
//  1. Reload draws and the managed bridge catalog
//  2. Seed classic bridges, recompute metrics and apply lifecycle decisions
//  3. Scan for new, revived and audit-only bridges
//  4. Score Lô pairs and Đề numbers
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	start := o.now()
	result := &RunResult{RunID: idhash.NewRunID()}

	// Phase 1: Load session
	o.log("Phase 1: Loading draws and bridges...")
	if err := o.phase("load", func() error { return o.sess.Reload(ctx) }); err != nil {
		return nil, fmt.Errorf("phase 1 (load) failed: %w", err)
	}
	series := o.sess.Series()
	o.recordSession(series)
	o.log("  Loaded %d draws, %d bridges", series.Len(), len(o.sess.Bridges()))

	// Phase 2: Lifecycle
	if !o.skipLifecycle {
		o.log("Phase 2: Running lifecycle...")
		err := o.phase("lifecycle", func() error {
			if o.sess.Config().Lifecycle.SeedClassic {
				seeded, err := o.manager.SeedClassic(ctx)
				if err != nil {
					return err
				}
				if seeded > 0 {
					o.log("  Seeded %d classic bridges", seeded)
				}
			}
			report, err := o.manager.Run(ctx, series)
			if err != nil {
				return err
			}
			result.Lifecycle = report
			return o.sess.Reload(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("phase 2 (lifecycle) failed: %w", err)
		}
		for _, d := range result.Lifecycle.Decisions {
			observability.RecordLifecycleAction(string(d.Action))
		}
		o.log("  %d enabled, %d disabled, %d kept, %d manual, %d need evaluation",
			result.Lifecycle.Enabled, result.Lifecycle.Disabled, result.Lifecycle.Kept,
			result.Lifecycle.Manual, result.Lifecycle.NeedsEvaluation)
	} else {
		o.log("Phase 2: Skipping lifecycle (skipLifecycle=true)")
	}
	o.recordCatalog(o.sess.Bridges())

	// Phase 3: Scan
	if !o.skipScan {
		o.log("Phase 3: Scanning...")
		err := o.phase("scan", func() error {
			scanStart := time.Now()
			res, err := o.sess.NewScanner().ScanAll(ctx, series)
			if err != nil {
				return err
			}
			observability.RecordScan("all", time.Since(scanStart).Seconds())
			result.Scan = res
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("phase 3 (scan) failed: %w", err)
		}
		recordCandidates(result.Scan)
		o.log("  %d evaluated, %d candidates, %d revived, %d audit",
			result.Scan.Evaluated, len(result.Scan.Candidates), len(result.Scan.Revived), len(result.Scan.Audit))

		if o.scans != nil {
			if err := o.persistScan(ctx, result.RunID, result.Scan); err != nil {
				result.Errors = append(result.Errors, err.Error())
			}
		}
		if o.revive && len(result.Scan.Revived) > 0 {
			revived, errs := o.reviveBridges(ctx, result.Scan.Revived)
			result.Revived = revived
			result.Errors = append(result.Errors, errs...)
			if revived > 0 {
				if err := o.sess.Reload(ctx); err != nil {
					return nil, fmt.Errorf("phase 3 (reload after revive) failed: %w", err)
				}
			}
			o.log("  Revived %d bridges (%d errors)", revived, len(errs))
		}
	} else {
		o.log("Phase 3: Skipping scan (skipScan=true)")
	}

	// Phase 4: Scoring
	o.log("Phase 4: Scoring...")
	_ = o.phase("score", func() error {
		o.score(series, result)
		return nil
	})
	o.log("  Scored %d pairs, %d numbers (%d inputs missing)", len(result.Pairs), len(result.Numbers), len(result.Missing))

	result.Draws = series.Len()
	result.Bridges = len(o.sess.Bridges())

	elapsed := o.now().Sub(start).Seconds()
	observability.RecordPipelineRun("total", "success", elapsed)
	observability.MarkPipelineSuccess(o.now().Unix())

	o.log("Pipeline completed: run %s, %d draws, %d bridges, %d errors",
		result.RunID, result.Draws, result.Bridges, len(result.Errors))

	return result, nil
}

// score runs both aggregators over the current catalog plus market statistics.
func (o *Orchestrator) score(series *position.Series, result *RunResult) {
	bridges := o.sess.Bridges()
	scorer := scoring.New(o.cfg, o.logger)

	lo := scoring.LoInputsFromBridges(o.cfg.Scoring, bridges)
	lo.Hot = metrics.HotSet(metrics.HotLotos(series, o.cfg.Stats.HotDays, o.cfg.Stats.HotTopN))
	lo.Gan = metrics.GanMap(metrics.GanLotos(series, o.cfg.Stats.GanDays))
	lo.Recent = metrics.RecentOutcomes(series, loRecentDays)
	lo.Probabilities = o.probs
	if len(lo.Memory) == 0 && result.Scan != nil {
		lo.Memory = scoring.TopMemory(scoring.MemorySignalsFromCandidates(result.Scan.Candidates), o.cfg.Scoring.MemoryTopN)
	}

	de := scoring.DeInputs{
		Bridges: scoring.DeSignalsFromBridges(bridges),
		Trends:  metrics.AnalyzeDeTrends(series, o.cfg.DeScoring.TrendWindow),
		Recent:  metrics.RecentOutcomes(series, o.cfg.DeScoring.RecentDays),
	}
	if result.Scan != nil {
		// Killers are never managed; the scan is their only source.
		de.Bridges = append(de.Bridges, scoring.DeSignalsFromCandidates(result.Scan.Audit)...)
	}

	result.Missing = append(lo.Missing(), de.Missing()...)
	result.Pairs = scorer.ScorePairs(lo)
	result.Numbers = scorer.ScoreNumbers(de)

	if len(result.Pairs) > 0 {
		observability.RecordScores(string(domain.MarketLo), result.Pairs[0].Score)
	}
	if len(result.Numbers) > 0 {
		observability.RecordScores(string(domain.MarketDe), result.Numbers[0].Score)
	}
}

// persistScan stores the ranked candidates followed by the audit-only ones.
func (o *Orchestrator) persistScan(ctx context.Context, runID string, res *scanner.Result) error {
	ts := o.now().UnixMilli()
	all := make([]domain.Candidate, 0, len(res.Candidates)+len(res.Audit))
	all = append(all, res.Candidates...)
	all = append(all, res.Audit...)
	if len(all) == 0 {
		return nil
	}

	snapshots := make([]*domain.ScanSnapshot, len(all))
	for i, c := range all {
		snapshots[i] = &domain.ScanSnapshot{RunID: runID, Rank: i, ScannedAt: ts, Candidate: c}
	}

	start := time.Now()
	err := o.scans.InsertBulk(ctx, snapshots)
	observability.RecordDBQuery("scan_results", "insert_bulk", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("persist scan %s: %w", runID, err)
	}
	o.log("  Persisted %d scan snapshots", len(snapshots))
	return nil
}

// reviveBridges re-enables disabled bridges the scan found qualifying again.
func (o *Orchestrator) reviveBridges(ctx context.Context, cands []domain.Candidate) (int, []string) {
	var revived int
	var errs []string
	for _, c := range cands {
		if err := o.manager.Revive(ctx, c); err != nil {
			// Removed between load and revive
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			errs = append(errs, fmt.Sprintf("revive %s: %v", c.Name, err))
			continue
		}
		observability.RecordLifecycleAction("REVIVE")
		revived++
	}
	return revived, errs
}

// phase runs fn and records its duration and outcome.
func (o *Orchestrator) phase(name string, fn func() error) error {
	start := o.now()
	err := fn()
	status := "success"
	if err != nil {
		status = "failure"
	}
	observability.RecordPipelineRun(name, status, o.now().Sub(start).Seconds())
	return err
}

func (o *Orchestrator) recordSession(series *position.Series) {
	var latest int64
	if n := series.Len(); n > 0 {
		latest = series.Draw(n - 1).Seq
	}
	observability.UpdateSession(series.Len(), latest)
}

func (o *Orchestrator) recordCatalog(bridges []*domain.ManagedBridge) {
	enabled := map[domain.Market]int{}
	disabled := map[domain.Market]int{}
	for _, b := range bridges {
		if b.Enabled {
			enabled[b.Market()]++
		} else {
			disabled[b.Market()]++
		}
	}
	for _, m := range []domain.Market{domain.MarketLo, domain.MarketDe} {
		observability.UpdateManagedBridges(string(m), enabled[m], disabled[m])
	}
}

func recordCandidates(res *scanner.Result) {
	byKind := make(map[string]int)
	for _, c := range res.Candidates {
		byKind[string(c.Spec.Kind)]++
	}
	for _, c := range res.Audit {
		byKind[string(c.Spec.Kind)]++
	}
	observability.RecordCandidates(byKind)
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		o.logger.Printf("[orchestrator] "+format, args...)
	}
}
