// Package scanner searches the draw history for bridges worth tracking.
//
// A scan enumerates bridge specs, evaluates each one over a trailing window
// and keeps the specs that pass the configured filter profile. Candidates
// are never persisted here; promotion is the caller's decision.
package scanner

import (
	"context"
	"log"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"lottery-bridge-lab/internal/backtest"
	"lottery-bridge-lab/internal/bridge"
	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/position"
)

// MinDraws is the shortest series a scan evaluates: one draw to predict
// from and one to check. Shorter series scan to an empty result.
const MinDraws = 2

// RatesLookup supplies previously computed rates by normalized bridge name.
type RatesLookup interface {
	Rates(normalizedName string) (shortRate, frameRate float64, ok bool)
}

// Options configures a Scanner.
type Options struct {
	Config  config.Config
	Managed []*domain.ManagedBridge // current catalog, used for de-duplication
	Rates   RatesLookup             // optional
	Logger  *log.Logger
}

// Result holds the output of one or more scans.
type Result struct {
	Candidates []domain.Candidate // new bridges, ranked
	Revived    []domain.Candidate // disabled managed bridges that qualify again
	Audit      []domain.Candidate // audit-only kinds, never promotable
	Evaluated  int                // specs evaluated
}

// Merge appends other into r.
func (r *Result) Merge(other *Result) {
	r.Candidates = append(r.Candidates, other.Candidates...)
	r.Revived = append(r.Revived, other.Revived...)
	r.Audit = append(r.Audit, other.Audit...)
	r.Evaluated += other.Evaluated
}

// Scanner evaluates bridge specs against a draw series.
// A Scanner is safe for concurrent use once built.
type Scanner struct {
	cfg     config.Config
	managed map[string]*domain.ManagedBridge // keyed by normalized name
	rates   RatesLookup
	logger  *log.Logger
}

// New creates a new scanner.
func New(opts Options) *Scanner {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	managed := make(map[string]*domain.ManagedBridge, len(opts.Managed))
	for _, b := range opts.Managed {
		managed[b.NormalizedName] = b
	}
	return &Scanner{
		cfg:     opts.Config,
		managed: managed,
		rates:   opts.Rates,
		logger:  logger,
	}
}

// ScanAll runs every Lô and Đề scan and returns the merged, ranked result.
func (s *Scanner) ScanAll(ctx context.Context, series *position.Series) (*Result, error) {
	if series.Len() < MinDraws {
		s.logger.Printf("scan skipped: %d draws, need %d", series.Len(), MinDraws)
		return &Result{}, nil
	}
	scans := []struct {
		name string
		run  func(context.Context, *position.Series) (*Result, error)
	}{
		{"lo positions", s.loPositions},
		{"lo memory", s.loMemory},
		{"de", s.de},
	}

	total := &Result{}
	for _, sc := range scans {
		res, err := sc.run(ctx, series)
		if err != nil {
			return nil, err
		}
		s.logger.Printf("%s scan: %d evaluated, %d candidates, %d revived, %d audit",
			sc.name, res.Evaluated, len(res.Candidates), len(res.Revived), len(res.Audit))
		total.Merge(res)
	}
	s.finish(total)
	return total, nil
}

// ranked finishes the result of a single public scan.
func (s *Scanner) ranked(res *Result, err error) (*Result, error) {
	if err != nil {
		return nil, err
	}
	s.finish(res)
	return res, nil
}

func (s *Scanner) workers() int {
	if s.cfg.Scanner.Workers > 0 {
		return s.cfg.Scanner.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// evalFunc evaluates one spec; nil means it did not qualify.
type evalFunc func(spec domain.BridgeSpec) *domain.Candidate

// parallel evaluates specs on a bounded pool. Output keeps spec order.
func (s *Scanner) parallel(ctx context.Context, specs []domain.BridgeSpec, eval evalFunc) ([]domain.Candidate, error) {
	found := make([]*domain.Candidate, len(specs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())

	for i, spec := range specs {
		if gCtx.Err() != nil {
			break
		}
		i, spec := i, spec
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			found[i] = eval(spec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []domain.Candidate
	for _, c := range found {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

// describe fills the identity fields, the next prediction and the
// long-horizon rates of a qualifying candidate.
func (s *Scanner) describe(series *position.Series, rule bridge.Rule, c *domain.Candidate) {
	spec := rule.Spec()
	c.Spec = spec
	c.Name = bridge.Name(spec)
	c.NormalizedName = bridge.NormalizeName(c.Name)
	c.Description = bridge.Describe(spec)
	c.Audit = spec.Kind.IsAuditOnly()

	if next, err := rule.Predict(series, series.Len()); err == nil {
		c.Next = next
	}

	full := backtest.Run(series.Tail(s.cfg.Backtest.HistoryLimit), rule, backtest.Options{
		Mode:         backtest.ModeFor(s.cfg.Backtest, spec.Kind),
		RecentWindow: s.cfg.Backtest.RecentWindow,
	})
	if full.Metrics.TestedDays > 0 {
		c.FrameRate = full.Metrics.WinRate
		c.MaxLosingStreak = full.Metrics.MaxLosingStreak
		return
	}
	if s.rates != nil {
		if short, frame, ok := s.rates.Rates(c.NormalizedName); ok {
			if c.ShortRate == 0 {
				c.ShortRate = short
			}
			c.FrameRate = frame
			return
		}
	}
	c.RatesMissing = true
}

// collect sorts evaluated candidates into the result buckets, dropping
// those already managed.
func (s *Scanner) collect(res *Result, found []domain.Candidate) {
	for _, c := range found {
		if c.Audit {
			res.Audit = append(res.Audit, c)
			continue
		}
		if managed, ok := s.managed[c.NormalizedName]; ok {
			if s.cfg.Scanner.Revive && !managed.Enabled {
				res.Revived = append(res.Revived, c)
			}
			continue
		}
		res.Candidates = append(res.Candidates, c)
	}
}

// finish scores, ranks and truncates the candidate lists.
func (s *Scanner) finish(res *Result) {
	for _, list := range [][]domain.Candidate{res.Candidates, res.Revived, res.Audit} {
		for i := range list {
			list[i].Score = RankingScore(list[i].Spec.Kind, list[i].Streak, list[i].RecentWins)
		}
		rank(list)
	}
	if limit := s.cfg.Scanner.MaxCandidates; limit > 0 && len(res.Candidates) > limit {
		res.Candidates = res.Candidates[:limit]
	}
}

// rank sorts by score descending, then name for a stable order.
func rank(list []domain.Candidate) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		return list[i].Name < list[j].Name
	})
}

// RankingScore orders candidates within a scan.
// wins10 is the number of wins among the last ten checked draws.
func RankingScore(kind domain.BridgeKind, streak, wins10 int) float64 {
	bonus := 0.0
	switch kind {
	case domain.KindDeSet:
		bonus = 2
	case domain.KindDePascal:
		bonus = 1
	case domain.KindDeMemory:
		return 15 + float64(wins10)/2
	case domain.KindDeKiller:
		return float64(streak) * 2
	}
	stability := 0.0
	if wins10 >= 8 {
		stability = 1.5
	}
	return float64(streak)*1.5 + float64(wins10) + bonus + stability
}
