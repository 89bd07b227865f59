// Package backtest replays a draw history through a bridge rule.
//
// In K2N mode a prediction gets two draws: a miss on the first draw (N1)
// opens a frame that the next draw (N2) resolves as a win or a loss.
// In N1 mode every day is an independent evaluation.
package backtest

import (
	"errors"

	"lottery-bridge-lab/internal/bridge"
	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/position"
)

// Mode selects the frame model.
type Mode string

// Mode constants.
const (
	ModeK2N Mode = config.ModeK2N
	ModeN1  Mode = config.ModeN1
)

// History notes.
const (
	NoteHitN1        = "hit on N1"
	NoteHitN2        = "hit on N2"
	NoteOpenFrame    = "miss on N1, frame open"
	NoteMissN2       = "miss on N2"
	NoteMiss         = "miss"
	NoteIncomplete   = "incomplete draw"
	NoteNoOperands   = "operands unavailable"
	NoteNoHistory    = "insufficient history"
	NoteNextNewFrame = "next: new frame"
	NoteNextN2       = "next: awaiting N2"
)

// ModeFor returns the mode a bridge kind is backtested with.
// Lô memory bridges are always evaluated N1.
func ModeFor(cfg config.BacktestConfig, kind domain.BridgeKind) Mode {
	switch {
	case kind == domain.KindLoMemorySum || kind == domain.KindLoMemoryDiff:
		return ModeN1
	case kind.Market() == domain.MarketDe:
		return Mode(cfg.DeMode)
	default:
		return Mode(cfg.LoMode)
	}
}

// Options configures one backtest.
type Options struct {
	Mode         Mode
	RecentWindow int  // resolved outcomes counted by RecentWins
	History      bool // keep per-day history rows
}

// Result holds backtest output.
type Result struct {
	Spec          domain.BridgeSpec
	Mode          Mode
	Metrics       domain.BridgeMetrics
	Next          domain.Prediction
	NextAvailable bool // false when the next prediction could not be computed
	NextPhase     domain.NextPhase
	History       []domain.BacktestRecord
}

// Engine is the frame state machine for one rule.
// An Engine is not safe for concurrent use; run one per rule.
type Engine struct {
	rule    bridge.Rule
	opts    Options
	result  *Result
	awaitN2 bool
	pending domain.Prediction
	streak  int
	wins    []bool // resolved outcomes in order
}

// NewEngine creates a new backtest engine.
func NewEngine(rule bridge.Rule, opts Options) *Engine {
	if opts.Mode == "" {
		opts.Mode = ModeK2N
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = 10
	}
	return &Engine{
		rule: rule,
		opts: opts,
		result: &Result{
			Spec: rule.Spec(),
			Mode: opts.Mode,
		},
	}
}

// Step checks draw day of s (day >= 1) and returns its history row.
func (e *Engine) Step(s *position.Series, day int) domain.BacktestRecord {
	rec := domain.BacktestRecord{Day: day, PeriodID: s.PeriodID(day)}

	if !s.Complete(day) {
		rec.Status = domain.DaySkipped
		rec.Note = NoteIncomplete
		if e.awaitN2 {
			rec.Prediction = e.pending.String()
		}
		return e.record(rec)
	}
	outcome := s.Outcome(day)

	if e.awaitN2 {
		rec.Prediction = e.pending.String()
		e.awaitN2 = false
		if e.pending.Hit(outcome) {
			rec.Status, rec.Note = domain.DayWinN2, NoteHitN2
			e.resolve(true)
		} else {
			rec.Status, rec.Note = domain.DayLoss, NoteMissN2
			e.resolve(false)
		}
		e.pending = domain.Prediction{}
		return e.record(rec)
	}

	pred, err := e.rule.Predict(s, day)
	if err != nil {
		rec.Status = domain.DaySkipped
		rec.Note = skipNote(err)
		return e.record(rec)
	}
	rec.Prediction = pred.String()

	switch {
	case pred.Hit(outcome):
		rec.Status, rec.Note = domain.DayWinN1, NoteHitN1
		e.resolve(true)
	case e.opts.Mode == ModeK2N:
		rec.Status, rec.Note = domain.DayOpen, NoteOpenFrame
		e.awaitN2 = true
		e.pending = pred
	default:
		rec.Status, rec.Note = domain.DayLoss, NoteMiss
		e.resolve(false)
	}
	return e.record(rec)
}

func skipNote(err error) string {
	switch {
	case errors.Is(err, domain.ErrDataIncomplete):
		return NoteNoOperands
	case errors.Is(err, domain.ErrInsufficientHistory):
		return NoteNoHistory
	default:
		return err.Error()
	}
}

func (e *Engine) resolve(win bool) {
	e.wins = append(e.wins, win)
	if win {
		e.streak++
	} else {
		e.streak = 0
	}
}

func (e *Engine) record(rec domain.BacktestRecord) domain.BacktestRecord {
	rec.Streak = e.streak
	if e.opts.History {
		e.result.History = append(e.result.History, rec)
	}
	return rec
}

// Finish computes metrics and the next prediction after the last Step.
// s must be the series the steps were taken on.
func (e *Engine) Finish(s *position.Series) *Result {
	e.result.Metrics = computeMetrics(e.wins, e.opts.RecentWindow)

	if e.awaitN2 {
		e.result.Next = e.pending
		e.result.NextAvailable = true
		e.result.NextPhase = domain.PhaseAwaitingN2
	} else {
		next, err := e.rule.Predict(s, s.Len())
		e.result.NextPhase = domain.PhaseNewFrame
		if err == nil {
			e.result.Next = next
			e.result.NextAvailable = true
		}
	}

	if e.opts.History && e.result.NextAvailable {
		note := NoteNextNewFrame
		if e.result.NextPhase == domain.PhaseAwaitingN2 {
			note = NoteNextN2
		}
		e.result.History = append(e.result.History, domain.BacktestRecord{
			Day:        s.Len(),
			Prediction: e.result.Next.String(),
			Status:     domain.DayPending,
			Streak:     e.streak,
			Note:       note,
		})
	}
	return e.result
}

// Pending reports whether a frame is open after the last Step.
func (e *Engine) Pending() bool {
	return e.awaitN2
}

func computeMetrics(wins []bool, recentWindow int) domain.BridgeMetrics {
	var m domain.BridgeMetrics
	run, lose := 0, 0
	for _, w := range wins {
		if w {
			m.Wins++
			run++
			lose = 0
		} else {
			m.Losses++
			lose++
			run = 0
		}
		if run > m.MaxStreak {
			m.MaxStreak = run
		}
		if lose > m.MaxLosingStreak {
			m.MaxLosingStreak = lose
		}
	}
	m.Streak = run
	m.LosingStreak = lose
	m.TestedDays = m.Wins + m.Losses
	if m.TestedDays > 0 {
		m.WinRate = float64(m.Wins) / float64(m.TestedDays) * 100
	}

	from := len(wins) - recentWindow
	if from < 0 {
		from = 0
	}
	for _, w := range wins[from:] {
		if w {
			m.RecentWins++
		}
	}
	return m
}

// Run backtests rule over every draw of s.
func Run(s *position.Series, rule bridge.Rule, opts Options) *Result {
	e := NewEngine(rule, opts)
	for day := 1; day < s.Len(); day++ {
		e.Step(s, day)
	}
	return e.Finish(s)
}
