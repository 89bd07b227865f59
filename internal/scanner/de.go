package scanner

import (
	"context"
	"sort"

	"lottery-bridge-lab/internal/bridge"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/position"
)

// DePairSpecs enumerates specs of kind over the first n slots.
// With distinct only i < j pairs are produced, otherwise i <= j.
func DePairSpecs(kind domain.BridgeKind, n int, distinct bool) []domain.BridgeSpec {
	var specs []domain.BridgeSpec
	for i := 0; i < n; i++ {
		j := i
		if distinct {
			j = i + 1
		}
		for ; j < n; j++ {
			specs = append(specs, domain.BridgeSpec{Kind: kind, OperandA: i, OperandB: j})
		}
	}
	return specs
}

// TailSlots returns the slot of the last digit of every canonical number.
func TailSlots() []int {
	var slots []int
	for t := domain.TierSpecial; t <= domain.TierSeventh; t++ {
		width := position.TierWidth(t)
		for g := 0; g < position.TierCount(t); g++ {
			slots = append(slots, position.TierStart(t)+(g+1)*width-1)
		}
	}
	return slots
}

// DynamicSpecs enumerates DE_DYNAMIC specs over pairs of tail slots and
// every offset 0..9.
func DynamicSpecs() []domain.BridgeSpec {
	tails := TailSlots()
	var specs []domain.BridgeSpec
	for i := 0; i < len(tails); i++ {
		for j := i + 1; j < len(tails); j++ {
			for k := 0; k < 10; k++ {
				specs = append(specs, domain.BridgeSpec{
					Kind: domain.KindDeDynamic, OperandA: tails[i], OperandB: tails[j], KOffset: k,
				})
			}
		}
	}
	return specs
}

// ScanDe runs every Đề module and returns the merged result.
func (s *Scanner) ScanDe(ctx context.Context, series *position.Series) (*Result, error) {
	return s.ranked(s.de(ctx, series))
}

// ScanDePosSum looks for position pairs whose digit sum keeps touching the đề.
func (s *Scanner) ScanDePosSum(ctx context.Context, series *position.Series) (*Result, error) {
	return s.ranked(s.dePosSum(ctx, series))
}

// ScanDeDynamic looks for tail pairs whose offset touches keep hitting.
func (s *Scanner) ScanDeDynamic(ctx context.Context, series *position.Series) (*Result, error) {
	return s.ranked(s.deDynamic(ctx, series))
}

// ScanDeSet looks for position pairs whose Bộ keeps containing the đề.
func (s *Scanner) ScanDeSet(ctx context.Context, series *position.Series) (*Result, error) {
	return s.ranked(s.deSet(ctx, series))
}

// ScanDePascal evaluates the three Pascal sources.
func (s *Scanner) ScanDePascal(ctx context.Context, series *position.Series) (*Result, error) {
	return s.ranked(s.dePascal(ctx, series))
}

// ScanDeMemory mines each trigger for the touch that most often followed
// the latest trigger digit.
func (s *Scanner) ScanDeMemory(ctx context.Context, series *position.Series) (*Result, error) {
	return s.ranked(s.deMemory(ctx, series))
}

// ScanDeKiller looks for position pairs whose touch has been absent from the
// đề for a long run. Results are audit-only.
func (s *Scanner) ScanDeKiller(ctx context.Context, series *position.Series) (*Result, error) {
	return s.ranked(s.deKiller(ctx, series))
}

func (s *Scanner) de(ctx context.Context, series *position.Series) (*Result, error) {
	modules := []func(context.Context, *position.Series) (*Result, error){
		s.deDynamic,
		s.dePosSum,
		s.deSet,
		s.dePascal,
		s.deMemory,
		s.deKiller,
	}

	total := &Result{}
	for _, scan := range modules {
		res, err := scan(ctx, series)
		if err != nil {
			return nil, err
		}
		total.Merge(res)
	}
	return total, nil
}

func (s *Scanner) dePosSum(ctx context.Context, series *position.Series) (*Result, error) {
	specs := DePairSpecs(domain.KindDePosSum, s.cfg.Scanner.DePositions, false)
	return s.scanDe(ctx, series, specs, true, true)
}

func (s *Scanner) deDynamic(ctx context.Context, series *position.Series) (*Result, error) {
	return s.scanDe(ctx, series, DynamicSpecs(), false, true)
}

func (s *Scanner) deSet(ctx context.Context, series *position.Series) (*Result, error) {
	specs := DePairSpecs(domain.KindDeSet, s.cfg.Scanner.DePositions, true)
	return s.scanDe(ctx, series, specs, true, true)
}

func (s *Scanner) dePascal(ctx context.Context, series *position.Series) (*Result, error) {
	specs := []domain.BridgeSpec{
		{Kind: domain.KindDePascal, OperandA: int(domain.PascalGDB)},
		{Kind: domain.KindDePascal, OperandA: int(domain.PascalG1)},
		{Kind: domain.KindDePascal, OperandA: int(domain.PascalGDBG1)},
	}
	return s.scanDe(ctx, series, specs, true, false)
}

func (s *Scanner) scanDe(ctx context.Context, series *position.Series, specs []domain.BridgeSpec, stopAfterStreak, validate bool) (*Result, error) {
	if series.Len() < MinDraws {
		return &Result{}, nil
	}
	recentLen := s.cfg.Backtest.RecentWindow

	found, err := s.parallel(ctx, specs, func(spec domain.BridgeSpec) *domain.Candidate {
		rule := bridge.MustFromSpec(spec)
		w := walkBack(series, rule, s.cfg.Scanner.ScanDepth, recentLen, stopAfterStreak)
		rate := w.rate(recentLen)
		if !Passes(s.cfg.Scanner.ProfileFor(spec.Kind), w.streak, w.recent, rate) {
			return nil
		}
		if validate && !s.validated(series, rule) {
			return nil
		}
		c := &domain.Candidate{
			Streak:     w.streak,
			RecentWins: w.recent,
			ShortRate:  rate,
		}
		s.describe(series, rule, c)
		return c
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Evaluated: len(specs)}
	s.collect(res, found)
	return res, nil
}

func (s *Scanner) deMemory(ctx context.Context, series *position.Series) (*Result, error) {
	if series.Len() < MinDraws {
		return &Result{}, nil
	}
	triggers := []domain.MemoryTrigger{domain.TriggerGDBTail, domain.TriggerGDBHead, domain.TriggerG1Tail}
	depth := s.cfg.Scanner.MemoryDepth

	res := &Result{Evaluated: len(triggers)}
	var found []domain.Candidate
	for _, trigger := range triggers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats, err := bridge.MinePattern(series, series.Len(), trigger, depth)
		if err != nil {
			continue
		}
		if stats.Total < s.cfg.Scanner.MinMemoryMatches || stats.Confidence < s.cfg.Scanner.MinMemoryConfidence {
			continue
		}

		spec := domain.BridgeSpec{Kind: domain.KindDeMemory, OperandA: int(trigger)}
		if depth != bridge.DefaultMemoryDepth {
			spec.OperandB = depth
		}
		c := &domain.Candidate{
			Streak:     int(stats.Confidence),
			RecentWins: int(stats.Confidence / 10),
			ShortRate:  stats.Confidence,
		}
		s.describe(series, bridge.MustFromSpec(spec), c)
		found = append(found, *c)
	}
	s.collect(res, found)
	return res, nil
}

func (s *Scanner) deKiller(ctx context.Context, series *position.Series) (*Result, error) {
	if series.Len() < MinDraws {
		return &Result{}, nil
	}
	specs := DePairSpecs(domain.KindDeKiller, s.cfg.Scanner.KillerPositions, false)

	found, err := s.parallel(ctx, specs, func(spec domain.BridgeSpec) *domain.Candidate {
		rule := bridge.MustFromSpec(spec)
		w := walkBack(series, rule, s.cfg.Scanner.ScanDepth, s.cfg.Backtest.RecentWindow, true)
		if w.streak < s.cfg.Scanner.MinKillerStreak {
			return nil
		}
		c := &domain.Candidate{Streak: w.streak, RecentWins: w.recent}
		s.describe(series, rule, c)
		return c
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Streak > found[j].Streak
	})
	if limit := s.cfg.Scanner.KillerMaxCount; limit > 0 && len(found) > limit {
		found = found[:limit]
	}

	res := &Result{Evaluated: len(specs)}
	s.collect(res, found)
	return res, nil
}
