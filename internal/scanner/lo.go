package scanner

import (
	"context"

	"lottery-bridge-lab/internal/backtest"
	"lottery-bridge-lab/internal/bridge"
	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/position"
)

// LoPositionSpecs enumerates LO_POS specs over the first n slots, i <= j.
func LoPositionSpecs(n int) []domain.BridgeSpec {
	specs := make([]domain.BridgeSpec, 0, n*(n+1)/2)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			specs = append(specs, domain.BridgeSpec{Kind: domain.KindLoPosition, OperandA: i, OperandB: j})
		}
	}
	return specs
}

// LoMemorySpecs enumerates LO_MEM_SUM and LO_MEM_DIFF specs over the
// memory lotos, i <= j.
func LoMemorySpecs() []domain.BridgeSpec {
	n := position.MemoryCount
	specs := make([]domain.BridgeSpec, 0, n*(n+1))
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			specs = append(specs,
				domain.BridgeSpec{Kind: domain.KindLoMemorySum, OperandA: i, OperandB: j},
				domain.BridgeSpec{Kind: domain.KindLoMemoryDiff, OperandA: i, OperandB: j},
			)
		}
	}
	return specs
}

// ScanLoPositions evaluates every position pair over the scan window.
func (s *Scanner) ScanLoPositions(ctx context.Context, series *position.Series) (*Result, error) {
	return s.ranked(s.loPositions(ctx, series))
}

// ScanLoMemory evaluates every memory-loto pair over the scan window.
func (s *Scanner) ScanLoMemory(ctx context.Context, series *position.Series) (*Result, error) {
	return s.ranked(s.loMemory(ctx, series))
}

func (s *Scanner) loPositions(ctx context.Context, series *position.Series) (*Result, error) {
	return s.scanLo(ctx, series, LoPositionSpecs(s.cfg.Scanner.Positions), s.cfg.Scanner.LoProfile)
}

func (s *Scanner) loMemory(ctx context.Context, series *position.Series) (*Result, error) {
	return s.scanLo(ctx, series, LoMemorySpecs(), s.cfg.Scanner.MemoryProfile)
}

func (s *Scanner) scanLo(ctx context.Context, series *position.Series, specs []domain.BridgeSpec, profile config.Profile) (*Result, error) {
	if series.Len() < MinDraws {
		return &Result{}, nil
	}
	window := series.Tail(s.cfg.Scanner.ScanDepth + 1)

	found, err := s.parallel(ctx, specs, func(spec domain.BridgeSpec) *domain.Candidate {
		rule := bridge.MustFromSpec(spec)
		short := backtest.Run(window, rule, backtest.Options{
			Mode:         backtest.ModeN1,
			RecentWindow: s.cfg.Backtest.RecentWindow,
		})
		m := short.Metrics
		if !Passes(profile, m.Streak, m.RecentWins, m.WinRate) {
			return nil
		}
		c := &domain.Candidate{
			Streak:     m.Streak,
			RecentWins: m.RecentWins,
			ShortRate:  m.WinRate,
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
