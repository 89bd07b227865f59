package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"testing"

	"lottery-bridge-lab/internal/bridge"
	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/position"
)

// deDraw builds a complete draw whose special prize is "ab0" + tail.
func deDraw(period string, a, b int, tail string) domain.Draw {
	return domain.Draw{
		PeriodID: period,
		Tiers: [domain.TierCount]string{
			fmt.Sprintf("%d%d0%s", a, b, tail),
			"67890",
			"11111,22222",
			"30001,30002,30003,30004,30005,30006",
			"4001,4002,4003,4004",
			"5001,5002,5003,5004,5005,5006",
			"601,602,603",
			"71,72,73,74",
		},
	}
}

// sumSeries builds n draws where GDB[0]+GDB[1] of each draw gives the touch
// of the next draw's đề. With miss, the next đề avoids that touch instead.
func sumSeries(n int, miss bool) *position.Series {
	rng := rand.New(rand.NewSource(11))
	draws := make([]domain.Draw, n)
	prev := 0
	for i := range draws {
		t := prev
		if miss {
			t = (prev + 1) % 10
		}
		a, b := rng.Intn(10), rng.Intn(10)
		draws[i] = deDraw(fmt.Sprintf("p%02d", i), a, b, fmt.Sprintf("%d%d", t, t))
		prev = (a + b) % 10
	}
	return position.NewSeries(draws)
}

func randomSeries(n int, seed int64) *position.Series {
	rng := rand.New(rand.NewSource(seed))
	num := func(width int) string {
		v := 1
		for i := 0; i < width; i++ {
			v *= 10
		}
		return fmt.Sprintf("%0*d", width, rng.Intn(v))
	}
	list := func(count, width int) string {
		out := num(width)
		for i := 1; i < count; i++ {
			out += "," + num(width)
		}
		return out
	}
	draws := make([]domain.Draw, n)
	for i := range draws {
		draws[i] = domain.Draw{
			PeriodID: fmt.Sprintf("p%03d", i),
			Tiers: [domain.TierCount]string{
				num(5), num(5), list(2, 5), list(6, 5), list(4, 4), list(6, 4), list(3, 3), list(4, 2),
			},
		}
	}
	return position.NewSeries(draws)
}

func newTestScanner(cfg config.Config, managed ...*domain.ManagedBridge) *Scanner {
	return New(Options{
		Config:  cfg,
		Managed: managed,
		Logger:  log.New(io.Discard, "", 0),
	})
}

func findSpec(list []domain.Candidate, spec domain.BridgeSpec) (domain.Candidate, bool) {
	for _, c := range list {
		if c.Spec == spec {
			return c, true
		}
	}
	return domain.Candidate{}, false
}

func TestScanDePosSum_FindsPerfectBridge(t *testing.T) {
	s := newTestScanner(config.Default())
	res, err := s.ScanDePosSum(context.Background(), sumSeries(20, false))
	if err != nil {
		t.Fatalf("ScanDePosSum failed: %v", err)
	}

	spec := domain.BridgeSpec{Kind: domain.KindDePosSum, OperandA: 0, OperandB: 1}
	c, ok := findSpec(res.Candidates, spec)
	if !ok {
		t.Fatalf("bridge %s not found among %d candidates", bridge.Name(spec), len(res.Candidates))
	}
	if c.Streak != 19 {
		t.Errorf("expected streak 19, got %d", c.Streak)
	}
	if c.RecentWins != 10 || c.ShortRate != 100 {
		t.Errorf("expected 10/10 recent wins, got %d (%.1f%%)", c.RecentWins, c.ShortRate)
	}
	if c.FrameRate != 100 || c.RatesMissing {
		t.Errorf("expected a 100%% frame rate, got %.1f (missing=%v)", c.FrameRate, c.RatesMissing)
	}
	if c.Name != "DE_POS_GDB_0__GDB_1" || c.NormalizedName != bridge.NormalizeName(c.Name) {
		t.Errorf("unexpected names %q / %q", c.Name, c.NormalizedName)
	}
	if c.Next.Kind != domain.PredictTouch || len(c.Next.Touches) != 1 {
		t.Errorf("unexpected next prediction %+v", c.Next)
	}
}

func TestScan_ManagedBridges(t *testing.T) {
	spec := domain.BridgeSpec{Kind: domain.KindDePosSum, OperandA: 0, OperandB: 1}
	name := bridge.Name(spec)
	managed := &domain.ManagedBridge{
		BridgeID:       "b1",
		Name:           name,
		NormalizedName: bridge.NormalizeName(name),
		Spec:           spec,
	}
	series := sumSeries(20, false)

	tests := []struct {
		name        string
		enabled     bool
		revive      bool
		wantRevived bool
	}{
		{"enabled is dropped", true, true, false},
		{"disabled is revived", false, true, true},
		{"disabled without revive is dropped", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Scanner.Revive = tt.revive
			b := *managed
			b.Enabled = tt.enabled

			res, err := newTestScanner(cfg, &b).ScanDePosSum(context.Background(), series)
			if err != nil {
				t.Fatalf("scan failed: %v", err)
			}
			if _, ok := findSpec(res.Candidates, spec); ok {
				t.Error("managed bridge reported as a new candidate")
			}
			if _, ok := findSpec(res.Revived, spec); ok != tt.wantRevived {
				t.Errorf("revived=%v, want %v", ok, tt.wantRevived)
			}
		})
	}
}

func TestScanDeKiller_AuditOnly(t *testing.T) {
	s := newTestScanner(config.Default())
	res, err := s.ScanDeKiller(context.Background(), sumSeries(20, true))
	if err != nil {
		t.Fatalf("ScanDeKiller failed: %v", err)
	}
	if len(res.Candidates) != 0 || len(res.Revived) != 0 {
		t.Fatalf("killers must only be reported for audit, got %d candidates", len(res.Candidates))
	}

	spec := domain.BridgeSpec{Kind: domain.KindDeKiller, OperandA: 0, OperandB: 1}
	c, ok := findSpec(res.Audit, spec)
	if !ok {
		t.Fatalf("killer %s not found among %d audit entries", bridge.Name(spec), len(res.Audit))
	}
	if c.Streak != 19 || !c.Audit {
		t.Errorf("unexpected killer %+v", c)
	}
	if len(res.Audit) > config.Default().Scanner.KillerMaxCount {
		t.Errorf("audit list exceeds the killer limit: %d", len(res.Audit))
	}
	for i := 1; i < len(res.Audit); i++ {
		if res.Audit[i].Streak > res.Audit[i-1].Streak {
			t.Fatalf("killers not ordered by streak at %d", i)
		}
	}
}

func TestScanLo_CandidatesSatisfyProfile(t *testing.T) {
	cfg := config.Default()
	cfg.Scanner.Positions = 107
	cfg.Scanner.LoProfile = config.Profile{MinStreak: 2, MinRecentWins: 6}
	cfg.Scanner.MemoryProfile = config.Profile{MinStreak: 2, MinRecentWins: 6}
	s := newTestScanner(cfg)
	series := randomSeries(60, 3)

	for _, scan := range []struct {
		name    string
		run     func(context.Context, *position.Series) (*Result, error)
		profile config.Profile
	}{
		{"positions", s.ScanLoPositions, cfg.Scanner.LoProfile},
		{"memory", s.ScanLoMemory, cfg.Scanner.MemoryProfile},
	} {
		t.Run(scan.name, func(t *testing.T) {
			res, err := scan.run(context.Background(), series)
			if err != nil {
				t.Fatalf("scan failed: %v", err)
			}
			if len(res.Candidates) == 0 {
				t.Fatal("expected some candidates with a lax profile")
			}
			seen := make(map[string]bool)
			for i, c := range res.Candidates {
				if !Passes(scan.profile, c.Streak, c.RecentWins, c.ShortRate) {
					t.Errorf("%s does not satisfy the profile: %+v", c.Name, c)
				}
				if seen[c.NormalizedName] {
					t.Errorf("duplicate candidate %s", c.Name)
				}
				seen[c.NormalizedName] = true
				if i > 0 && c.Score > res.Candidates[i-1].Score {
					t.Errorf("candidates not ranked at %d", i)
				}
				if c.Spec.Kind.Market() != domain.MarketLo {
					t.Errorf("unexpected kind %s", c.Spec.Kind)
				}
			}
		})
	}
}

func TestScanDe_SetProfileRequiresBoth(t *testing.T) {
	cfg := config.Default()
	cfg.Scanner.ScanDepth = 20
	s := newTestScanner(cfg)

	res, err := s.ScanDeSet(context.Background(), randomSeries(80, 5))
	if err != nil {
		t.Fatalf("ScanDeSet failed: %v", err)
	}
	p := cfg.Scanner.SetProfile
	for _, c := range res.Candidates {
		if c.Streak < p.MinStreak || c.RecentWins < p.MinRecentWins {
			t.Errorf("%s passed with streak %d and %d recent wins", c.Name, c.Streak, c.RecentWins)
		}
		if c.Spec.OperandA >= c.Spec.OperandB {
			t.Errorf("set bridges use distinct positions, got %+v", c.Spec)
		}
	}
}

func TestScanAll(t *testing.T) {
	cfg := config.Default()
	cfg.Scanner.Positions = 107
	cfg.Scanner.MaxCandidates = 25
	s := newTestScanner(cfg)

	res, err := s.ScanAll(context.Background(), randomSeries(70, 9))
	if err != nil {
		t.Fatalf("ScanAll failed: %v", err)
	}
	if len(res.Candidates) > 25 {
		t.Errorf("expected at most 25 candidates, got %d", len(res.Candidates))
	}
	for i := 1; i < len(res.Candidates); i++ {
		if res.Candidates[i].Score > res.Candidates[i-1].Score {
			t.Fatalf("candidates not ranked at %d", i)
		}
	}
	for _, c := range res.Candidates {
		if c.Audit {
			t.Errorf("audit candidate %s among promotable ones", c.Name)
		}
	}
	if res.Evaluated == 0 {
		t.Error("expected evaluated specs to be counted")
	}
}

func TestScan_Cancelled(t *testing.T) {
	s := newTestScanner(config.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.ScanLoPositions(ctx, randomSeries(30, 1)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if _, err := s.ScanDe(ctx, randomSeries(30, 1)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestScan_TooFewDraws(t *testing.T) {
	s := newTestScanner(config.Default())
	ctx := context.Background()

	scans := map[string]func(context.Context, *position.Series) (*Result, error){
		"all":       s.ScanAll,
		"lo pos":    s.ScanLoPositions,
		"lo memory": s.ScanLoMemory,
		"de":        s.ScanDe,
		"de memory": s.ScanDeMemory,
		"de killer": s.ScanDeKiller,
	}
	for name, scan := range scans {
		for _, n := range []int{0, 1} {
			t.Run(fmt.Sprintf("%s/%d", name, n), func(t *testing.T) {
				res, err := scan(ctx, randomSeries(n, 1))
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if res == nil {
					t.Fatal("expected an empty result, got nil")
				}
				if len(res.Candidates)+len(res.Revived)+len(res.Audit) != 0 || res.Evaluated != 0 {
					t.Errorf("expected an empty result, got %+v", res)
				}
			})
		}
	}
}

func TestScanAll_RanksMergedResultOnce(t *testing.T) {
	cfg := config.Default()
	cfg.Scanner.Positions = 107
	series := randomSeries(70, 9)
	ctx := context.Background()

	full, err := newTestScanner(cfg).ScanAll(ctx, series)
	if err != nil {
		t.Fatalf("ScanAll failed: %v", err)
	}

	var evaluated int
	for _, scan := range []func(context.Context, *position.Series) (*Result, error){
		newTestScanner(cfg).ScanLoPositions,
		newTestScanner(cfg).ScanLoMemory,
		newTestScanner(cfg).ScanDe,
	} {
		res, err := scan(ctx, series)
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		evaluated += res.Evaluated
	}
	if full.Evaluated != evaluated {
		t.Errorf("expected %d evaluated, got %d", evaluated, full.Evaluated)
	}
	if len(full.Candidates) < 2 {
		t.Skipf("only %d candidates on this history", len(full.Candidates))
	}

	limit := len(full.Candidates) / 2
	cfg.Scanner.MaxCandidates = limit
	limited, err := newTestScanner(cfg).ScanAll(ctx, series)
	if err != nil {
		t.Fatalf("ScanAll failed: %v", err)
	}
	if len(limited.Candidates) != limit {
		t.Fatalf("expected %d candidates, got %d", limit, len(limited.Candidates))
	}
	for i, c := range limited.Candidates {
		if c.Name != full.Candidates[i].Name || c.Score != full.Candidates[i].Score {
			t.Errorf("rank %d: expected %s (%.2f), got %s (%.2f)",
				i, full.Candidates[i].Name, full.Candidates[i].Score, c.Name, c.Score)
		}
	}
}

func TestPasses(t *testing.T) {
	or := config.Profile{MinStreak: 5, MinRecentWins: 8}
	and := config.Profile{MinStreak: 2, MinRecentWins: 2, RequireBoth: true}
	rated := config.Profile{MinStreak: 5, MinRecentWins: 8, MinRate: 50}

	tests := []struct {
		name   string
		p      config.Profile
		streak int
		recent int
		rate   float64
		want   bool
	}{
		{"or: streak only", or, 5, 0, 0, true},
		{"or: rescue by recent wins", or, 0, 8, 0, true},
		{"or: neither", or, 4, 7, 0, false},
		{"and: both", and, 2, 2, 0, true},
		{"and: streak only", and, 9, 1, 0, false},
		{"and: recent only", and, 1, 9, 0, false},
		{"rate gate passes", rated, 6, 0, 50, true},
		{"rate gate blocks", rated, 6, 0, 49.9, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Passes(tt.p, tt.streak, tt.recent, tt.rate); got != tt.want {
				t.Errorf("Passes = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRankingScore(t *testing.T) {
	tests := []struct {
		kind   domain.BridgeKind
		streak int
		wins   int
		want   float64
	}{
		{domain.KindDePosSum, 4, 6, 12},
		{domain.KindDePosSum, 4, 8, 15.5},
		{domain.KindDeSet, 2, 3, 8},
		{domain.KindDePascal, 2, 3, 7},
		{domain.KindDeMemory, 70, 7, 18.5},
		{domain.KindDeKiller, 13, 0, 26},
		{domain.KindLoPosition, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := RankingScore(tt.kind, tt.streak, tt.wins); got != tt.want {
				t.Errorf("RankingScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWalkBack(t *testing.T) {
	// Tails: hit, hit, miss, hit, hit (oldest to latest, from day 1).
	draws := []domain.Draw{deDraw("p0", 1, 1, "00")}
	for i, tail := range []string{"22", "22", "99", "22", "22"} {
		draws = append(draws, deDraw(fmt.Sprintf("p%d", i+1), 1, 1, tail))
	}
	series := position.NewSeries(draws)
	rule := bridge.MustFromSpec(domain.BridgeSpec{Kind: domain.KindDePosSum, OperandA: 0, OperandB: 1})

	w := walkBack(series, rule, 30, 10, true)
	if w.streak != 2 || w.recent != 2 {
		t.Errorf("stopping walk: got streak %d recent %d", w.streak, w.recent)
	}

	w = walkBack(series, rule, 30, 10, false)
	if w.streak != 2 || w.recent != 4 || w.checked != 5 {
		t.Errorf("full walk: got %+v", w)
	}

	w = walkBack(series, rule, 1, 10, false)
	if w.checked != 1 {
		t.Errorf("depth limit ignored: %+v", w)
	}
}

func TestTouchCombinations(t *testing.T) {
	draws := []domain.Draw{}
	for i, tail := range []string{"12", "34", "15", "16", "17"} {
		draws = append(draws, deDraw(fmt.Sprintf("p%d", i), 0, 0, tail))
	}
	series := position.NewSeries(draws)

	combos := TouchCombinations(series, 4, 30, 3)
	if len(combos) != 10+45+120+210 {
		t.Fatalf("expected 385 combinations, got %d", len(combos))
	}

	top := combos[0]
	if fmt.Sprint(top.Touches) != "[1 3]" || top.ConsecutiveEnd != 5 || top.RatePercent != 100 || !top.Thong {
		t.Errorf("unexpected top combination %+v", top)
	}

	for _, c := range combos {
		if fmt.Sprint(c.Touches) == "[1]" {
			if c.Hits != 4 || c.MaxConsecutive != 3 || c.ConsecutiveEnd != 3 || !c.Thong || c.Window != 5 {
				t.Errorf("unexpected stats for touch 1: %+v", c)
			}
		}
		if fmt.Sprint(c.Touches) == "[9]" && (c.Hits != 0 || c.Thong) {
			t.Errorf("touch 9 never hits: %+v", c)
		}
	}
}
