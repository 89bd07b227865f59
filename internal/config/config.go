// Package config holds the immutable engine configuration.
// A Config value is built once (defaults, optional YAML file, environment
// overrides) and passed explicitly into every engine call.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"lottery-bridge-lab/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. BRIDGE_SCANNER_WORKERS.
const EnvPrefix = "BRIDGE_"

// Vote weighting modes.
const (
	VoteLinear = "linear"
	VoteSqrt   = "sqrt"
)

// Backtest modes.
const (
	ModeK2N = "K2N"
	ModeN1  = "N1"
)

// Validation errors.
var (
	ErrInvalidThresholds    = errors.New("remove threshold must not exceed add threshold")
	ErrInvalidVoteWeighting = errors.New("vote weighting must be linear or sqrt")
	ErrInvalidPositions     = errors.New("scanner positions must be 107 or 214")
	ErrInvalidWindow        = errors.New("window sizes must be positive")
	ErrInvalidMode          = errors.New("backtest mode must be K2N or N1")
)

// Config is the complete engine configuration.
type Config struct {
	Backtest  BacktestConfig  `yaml:"backtest" envPrefix:"BACKTEST_"`
	Scanner   ScannerConfig   `yaml:"scanner" envPrefix:"SCANNER_"`
	Lifecycle LifecycleConfig `yaml:"lifecycle" envPrefix:"LIFECYCLE_"`
	Scoring   ScoringConfig   `yaml:"scoring" envPrefix:"SCORING_"`
	DeScoring DeScoringConfig `yaml:"de_scoring" envPrefix:"DE_SCORING_"`
	Stats     StatsConfig     `yaml:"stats" envPrefix:"STATS_"`
}

// BacktestConfig configures the frame state machine.
type BacktestConfig struct {
	RecentWindow int    `yaml:"recent_window" env:"RECENT_WINDOW"` // resolved outcomes counted as "recent"
	HistoryLimit int    `yaml:"history_limit" env:"HISTORY_LIMIT"` // most recent draws replayed, 0 = all
	LoMode       string `yaml:"lo_mode" env:"LO_MODE"`
	DeMode       string `yaml:"de_mode" env:"DE_MODE"`
}

// Profile is a candidate filter.
// RequireBoth=false: Streak >= MinStreak OR RecentWins >= MinRecentWins.
// RequireBoth=true: both must hold.
// MinRate additionally gates on the short-horizon rate when positive.
type Profile struct {
	MinStreak     int     `yaml:"min_streak" env:"MIN_STREAK"`
	MinRecentWins int     `yaml:"min_recent_wins" env:"MIN_RECENT_WINS"`
	RequireBoth   bool    `yaml:"require_both" env:"REQUIRE_BOTH"`
	MinRate       float64 `yaml:"min_rate" env:"MIN_RATE"`
}

// ScannerConfig configures the bridge scanner.
type ScannerConfig struct {
	Positions int `yaml:"positions" env:"POSITIONS"` // 107 canonical or 214 with mirrors
	Workers   int `yaml:"workers" env:"WORKERS"`     // 0 = GOMAXPROCS
	ScanDepth int `yaml:"scan_depth" env:"SCAN_DEPTH"`

	LoProfile      Profile `yaml:"lo_profile" envPrefix:"LO_"`
	MemoryProfile  Profile `yaml:"memory_profile" envPrefix:"MEMORY_"`
	DeProfile      Profile `yaml:"de_profile" envPrefix:"DE_"`
	DynamicProfile Profile `yaml:"dynamic_profile" envPrefix:"DYNAMIC_"`
	SetProfile     Profile `yaml:"set_profile" envPrefix:"SET_"`

	DePositions         int     `yaml:"de_positions" env:"DE_POSITIONS"`
	KillerPositions     int     `yaml:"killer_positions" env:"KILLER_POSITIONS"`
	MinKillerStreak     int     `yaml:"min_killer_streak" env:"MIN_KILLER_STREAK"`
	KillerMaxCount      int     `yaml:"killer_max_count" env:"KILLER_MAX_COUNT"`
	MemoryDepth         int     `yaml:"memory_depth" env:"MEMORY_DEPTH"`
	MinMemoryMatches    int     `yaml:"min_memory_matches" env:"MIN_MEMORY_MATCHES"`
	MinMemoryConfidence float64 `yaml:"min_memory_confidence" env:"MIN_MEMORY_CONFIDENCE"`
	ValidationLen       int     `yaml:"validation_len" env:"VALIDATION_LEN"`
	MinValidationWins   int     `yaml:"min_validation_wins" env:"MIN_VALIDATION_WINS"`

	TouchComboSize   int `yaml:"touch_combo_size" env:"TOUCH_COMBO_SIZE"`
	TouchComboWindow int `yaml:"touch_combo_window" env:"TOUCH_COMBO_WINDOW"`
	ThongMinConsec   int `yaml:"thong_min_consec" env:"THONG_MIN_CONSEC"`

	Revive        bool `yaml:"revive" env:"REVIVE"`
	MaxCandidates int  `yaml:"max_candidates" env:"MAX_CANDIDATES"` // per scan, 0 = unlimited
}

// Thresholds is a hysteresis band: disable below Remove, enable at Add.
type Thresholds struct {
	Remove float64 `yaml:"remove" env:"REMOVE"`
	Add    float64 `yaml:"add" env:"ADD"`
}

// LifecycleConfig configures managed-bridge retention.
type LifecycleConfig struct {
	Lo              Thresholds `yaml:"lo" envPrefix:"LO_"`
	De              Thresholds `yaml:"de" envPrefix:"DE_"`
	RecomputeWindow int        `yaml:"recompute_window" env:"RECOMPUTE_WINDOW"` // draws replayed on recompute, 0 = all
	SeedClassic     bool       `yaml:"seed_classic" env:"SEED_CLASSIC"`         // keep the fixed classic Lô bridges in the catalog
}

// FormTier grants Bonus to enabled bridges with at least MinWins recent wins.
type FormTier struct {
	MinWins int     `yaml:"min_wins"`
	Bonus   float64 `yaml:"bonus"`
}

// ScoringConfig configures the Lô pair aggregator.
type ScoringConfig struct {
	VoteWeighting string  `yaml:"vote_weighting" env:"VOTE_WEIGHTING"`
	VoteWeight    float64 `yaml:"vote_weight" env:"VOTE_WEIGHT"`

	HighWinThreshold float64 `yaml:"high_win_threshold" env:"HIGH_WIN_THRESHOLD"`
	HighWinBonus     float64 `yaml:"high_win_bonus" env:"HIGH_WIN_BONUS"`

	RiskStartThreshold  int     `yaml:"risk_start_threshold" env:"RISK_START_THRESHOLD"`
	RiskPenaltyPerFrame float64 `yaml:"risk_penalty_per_frame" env:"RISK_PENALTY_PER_FRAME"`

	MemoryTopN  int     `yaml:"memory_top_n" env:"MEMORY_TOP_N"`
	MemoryBonus float64 `yaml:"memory_bonus" env:"MEMORY_BONUS"`

	HotBonus     float64 `yaml:"hot_bonus" env:"HOT_BONUS"`
	Recent3Bonus float64 `yaml:"recent3_bonus" env:"RECENT3_BONUS"`
	Recent7Bonus float64 `yaml:"recent7_bonus" env:"RECENT7_BONUS"`

	FormTiers []FormTier `yaml:"form_tiers"`

	ProbabilityWeight       float64 `yaml:"probability_weight" env:"PROBABILITY_WEIGHT"`
	CleanPairMinProbability float64 `yaml:"clean_pair_min_probability" env:"CLEAN_PAIR_MIN_PROBABILITY"`

	PlayMinScore       float64 `yaml:"play_min_score" env:"PLAY_MIN_SCORE"`
	PlayMinSources     int     `yaml:"play_min_sources" env:"PLAY_MIN_SOURCES"`
	ConsiderMinScore   float64 `yaml:"consider_min_score" env:"CONSIDER_MIN_SCORE"`
	ConsiderMinSources int     `yaml:"consider_min_sources" env:"CONSIDER_MIN_SOURCES"`
	SignalGroups       int     `yaml:"signal_groups" env:"SIGNAL_GROUPS"`
}

// DeScoringConfig configures the Đề number aggregator.
type DeScoringConfig struct {
	BaseScore          float64 `yaml:"base_score" env:"BASE_SCORE"`
	FrequencyWeight    float64 `yaml:"frequency_weight" env:"FREQUENCY_WEIGHT"`
	TrendWindow        int     `yaml:"trend_window" env:"TREND_WINDOW"`
	GanThreshold       int     `yaml:"gan_threshold" env:"GAN_THRESHOLD"`
	GanPenaltyPerDay   float64 `yaml:"gan_penalty_per_day" env:"GAN_PENALTY_PER_DAY"`
	SmallGroupMax      int     `yaml:"small_group_max" env:"SMALL_GROUP_MAX"`
	SmallGroupConstant float64 `yaml:"small_group_constant" env:"SMALL_GROUP_CONSTANT"`
	LargeGroupConstant float64 `yaml:"large_group_constant" env:"LARGE_GROUP_CONSTANT"`
	StreakFactor       float64 `yaml:"streak_factor" env:"STREAK_FACTOR"`
	DuplicateBonus     float64 `yaml:"duplicate_bonus" env:"DUPLICATE_BONUS"`
	RecentDays         int     `yaml:"recent_days" env:"RECENT_DAYS"`
	RecentBonus        float64 `yaml:"recent_bonus" env:"RECENT_BONUS"`
}

// StatsConfig configures market statistics windows.
type StatsConfig struct {
	HotDays int `yaml:"hot_days" env:"HOT_DAYS"`
	HotTopN int `yaml:"hot_top_n" env:"HOT_TOP_N"`
	GanDays int `yaml:"gan_days" env:"GAN_DAYS"`
}

// Default returns the latest tuned defaults.
func Default() Config {
	return Config{
		Backtest: BacktestConfig{
			RecentWindow: 10,
			HistoryLimit: 500,
			LoMode:       ModeK2N,
			DeMode:       ModeN1,
		},
		Scanner: ScannerConfig{
			Positions:      214,
			ScanDepth:      30,
			LoProfile:      Profile{MinStreak: 5, MinRecentWins: 8, MinRate: 50},
			MemoryProfile:  Profile{MinStreak: 5, MinRecentWins: 8, MinRate: 50},
			DeProfile:      Profile{MinStreak: 3, MinRecentWins: 7},
			DynamicProfile: Profile{MinStreak: 8, MinRecentWins: 9},
			SetProfile:     Profile{MinStreak: 2, MinRecentWins: 2, RequireBoth: true},

			DePositions:         50,
			KillerPositions:     40,
			MinKillerStreak:     12,
			KillerMaxCount:      15,
			MemoryDepth:         90,
			MinMemoryMatches:    5,
			MinMemoryConfidence: 60,
			ValidationLen:       15,
			MinValidationWins:   2,

			TouchComboSize:   4,
			TouchComboWindow: 30,
			ThongMinConsec:   8,

			Revive: true,
		},
		Lifecycle: LifecycleConfig{
			Lo:          Thresholds{Remove: 43, Add: 45},
			De:          Thresholds{Remove: 80, Add: 88},
			SeedClassic: true,
		},
		Scoring: ScoringConfig{
			VoteWeighting:       VoteSqrt,
			VoteWeight:          0.3,
			HighWinThreshold:    47,
			HighWinBonus:        2.5,
			RiskStartThreshold:  4,
			RiskPenaltyPerFrame: 0.5,
			MemoryTopN:          5,
			MemoryBonus:         1.5,
			HotBonus:            1.0,
			Recent3Bonus:        2.0,
			Recent7Bonus:        1.0,
			FormTiers: []FormTier{
				{MinWins: 8, Bonus: 3},
				{MinWins: 6, Bonus: 2},
				{MinWins: 5, Bonus: 1},
			},
			ProbabilityWeight:       0.2,
			CleanPairMinProbability: 0.45,
			PlayMinScore:            7,
			PlayMinSources:          4,
			ConsiderMinScore:        5,
			ConsiderMinSources:      3,
			SignalGroups:            7,
		},
		DeScoring: DeScoringConfig{
			BaseScore:          10,
			FrequencyWeight:    0.5,
			TrendWindow:        30,
			GanThreshold:       20,
			GanPenaltyPerDay:   0.2,
			SmallGroupMax:      12,
			SmallGroupConstant: 40,
			LargeGroupConstant: 3,
			StreakFactor:       0.15,
			DuplicateBonus:     0.5,
			RecentDays:         7,
			RecentBonus:        1.0,
		},
		Stats: StatsConfig{
			HotDays: 7,
			HotTopN: 10,
			GanDays: 15,
		},
	}
}

// Load builds a Config from defaults, an optional YAML file and
// BRIDGE_* environment overrides, in that order.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cross-field invariants.
func (c Config) Validate() error {
	if c.Lifecycle.Lo.Remove > c.Lifecycle.Lo.Add || c.Lifecycle.De.Remove > c.Lifecycle.De.Add {
		return ErrInvalidThresholds
	}
	if c.Scoring.VoteWeighting != VoteLinear && c.Scoring.VoteWeighting != VoteSqrt {
		return ErrInvalidVoteWeighting
	}
	if c.Scanner.Positions != 107 && c.Scanner.Positions != 214 {
		return ErrInvalidPositions
	}
	if c.Backtest.RecentWindow <= 0 || c.Scanner.ScanDepth <= 0 || c.Scanner.TouchComboWindow <= 0 {
		return ErrInvalidWindow
	}
	for _, m := range []string{c.Backtest.LoMode, c.Backtest.DeMode} {
		if m != ModeK2N && m != ModeN1 {
			return ErrInvalidMode
		}
	}
	return nil
}

// ThresholdsFor returns the lifecycle band of a market.
func (c Config) ThresholdsFor(market domain.Market) Thresholds {
	if market == domain.MarketDe {
		return c.Lifecycle.De
	}
	return c.Lifecycle.Lo
}

// ProfileFor returns the candidate filter of a bridge kind.
func (c ScannerConfig) ProfileFor(kind domain.BridgeKind) Profile {
	switch kind {
	case domain.KindLoPosition, domain.KindLoClassic:
		return c.LoProfile
	case domain.KindLoMemorySum, domain.KindLoMemoryDiff:
		return c.MemoryProfile
	case domain.KindDeSet:
		return c.SetProfile
	case domain.KindDeDynamic:
		return c.DynamicProfile
	default:
		return c.DeProfile
	}
}
