package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"lottery-bridge-lab/internal/backtest"
	"lottery-bridge-lab/internal/bridge"
	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/idhash"
	"lottery-bridge-lab/internal/ingestion"
	"lottery-bridge-lab/internal/observability"
	"lottery-bridge-lab/internal/position"
	"lottery-bridge-lab/internal/reporting"
	"lottery-bridge-lab/internal/session"
	"lottery-bridge-lab/internal/storage/backend"
	"lottery-bridge-lab/internal/verification"
)

func main() {
	// Bridge
	kind := flag.String("kind", "", "Bridge kind, e.g. LO_POS, DE_POS_SUM, DE_PASCAL (required unless -all)")
	operandA := flag.String("a", "0", "Operand A: slot index or name (GDB[2], G3.2[4]), or a kind-specific number")
	operandB := flag.String("b", "0", "Operand B, same forms as -a")
	kOffset := flag.Int("k", 0, "K offset for DE_DYNAMIC")
	all := flag.Bool("all", false, "Backtest every managed bridge instead of one spec")
	verify := flag.Bool("verify", false, "Check stored catalog metrics against a fresh replay and exit")

	// Replay
	mode := flag.String("mode", "", "Frame mode K2N or N1 (default from config per kind)")
	start := flag.Int("start", 0, "First draw index of the window")
	end := flag.Int("end", 0, "End draw index of the window, exclusive (0 = all)")

	// Storage
	configPath := flag.String("config", "", "YAML config file")
	catalogDSN := flag.String("db", backend.MemoryDSN, "Catalog store: memory, sqlite:///path.db or postgres://...")
	analyticsDSN := flag.String("analytics", backend.MemoryDSN, "History store: memory or clickhouse://...")
	migrate := flag.Bool("migrate", false, "Apply migrations before running")
	csvPath := flag.String("csv", "", "Import draws from a CSV file first")

	// Output
	format := flag.String("format", "text", "Output format: text, json, csv (csv prints day history)")
	persist := flag.Bool("persist", false, "Persist day history to the history store")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	if !*all && !*verify && *kind == "" {
		logger.Fatal("--kind is required (or use --all / --verify)")
	}
	*format = strings.ToLower(*format)
	if *format != "text" && *format != "json" && *format != "csv" {
		logger.Fatalf("Invalid format: %s. Must be text, json or csv", *format)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	stores, err := backend.Open(ctx, backend.Options{
		CatalogDSN:   *catalogDSN,
		AnalyticsDSN: *analyticsDSN,
		Migrate:      *migrate,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatalf("open stores: %v", err)
	}

	if *csvPath != "" {
		res, err := ingestion.ImportFile(ctx, *csvPath, stores.Draws, logger)
		if err != nil {
			_ = stores.Close()
			logger.Fatalf("import %s: %v", *csvPath, err)
		}
		logger.Printf("Imported %d draws from %s", res.Imported, *csvPath)
	}

	sess, err := session.Open(ctx, session.Options{
		Config:  cfg,
		Draws:   stores.Draws,
		Bridges: stores.Bridges,
		Limit:   cfg.Backtest.HistoryLimit,
		Closers: stores.Closers(),
		Logger:  logger,
	})
	if err != nil {
		_ = stores.Close()
		logger.Fatalf("open session: %v", err)
	}
	defer sess.Close()

	series := sess.Series()
	if *end == 0 {
		*end = series.Len()
	}

	runner := backtest.NewRunner(stores.History, logger)
	runID := idhash.NewRunID()

	if *verify {
		if !runVerify(ctx, logger, sess) {
			sess.Close()
			os.Exit(1)
		}
		return
	}

	if *all {
		runManaged(ctx, logger, runner, sess, runID, *mode, *start, *end, *persist, *format)
		return
	}

	spec, err := buildSpec(*kind, *operandA, *operandB, *kOffset)
	if err != nil {
		logger.Fatalf("invalid bridge: %v", err)
	}
	opts, err := buildOptions(cfg, spec.Kind, *mode)
	if err != nil {
		logger.Fatal(err)
	}
	opts.History = *persist || *format == "csv"

	logger.Printf("Running backtest: bridge=%s mode=%s window=[%d,%d) of %d draws",
		bridge.Name(spec), opts.Mode, *start, *end, series.Len())

	began := time.Now()
	res, err := runner.RunRange(ctx, series, spec, *start, *end, opts)
	if err != nil {
		logger.Fatalf("backtest failed: %v", err)
	}
	observability.RecordBacktestDuration(time.Since(began).Seconds())
	recordStatuses(res)

	if *persist {
		if err := runner.Persist(ctx, runID, idhash.ComputeBridgeID(spec), res); err != nil {
			logger.Fatalf("persist history: %v", err)
		}
		logger.Printf("Persisted %d history rows under run %s", len(res.History), runID)
	}

	switch *format {
	case "json":
		output, _ := json.MarshalIndent(newResultJSON(res), "", "  ")
		fmt.Println(string(output))
	case "csv":
		if err := reporting.WriteHistoryCSV(os.Stdout, res.History); err != nil {
			logger.Fatalf("write csv: %v", err)
		}
	default:
		printResult(res)
	}
}

// runManaged backtests the managed catalog and prints one line per bridge.
func runManaged(ctx context.Context, logger *log.Logger, runner *backtest.Runner, sess *session.Session,
	runID, mode string, start, end int, persist bool, format string) {
	bridges := sess.Bridges()
	if len(bridges) == 0 {
		logger.Fatal("no managed bridges in the catalog")
	}
	if err := backtest.ValidateRange(start, end, sess.Series().Len()); err != nil {
		logger.Fatal(err)
	}

	cfg := sess.Config()
	specs := make([]domain.BridgeSpec, len(bridges))
	for i, b := range bridges {
		specs[i] = b.Spec
	}
	var optsErr error
	optsFor := func(spec domain.BridgeSpec) backtest.Options {
		opts, err := buildOptions(cfg, spec.Kind, mode)
		if err != nil {
			optsErr = err
		}
		opts.History = persist || format == "csv"
		return opts
	}

	logger.Printf("Backtesting %d managed bridges over [%d,%d)", len(specs), start, end)
	began := time.Now()
	results, err := runner.RunAll(ctx, sess.Series().Slice(start, end), specs, optsFor)
	observability.RecordBacktestDuration(time.Since(began).Seconds())
	if optsErr != nil {
		logger.Fatal(optsErr)
	}
	if err != nil {
		logger.Fatalf("backtest failed: %v", err)
	}

	var history []domain.BacktestRecord
	for i, res := range results {
		recordStatuses(res)
		if persist {
			if err := runner.Persist(ctx, runID, bridges[i].BridgeID, res); err != nil {
				logger.Fatalf("persist history: %v", err)
			}
		}
		for _, rec := range res.History {
			rec.BridgeID = bridges[i].BridgeID
			history = append(history, rec)
		}
	}

	switch format {
	case "json":
		out := make([]resultJSON, len(results))
		for i, res := range results {
			out[i] = newResultJSON(res)
		}
		output, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(output))
	case "csv":
		if err := reporting.WriteHistoryCSV(os.Stdout, history); err != nil {
			logger.Fatalf("write csv: %v", err)
		}
	default:
		fmt.Printf("%-40s %-4s %6s %6s %8s %6s %6s  %s\n", "BRIDGE", "MODE", "DAYS", "WINS", "RATE", "STREAK", "RECENT", "NEXT")
		for i, res := range results {
			fmt.Printf("%-40s %-4s %6d %6d %7.2f%% %6d %6d  %s\n",
				bridges[i].Name, res.Mode, res.Metrics.TestedDays, res.Metrics.Wins, res.Metrics.WinRate,
				res.Metrics.Streak, res.Metrics.RecentWins, nextLabel(res))
		}
	}
}

// runVerify replays every evaluated managed bridge and reports mismatches.
// Returns false when any bridge diverges.
func runVerify(ctx context.Context, logger *log.Logger, sess *session.Session) bool {
	v := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		Config: sess.Config(),
		Store:  sess.BridgeStore(),
		Logger: logger,
	})
	report, err := v.VerifyAll(ctx, sess.Series())
	if err != nil {
		logger.Fatalf("verify failed: %v", err)
	}

	fmt.Println()
	fmt.Println("=== Verification ===")
	fmt.Printf("Verified:           %d\n", report.TotalBridges)
	fmt.Printf("Matched:            %d\n", report.MatchedBridges)
	fmt.Printf("Divergent:          %d\n", report.DivergentBridges)
	fmt.Printf("Never evaluated:    %d\n", report.Unevaluated)
	for _, r := range report.Results {
		if r.Match {
			continue
		}
		fmt.Printf("\n%s (%s)\n", r.Name, r.BridgeID)
		for _, d := range r.Divergences {
			fmt.Printf("  %-16s stored %v, replayed %v\n", d.Field, d.Expected, d.Actual)
		}
	}
	return report.DivergentBridges == 0
}

// buildSpec parses the bridge flags into a spec and checks it builds.
func buildSpec(kind, a, b string, k int) (domain.BridgeSpec, error) {
	spec := domain.BridgeSpec{Kind: domain.BridgeKind(strings.ToUpper(kind)), KOffset: k}
	known := false
	for _, kd := range domain.AllKinds {
		if kd == spec.Kind {
			known = true
			break
		}
	}
	if !known {
		return spec, fmt.Errorf("unknown kind %q", kind)
	}

	var err error
	if spec.OperandA, err = parseOperand(a); err != nil {
		return spec, err
	}
	if spec.OperandB, err = parseOperand(b); err != nil {
		return spec, err
	}
	if _, err := bridge.FromSpec(spec); err != nil {
		return spec, err
	}
	return spec, nil
}

// parseOperand accepts a number or a slot name.
func parseOperand(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	return position.ResolveName(s)
}

func buildOptions(cfg config.Config, kind domain.BridgeKind, mode string) (backtest.Options, error) {
	opts := backtest.Options{
		Mode:         backtest.ModeFor(cfg.Backtest, kind),
		RecentWindow: cfg.Backtest.RecentWindow,
	}
	if mode != "" {
		m := backtest.Mode(strings.ToUpper(mode))
		if m != backtest.ModeK2N && m != backtest.ModeN1 {
			return opts, fmt.Errorf("invalid mode: %s. Must be K2N or N1", mode)
		}
		opts.Mode = m
	}
	return opts, nil
}

func recordStatuses(res *backtest.Result) {
	statuses := make(map[string]int)
	for _, rec := range res.History {
		statuses[string(rec.Status)]++
	}
	observability.RecordBacktest(string(res.Mode), statuses)
}

func nextLabel(res *backtest.Result) string {
	if !res.NextAvailable {
		return "-"
	}
	return res.Next.String()
}

type resultJSON struct {
	Bridge        string               `json:"bridge"`
	Kind          domain.BridgeKind    `json:"kind"`
	Mode          backtest.Mode        `json:"mode"`
	Metrics       domain.BridgeMetrics `json:"metrics"`
	Next          string               `json:"next,omitempty"`
	NextPhase     domain.NextPhase     `json:"next_phase,omitempty"`
	HistoryLength int                  `json:"history_length"`
}

func newResultJSON(res *backtest.Result) resultJSON {
	out := resultJSON{
		Bridge:        bridge.Name(res.Spec),
		Kind:          res.Spec.Kind,
		Mode:          res.Mode,
		Metrics:       res.Metrics,
		NextPhase:     res.NextPhase,
		HistoryLength: len(res.History),
	}
	if res.NextAvailable {
		out.Next = res.Next.String()
	}
	return out
}

// printResult outputs a human-readable backtest result.
func printResult(res *backtest.Result) {
	m := res.Metrics
	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Bridge:             %s\n", bridge.Name(res.Spec))
	fmt.Printf("Description:        %s\n", bridge.Describe(res.Spec))
	fmt.Printf("Mode:               %s\n", res.Mode)
	fmt.Println()

	fmt.Println("Metrics:")
	fmt.Printf("  Tested Days:      %d\n", m.TestedDays)
	fmt.Printf("  Wins / Losses:    %d / %d\n", m.Wins, m.Losses)
	fmt.Printf("  Win Rate:         %.2f%%\n", m.WinRate)
	fmt.Printf("  Streak:           %d (max %d)\n", m.Streak, m.MaxStreak)
	fmt.Printf("  Losing Streak:    %d (max %d)\n", m.LosingStreak, m.MaxLosingStreak)
	fmt.Printf("  Recent Wins:      %d\n", m.RecentWins)
	fmt.Println()

	fmt.Println("Next:")
	fmt.Printf("  Prediction:       %s\n", nextLabel(res))
	if res.NextPhase != "" {
		fmt.Printf("  Phase:            %s\n", res.NextPhase)
	}
}
