package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/idhash"
	"lottery-bridge-lab/internal/ingestion"
	"lottery-bridge-lab/internal/lifecycle"
	"lottery-bridge-lab/internal/observability"
	"lottery-bridge-lab/internal/reporting"
	"lottery-bridge-lab/internal/scanner"
	"lottery-bridge-lab/internal/session"
	"lottery-bridge-lab/internal/storage"
	"lottery-bridge-lab/internal/storage/backend"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML config file")
	catalogDSN := flag.String("db", backend.MemoryDSN, "Catalog store: memory, sqlite:///path.db or postgres://...")
	analyticsDSN := flag.String("analytics", backend.MemoryDSN, "Scan result store: memory or clickhouse://...")
	migrate := flag.Bool("migrate", false, "Apply migrations before running")
	csvPath := flag.String("csv", "", "Import draws from a CSV file first")

	market := flag.String("market", "all", "Market to report: lo, de or all")
	format := flag.String("format", "table", "Output format: table, csv, json")
	combos := flag.Bool("combos", false, "Also list touch combinations over the recent window")
	persist := flag.Bool("persist", false, "Persist candidates to the scan result store")
	promote := flag.Int("promote", 0, "Promote the top N candidates into the managed catalog")
	revive := flag.Bool("revive", false, "Re-enable disabled managed bridges that qualify again")
	flag.Parse()

	logger := log.New(os.Stderr, "[scan] ", log.LstdFlags)

	*market = strings.ToUpper(*market)
	if *market != "ALL" && *market != string(domain.MarketLo) && *market != string(domain.MarketDe) {
		logger.Fatalf("Invalid market: %s. Must be lo, de or all", *market)
	}
	*format = strings.ToLower(*format)
	if *format != "table" && *format != "csv" && *format != "json" {
		logger.Fatalf("Invalid format: %s. Must be table, csv or json", *format)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling scan...", sig)
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
		if _, err := ingestion.ImportFile(ctx, *csvPath, stores.Draws, logger); err != nil {
			_ = stores.Close()
			logger.Fatalf("import %s: %v", *csvPath, err)
		}
	}

	sess, err := session.Open(ctx, session.Options{
		Config:  cfg,
		Draws:   stores.Draws,
		Bridges: stores.Bridges,
		Closers: stores.Closers(),
		Logger:  logger,
	})
	if err != nil {
		_ = stores.Close()
		logger.Fatalf("open session: %v", err)
	}
	defer sess.Close()

	series := sess.Series()
	start := time.Now()
	res, err := sess.NewScanner().ScanAll(ctx, series)
	if err != nil {
		logger.Fatalf("scan failed: %v", err)
	}
	observability.RecordScan("all", time.Since(start).Seconds())
	logger.Printf("Evaluated %d specs: %d candidates, %d revived, %d audit",
		res.Evaluated, len(res.Candidates), len(res.Revived), len(res.Audit))

	if *persist {
		if err := persistScan(ctx, stores.Scans, res); err != nil {
			logger.Fatalf("persist scan: %v", err)
		}
	}

	manager := lifecycle.NewManager(lifecycle.Options{Config: cfg, Store: stores.Bridges, Logger: logger})
	if *promote > 0 {
		promoted := 0
		for _, c := range res.Candidates {
			if promoted >= *promote {
				break
			}
			if _, err := manager.Promote(ctx, c); err != nil {
				if errors.Is(err, storage.ErrDuplicateKey) {
					continue
				}
				logger.Fatalf("promote: %v", err)
			}
			promoted++
		}
		logger.Printf("Promoted %d candidates", promoted)
	}
	if *revive || cfg.Scanner.Revive {
		for _, c := range res.Revived {
			if err := manager.Revive(ctx, c); err != nil {
				logger.Printf("revive %s: %v", c.Name, err)
			}
		}
	}

	cands := filterMarket(res.Candidates, *market)
	audit := filterMarket(res.Audit, *market)

	var touch []domain.TouchCombo
	if *combos {
		touch = scanner.TouchCombinations(series, cfg.Scanner.TouchComboSize, cfg.Scanner.TouchComboWindow, cfg.Scanner.ThongMinConsec)
	}

	switch *format {
	case "csv":
		all := append(append([]domain.Candidate{}, cands...), audit...)
		if err := reporting.WriteCandidatesCSV(os.Stdout, all); err != nil {
			logger.Fatalf("write csv: %v", err)
		}
	case "json":
		out := struct {
			Candidates []domain.Candidate  `json:"candidates"`
			Revived    []domain.Candidate  `json:"revived"`
			Audit      []domain.Candidate  `json:"audit"`
			Combos     []domain.TouchCombo `json:"combos,omitempty"`
		}{cands, filterMarket(res.Revived, *market), audit, touch}
		output, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(output))
	default:
		printCandidates("Candidates", cands)
		printCandidates("Revived", filterMarket(res.Revived, *market))
		printCandidates("Audit", audit)
		if *combos {
			printCombos(touch)
		}
	}
}

func persistScan(ctx context.Context, store storage.ScanResultStore, res *scanner.Result) error {
	runID := idhash.NewRunID()
	ts := time.Now().UnixMilli()
	all := append(append([]domain.Candidate{}, res.Candidates...), res.Audit...)
	snapshots := make([]*domain.ScanSnapshot, len(all))
	for i, c := range all {
		snapshots[i] = &domain.ScanSnapshot{RunID: runID, Rank: i, ScannedAt: ts, Candidate: c}
	}
	if len(snapshots) == 0 {
		return nil
	}
	return store.InsertBulk(ctx, snapshots)
}

func filterMarket(cands []domain.Candidate, market string) []domain.Candidate {
	if market == "ALL" {
		return cands
	}
	var out []domain.Candidate
	for _, c := range cands {
		if string(c.Spec.Kind.Market()) == market {
			out = append(out, c)
		}
	}
	return out
}

func printCandidates(title string, cands []domain.Candidate) {
	fmt.Printf("\n=== %s (%d) ===\n", title, len(cands))
	if len(cands) == 0 {
		return
	}
	fmt.Printf("%-4s %-40s %6s %6s %8s %8s %8s  %s\n", "#", "NAME", "STREAK", "REC10", "SHORT", "FRAME", "SCORE", "NEXT")
	for i, c := range cands {
		frame := fmt.Sprintf("%7.2f%%", c.FrameRate)
		if c.RatesMissing {
			frame = "       -"
		}
		fmt.Printf("%-4d %-40s %6d %6d %7.2f%% %s %8.2f  %s\n",
			i+1, c.Name, c.Streak, c.RecentWins, c.ShortRate, frame, c.Score, c.Next.String())
	}
}

func printCombos(combos []domain.TouchCombo) {
	fmt.Printf("\n=== Touch Combinations (%d) ===\n", len(combos))
	for _, c := range combos {
		mark := ""
		if c.Thong {
			mark = " THONG"
		}
		fmt.Printf("%v  hits %d/%d (%.1f%%)  max run %d  current run %d%s\n",
			c.Touches, c.Hits, c.Window, c.RatePercent, c.MaxConsecutive, c.ConsecutiveEnd, mark)
	}
}
