package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/ingestion"
	"lottery-bridge-lab/internal/observability"
	"lottery-bridge-lab/internal/orchestrator"
	"lottery-bridge-lab/internal/reporting"
	"lottery-bridge-lab/internal/scoring"
	"lottery-bridge-lab/internal/session"
	"lottery-bridge-lab/internal/storage/backend"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML config file")
	catalogDSN := flag.String("db", backend.MemoryDSN, "Catalog store: memory, sqlite:///path.db or postgres://...")
	analyticsDSN := flag.String("analytics", backend.MemoryDSN, "Scan result store: memory or clickhouse://...")
	migrate := flag.Bool("migrate", false, "Apply migrations before running")
	csvPath := flag.String("csv", "", "Import draws from a CSV file first")
	probPath := flag.String("probabilities", "", "JSON file of loto -> probability in [0, 1]")

	outPath := flag.String("out", "", "Markdown output file (default stdout)")
	pairsCSV := flag.String("pairs-csv", "", "Write scored Lô pairs as CSV")
	candidatesCSV := flag.String("candidates-csv", "", "Write scan candidates as CSV")
	topN := flag.Int("top", 0, "Rows per ranked section (0 = default)")

	skipLifecycle := flag.Bool("skip-lifecycle", false, "Report the catalog as stored, without recompute")
	skipScan := flag.Bool("skip-scan", false, "Score the managed catalog only")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	var probs map[string]float64
	if *probPath != "" {
		probs, err = loadProbabilities(*probPath)
		if err != nil {
			logger.Fatalf("load probabilities: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling report...", sig)
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

	orch, err := orchestrator.New(orchestrator.Options{
		Session:       sess,
		ScanResults:   stores.Scans,
		Probabilities: probs,
		Logger:        logger,
		SkipLifecycle: *skipLifecycle,
		SkipScan:      *skipScan,
		Verbose:       *verbose,
	})
	if err != nil {
		logger.Fatal(err)
	}
	result, err := orch.Run(ctx)
	if err != nil {
		logger.Fatalf("pipeline error: %v", err)
	}
	for _, e := range result.Errors {
		logger.Printf("warning: %s", e)
	}

	gen := reporting.NewGenerator(cfg, stores.Bridges)
	if *topN > 0 {
		gen = gen.WithTopN(*topN)
	}
	report, err := gen.Generate(ctx, reporting.Inputs{
		Series:    sess.Series(),
		Pairs:     result.Pairs,
		Numbers:   result.Numbers,
		Missing:   result.Missing,
		Scan:      result.Scan,
		Lifecycle: result.Lifecycle,
	})
	if err != nil {
		logger.Fatalf("generate report: %v", err)
	}
	observability.RecordReport()

	md := reporting.RenderMarkdown(report)
	if *outPath == "" {
		fmt.Print(md)
	} else {
		if err := os.WriteFile(*outPath, []byte(md), 0o644); err != nil {
			logger.Fatalf("write report: %v", err)
		}
		logger.Printf("Report written to %s", *outPath)
	}

	if *pairsCSV != "" {
		err := writeFile(*pairsCSV, func(w io.Writer) error {
			return reporting.WritePairsCSV(w, result.Pairs)
		})
		if err != nil {
			logger.Fatalf("write pairs csv: %v", err)
		}
	}
	if *candidatesCSV != "" {
		if result.Scan == nil {
			logger.Printf("No scan ran, skipping %s", *candidatesCSV)
		} else {
			err := writeFile(*candidatesCSV, func(w io.Writer) error {
				return reporting.WriteCandidatesCSV(w, result.Scan.Candidates)
			})
			if err != nil {
				logger.Fatalf("write candidates csv: %v", err)
			}
		}
	}
}

func loadProbabilities(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return scoring.ReadProbabilities(f)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
