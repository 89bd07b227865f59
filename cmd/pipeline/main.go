// Package main provides E2E pipeline entry point.
// Executes: load → lifecycle → scan → scoring
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/ingestion"
	"lottery-bridge-lab/internal/orchestrator"
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
	top := flag.Int("top", 10, "Scored pairs and numbers to print")
	revive := flag.Bool("revive", false, "Re-enable disabled bridges that qualify again")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	logger := log.New(os.Stderr, "[pipeline] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling pipeline...\n", sig)
		cancel()
	}()

	stores, err := backend.Open(ctx, backend.Options{
		CatalogDSN:   *catalogDSN,
		AnalyticsDSN: *analyticsDSN,
		Migrate:      *migrate,
		Logger:       logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening stores: %v\n", err)
		os.Exit(1)
	}
	if *csvPath != "" {
		if _, err := ingestion.ImportFile(ctx, *csvPath, stores.Draws, logger); err != nil {
			_ = stores.Close()
			fmt.Fprintf(os.Stderr, "Error importing draws: %v\n", err)
			os.Exit(1)
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
		fmt.Fprintf(os.Stderr, "Error opening session: %v\n", err)
		os.Exit(1)
	}
	defer sess.Close()

	fmt.Println("=== E2E Pipeline ===")
	orch, err := orchestrator.New(orchestrator.Options{
		Session:     sess,
		ScanResults: stores.Scans,
		Logger:      logger,
		Revive:      *revive,
		Verbose:     *verbose,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Orchestrator error: %v\n", err)
		os.Exit(1)
	}

	result, err := orch.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Orchestrator error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Orchestrator completed (run %s):\n", result.RunID)
	fmt.Printf("  Draws: %d\n", result.Draws)
	fmt.Printf("  Managed bridges: %d\n", result.Bridges)
	if l := result.Lifecycle; l != nil {
		fmt.Printf("  Lifecycle: %d enabled, %d disabled, %d kept, %d manual\n", l.Enabled, l.Disabled, l.Kept, l.Manual)
	}
	if s := result.Scan; s != nil {
		fmt.Printf("  Scan: %d evaluated, %d candidates, %d audit, %d revived\n",
			s.Evaluated, len(s.Candidates), len(s.Audit), result.Revived)
	}
	if len(result.Missing) > 0 {
		fmt.Printf("  Missing inputs: %d\n", len(result.Missing))
		for _, e := range result.Missing {
			fmt.Printf("    - %v\n", e)
		}
	}
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	fmt.Println("\n=== Lô Pairs ===")
	for i, p := range result.Pairs {
		if i >= *top {
			break
		}
		fmt.Printf("%3d. %-6s %7.2f  sources %d  %s\n", i+1, p.Pair, p.Score, p.Sources, p.Recommendation)
	}

	fmt.Println("\n=== Đề Numbers ===")
	for i, n := range result.Numbers {
		if i >= *top {
			break
		}
		fmt.Printf("%3d. %-3s %7.2f  bridges %d\n", i+1, n.Number, n.Score, n.Bridges)
	}
}
