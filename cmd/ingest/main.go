package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"lottery-bridge-lab/internal/ingestion"
	"lottery-bridge-lab/internal/observability"
	"lottery-bridge-lab/internal/storage/backend"
)

func main() {
	// Parse flags
	csvFiles := flag.String("csv", "", "Comma-separated CSV draw files, \"-\" for stdin (files may also be given as arguments)")
	catalogDSN := flag.String("db", backend.MemoryDSN, "Catalog store: memory, sqlite:///path.db or postgres://...")
	migrate := flag.Bool("migrate", false, "Apply migrations before importing")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	files := splitList(*csvFiles)
	files = append(files, flag.Args()...)
	if len(files) == 0 {
		logger.Fatal("No input. Use --csv or pass files as arguments")
	}
	if *catalogDSN == backend.MemoryDSN {
		logger.Printf("Warning: importing into memory, draws are discarded on exit")
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
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
		CatalogDSN: *catalogDSN,
		Migrate:    *migrate,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatalf("open stores: %v", err)
	}
	defer stores.Close()

	var imported, duplicates int
	rejected := make(map[string]int)
	failed := false
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		res, err := importOne(ctx, path, stores, logger)
		if err != nil {
			logger.Printf("Import %s failed: %v", path, err)
			failed = true
			continue
		}
		logger.Printf("%s: read %d, imported %d, duplicates %d, rejected %d",
			path, res.Read, res.Imported, res.Duplicates, res.RejectedTotal())
		imported += res.Imported
		duplicates += res.Duplicates
		for reason, n := range res.Rejected {
			rejected[reason] += n
		}
	}

	fmt.Println()
	fmt.Println("=== Ingest Summary ===")
	fmt.Printf("Files:              %d\n", len(files))
	fmt.Printf("Imported:           %d\n", imported)
	fmt.Printf("Duplicates:         %d\n", duplicates)
	reasons := make([]string, 0, len(rejected))
	for r := range rejected {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Printf("Rejected (%s): %d\n", r, rejected[r])
	}

	if failed {
		stores.Close()
		os.Exit(1)
	}
}

func importOne(ctx context.Context, path string, stores *backend.Stores, logger *log.Logger) (*ingestion.Result, error) {
	if path == "-" {
		m := ingestion.NewManager(ingestion.ManagerOptions{
			Source: ingestion.NewCSVSource(os.Stdin),
			Store:  stores.Draws,
			Logger: logger,
		})
		return m.Ingest(ctx)
	}
	return ingestion.ImportFile(ctx, path, stores.Draws, logger)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
