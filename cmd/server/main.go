// Package main provides unified server that runs all components together:
// - Ingestion (scheduled): re-imports a CSV draw file, new periods only
// - Pipeline (scheduled): lifecycle → scan → scoring
// - Reporting (scheduled): REPORT.md and scored pair CSV
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/ingestion"
	"lottery-bridge-lab/internal/observability"
	"lottery-bridge-lab/internal/orchestrator"
	"lottery-bridge-lab/internal/reporting"
	"lottery-bridge-lab/internal/scoring"
	"lottery-bridge-lab/internal/session"
	"lottery-bridge-lab/internal/storage/backend"
)

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	cfg              config.Config
	csvPath          string
	probabilities    map[string]float64
	outputDir        string
	ingestInterval   time.Duration
	pipelineInterval time.Duration
	reportInterval   time.Duration

	// Stores
	stores *backend.Stores
	logger *log.Logger

	// State
	mu              sync.Mutex
	sess            *session.Session
	started         time.Time
	lastIngestRun   time.Time
	lastPipelineRun time.Time
	lastReportRun   time.Time
	pipelineRunning bool
	reportRunning   bool
	lastResult      *orchestrator.RunResult
	lastError       string

	// Stats
	ingestRuns   int
	pipelineRuns int
	reportRuns   int
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	configPath := flag.String("config", os.Getenv("BRIDGE_CONFIG"), "YAML config file")
	catalogDSN := flag.String("db", envOr("BRIDGE_DB", backend.MemoryDSN), "Catalog store: memory, sqlite:///path.db or postgres://...")
	analyticsDSN := flag.String("analytics", envOr("BRIDGE_ANALYTICS", backend.MemoryDSN), "Scan result store: memory or clickhouse://...")
	migrate := flag.Bool("migrate", false, "Apply migrations on start")
	csvPath := flag.String("csv", os.Getenv("BRIDGE_CSV"), "CSV draw file re-imported on every ingest tick")
	probPath := flag.String("probabilities", "", "JSON file of loto -> probability in [0, 1]")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	ingestInterval := flag.Duration("ingest-interval", 15*time.Minute, "CSV re-import interval")
	pipelineInterval := flag.Duration("pipeline-interval", 1*time.Hour, "Pipeline run interval")
	reportInterval := flag.Duration("report-interval", 6*time.Hour, "Report generation interval")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for health, metrics and status")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	var probs map[string]float64
	if *probPath != "" {
		f, err := os.Open(*probPath)
		if err != nil {
			logger.Fatalf("open probabilities: %v", err)
		}
		probs, err = scoring.ReadProbabilities(f)
		f.Close()
		if err != nil {
			logger.Fatalf("load probabilities: %v", err)
		}
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, err := backend.Open(ctx, backend.Options{
		CatalogDSN:   *catalogDSN,
		AnalyticsDSN: *analyticsDSN,
		Migrate:      *migrate,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	// Create server
	server := &Server{
		cfg:              cfg,
		csvPath:          *csvPath,
		probabilities:    probs,
		outputDir:        *outputDir,
		ingestInterval:   *ingestInterval,
		pipelineInterval: *pipelineInterval,
		reportInterval:   *reportInterval,
		stores:           stores,
		logger:           logger,
		started:          time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*metricsAddr)
	go server.trackUptime(ctx)

	// Run the unified server
	err = server.Run(ctx)
	done <- err
	cancel()
	server.closeSession()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// Run starts the schedulers and blocks until ctx is done or one fails.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting unified server...")

	// Create error channel for goroutines
	errCh := make(chan error, 3)

	if s.csvPath != "" {
		go func() {
			err := s.schedule(ctx, "ingest", s.ingestInterval, s.runIngest)
			if err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("ingest scheduler: %w", err)
			}
		}()
	} else {
		s.logger.Println("No --csv given, ingestion disabled")
	}

	go func() {
		err := s.schedule(ctx, "pipeline", s.pipelineInterval, s.runPipeline)
		if err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("pipeline scheduler: %w", err)
		}
	}()

	go func() {
		err := s.schedule(ctx, "report", s.reportInterval, s.runReport)
		if err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("report scheduler: %w", err)
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// schedule runs fn immediately and then on every tick.
func (s *Server) schedule(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) error {
	s.logger.Printf("Starting %s scheduler (interval: %v)...", name, interval)

	// Run immediately on start
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// runIngest re-imports the CSV file; stored periods are skipped.
func (s *Server) runIngest(ctx context.Context) {
	res, err := ingestion.ImportFile(ctx, s.csvPath, s.stores.Draws, s.logger)

	s.mu.Lock()
	s.lastIngestRun = time.Now()
	s.ingestRuns++
	s.mu.Unlock()

	if err != nil {
		s.logger.Printf("Ingest error: %v", err)
		return
	}
	if res.Imported > 0 {
		s.logger.Printf("Ingested %d new draws", res.Imported)
	}
}

// runPipeline executes the lifecycle, scan and scoring pipeline.
func (s *Server) runPipeline(ctx context.Context) {
	s.mu.Lock()
	if s.pipelineRunning {
		s.mu.Unlock()
		s.logger.Println("Pipeline already running, skipping...")
		return
	}
	s.pipelineRunning = true
	s.mu.Unlock()

	var (
		result *orchestrator.RunResult
		runErr error
	)
	defer func() {
		s.mu.Lock()
		s.pipelineRunning = false
		s.lastPipelineRun = time.Now()
		s.pipelineRuns++
		if runErr != nil {
			s.lastError = runErr.Error()
		} else {
			s.lastError = ""
			s.lastResult = result
		}
		s.mu.Unlock()
	}()

	start := time.Now()
	s.logger.Println("Running pipeline...")

	sess, err := s.session(ctx)
	if err != nil {
		runErr = err
		if errors.Is(err, session.ErrNoDraws) {
			s.logger.Println("No draws stored yet, skipping pipeline")
		} else {
			s.logger.Printf("Pipeline error: %v", err)
		}
		return
	}

	orch, err := orchestrator.New(orchestrator.Options{
		Session:       sess,
		ScanResults:   s.stores.Scans,
		Probabilities: s.probabilities,
		Logger:        log.New(os.Stdout, "[orchestrator] ", log.LstdFlags),
	})
	if err != nil {
		runErr = err
		s.logger.Printf("Pipeline error: %v", err)
		return
	}

	result, runErr = orch.Run(ctx)
	if runErr != nil {
		s.logger.Printf("Pipeline error: %v", runErr)
		return
	}
	s.logger.Printf("Pipeline completed in %v: %d draws, %d bridges, %d pairs, %d errors",
		time.Since(start), result.Draws, result.Bridges, len(result.Pairs), len(result.Errors))
}

// runReport renders the latest pipeline result to the output directory.
func (s *Server) runReport(ctx context.Context) {
	s.mu.Lock()
	if s.reportRunning {
		s.mu.Unlock()
		s.logger.Println("Report already running, skipping...")
		return
	}
	s.reportRunning = true
	result := s.lastResult
	sess := s.sess
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.reportRunning = false
		s.lastReportRun = time.Now()
		s.reportRuns++
		s.mu.Unlock()
	}()

	if result == nil || sess == nil {
		s.logger.Println("No pipeline result yet, skipping report")
		return
	}

	report, err := reporting.NewGenerator(s.cfg, s.stores.Bridges).Generate(ctx, reporting.Inputs{
		Series:    sess.Series(),
		Pairs:     result.Pairs,
		Numbers:   result.Numbers,
		Missing:   result.Missing,
		Scan:      result.Scan,
		Lifecycle: result.Lifecycle,
	})
	if err != nil {
		s.logger.Printf("Report generation error: %v", err)
		return
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		s.logger.Printf("Report generation error: %v", err)
		return
	}
	mdPath := filepath.Join(s.outputDir, "REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		s.logger.Printf("Write report: %v", err)
		return
	}
	f, err := os.Create(filepath.Join(s.outputDir, "scored_pairs.csv"))
	if err != nil {
		s.logger.Printf("Write pairs: %v", err)
		return
	}
	if err := reporting.WritePairsCSV(f, result.Pairs); err != nil {
		s.logger.Printf("Write pairs: %v", err)
	}
	f.Close()

	observability.RecordReport()
	s.logger.Printf("Reports generated to %s/", s.outputDir)
}

// trackUptime feeds the uptime counter until ctx is done.
func (s *Server) trackUptime(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			observability.AddUptime(now.Sub(last).Seconds())
			last = now
		}
	}
}

// session opens the session on first use; later runs reuse it and the
// orchestrator reloads it.
func (s *Server) session(ctx context.Context) (*session.Session, error) {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()
	if sess != nil {
		return sess, nil
	}

	sess, err := session.Open(ctx, session.Options{
		Config:  s.cfg,
		Draws:   s.stores.Draws,
		Bridges: s.stores.Bridges,
		Logger:  s.logger,
	})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.sess = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *Server) closeSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess != nil {
		_ = s.sess.Close()
		s.sess = nil
	}
}

// startHTTPServer starts the HTTP server for health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	// Latest scores
	mux.HandleFunc("/scores", s.handleScores)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	UptimeSeconds   int64     `json:"uptime_seconds"`
	Started         time.Time `json:"started"`
	LastIngestRun   time.Time `json:"last_ingest_run,omitempty"`
	LastPipelineRun time.Time `json:"last_pipeline_run,omitempty"`
	LastReportRun   time.Time `json:"last_report_run,omitempty"`
	IngestRuns      int       `json:"ingest_runs"`
	PipelineRuns    int       `json:"pipeline_runs"`
	ReportRuns      int       `json:"report_runs"`
	PipelineRunning bool      `json:"pipeline_running"`
	ReportRunning   bool      `json:"report_running"`
	LastRunID       string    `json:"last_run_id,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uptime := time.Since(s.started)
	resp := StatusResponse{
		Status:          "running",
		Uptime:          uptime.String(),
		UptimeSeconds:   int64(uptime.Seconds()),
		Started:         s.started,
		LastIngestRun:   s.lastIngestRun,
		LastPipelineRun: s.lastPipelineRun,
		LastReportRun:   s.lastReportRun,
		IngestRuns:      s.ingestRuns,
		PipelineRuns:    s.pipelineRuns,
		ReportRuns:      s.reportRuns,
		PipelineRunning: s.pipelineRunning,
		ReportRunning:   s.reportRunning,
		LastError:       s.lastError,
	}
	if s.lastResult != nil {
		resp.LastRunID = s.lastResult.RunID
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ScoresResponse is the JSON response for /scores endpoint.
type ScoresResponse struct {
	RunID   string                `json:"run_id"`
	Pairs   []domain.ScoredPair   `json:"pairs"`
	Numbers []domain.ScoredNumber `json:"numbers"`
}

// handleScores returns the scores of the latest successful pipeline run.
func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	result := s.lastResult
	s.mu.Unlock()

	if result == nil {
		http.Error(w, "no pipeline result yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ScoresResponse{
		RunID:   result.RunID,
		Pairs:   result.Pairs,
		Numbers: result.Numbers,
	})
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
