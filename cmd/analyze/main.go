package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio-lab/internal/config"
	"portfolio-lab/internal/fixtures"
	"portfolio-lab/internal/observability"
	"portfolio-lab/internal/reporting"
	"portfolio-lab/internal/runner"
	"portfolio-lab/internal/storage"
	"portfolio-lab/internal/storage/memory"
	pgstore "portfolio-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config (optional, defaults apply)")
	outputDir := flag.String("output", "", "Output directory override")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string override")
	benchmark := flag.String("benchmark", "", "Benchmark instrument override")
	metricsAddr := flag.String("metrics-addr", "", "Address for Prometheus /metrics (empty disables)")
	noResume := flag.Bool("no-resume", false, "Ignore any existing checkpoint")
	verbose := flag.Bool("verbose", false, "Verbose phase logging")
	flag.Parse()

	logger := log.New(os.Stderr, "[analyze] ", log.LstdFlags)

	// Load config
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *postgresDSN != "" {
		cfg.PostgresDSN = *postgresDSN
	}
	if *benchmark != "" {
		cfg.Benchmark = *benchmark
	}

	windows, err := cfg.ParsedWindows()
	if err != nil {
		logger.Fatalf("invalid config: %v", err)
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

	// Observability
	obs := observability.NewMetrics("")
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Printf("metrics server: %v", err)
			}
		}()
	}

	// Create stores
	var priceStore storage.PriceHistoryStore
	var ledgerStore storage.TradeLedgerStore

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()
		priceStore = pgstore.NewPriceHistoryStore(pool)
		ledgerStore = pgstore.NewTradeLedgerStore(pool)
		logger.Printf("Reading inputs from postgres")
	} else {
		memPrices := memory.NewPriceHistoryStore()
		memTrades := memory.NewTradeLedgerStore()
		if err := fixtures.Load(ctx, memPrices, memTrades); err != nil {
			logger.Fatalf("load fixtures: %v", err)
		}
		priceStore = memPrices
		ledgerStore = memTrades
		if cfg.Benchmark == "" {
			cfg.Benchmark = fixtures.Benchmark
		}
		logger.Printf("No postgres DSN configured, using bundled fixtures")
	}

	var checkpointStore storage.CheckpointStore
	if cfg.CheckpointPath != "" && !*noResume {
		checkpointStore = storage.NewFileCheckpointStore(cfg.CheckpointPath)
	}

	// Run the batch
	r := runner.New(runner.Options{
		PriceStore:        priceStore,
		LedgerStore:       ledgerStore,
		CheckpointStore:   checkpointStore,
		Observability:     obs,
		Windows:           windows,
		InitialCapital:    cfg.InitialCapital,
		BarsPerYear:       cfg.BarsPerYear,
		RiskFreeRate:      cfg.RiskFreeRate,
		Benchmark:         cfg.Benchmark,
		InstrumentTimeout: cfg.InstrumentTimeout.Std(),
		BatchTimeout:      cfg.BatchTimeout.Std(),
		Workers:           cfg.Workers,
		Progress:          true,
		Verbose:           *verbose,
	})

	started := time.Now()
	result, err := r.Run(ctx)
	if err != nil {
		if !errors.Is(err, runner.ErrBatchTimeout) {
			logger.Fatalf("batch run failed: %v", err)
		}
		logger.Printf("Batch deadline hit, reporting partial results")
	}

	// Write reports
	gen := reporting.NewGenerator(cfg.OutputDir)
	report := gen.Generate(result)
	if err := gen.Write(report); err != nil {
		logger.Fatalf("write reports: %v", err)
	}
	obs.ReportsGenerated.Inc()

	logger.Printf("Done in %s: %d instruments, %d skipped, %d errors, reports in %s",
		time.Since(started).Round(time.Millisecond),
		len(result.Instruments), len(result.Skipped), len(result.Errors), cfg.OutputDir)
}
