// Command report regenerates the report files from stored inputs. Unlike
// analyze it never touches checkpoints, so it is safe to run while a batch
// is in flight.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"portfolio-lab/internal/config"
	"portfolio-lab/internal/domain"
	"portfolio-lab/internal/fixtures"
	"portfolio-lab/internal/reporting"
	"portfolio-lab/internal/runner"
	"portfolio-lab/internal/storage"
	"portfolio-lab/internal/storage/memory"
	pgstore "portfolio-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (optional, defaults apply)")
	outputDir := flag.String("output", "", "Output directory override")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string override")
	windowLabel := flag.String("window", "", "Regenerate a single window (1Y, 3Y, 5Y, ALL)")
	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

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

	windows, err := cfg.ParsedWindows()
	if err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	if *windowLabel != "" {
		w, err := domain.ParseWindow(*windowLabel)
		if err != nil {
			logger.Fatalf("invalid window: %v", err)
		}
		windows = []domain.Window{w}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

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

	r := runner.New(runner.Options{
		PriceStore:     priceStore,
		LedgerStore:    ledgerStore,
		Windows:        windows,
		InitialCapital: cfg.InitialCapital,
		BarsPerYear:    cfg.BarsPerYear,
		RiskFreeRate:   cfg.RiskFreeRate,
		Benchmark:      cfg.Benchmark,
		Workers:        cfg.Workers,
	})

	result, err := r.Run(ctx)
	if err != nil {
		logger.Fatalf("evaluation failed: %v", err)
	}

	gen := reporting.NewGenerator(cfg.OutputDir)
	if err := gen.Write(gen.Generate(result)); err != nil {
		logger.Fatalf("write reports: %v", err)
	}
	logger.Printf("Reports regenerated in %s", cfg.OutputDir)
}
