package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"portfolio-lab/internal/config"
	"portfolio-lab/internal/curve"
	"portfolio-lab/internal/domain"
	"portfolio-lab/internal/fixtures"
	"portfolio-lab/internal/metrics"
	"portfolio-lab/internal/optimize"
	"portfolio-lab/internal/storage"
	"portfolio-lab/internal/storage/memory"
	pgstore "portfolio-lab/internal/storage/postgres"
	"portfolio-lab/internal/window"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config (optional, defaults apply)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string override")
	mode := flag.String("mode", "grid", "Search mode: grid, random")
	maxTries := flag.Int("max-tries", 60, "Maximum number of evaluated combinations")
	seed := flag.Int64("seed", 1, "Random seed for reproducible sampling")
	metric := flag.String("metric", "", "Statistic to maximize (default SharpeRatio)")
	heatmapPath := flag.String("heatmap", "", "Write a min_hold_days x window heatmap CSV here")
	top := flag.Int("top", 10, "Number of ranked results to print")
	flag.Parse()

	logger := log.New(os.Stderr, "[optimize] ", log.LstdFlags)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}
	if *postgresDSN != "" {
		cfg.PostgresDSN = *postgresDSN
	}

	var searchMode optimize.Mode
	switch strings.ToLower(*mode) {
	case "grid":
		searchMode = optimize.Grid
	case "random":
		searchMode = optimize.Random
	default:
		logger.Fatalf("Invalid mode: %s. Must be grid or random", *mode)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Load inputs once; every trial re-filters them in memory.
	histories, ledgers, err := loadInputs(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("load inputs: %v", err)
	}
	logger.Printf("Loaded %d instruments", len(histories))

	specs := []optimize.ParamSpec{
		{Name: "min_hold_days", Values: []any{0, 5, 10, 15, 20}},
		{Name: "long_only", Values: []any{false, true}},
		{Name: "window", Values: []any{"1Y", "3Y", "ALL"}},
	}

	eval := newEvaluator(histories, ledgers, cfg)

	started := time.Now()
	result, err := optimize.Run(ctx, optimize.Options{
		Mode:     searchMode,
		Specs:    specs,
		MaxTries: *maxTries,
		Metric:   *metric,
		Seed:     *seed,
	}, eval)
	if err != nil {
		logger.Fatalf("optimization failed: %v", err)
	}
	logger.Printf("Evaluated %d trials in %s", len(result.Trials), time.Since(started).Round(time.Millisecond))

	printRanked(result, *top)

	if *heatmapPath != "" {
		h := result.Heatmap("min_hold_days", "window", specs)
		if err := os.WriteFile(*heatmapPath, []byte(renderHeatmapCSV(h)), 0o644); err != nil {
			logger.Fatalf("write heatmap: %v", err)
		}
		logger.Printf("Heatmap written to %s", *heatmapPath)
	}
}

func loadInputs(ctx context.Context, cfg *config.Config, logger *log.Logger) (map[string]domain.PriceHistory, map[string][]domain.TradeRecord, error) {
	var priceStore storage.PriceHistoryStore
	var ledgerStore storage.TradeLedgerStore

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		defer pool.Close()
		priceStore = pgstore.NewPriceHistoryStore(pool)
		ledgerStore = pgstore.NewTradeLedgerStore(pool)
	} else {
		memPrices := memory.NewPriceHistoryStore()
		memTrades := memory.NewTradeLedgerStore()
		if err := fixtures.Load(ctx, memPrices, memTrades); err != nil {
			return nil, nil, err
		}
		priceStore = memPrices
		ledgerStore = memTrades
		logger.Printf("No postgres DSN configured, using bundled fixtures")
	}

	instruments, err := priceStore.Instruments(ctx)
	if err != nil {
		return nil, nil, err
	}
	histories := make(map[string]domain.PriceHistory, len(instruments))
	ledgers := make(map[string][]domain.TradeRecord, len(instruments))
	for _, instrument := range instruments {
		history, err := priceStore.GetByInstrument(ctx, instrument)
		if err != nil {
			return nil, nil, err
		}
		ledger, err := ledgerStore.GetByInstrument(ctx, instrument)
		if err != nil {
			return nil, nil, err
		}
		histories[instrument] = history
		ledgers[instrument] = ledger
	}
	return histories, ledgers, nil
}

// newEvaluator builds the trial function: filter the ledgers by the trade
// selection parameters, slice to the requested window, rebuild the portfolio
// curve and recompute the statistics.
func newEvaluator(histories map[string]domain.PriceHistory, ledgers map[string][]domain.TradeRecord, cfg *config.Config) optimize.Evaluator {
	return func(ctx context.Context, params optimize.Params) (domain.PerformanceMetrics, error) {
		minHoldDays := params["min_hold_days"].(int)
		longOnly := params["long_only"].(bool)
		w, err := domain.ParseWindow(params["window"].(string))
		if err != nil {
			return domain.PerformanceMetrics{}, err
		}

		slicedHistories := make(map[string]domain.PriceHistory, len(histories))
		slicedLedgers := make(map[string][]domain.TradeRecord, len(ledgers))
		for instrument, history := range histories {
			filtered := filterTrades(ledgers[instrument], minHoldDays, longOnly)
			h, l, _ := window.Slice(history, filtered, nil, w)
			slicedHistories[instrument] = h
			slicedLedgers[instrument] = l
		}

		c := curve.Build(slicedLedgers, slicedHistories, cfg.InitialCapital)
		return metrics.ComputePortfolio(slicedLedgers, slicedHistories, c, w, cfg.BarsPerYear, cfg.InitialCapital), nil
	}
}

// filterTrades keeps trades matching the selection parameters. Open trades
// have no hold span yet, so the hold filter only applies to closed ones.
func filterTrades(ledger []domain.TradeRecord, minHoldDays int, longOnly bool) []domain.TradeRecord {
	out := make([]domain.TradeRecord, 0, len(ledger))
	for _, tr := range ledger {
		if longOnly && tr.Quantity < 0 {
			continue
		}
		if tr.Closed() && tr.ExitTime.Sub(tr.EntryTime) < time.Duration(minHoldDays)*24*time.Hour {
			continue
		}
		out = append(out, tr)
	}
	return out
}

func printRanked(result *optimize.Result, top int) {
	ranked := make([]optimize.Candidate, 0, len(result.Trials))
	for _, c := range result.Trials {
		if c.Valid {
			ranked = append(ranked, c)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if top > len(ranked) {
		top = len(ranked)
	}

	fmt.Printf("%-6s %-14s %-10s %-8s %10s %10s %10s\n",
		"rank", "min_hold_days", "long_only", "window", "score", "sharpe", "netpnl%")
	for i := 0; i < top; i++ {
		c := ranked[i]
		fmt.Printf("%-6d %-14v %-10v %-8v %10.4f %10.4f %10.4f\n",
			i+1, c.Params["min_hold_days"], c.Params["long_only"], c.Params["window"],
			c.Score, c.Metrics.SharpeRatio, c.Metrics.NetProfitPct)
	}
	fmt.Printf("\nBest: %v (score %.4f)\n", result.Best.Params, result.Best.Score)
}

func renderHeatmapCSV(h *optimize.Heatmap) string {
	var sb strings.Builder

	sb.WriteString(h.YParam + "\\" + h.XParam)
	for _, x := range h.XValues {
		sb.WriteString(fmt.Sprintf(",%v", x))
	}
	sb.WriteString("\n")

	for y, row := range h.Scores {
		sb.WriteString(fmt.Sprintf("%v", h.YValues[y]))
		for _, score := range row {
			if math.IsNaN(score) {
				sb.WriteString(",")
				continue
			}
			sb.WriteString(fmt.Sprintf(",%.4f", score))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
