// Package fixtures populates stores with deterministic synthetic market
// data so the binaries can run without an upstream database.
package fixtures

import (
	"context"
	"math"
	"math/rand"
	"time"

	"portfolio-lab/internal/domain"
	"portfolio-lab/internal/storage"
)

// Benchmark is the instrument id of the synthetic index. It carries bars but
// no trades, matching how a real benchmark feed looks.
const Benchmark = "NIFTY50"

type instrumentSeed struct {
	name  string
	base  float64
	drift float64 // per-bar log drift
	vol   float64 // per-bar log volatility
	seed  int64
}

var seeds = []instrumentSeed{
	{name: "RELIANCE", base: 2400, drift: 0.00055, vol: 0.014, seed: 11},
	{name: "TCS", base: 3300, drift: 0.00040, vol: 0.011, seed: 23},
	{name: "HDFCBANK", base: 1500, drift: 0.00020, vol: 0.012, seed: 37},
	{name: "INFY", base: 1400, drift: -0.00010, vol: 0.016, seed: 53},
	{name: Benchmark, base: 17500, drift: 0.00035, vol: 0.008, seed: 71},
}

// barCount covers roughly three years of weekday bars.
const barCount = 740

// Load inserts synthetic bars for every instrument and trades for every
// non-benchmark instrument. Output is fully deterministic.
func Load(ctx context.Context, prices storage.PriceHistoryStore, trades storage.TradeLedgerStore) error {
	for _, s := range seeds {
		history := generateBars(s)
		if err := prices.InsertBulk(ctx, history); err != nil {
			return err
		}
		if s.name == Benchmark {
			continue
		}
		if err := trades.InsertBulk(ctx, generateTrades(s, history)); err != nil {
			return err
		}
	}
	return nil
}

// Instruments lists the instrument ids the fixtures cover, benchmark included.
func Instruments() []string {
	names := make([]string, len(seeds))
	for i, s := range seeds {
		names[i] = s.name
	}
	return names
}

// generateBars produces a geometric random walk over weekdays starting
// 2021-01-04.
func generateBars(s instrumentSeed) domain.PriceHistory {
	rng := rand.New(rand.NewSource(s.seed))
	history := make(domain.PriceHistory, 0, barCount)

	date := domain.Day(2021, time.January, 4)
	price := s.base
	for len(history) < barCount {
		if wd := date.Weekday(); wd != time.Saturday && wd != time.Sunday {
			next := price * math.Exp(s.drift+s.vol*rng.NormFloat64())
			high := math.Max(price, next) * (1 + 0.004*rng.Float64())
			low := math.Min(price, next) * (1 - 0.004*rng.Float64())
			volume := 100000 + float64(rng.Intn(900000))
			history = append(history, domain.PriceBar{
				Instrument: s.name,
				Date:       date,
				Open:       price,
				High:       high,
				Low:        low,
				Close:      next,
				Volume:     &volume,
			})
			price = next
		}
		date = date.AddDate(0, 0, 1)
	}
	return history
}

// generateTrades enters a position every ~25 bars and holds it for ~10 bars.
// The final position stays open past the last bar.
func generateTrades(s instrumentSeed, history domain.PriceHistory) []domain.TradeRecord {
	rng := rand.New(rand.NewSource(s.seed * 7))
	var trades []domain.TradeRecord

	for i := 20; i < len(history)-1; i += 25 + rng.Intn(10) {
		entry := history[i]
		quantity := math.Floor(50000 / entry.Close)
		if quantity < 1 {
			quantity = 1
		}
		// Every fourth trade goes short.
		if len(trades)%4 == 3 {
			quantity = -quantity
		}

		held := 5 + rng.Intn(12)
		exitIdx := i + held
		tr := domain.TradeRecord{
			Instrument: s.name,
			EntryTime:  entry.Date,
			EntryPrice: entry.Close,
			Quantity:   quantity,
		}
		if exitIdx < len(history)-1 {
			exit := history[exitIdx]
			pnl := (exit.Close - entry.Close) * quantity
			tr.ExitTime = &exit.Date
			tr.ExitPrice = &exit.Close
			tr.NetPnL = &pnl
		}
		trades = append(trades, tr)
	}
	return trades
}
