package runner

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-lab/internal/domain"
	"portfolio-lab/internal/storage"
	"portfolio-lab/internal/storage/memory"
)

// seedInstrument inserts n daily bars drifting up from base, plus one closed
// trade held over the first five bars.
func seedInstrument(t *testing.T, prices *memory.PriceHistoryStore, trades *memory.TradeLedgerStore, instrument string, base float64, n int) {
	t.Helper()
	ctx := context.Background()

	bars := make([]domain.PriceBar, n)
	for i := 0; i < n; i++ {
		price := base + float64(i)
		bars[i] = domain.PriceBar{
			Instrument: instrument,
			Date:       domain.Day(2024, time.January, 1).AddDate(0, 0, i),
			Open:       price,
			High:       price + 1,
			Low:        price - 1,
			Close:      price,
		}
	}
	require.NoError(t, prices.InsertBulk(ctx, bars))

	exit := bars[5].Date
	exitPrice := bars[5].Close
	pnl := (exitPrice - base) * 10
	require.NoError(t, trades.InsertBulk(ctx, []domain.TradeRecord{{
		Instrument: instrument,
		EntryTime:  bars[0].Date,
		EntryPrice: base,
		Quantity:   10,
		ExitTime:   &exit,
		ExitPrice:  &exitPrice,
		NetPnL:     &pnl,
	}}))
}

func newTestRunner(t *testing.T, opts Options) (*Runner, *memory.PriceHistoryStore, *memory.TradeLedgerStore) {
	t.Helper()
	prices := memory.NewPriceHistoryStore()
	trades := memory.NewTradeLedgerStore()
	opts.PriceStore = prices
	opts.LedgerStore = trades
	if opts.InitialCapital == 0 {
		opts.InitialCapital = 100000
	}
	return New(opts), prices, trades
}

func TestRunner_EvaluatesAllInstruments(t *testing.T) {
	r, prices, trades := newTestRunner(t, Options{
		Windows: []domain.Window{domain.WindowAll, domain.Window1Y},
	})
	seedInstrument(t, prices, trades, "ACME", 100, 30)
	seedInstrument(t, prices, trades, "ZETA", 50, 30)

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Instruments, 2)
	for _, instrument := range []string{"ACME", "ZETA"} {
		res := result.Instruments[instrument]
		require.NotNil(t, res, instrument)
		require.NoError(t, res.Err)
		require.Contains(t, res.Metrics, "ALL")
		require.Contains(t, res.Metrics, "1Y")
		assert.Equal(t, 1, res.Metrics["ALL"].NumTrades)
	}

	// Portfolio aggregation covers every configured window.
	require.Contains(t, result.Portfolio, "ALL")
	require.Contains(t, result.Portfolio, "1Y")
	pf := result.Portfolio["ALL"]
	assert.Equal(t, 2, pf.Metrics.NumTrades)
	require.NotNil(t, pf.Curve)
	last, ok := pf.Curve.Last()
	require.True(t, ok)
	// 5 points gained on 10 units in each instrument.
	assert.InDelta(t, 100000+50+50, last.Equity, 1e-9)

	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Skipped)
}

func TestRunner_ResumesFromCheckpoint(t *testing.T) {
	cps := memory.NewCheckpointStore()
	require.NoError(t, cps.Save(context.Background(), &storage.Checkpoint{Completed: []string{"ACME"}}))

	r, prices, trades := newTestRunner(t, Options{
		Windows:         []domain.Window{domain.WindowAll},
		CheckpointStore: cps,
	})
	seedInstrument(t, prices, trades, "ACME", 100, 30)
	seedInstrument(t, prices, trades, "ZETA", 50, 30)

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"ACME"}, result.Skipped)
	assert.NotContains(t, result.Instruments, "ACME")
	assert.Contains(t, result.Instruments, "ZETA")

	// Skipped inputs still feed the portfolio aggregation.
	assert.Equal(t, 2, result.Portfolio["ALL"].Metrics.NumTrades)

	// A finished batch spends the checkpoint.
	cp, err := cps.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, cp.Done("ACME"))
	assert.False(t, cp.Done("ZETA"))
}

func TestRunner_CompletedBatchClearsCheckpoint(t *testing.T) {
	cps := memory.NewCheckpointStore()
	r, prices, trades := newTestRunner(t, Options{
		Windows:         []domain.Window{domain.WindowAll},
		CheckpointStore: cps,
	})
	seedInstrument(t, prices, trades, "ACME", 100, 30)
	seedInstrument(t, prices, trades, "ZETA", 50, 30)

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	// An immediate re-run with the same checkpoint path evaluates every
	// instrument again instead of skipping them all.
	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Skipped)
	require.Len(t, result.Instruments, 2)
	for _, instrument := range []string{"ACME", "ZETA"} {
		require.NotNil(t, result.Instruments[instrument], instrument)
		require.NoError(t, result.Instruments[instrument].Err)
	}
}

// failingLedgerStore fails GetByInstrument for one instrument.
type failingLedgerStore struct {
	*memory.TradeLedgerStore
	broken string
}

func (s *failingLedgerStore) GetByInstrument(ctx context.Context, instrument string) ([]domain.TradeRecord, error) {
	if instrument == s.broken {
		return nil, errors.New("corrupt ledger page")
	}
	return s.TradeLedgerStore.GetByInstrument(ctx, instrument)
}

func TestRunner_InputErrorDoesNotAbortBatch(t *testing.T) {
	prices := memory.NewPriceHistoryStore()
	trades := memory.NewTradeLedgerStore()
	seedInstrument(t, prices, trades, "ACME", 100, 30)
	seedInstrument(t, prices, trades, "ZETA", 50, 30)

	r := New(Options{
		PriceStore:     prices,
		LedgerStore:    &failingLedgerStore{TradeLedgerStore: trades, broken: "ACME"},
		Windows:        []domain.Window{domain.WindowAll},
		InitialCapital: 100000,
	})

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Contains(t, result.Instruments, "ACME")
	assert.ErrorIs(t, result.Instruments["ACME"].Err, ErrInputData)
	assert.Nil(t, result.Instruments["ACME"].Metrics)
	require.Contains(t, result.Instruments, "ZETA")
	require.NoError(t, result.Instruments["ZETA"].Err)
	assert.Len(t, result.Errors, 1)

	// The broken instrument is absent from the portfolio inputs.
	assert.Equal(t, 1, result.Portfolio["ALL"].Metrics.NumTrades)
}

func TestRunner_InstrumentTimeoutDiscardsPartialState(t *testing.T) {
	r, prices, trades := newTestRunner(t, Options{
		Windows:           []domain.Window{domain.WindowAll},
		InstrumentTimeout: time.Nanosecond,
	})
	seedInstrument(t, prices, trades, "ACME", 100, 30)

	result, err := r.Run(context.Background())
	require.NoError(t, err, "instrument timeouts never abort the batch")

	res := result.Instruments["ACME"]
	require.NotNil(t, res)
	assert.ErrorIs(t, res.Err, ErrInstrumentTimeout)
	assert.Nil(t, res.Metrics)
	assert.Len(t, result.Errors, 1)
}

func TestRunner_BatchTimeoutKeepsPartialResult(t *testing.T) {
	r, prices, trades := newTestRunner(t, Options{
		Windows:      []domain.Window{domain.WindowAll},
		BatchTimeout: time.Nanosecond,
	})
	seedInstrument(t, prices, trades, "ACME", 100, 30)

	result, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrBatchTimeout)
	require.NotNil(t, result, "partial result survives the deadline")
	assert.NotZero(t, result.Elapsed)
}

func TestRunner_ParentCancellation(t *testing.T) {
	r, prices, trades := newTestRunner(t, Options{
		Windows: []domain.Window{domain.WindowAll},
	})
	seedInstrument(t, prices, trades, "ACME", 100, 30)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_BenchmarkRegression(t *testing.T) {
	r, prices, trades := newTestRunner(t, Options{
		Windows:   []domain.Window{domain.WindowAll},
		Benchmark: "INDEX",
	})
	seedInstrument(t, prices, trades, "ACME", 100, 40)
	seedInstrument(t, prices, trades, "INDEX", 1000, 40)

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	pf := result.Portfolio["ALL"]
	require.NoError(t, pf.RegressionErr)
	require.NotNil(t, pf.Regression)

	// A mostly flat equity curve against a trending benchmark keeps beta
	// near zero but well-defined.
	assert.False(t, math.IsNaN(pf.Regression.Beta), "beta must not be NaN")
}

func TestRunner_BenchmarkTooShortFlagsRegressionUnavailable(t *testing.T) {
	r, prices, trades := newTestRunner(t, Options{
		Windows:   []domain.Window{domain.WindowAll},
		Benchmark: "INDEX",
	})
	seedInstrument(t, prices, trades, "ACME", 100, 40)
	seedInstrument(t, prices, trades, "INDEX", 1000, 8)

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	pf := result.Portfolio["ALL"]
	assert.Nil(t, pf.Regression)
	assert.Error(t, pf.RegressionErr)
}
