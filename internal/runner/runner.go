// Package runner coordinates batch evaluation of instruments.
// Flow: load inputs → per-instrument metrics (parallel) → portfolio aggregation
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"portfolio-lab/internal/curve"
	"portfolio-lab/internal/domain"
	"portfolio-lab/internal/metrics"
	"portfolio-lab/internal/observability"
	"portfolio-lab/internal/regression"
	"portfolio-lab/internal/storage"
	"portfolio-lab/internal/window"
)

// Options for creating a Runner.
type Options struct {
	// Required stores
	PriceStore  storage.PriceHistoryStore
	LedgerStore storage.TradeLedgerStore

	// Optional checkpoint store; nil disables resume.
	CheckpointStore storage.CheckpointStore

	// Optional Prometheus metrics; nil disables instrumentation.
	Observability *observability.Metrics

	// Evaluation parameters
	Windows        []domain.Window
	InitialCapital float64
	BarsPerYear    float64
	RiskFreeRate   float64
	Benchmark      string // instrument id, empty disables regression

	// Deadlines; zero disables the respective deadline.
	InstrumentTimeout time.Duration
	BatchTimeout      time.Duration

	// Workers bounds parallel instrument evaluation; defaults to 4.
	Workers int

	// Options
	Progress bool
	Verbose  bool
}

// Runner evaluates every instrument through the window slicer, curve builder
// and metrics engine, then aggregates the portfolio view.
type Runner struct {
	opts Options
}

// New creates a new Runner, applying defaults for unset options.
func New(opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if len(opts.Windows) == 0 {
		opts.Windows = []domain.Window{domain.WindowAll}
	}
	if opts.BarsPerYear <= 0 {
		opts.BarsPerYear = 245
	}
	return &Runner{opts: opts}
}

// InstrumentResult holds one instrument's per-window statistics. Err is set
// when the instrument failed; a failed instrument carries no statistics.
type InstrumentResult struct {
	Instrument string
	Metrics    map[string]domain.PerformanceMetrics // by window label
	Err        error
}

// WindowResult is the portfolio-level output for one window.
type WindowResult struct {
	Window  domain.Window
	Curve   *domain.PortfolioCurve
	Monthly []domain.CurvePoint
	Metrics domain.PerformanceMetrics

	// Regression is nil when no benchmark is configured or the overlap
	// guard fired; RegressionErr then says why.
	Regression    *regression.Result
	RegressionErr error
}

// RunResult contains everything a batch run produced.
type RunResult struct {
	Instruments map[string]*InstrumentResult
	Portfolio   map[string]*WindowResult // by window label

	// Raw inputs, kept for report generation.
	Ledgers   map[string][]domain.TradeRecord
	Histories map[string]domain.PriceHistory

	Skipped []string // resumed from checkpoint
	Errors  []string
	Elapsed time.Duration
}

// Run executes the batch. A batch deadline aborts remaining instruments and
// returns the partial result together with ErrBatchTimeout; per-instrument
// failures are recorded on their results and never abort the batch.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()

	batchCtx := ctx
	if r.opts.BatchTimeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, r.opts.BatchTimeout)
		defer cancel()
	}

	result := &RunResult{
		Instruments: make(map[string]*InstrumentResult),
		Portfolio:   make(map[string]*WindowResult),
		Ledgers:     make(map[string][]domain.TradeRecord),
		Histories:   make(map[string]domain.PriceHistory),
	}

	// Phase 1: load inputs for every instrument.
	r.log("Phase 1: Loading inputs...")
	instruments, err := r.opts.PriceStore.Instruments(batchCtx)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	for _, instrument := range instruments {
		history, ledger, err := r.loadInstrument(batchCtx, instrument)
		if err != nil {
			result.Instruments[instrument] = &InstrumentResult{Instrument: instrument, Err: err}
			result.Errors = append(result.Errors, fmt.Sprintf("load %s: %v", instrument, err))
			r.countError("input_data")
			continue
		}
		result.Histories[instrument] = history
		result.Ledgers[instrument] = ledger
	}
	r.log("  Loaded %d instruments (%d errors)", len(result.Histories), len(result.Errors))

	cp := r.loadCheckpoint(batchCtx)

	// Phase 2: per-instrument evaluation, bounded workers.
	r.log("Phase 2: Evaluating instruments...")
	if err := r.evaluateAll(batchCtx, instruments, cp, result); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && batchCtx.Err() != nil && ctx.Err() == nil {
			result.Elapsed = time.Since(start)
			result.Errors = append(result.Errors, ErrBatchTimeout.Error())
			return result, ErrBatchTimeout
		}
		return nil, err
	}

	// Phase 3: portfolio aggregation, single-threaded over merged inputs.
	r.log("Phase 3: Aggregating portfolio...")
	for _, w := range r.opts.Windows {
		result.Portfolio[w.Label] = r.aggregateWindow(w, result.Histories, result.Ledgers)
	}

	result.Elapsed = time.Since(start)
	if m := r.opts.Observability; m != nil {
		m.BatchDuration.Observe(result.Elapsed.Seconds())
	}
	// A finished batch spends its checkpoint; resume covers interrupted
	// batches only, so the next run re-evaluates every instrument.
	cp.Completed = nil
	r.saveCheckpoint(batchCtx, cp, result.Elapsed)
	r.log("Batch completed: %d evaluated, %d skipped, %d errors in %s",
		len(result.Instruments)-len(result.Errors), len(result.Skipped), len(result.Errors), result.Elapsed)
	return result, nil
}

// loadInstrument fetches one instrument's bars and trades. Any failure maps
// to ErrInputData so the caller can classify it.
func (r *Runner) loadInstrument(ctx context.Context, instrument string) (domain.PriceHistory, []domain.TradeRecord, error) {
	history, err := r.opts.PriceStore.GetByInstrument(ctx, instrument)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: bars: %v", ErrInputData, err)
	}
	if len(history) == 0 {
		return nil, nil, fmt.Errorf("%w: no bars", ErrInputData)
	}
	ledger, err := r.opts.LedgerStore.GetByInstrument(ctx, instrument)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: trades: %v", ErrInputData, err)
	}
	return history, ledger, nil
}

// evaluateAll runs per-instrument evaluation with bounded parallel workers.
// Checkpoint writes are serialized under mu alongside result mutation.
func (r *Runner) evaluateAll(ctx context.Context, instruments []string, cp *storage.Checkpoint, result *RunResult) error {
	bar := r.newProgressBar(len(instruments))

	// Partition up front; workers mutate the result and checkpoint, so no
	// reads of either may happen on this goroutine once they start.
	pending := make([]string, 0, len(instruments))
	for _, instrument := range instruments {
		if _, failed := result.Instruments[instrument]; failed {
			barAdd(bar) // input load already recorded the error
			continue
		}
		if cp.Done(instrument) {
			result.Skipped = append(result.Skipped, instrument)
			if m := r.opts.Observability; m != nil {
				m.InstrumentsSkipped.Inc()
			}
			barAdd(bar)
			continue
		}
		pending = append(pending, instrument)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	var mu sync.Mutex
	for _, instrument := range pending {
		g.Go(func() error {
			res := r.evaluateInstrument(gctx, instrument, result.Histories[instrument], result.Ledgers[instrument])
			if res.Err != nil && gctx.Err() != nil {
				// Batch-level cancellation, not an instrument failure.
				return gctx.Err()
			}

			mu.Lock()
			result.Instruments[instrument] = res
			if res.Err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("evaluate %s: %v", instrument, res.Err))
			} else {
				cp.Mark(instrument)
				r.saveCheckpoint(gctx, cp, 0)
			}
			mu.Unlock()

			if m := r.opts.Observability; m != nil {
				switch {
				case res.Err == nil:
					m.InstrumentsEvaluated.Inc()
				case errors.Is(res.Err, ErrInstrumentTimeout):
					m.InstrumentsTimedOut.Inc()
				default:
					m.InstrumentErrors.WithLabelValues("evaluation").Inc()
				}
			}
			barAdd(bar)
			return nil
		})
	}

	return g.Wait()
}

// evaluateInstrument computes every window's statistics for one instrument.
// A deadline hit discards all partial state for the instrument.
func (r *Runner) evaluateInstrument(ctx context.Context, instrument string, history domain.PriceHistory, ledger []domain.TradeRecord) *InstrumentResult {
	ictx := ctx
	if r.opts.InstrumentTimeout > 0 {
		var cancel context.CancelFunc
		ictx, cancel = context.WithTimeout(ctx, r.opts.InstrumentTimeout)
		defer cancel()
	}

	started := time.Now()
	res := &InstrumentResult{
		Instrument: instrument,
		Metrics:    make(map[string]domain.PerformanceMetrics, len(r.opts.Windows)),
	}

	for _, w := range r.opts.Windows {
		// Cooperative cancellation between windows.
		if err := ictx.Err(); err != nil {
			res.Metrics = nil
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				res.Err = fmt.Errorf("%w after %s", ErrInstrumentTimeout, time.Since(started).Round(time.Millisecond))
			} else {
				res.Err = err
			}
			return res
		}

		h, l, _ := window.Slice(history, ledger, nil, w)
		c := curve.Build(
			map[string][]domain.TradeRecord{instrument: l},
			map[string]domain.PriceHistory{instrument: h},
			r.opts.InitialCapital,
		)
		res.Metrics[w.Label] = metrics.ComputeInstrument(l, h, c, w, r.opts.BarsPerYear, r.opts.InitialCapital)
		if m := r.opts.Observability; m != nil {
			m.MetricsComputed.WithLabelValues(w.Label).Inc()
		}
	}

	if m := r.opts.Observability; m != nil {
		m.InstrumentDuration.Observe(time.Since(started).Seconds())
	}
	return res
}

// aggregateWindow builds the combined curve and portfolio statistics for one
// window, slicing each instrument's inputs first.
func (r *Runner) aggregateWindow(w domain.Window, histories map[string]domain.PriceHistory, ledgers map[string][]domain.TradeRecord) *WindowResult {
	slicedHistories := make(map[string]domain.PriceHistory, len(histories))
	slicedLedgers := make(map[string][]domain.TradeRecord, len(ledgers))
	for instrument, history := range histories {
		h, l, _ := window.Slice(history, ledgers[instrument], nil, w)
		slicedHistories[instrument] = h
		slicedLedgers[instrument] = l
	}

	c := curve.Build(slicedLedgers, slicedHistories, r.opts.InitialCapital)
	res := &WindowResult{
		Window:  w,
		Curve:   c,
		Monthly: curve.Monthly(c),
		Metrics: metrics.ComputePortfolio(slicedLedgers, slicedHistories, c, w, r.opts.BarsPerYear, r.opts.InitialCapital),
	}
	if m := r.opts.Observability; m != nil {
		m.CurvesBuilt.WithLabelValues(w.Label).Inc()
	}

	if r.opts.Benchmark != "" {
		benchmark, ok := slicedHistories[r.opts.Benchmark]
		if !ok {
			res.RegressionErr = fmt.Errorf("%w: benchmark %s has no bars", ErrInputData, r.opts.Benchmark)
		} else {
			res.Regression, res.RegressionErr = regression.Regress(c, benchmark, r.opts.RiskFreeRate)
		}
		if m := r.opts.Observability; m != nil {
			status := "ok"
			switch {
			case errors.Is(res.RegressionErr, regression.ErrInsufficientOverlap):
				status = "insufficient_overlap"
			case res.RegressionErr != nil:
				status = "error"
			}
			m.RegressionsRun.WithLabelValues(status).Inc()
		}
	}
	return res
}

// loadCheckpoint returns the saved checkpoint, or a fresh one when resume is
// disabled or nothing was saved yet.
func (r *Runner) loadCheckpoint(ctx context.Context) *storage.Checkpoint {
	if r.opts.CheckpointStore == nil {
		return &storage.Checkpoint{}
	}
	cp, err := r.opts.CheckpointStore.Load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.log("  checkpoint load failed, starting fresh: %v", err)
		}
		return &storage.Checkpoint{}
	}
	sort.Strings(cp.Completed)
	return cp
}

func (r *Runner) saveCheckpoint(ctx context.Context, cp *storage.Checkpoint, elapsed time.Duration) {
	if r.opts.CheckpointStore == nil {
		return
	}
	if elapsed > 0 {
		cp.Elapsed = elapsed
	}
	cp.UpdatedAt = time.Now().UTC()
	if err := r.opts.CheckpointStore.Save(ctx, cp); err != nil {
		r.log("  checkpoint save failed: %v", err)
	}
}

func (r *Runner) countError(errorType string) {
	if m := r.opts.Observability; m != nil {
		m.InstrumentErrors.WithLabelValues(errorType).Inc()
	}
}

func (r *Runner) newProgressBar(total int) *progressbar.ProgressBar {
	if !r.opts.Progress {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Evaluating instruments..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func barAdd(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Add(1)
	}
}

func (r *Runner) log(format string, args ...any) {
	if r.opts.Verbose {
		log.Printf(format, args...)
	}
}
