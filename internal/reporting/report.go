package reporting

import (
	"time"

	"portfolio-lab/internal/domain"
	"portfolio-lab/internal/regression"
)

// Report is the full output of one batch run, ready for rendering.
type Report struct {
	// Metadata
	GeneratedAt    time.Time
	InitialCapital float64

	// Per-window sections, bounded windows first, full history last.
	Windows []WindowSection

	// Consolidated trade log across all instruments.
	TradeLog []TradeLogRow

	// Batch bookkeeping
	Skipped []string
	Errors  []string
	Elapsed time.Duration
}

// WindowSection holds everything reported for one window.
type WindowSection struct {
	Label string

	// Daily excludes the synthetic baseline point.
	Daily   []domain.CurvePoint
	Monthly []domain.CurvePoint

	// KeyMetrics has one row per evaluated instrument plus a TOTAL row.
	KeyMetrics []KeyMetricsRow

	// Regression is nil when no benchmark was configured or the overlap
	// guard fired; RegressionNote then says why.
	Regression     *regression.Result
	RegressionNote string
}

// TotalRow names the portfolio-level key metrics row.
const TotalRow = "TOTAL"

// KeyMetricsRow is one row of the key metrics table.
type KeyMetricsRow struct {
	Instrument string
	Metrics    domain.PerformanceMetrics
}

// TradeLogRow is one entry/exit pair in the consolidated trade log. Exit
// fields are nil for trades still open at the end of the history.
type TradeLogRow struct {
	Instrument string
	EntryDate  time.Time
	EntryPrice float64
	Quantity   float64
	ExitDate   *time.Time
	ExitPrice  *float64
	NetPnL     *float64
}
