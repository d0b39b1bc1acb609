// Package reporting turns batch results into CSV and Markdown report files.
package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"portfolio-lab/internal/runner"
)

// Generator produces reports from batch results.
type Generator struct {
	outputDir string
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator writing into outputDir.
func NewGenerator(outputDir string) *Generator {
	return &Generator{
		outputDir: outputDir,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate assembles the full report structure from a batch result.
func (g *Generator) Generate(result *runner.RunResult) *Report {
	report := &Report{
		GeneratedAt: g.now(),
		TradeLog:    buildTradeLog(result),
		Skipped:     append([]string(nil), result.Skipped...),
		Errors:      append([]string(nil), result.Errors...),
		Elapsed:     result.Elapsed,
	}

	for _, wr := range orderedWindows(result) {
		section := WindowSection{Label: wr.Window.Label}

		if wr.Curve != nil {
			report.InitialCapital = wr.Curve.InitialCapital
			if len(wr.Curve.Points) > 1 {
				section.Daily = wr.Curve.Points[1:]
			}
		}
		section.Monthly = wr.Monthly
		section.KeyMetrics = buildKeyMetrics(result, wr)
		section.Regression = wr.Regression
		if wr.RegressionErr != nil {
			section.RegressionNote = wr.RegressionErr.Error()
		}

		report.Windows = append(report.Windows, section)
	}

	return report
}

// Write renders the report and writes all files into the output directory:
// a Markdown summary, the consolidated trade log, and per-window daily,
// monthly and key metrics CSVs.
func (g *Generator) Write(report *Report) error {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	files := map[string]string{
		"summary.md": RenderMarkdown(report),
		"trades.csv": RenderTradeLogCSV(report.TradeLog),
	}
	for _, section := range report.Windows {
		files[fmt.Sprintf("curve_daily_%s.csv", section.Label)] = RenderDailyCSV(section.Daily)
		files[fmt.Sprintf("curve_monthly_%s.csv", section.Label)] = RenderMonthlyCSV(section.Monthly)
		files[fmt.Sprintf("key_metrics_%s.csv", section.Label)] = RenderKeyMetricsCSV(section.KeyMetrics)
	}

	for name, content := range files {
		path := filepath.Join(g.outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// orderedWindows returns the portfolio window results, bounded windows by
// ascending length first and the full-history window last.
func orderedWindows(result *runner.RunResult) []*runner.WindowResult {
	windows := make([]*runner.WindowResult, 0, len(result.Portfolio))
	for _, wr := range result.Portfolio {
		windows = append(windows, wr)
	}
	sort.Slice(windows, func(i, j int) bool {
		yi, yj := windows[i].Window.Years, windows[j].Window.Years
		if (yi == 0) != (yj == 0) {
			return yj == 0
		}
		return yi < yj
	})
	return windows
}

// buildKeyMetrics assembles per-instrument rows sorted by instrument id,
// followed by the TOTAL portfolio row.
func buildKeyMetrics(result *runner.RunResult, wr *runner.WindowResult) []KeyMetricsRow {
	instruments := make([]string, 0, len(result.Instruments))
	for instrument, res := range result.Instruments {
		if res.Err != nil || res.Metrics == nil {
			continue
		}
		if _, ok := res.Metrics[wr.Window.Label]; !ok {
			continue
		}
		instruments = append(instruments, instrument)
	}
	sort.Strings(instruments)

	rows := make([]KeyMetricsRow, 0, len(instruments)+1)
	for _, instrument := range instruments {
		rows = append(rows, KeyMetricsRow{
			Instrument: instrument,
			Metrics:    result.Instruments[instrument].Metrics[wr.Window.Label],
		})
	}
	rows = append(rows, KeyMetricsRow{Instrument: TotalRow, Metrics: wr.Metrics})
	return rows
}

// buildTradeLog flattens every instrument's ledger, sorted by instrument
// then entry time.
func buildTradeLog(result *runner.RunResult) []TradeLogRow {
	var rows []TradeLogRow
	for instrument, ledger := range result.Ledgers {
		for _, tr := range ledger {
			rows = append(rows, TradeLogRow{
				Instrument: instrument,
				EntryDate:  tr.EntryTime,
				EntryPrice: tr.EntryPrice,
				Quantity:   tr.Quantity,
				ExitDate:   tr.ExitTime,
				ExitPrice:  tr.ExitPrice,
				NetPnL:     tr.NetPnL,
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Instrument != rows[j].Instrument {
			return rows[i].Instrument < rows[j].Instrument
		}
		return rows[i].EntryDate.Before(rows[j].EntryDate)
	})
	return rows
}
