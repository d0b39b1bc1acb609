package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the report summary as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Portfolio Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Initial capital: %.2f | Windows: %d | Trades: %d\n\n",
		r.InitialCapital, len(r.Windows), len(r.TradeLog)))
	if r.Elapsed > 0 {
		sb.WriteString(fmt.Sprintf("Batch elapsed: %s\n\n", r.Elapsed.Round(time.Millisecond)))
	}

	// Key metrics per window
	for _, section := range r.Windows {
		sb.WriteString(fmt.Sprintf("## Window %s\n\n", section.Label))

		if len(section.KeyMetrics) > 0 {
			sb.WriteString("| Instrument | NetPnL% | MaxDD% | Trades | Win% | PF | AvgPnL% | AvgBars | IRR% | CAGR% |\n")
			sb.WriteString("|------------|---------|--------|--------|------|----|---------|---------|------|-------|\n")
			for _, row := range section.KeyMetrics {
				m := row.Metrics
				sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %d | %.2f | %.2f | %.2f | %.1f | %.2f | %.2f |\n",
					row.Instrument, m.NetProfitPct, m.MaxDrawdownPct, m.NumTrades, m.WinRatePct,
					m.ProfitFactor, m.AvgProfitPerTradePct, m.AvgBarsPerTrade, m.TradeCAGRPct, m.EquityCAGRPct))
			}
			sb.WriteString("\n")
		} else {
			sb.WriteString("No metrics available.\n\n")
		}

		// Benchmark regression
		if section.Regression != nil {
			reg := section.Regression
			sb.WriteString("### Benchmark Regression\n\n")
			sb.WriteString("| Alpha | Beta | R² | Correlation | TrackingError | IR |\n")
			sb.WriteString("|-------|------|----|-------------|---------------|----|\n")
			sb.WriteString(fmt.Sprintf("| %.4f | %.4f | %.4f | %.4f | %.4f | %.4f |\n\n",
				reg.Alpha, reg.Beta, reg.RSquared, reg.Correlation, reg.TrackingError, reg.InformationRatio))
		} else if section.RegressionNote != "" {
			sb.WriteString(fmt.Sprintf("Benchmark regression unavailable: %s\n\n", section.RegressionNote))
		}
	}

	// Batch bookkeeping
	if len(r.Skipped) > 0 {
		sb.WriteString("## Skipped (resumed from checkpoint)\n\n")
		for _, instrument := range r.Skipped {
			sb.WriteString(fmt.Sprintf("- %s\n", instrument))
		}
		sb.WriteString("\n")
	}
	if len(r.Errors) > 0 {
		sb.WriteString("## Errors\n\n")
		for _, err := range r.Errors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
