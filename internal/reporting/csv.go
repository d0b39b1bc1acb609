package reporting

import (
	"fmt"
	"strings"
	"time"

	"portfolio-lab/internal/domain"
)

const dateLayout = "2006-01-02"

// RenderDailyCSV renders the daily curve table as a CSV string.
func RenderDailyCSV(points []domain.CurvePoint) string {
	var sb strings.Builder

	// Header
	sb.WriteString("Date,Equity,AvgExposure,AvgExposure%,RealizedINR,Realized%,")
	sb.WriteString("UnrealizedINR,Unrealized%,TotalReturnINR,TotalReturn%,DrawdownINR,Drawdown%\n")

	// Rows
	for _, p := range points {
		sb.WriteString(curveRow(p.Date.Format(dateLayout), p))
	}

	return sb.String()
}

// RenderMonthlyCSV renders the monthly roll-up with the same columns as the
// daily table, keyed by calendar month.
func RenderMonthlyCSV(points []domain.CurvePoint) string {
	var sb strings.Builder

	sb.WriteString("Month,Equity,AvgExposure,AvgExposure%,RealizedINR,Realized%,")
	sb.WriteString("UnrealizedINR,Unrealized%,TotalReturnINR,TotalReturn%,DrawdownINR,Drawdown%\n")

	for _, p := range points {
		sb.WriteString(curveRow(p.Date.Format("2006-01"), p))
	}

	return sb.String()
}

func curveRow(label string, p domain.CurvePoint) string {
	return fmt.Sprintf("%s,%.2f,%.2f,%.4f,%.2f,%.4f,%.2f,%.4f,%.2f,%.4f,%.2f,%.4f\n",
		label,
		p.Equity,
		p.Exposure,
		p.ExposurePct,
		p.Realized,
		p.RealizedPct,
		p.Unrealized,
		p.UnrealizedPct,
		p.Total,
		p.TotalPct,
		p.Drawdown,
		p.DrawdownPct,
	)
}

// RenderKeyMetricsCSV renders the key metrics table, one row per instrument
// plus the TOTAL row.
func RenderKeyMetricsCSV(rows []KeyMetricsRow) string {
	var sb strings.Builder

	sb.WriteString("Instrument,NetPnL%,MaxEquityDrawdown%,TotalTrades,ProfitableTrades%,")
	sb.WriteString("ProfitFactor,AvgPnLPerTrade%,AvgBarsPerTrade,IRR%,EquityCAGR%\n")

	for _, r := range rows {
		m := r.Metrics
		sb.WriteString(fmt.Sprintf("%s,%.4f,%.4f,%d,%.4f,%.4f,%.4f,%.2f,%.4f,%.4f\n",
			r.Instrument,
			m.NetProfitPct,
			m.MaxDrawdownPct,
			m.NumTrades,
			m.WinRatePct,
			m.ProfitFactor,
			m.AvgProfitPerTradePct,
			m.AvgBarsPerTrade,
			m.TradeCAGRPct,
			m.EquityCAGRPct,
		))
	}

	return sb.String()
}

// RenderTradeLogCSV renders the consolidated entry/exit log. Open trades
// leave the exit columns empty.
func RenderTradeLogCSV(rows []TradeLogRow) string {
	var sb strings.Builder

	sb.WriteString("Instrument,EntryDate,EntryPrice,Quantity,ExitDate,ExitPrice,NetPnL\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%.2f,%.2f,%s,%s,%s\n",
			r.Instrument,
			r.EntryDate.Format(dateLayout),
			r.EntryPrice,
			r.Quantity,
			formatDate(r.ExitDate),
			formatFloat(r.ExitPrice),
			formatFloat(r.NetPnL),
		))
	}

	return sb.String()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *f)
}
