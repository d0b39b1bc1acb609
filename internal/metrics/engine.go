// Package metrics computes per-instrument and portfolio-level performance
// statistics from trade ledgers, price histories and portfolio curves.
package metrics

import (
	"math"

	"portfolio-lab/internal/domain"
	"portfolio-lab/internal/lookup"
)

// ledgerEntry pairs a trade with its instrument's price history so bars-held
// can be computed for mixed-instrument trade sets.
type ledgerEntry struct {
	trade   domain.TradeRecord
	history domain.PriceHistory
}

// ComputeInstrument computes the full statistics record for one instrument
// in one window. curve is the instrument's own single-instrument curve; it
// may be nil when equity-based statistics are not wanted.
func ComputeInstrument(
	trades []domain.TradeRecord,
	history domain.PriceHistory,
	curve *domain.PortfolioCurve,
	w domain.Window,
	barsPerYear, initialCapital float64,
) domain.PerformanceMetrics {
	entries := make([]ledgerEntry, 0, len(trades))
	for _, tr := range trades {
		entries = append(entries, ledgerEntry{trade: tr, history: history})
	}
	return compute(entries, curve, w, barsPerYear, initialCapital)
}

// ComputePortfolio computes the portfolio-level statistics record from the
// combined curve and every instrument's trades.
func ComputePortfolio(
	ledgers map[string][]domain.TradeRecord,
	histories map[string]domain.PriceHistory,
	curve *domain.PortfolioCurve,
	w domain.Window,
	barsPerYear, initialCapital float64,
) domain.PerformanceMetrics {
	var entries []ledgerEntry
	for instrument, trades := range ledgers {
		history := histories[instrument]
		for _, tr := range trades {
			entries = append(entries, ledgerEntry{trade: tr, history: history})
		}
	}
	return compute(entries, curve, w, barsPerYear, initialCapital)
}

// compute fills the flat statistics record. An empty trade set yields the
// zero-value "no signal" record rather than an error so inactive symbols do
// not abort a batch.
func compute(
	entries []ledgerEntry,
	curve *domain.PortfolioCurve,
	w domain.Window,
	barsPerYear, initialCapital float64,
) domain.PerformanceMetrics {
	m := domain.PerformanceMetrics{}

	var (
		closed      int
		wins        int
		sumPct      float64
		grossWin    float64
		grossLoss   float64 // absolute value
		sumWin      float64
		sumLoss     float64 // signed negative
		closedPnLs  []float64
		sumBars     float64
		countedBars int
	)

	for _, e := range entries {
		if bars, ok := barsHeld(e.trade, e.history); ok {
			sumBars += bars
			countedBars++
		}

		if !e.trade.Closed() || e.trade.NetPnL == nil {
			continue
		}
		pnl := *e.trade.NetPnL
		closed++
		closedPnLs = append(closedPnLs, pnl)
		sumPct += Percent(pnl, e.trade.Deployed())
		if pnl > 0 {
			wins++
			grossWin += pnl
			sumWin += pnl
		} else {
			grossLoss += -pnl
			sumLoss += pnl
		}
	}

	m.NumTrades = closed
	m.WinRatePct = Percent(float64(wins), float64(closed))
	m.AvgProfitPerTradePct = Ratio(sumPct, float64(closed))
	m.AvgBarsPerTrade = Ratio(sumBars, float64(countedBars))
	m.ProfitFactor = RatioOrInf(grossWin, grossLoss)

	// Annualize the per-trade percentage by bar turnover. With no bar span
	// to annualize over, report the raw unannualized figure.
	if m.AvgBarsPerTrade > 0 {
		m.TradeCAGRPct = m.AvgProfitPerTradePct * (barsPerYear / m.AvgBarsPerTrade)
	} else {
		m.TradeCAGRPct = m.AvgProfitPerTradePct
	}

	losses := closed - wins
	m.AvgWin = Ratio(sumWin, float64(wins))
	m.AvgLoss = Ratio(sumLoss, float64(losses))

	p := Ratio(float64(wins), float64(closed))
	m.Expectancy = p*m.AvgWin + (1-p)*m.AvgLoss
	m.Kelly = kelly(p, m.AvgWin, m.AvgLoss, closed)
	m.SQN = sqn(closedPnLs, m.Expectancy)

	if curve != nil {
		fillEquityStats(&m, curve, w, barsPerYear, initialCapital)
	}
	return m
}

// barsHeld returns the inclusive bar count between entry and exit. Open
// trades use the last available bar as the exit stand-in.
func barsHeld(tr domain.TradeRecord, history domain.PriceHistory) (float64, bool) {
	if len(history) == 0 {
		return 0, false
	}
	entryIdx, err := lookup.BarIndexAtOrBefore(tr.EntryTime, history)
	if err != nil {
		return 0, false
	}
	exitIdx := len(history) - 1
	if tr.ExitTime != nil {
		exitIdx, err = lookup.BarIndexAtOrBefore(*tr.ExitTime, history)
		if err != nil {
			return 0, false
		}
	}
	if exitIdx < entryIdx {
		return 0, false
	}
	return float64(exitIdx - entryIdx + 1), true
}

func fillEquityStats(m *domain.PerformanceMetrics, curve *domain.PortfolioCurve, w domain.Window, barsPerYear, initialCapital float64) {
	last, ok := curve.Last()
	if !ok {
		return
	}

	m.NetProfitPct = Percent(last.Equity-initialCapital, initialCapital)
	m.MaxDrawdownPct = last.MaxDrawdownPct
	m.EquityCAGRPct = equityCAGR(curve, w, initialCapital)
	m.SharpeRatio, m.SortinoRatio = riskAdjusted(curve, barsPerYear)
	// Calmar routes to +Inf on a drawdown-free curve whatever the CAGR.
	if m.MaxDrawdownPct == 0 {
		m.CalmarRatio = math.Inf(1)
	} else {
		m.CalmarRatio = m.EquityCAGRPct / math.Abs(m.MaxDrawdownPct)
	}
}

// equityCAGR computes geometric growth over the window's span.
//
// Bounded windows annualize over the fixed nominal window length even when
// available history inside the window is shorter; the unbounded window uses
// the actual elapsed calendar span. The divergence is intentional: a bounded
// window reports a rate as if the window were exactly that long.
func equityCAGR(curve *domain.PortfolioCurve, w domain.Window, initialCapital float64) float64 {
	last, ok := curve.Last()
	if !ok || initialCapital <= 0 {
		return 0
	}
	growth := last.Equity / initialCapital
	if growth <= 0 {
		return 0
	}

	var years float64
	if w.Bounded() {
		years = float64(w.Years)
	} else {
		first := curve.Points[0]
		years = last.Date.Sub(first.Date).Hours() / 24 / 365.25
	}
	if years <= 0 {
		return (growth - 1) * 100
	}
	return (math.Pow(growth, 1/years) - 1) * 100
}

func riskAdjusted(curve *domain.PortfolioCurve, barsPerYear float64) (sharpe, sortino float64) {
	var returns []float64
	for i := 1; i < len(curve.Points); i++ {
		prev := curve.Points[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, curve.Points[i].Equity/prev-1)
	}
	if len(returns) == 0 {
		return 0, 0
	}

	avg := mean(returns)
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}

	annualize := math.Sqrt(barsPerYear)
	sharpe = Ratio(avg, stddev(returns)) * annualize
	sortino = Ratio(avg, stddev(downside)) * annualize
	return sharpe, sortino
}

// kelly computes the Kelly criterion p - (1-p)/b with b the win/loss
// magnitude ratio, clamped to [0,1]. With wins and no losing trades the
// payoff ratio is unbounded and the clamped fraction is 1.
func kelly(p, avgWin, avgLoss float64, closed int) float64 {
	if closed == 0 {
		return 0
	}
	lossMag := math.Abs(avgLoss)
	if lossMag == 0 {
		if p > 0 {
			return 1
		}
		return 0
	}
	b := avgWin / lossMag
	if b == 0 {
		return 0
	}
	return clamp01(p - (1-p)/b)
}

func sqn(pnls []float64, expectancy float64) float64 {
	sd := stddev(pnls)
	return Ratio(expectancy, sd) * math.Sqrt(float64(len(pnls)))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the sample standard deviation (n-1 denominator), 0 below two
// samples.
func stddev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	avg := mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - avg
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// Named metric lookups used by the optimizer's scoring step.
var namedMetrics = map[string]func(domain.PerformanceMetrics) float64{
	"SharpeRatio":    func(m domain.PerformanceMetrics) float64 { return m.SharpeRatio },
	"SortinoRatio":   func(m domain.PerformanceMetrics) float64 { return m.SortinoRatio },
	"CalmarRatio":    func(m domain.PerformanceMetrics) float64 { return m.CalmarRatio },
	"ProfitFactor":   func(m domain.PerformanceMetrics) float64 { return m.ProfitFactor },
	"NetProfitPct":   func(m domain.PerformanceMetrics) float64 { return m.NetProfitPct },
	"EquityCAGRPct":  func(m domain.PerformanceMetrics) float64 { return m.EquityCAGRPct },
	"TradeCAGRPct":   func(m domain.PerformanceMetrics) float64 { return m.TradeCAGRPct },
	"WinRatePct":     func(m domain.PerformanceMetrics) float64 { return m.WinRatePct },
	"Expectancy":     func(m domain.PerformanceMetrics) float64 { return m.Expectancy },
	"SQN":            func(m domain.PerformanceMetrics) float64 { return m.SQN },
	"MaxDrawdownPct": func(m domain.PerformanceMetrics) float64 { return -m.MaxDrawdownPct },
}

// Metric returns an extractor for a named statistic, for score-based ranking.
// MaxDrawdownPct is negated so that larger is always better.
func Metric(name string) (func(domain.PerformanceMetrics) float64, bool) {
	fn, ok := namedMetrics[name]
	return fn, ok
}
