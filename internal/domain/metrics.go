package domain

// PerformanceMetrics is a flat named-statistics record for one
// (instrument-or-portfolio, window) pair. It is a pure value: identity lives
// in whatever map or report row holds it.
//
// An instrument with no closed trades in a window produces the zero value
// ("no signal", never an error), so inactive symbols do not abort a batch.
// Callers that must distinguish "computed zero" from "undefined" inspect
// NumTrades alongside the statistic.
type PerformanceMetrics struct {
	// Trade-based (closed trades only unless noted)
	NumTrades            int
	WinRatePct           float64 // % of closed trades with positive net P&L
	AvgProfitPerTradePct float64 // mean net P&L over deployed capital, in %
	AvgBarsPerTrade      float64 // open trades use the last bar as exit stand-in
	TradeCAGRPct         float64 // per-trade % annualized by bar turnover (IRR)
	ProfitFactor         float64 // +Inf with wins and no losses, 0 with no wins
	NetProfitPct         float64 // total net P&L over initial capital, in %

	// Equity-based
	EquityCAGRPct  float64
	MaxDrawdownPct float64
	SharpeRatio    float64
	SortinoRatio   float64
	CalmarRatio    float64

	// Position sizing / quality
	Kelly      float64 // clamped to [0,1]
	SQN        float64
	Expectancy float64
	AvgWin     float64
	AvgLoss    float64 // signed negative
}
