// Package curve builds the daily portfolio curve from every instrument's
// trade ledger and price history.
package curve

import (
	"sort"
	"time"

	"portfolio-lab/internal/domain"
	"portfolio-lab/internal/lookup"
	"portfolio-lab/internal/metrics"
)

// Build merges trade ledgers and price histories across all instruments into
// one daily portfolio curve. Pure, no I/O.
//
// The time axis is the ascending union of every instrument's bar dates;
// instruments need not share a calendar. Each closed trade's realized P&L is
// attributed to exactly its recorded exit date, once. Open trades are marked
// to market at the latest close at or before each date; a trade opened
// exactly on the current date contributes zero unrealized P&L but full
// exposure. For every point,
//
//	equity = initialCapital + running realized + total unrealized
//
// Drawdown is the day-over-day decline max(0, prevEquity - equity) and the
// running max drawdown never decreases. An explicit baseline point at
// initialCapital is prepended one day before the first computed point.
func Build(
	ledgers map[string][]domain.TradeRecord,
	histories map[string]domain.PriceHistory,
	initialCapital float64,
) *domain.PortfolioCurve {
	axis := dateAxis(histories)
	curve := &domain.PortfolioCurve{InitialCapital: initialCapital}
	if len(axis) == 0 {
		return curve
	}

	realizedByDate := realizedContributions(ledgers)

	curve.Points = make([]domain.CurvePoint, 0, len(axis)+1)
	curve.Points = append(curve.Points, domain.CurvePoint{
		Date:   axis[0].AddDate(0, 0, -1),
		Equity: initialCapital,
	})

	var (
		runningRealized float64
		prevEquity      = initialCapital
		prevUnrealized  float64
		maxDD           float64
		maxDDPct        float64
	)

	for _, date := range axis {
		realizedDelta := realizedByDate[date]
		runningRealized += realizedDelta

		unrealized, exposure := markToMarket(ledgers, histories, date)

		equity := initialCapital + runningRealized + unrealized

		drawdown := prevEquity - equity
		if drawdown < 0 {
			drawdown = 0
		}
		drawdownPct := metrics.Percent(drawdown, equity)
		if drawdown > maxDD {
			maxDD = drawdown
		}
		if drawdownPct > maxDDPct {
			maxDDPct = drawdownPct
		}

		unrealizedDelta := unrealized - prevUnrealized
		totalDelta := equity - prevEquity

		curve.Points = append(curve.Points, domain.CurvePoint{
			Date:           date,
			Equity:         equity,
			Exposure:       exposure,
			ExposurePct:    metrics.Percent(exposure, equity),
			Realized:       realizedDelta,
			RealizedPct:    metrics.Percent(realizedDelta, equity),
			Unrealized:     unrealizedDelta,
			UnrealizedPct:  metrics.Percent(unrealizedDelta, equity),
			Total:          totalDelta,
			TotalPct:       metrics.Percent(totalDelta, equity),
			Drawdown:       drawdown,
			DrawdownPct:    drawdownPct,
			MaxDrawdown:    maxDD,
			MaxDrawdownPct: maxDDPct,
		})

		prevEquity = equity
		prevUnrealized = unrealized
	}

	return curve
}

// dateAxis unions all bar dates across instruments, ascending.
func dateAxis(histories map[string]domain.PriceHistory) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, history := range histories {
		for _, bar := range history {
			seen[bar.Date] = struct{}{}
		}
	}
	axis := make([]time.Time, 0, len(seen))
	for date := range seen {
		axis = append(axis, date)
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })
	return axis
}

// realizedContributions maps each exit date to the sum of net P&L realized on
// it, so a trade's profit lands on exactly one day and is never counted twice.
func realizedContributions(ledgers map[string][]domain.TradeRecord) map[time.Time]float64 {
	realized := make(map[time.Time]float64)
	for _, trades := range ledgers {
		for _, tr := range trades {
			if tr.Closed() && tr.NetPnL != nil {
				realized[*tr.ExitTime] += *tr.NetPnL
			}
		}
	}
	return realized
}

// markToMarket values all positions open on date. A trade entered exactly on
// date carries full exposure but zero unrealized P&L: its entry fill is the
// day's reference price.
func markToMarket(
	ledgers map[string][]domain.TradeRecord,
	histories map[string]domain.PriceHistory,
	date time.Time,
) (unrealized, exposure float64) {
	for instrument, trades := range ledgers {
		history := histories[instrument]
		for _, tr := range trades {
			if !tr.OpenAt(date) {
				continue
			}
			exposure += tr.Deployed()
			if tr.EntryTime.Equal(date) {
				continue
			}
			price, err := lookup.CloseAt(date, history)
			if err != nil {
				continue
			}
			unrealized += (price - tr.EntryPrice) * tr.Quantity
		}
	}
	return unrealized, exposure
}
