package domain

import "time"

// CurvePoint is one day on the portfolio curve.
//
// Realized, Unrealized and Total are that day's increments; percentage fields
// are expressed relative to the point's own equity so compounding is
// reflected consistently. Drawdown is the day-over-day decline from the
// previous point's equity, never negative; MaxDrawdown is the running maximum
// of Drawdown and never decreases along the curve.
type CurvePoint struct {
	Date   time.Time
	Equity float64

	Exposure    float64 // sum of |entry price x quantity| over open positions
	ExposurePct float64

	Realized      float64
	RealizedPct   float64
	Unrealized    float64
	UnrealizedPct float64
	Total         float64
	TotalPct      float64

	Drawdown       float64
	DrawdownPct    float64
	MaxDrawdown    float64
	MaxDrawdownPct float64
}

// PortfolioCurve is the daily portfolio series built from all instruments'
// ledgers and prices. Invariant: for every point,
// equity = initial capital + sum of realized increments so far + open-position
// mark-to-market. Built once per window per evaluation, immutable afterward.
type PortfolioCurve struct {
	InitialCapital float64
	Points         []CurvePoint
}

// Last returns the final point, or false when the curve is empty.
func (c *PortfolioCurve) Last() (CurvePoint, bool) {
	if c == nil || len(c.Points) == 0 {
		return CurvePoint{}, false
	}
	return c.Points[len(c.Points)-1], true
}

// DailyReturns returns simple day-over-day equity returns keyed by date.
// The baseline point anchors the first return.
func (c *PortfolioCurve) DailyReturns() map[time.Time]float64 {
	returns := make(map[time.Time]float64)
	if c == nil {
		return returns
	}
	for i := 1; i < len(c.Points); i++ {
		prev := c.Points[i-1].Equity
		if prev == 0 {
			continue
		}
		returns[c.Points[i].Date] = c.Points[i].Equity/prev - 1
	}
	return returns
}

// EquityPoint is one dated equity observation.
type EquityPoint struct {
	Date   time.Time
	Equity float64
}

// EquitySeries is a dated equity sequence, ascending by date.
type EquitySeries []EquityPoint
