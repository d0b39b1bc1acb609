package curve

import (
	"sort"
	"time"

	"portfolio-lab/internal/domain"
)

// Monthly rolls the daily curve up per calendar month: level fields keep the
// month's last value, increment fields are summed, drawdown fields take the
// month's maximum. The baseline point is not part of any month.
func Monthly(c *domain.PortfolioCurve) []domain.CurvePoint {
	if c == nil || len(c.Points) < 2 {
		return nil
	}

	type monthKey struct {
		year  int
		month time.Month
	}

	byMonth := make(map[monthKey]*domain.CurvePoint)
	var order []monthKey

	for _, p := range c.Points[1:] {
		key := monthKey{year: p.Date.Year(), month: p.Date.Month()}
		agg, ok := byMonth[key]
		if !ok {
			cp := p
			byMonth[key] = &cp
			order = append(order, key)
			continue
		}

		// Levels follow the latest day seen.
		agg.Date = p.Date
		agg.Equity = p.Equity
		agg.Exposure = p.Exposure
		agg.ExposurePct = p.ExposurePct

		agg.Realized += p.Realized
		agg.RealizedPct += p.RealizedPct
		agg.Unrealized += p.Unrealized
		agg.UnrealizedPct += p.UnrealizedPct
		agg.Total += p.Total
		agg.TotalPct += p.TotalPct

		if p.Drawdown > agg.Drawdown {
			agg.Drawdown = p.Drawdown
		}
		if p.DrawdownPct > agg.DrawdownPct {
			agg.DrawdownPct = p.DrawdownPct
		}
		if p.MaxDrawdown > agg.MaxDrawdown {
			agg.MaxDrawdown = p.MaxDrawdown
		}
		if p.MaxDrawdownPct > agg.MaxDrawdownPct {
			agg.MaxDrawdownPct = p.MaxDrawdownPct
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].year != order[j].year {
			return order[i].year < order[j].year
		}
		return order[i].month < order[j].month
	})

	out := make([]domain.CurvePoint, 0, len(order))
	for _, key := range order {
		out = append(out, *byMonth[key])
	}
	return out
}
