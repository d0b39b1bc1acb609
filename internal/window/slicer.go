// Package window derives bounded views of an instrument's history, ledger
// and equity series without re-running the simulation.
package window

import (
	"time"

	"portfolio-lab/internal/domain"
)

// Slice returns the views of history, ledger and equity restricted to the
// given window. The unbounded window returns the inputs unchanged.
//
// For a bounded window the start date is a calendar offset of the window's
// years back from the last available bar, clamped to the first available date
// when the history is shorter. The sliced ledger keeps trades that closed at
// or after the start, plus still-open trades that were entered at or after
// it. A trade opened before the window and still open at the window start is
// excluded entirely: re-opening it at the boundary would require a synthetic
// entry price, and ledger rows are immutable simulation output.
//
// Slice never fails; it degrades to the full history when the window cannot
// be formed.
func Slice(
	history domain.PriceHistory,
	ledger []domain.TradeRecord,
	equity domain.EquitySeries,
	w domain.Window,
) (domain.PriceHistory, []domain.TradeRecord, domain.EquitySeries) {
	if !w.Bounded() {
		return history, ledger, equity
	}
	last, ok := history.Last()
	if !ok {
		return history, ledger, equity
	}

	start := last.Date.AddDate(-w.Years, 0, 0)
	if first, ok := history.First(); ok && start.Before(first.Date) {
		start = first.Date
	}

	return sliceBars(history, start), sliceLedger(ledger, start), sliceEquity(equity, start)
}

func sliceBars(history domain.PriceHistory, start time.Time) domain.PriceHistory {
	out := make(domain.PriceHistory, 0, len(history))
	for _, bar := range history {
		if !bar.Date.Before(start) {
			out = append(out, bar)
		}
	}
	return out
}

func sliceLedger(ledger []domain.TradeRecord, start time.Time) []domain.TradeRecord {
	out := make([]domain.TradeRecord, 0, len(ledger))
	for _, tr := range ledger {
		switch {
		case tr.Closed():
			if !tr.ExitTime.Before(start) {
				out = append(out, tr)
			}
		default:
			if !tr.EntryTime.Before(start) {
				out = append(out, tr)
			}
		}
	}
	return out
}

func sliceEquity(equity domain.EquitySeries, start time.Time) domain.EquitySeries {
	out := make(domain.EquitySeries, 0, len(equity))
	for _, p := range equity {
		if !p.Date.Before(start) {
			out = append(out, p)
		}
	}
	return out
}
