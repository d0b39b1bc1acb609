package domain

import "time"

// TradeRecord represents one open-to-close position lifecycle produced by the
// simulation layer. Records are immutable once created; the accounting engine
// only reads them.
type TradeRecord struct {
	Instrument string // tradable symbol

	// Entry
	EntryTime  time.Time // bar date the position was opened on
	EntryPrice float64
	Quantity   float64 // signed; negative means short

	// Exit (set only once the trade is closed)
	ExitTime  *time.Time
	ExitPrice *float64
	NetPnL    *float64 // realized net P&L after costs
}

// Closed reports whether the trade has an exit recorded.
// A closed trade must carry a finite NetPnL; an open trade is valued by
// mark-to-market using the latest close at or before the evaluation date.
func (t *TradeRecord) Closed() bool {
	return t.ExitTime != nil
}

// Deployed returns the absolute notional committed at entry.
func (t *TradeRecord) Deployed() float64 {
	v := t.EntryPrice * t.Quantity
	if v < 0 {
		return -v
	}
	return v
}

// OpenAt reports whether the trade holds a position on the given date:
// entered at or before it and either never closed or closed after it.
func (t *TradeRecord) OpenAt(date time.Time) bool {
	if t.EntryTime.After(date) {
		return false
	}
	return t.ExitTime == nil || t.ExitTime.After(date)
}
