package domain

import "time"

// PriceBar represents one OHLC bar for an instrument.
// Dates are unique per instrument and stored in ascending order.
type PriceBar struct {
	Instrument string
	Date       time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     *float64 // not all sources provide volume
}

// PriceHistory is an instrument's bar series, ascending by date.
type PriceHistory []PriceBar

// First returns the earliest bar, or false when the history is empty.
func (h PriceHistory) First() (PriceBar, bool) {
	if len(h) == 0 {
		return PriceBar{}, false
	}
	return h[0], true
}

// Last returns the latest bar, or false when the history is empty.
func (h PriceHistory) Last() (PriceBar, bool) {
	if len(h) == 0 {
		return PriceBar{}, false
	}
	return h[len(h)-1], true
}

// Day builds a UTC-midnight date, the canonical bar timestamp.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
