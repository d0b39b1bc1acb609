// Package lookup provides date-indexed access into ascending bar series.
package lookup

import (
	"errors"
	"sort"
	"time"

	"portfolio-lab/internal/domain"
)

// ErrNoPriceData is returned when a lookup runs against an empty history.
var ErrNoPriceData = errors.New("no price data available")

// CloseAt returns the close of the latest bar at or before target.
// If every bar is after target, the first available close is returned.
// Returns ErrNoPriceData when the history is empty.
func CloseAt(target time.Time, history domain.PriceHistory) (float64, error) {
	i, err := indexAtOrBefore(target, history)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return history[0].Close, nil
	}
	return history[i].Close, nil
}

// BarIndexAtOrBefore returns the index of the latest bar at or before target,
// or 0 when target precedes the whole history.
// Returns ErrNoPriceData when the history is empty.
func BarIndexAtOrBefore(target time.Time, history domain.PriceHistory) (int, error) {
	i, err := indexAtOrBefore(target, history)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, nil
	}
	return i, nil
}

// indexAtOrBefore binary-searches the ascending history.
// Returns -1 when target precedes every bar.
func indexAtOrBefore(target time.Time, history domain.PriceHistory) (int, error) {
	if len(history) == 0 {
		return 0, ErrNoPriceData
	}
	// First bar strictly after target; the one before it is the answer.
	i := sort.Search(len(history), func(i int) bool {
		return history[i].Date.After(target)
	})
	return i - 1, nil
}
