// Package storage defines the read-side stores feeding the accounting engine
// and the checkpoint store backing resumable batch runs.
package storage

import (
	"context"

	"portfolio-lab/internal/domain"
)

// PriceHistoryStore provides access to per-instrument OHLC bars. Bars are
// produced by the upstream data layer; the engine only reads them.
type PriceHistoryStore interface {
	// InsertBulk adds bars. Returns ErrDuplicateKey if any
	// (instrument, date) already exists; the whole batch fails.
	InsertBulk(ctx context.Context, bars []domain.PriceBar) error

	// GetByInstrument retrieves an instrument's bars ordered by date ASC.
	// An unknown instrument yields an empty history, not an error.
	GetByInstrument(ctx context.Context, instrument string) (domain.PriceHistory, error)

	// Instruments lists all instruments with at least one bar, sorted.
	Instruments(ctx context.Context) ([]string, error)
}

// TradeLedgerStore provides access to per-instrument trade records produced
// by the upstream simulation layer.
type TradeLedgerStore interface {
	// InsertBulk adds trade records. The whole batch fails on any
	// duplicate (instrument, entry time, entry price, quantity) key.
	InsertBulk(ctx context.Context, trades []domain.TradeRecord) error

	// GetByInstrument retrieves an instrument's trades ordered by entry
	// time ASC. An unknown instrument yields an empty ledger.
	GetByInstrument(ctx context.Context, instrument string) ([]domain.TradeRecord, error)
}
