package postgres

import (
	"context"
	"fmt"
	"time"

	"portfolio-lab/internal/domain"
	"portfolio-lab/internal/storage"
)

// PriceHistoryStore implements storage.PriceHistoryStore using PostgreSQL.
type PriceHistoryStore struct {
	pool *Pool
}

// NewPriceHistoryStore creates a new PriceHistoryStore.
func NewPriceHistoryStore(pool *Pool) *PriceHistoryStore {
	return &PriceHistoryStore{pool: pool}
}

var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)

// InsertBulk adds bars atomically. Fails the entire batch on any duplicate.
func (s *PriceHistoryStore) InsertBulk(ctx context.Context, bars []domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO price_bars (instrument, bar_date, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, bar := range bars {
		if bar.Instrument == "" || bar.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			bar.Instrument, bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert price bar: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByInstrument retrieves an instrument's bars ordered by date ASC.
func (s *PriceHistoryStore) GetByInstrument(ctx context.Context, instrument string) (domain.PriceHistory, error) {
	query := `
		SELECT instrument, bar_date, open, high, low, close, volume
		FROM price_bars
		WHERE instrument = $1
		ORDER BY bar_date ASC
	`
	rows, err := s.pool.Query(ctx, query, instrument)
	if err != nil {
		return nil, fmt.Errorf("query price bars: %w", err)
	}
	defer rows.Close()

	var history domain.PriceHistory
	for rows.Next() {
		var (
			bar  domain.PriceBar
			date time.Time
		)
		if err := rows.Scan(&bar.Instrument, &date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, fmt.Errorf("scan price bar: %w", err)
		}
		bar.Date = domain.Day(date.Year(), date.Month(), date.Day())
		history = append(history, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price bars: %w", err)
	}
	return history, nil
}

// Instruments lists all instruments with at least one bar, sorted.
func (s *PriceHistoryStore) Instruments(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT instrument FROM price_bars ORDER BY instrument`)
	if err != nil {
		return nil, fmt.Errorf("query instruments: %w", err)
	}
	defer rows.Close()

	var instruments []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		instruments = append(instruments, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instruments: %w", err)
	}
	return instruments, nil
}
