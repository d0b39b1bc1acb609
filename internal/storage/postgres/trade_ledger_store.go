package postgres

import (
	"context"
	"fmt"
	"time"

	"portfolio-lab/internal/domain"
	"portfolio-lab/internal/storage"
)

// TradeLedgerStore implements storage.TradeLedgerStore using PostgreSQL.
type TradeLedgerStore struct {
	pool *Pool
}

// NewTradeLedgerStore creates a new TradeLedgerStore.
func NewTradeLedgerStore(pool *Pool) *TradeLedgerStore {
	return &TradeLedgerStore{pool: pool}
}

var _ storage.TradeLedgerStore = (*TradeLedgerStore)(nil)

// InsertBulk adds trade records atomically. Fails the entire batch on any
// duplicate.
func (s *TradeLedgerStore) InsertBulk(ctx context.Context, trades []domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO trade_records (
			instrument, entry_time, entry_price, quantity,
			exit_time, exit_price, net_pnl
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, tr := range trades {
		if tr.Instrument == "" || tr.EntryTime.IsZero() {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			tr.Instrument, tr.EntryTime, tr.EntryPrice, tr.Quantity,
			tr.ExitTime, tr.ExitPrice, tr.NetPnL,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByInstrument retrieves an instrument's trades ordered by entry time ASC.
func (s *TradeLedgerStore) GetByInstrument(ctx context.Context, instrument string) ([]domain.TradeRecord, error) {
	query := `
		SELECT instrument, entry_time, entry_price, quantity, exit_time, exit_price, net_pnl
		FROM trade_records
		WHERE instrument = $1
		ORDER BY entry_time ASC
	`
	rows, err := s.pool.Query(ctx, query, instrument)
	if err != nil {
		return nil, fmt.Errorf("query trade records: %w", err)
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		var (
			tr        domain.TradeRecord
			entryTime time.Time
			exitTime  *time.Time
		)
		if err := rows.Scan(&tr.Instrument, &entryTime, &tr.EntryPrice, &tr.Quantity, &exitTime, &tr.ExitPrice, &tr.NetPnL); err != nil {
			return nil, fmt.Errorf("scan trade record: %w", err)
		}
		tr.EntryTime = domain.Day(entryTime.Year(), entryTime.Month(), entryTime.Day())
		if exitTime != nil {
			normalized := domain.Day(exitTime.Year(), exitTime.Month(), exitTime.Day())
			tr.ExitTime = &normalized
		}
		trades = append(trades, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade records: %w", err)
	}
	return trades, nil
}
