// Package postgres implements the read-side input stores on PostgreSQL,
// where an upstream simulation deposits its bars and trade records.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// Schema holds the DDL for both input tables. Applied by tests and by
// whatever upstream process owns the database.
const Schema = `
CREATE TABLE IF NOT EXISTS price_bars (
	instrument  TEXT             NOT NULL,
	bar_date    DATE             NOT NULL,
	open        DOUBLE PRECISION NOT NULL,
	high        DOUBLE PRECISION NOT NULL,
	low         DOUBLE PRECISION NOT NULL,
	close       DOUBLE PRECISION NOT NULL,
	volume      DOUBLE PRECISION,
	PRIMARY KEY (instrument, bar_date)
);

CREATE TABLE IF NOT EXISTS trade_records (
	instrument  TEXT             NOT NULL,
	entry_time  DATE             NOT NULL,
	entry_price DOUBLE PRECISION NOT NULL,
	quantity    DOUBLE PRECISION NOT NULL,
	exit_time   DATE,
	exit_price  DOUBLE PRECISION,
	net_pnl     DOUBLE PRECISION,
	PRIMARY KEY (instrument, entry_time, entry_price, quantity)
);
`

const pgErrUniqueViolation = "23505"

// isDuplicateKeyError checks if err is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	return false
}
