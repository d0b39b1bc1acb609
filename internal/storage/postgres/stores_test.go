package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-lab/internal/domain"
	"portfolio-lab/internal/storage"
)

func TestPriceHistoryStore_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceHistoryStore(pool)
	ctx := context.Background()

	volume := 120000.0
	bars := []domain.PriceBar{
		{Instrument: "ACME", Date: domain.Day(2024, time.March, 4), Open: 101, High: 103, Low: 100, Close: 102, Volume: &volume},
		{Instrument: "ACME", Date: domain.Day(2024, time.March, 1), Open: 100, High: 101, Low: 99, Close: 100},
		{Instrument: "ZETA", Date: domain.Day(2024, time.March, 1), Open: 50, High: 51, Low: 49, Close: 50},
	}
	require.NoError(t, store.InsertBulk(ctx, bars))

	history, err := store.GetByInstrument(ctx, "ACME")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.Day(2024, time.March, 1), history[0].Date)
	assert.Equal(t, 102.0, history[1].Close)
	require.NotNil(t, history[1].Volume)
	assert.Equal(t, volume, *history[1].Volume)
	assert.Nil(t, history[0].Volume)

	instruments, err := store.Instruments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACME", "ZETA"}, instruments)
}

func TestPriceHistoryStore_DuplicateRollsBackBatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceHistoryStore(pool)
	ctx := context.Background()

	first := domain.PriceBar{Instrument: "ACME", Date: domain.Day(2024, time.March, 1), Close: 100}
	require.NoError(t, store.InsertBulk(ctx, []domain.PriceBar{first}))

	batch := []domain.PriceBar{
		{Instrument: "ACME", Date: domain.Day(2024, time.March, 4), Close: 102},
		first, // duplicate
	}
	err := store.InsertBulk(ctx, batch)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	history, err := store.GetByInstrument(ctx, "ACME")
	require.NoError(t, err)
	assert.Len(t, history, 1, "failed batch must roll back entirely")
}

func TestTradeLedgerStore_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeLedgerStore(pool)
	ctx := context.Background()

	exit := domain.Day(2024, time.March, 8)
	exitPrice := 110.0
	pnl := 100.0
	trades := []domain.TradeRecord{
		{
			Instrument: "ACME",
			EntryTime:  domain.Day(2024, time.March, 1),
			EntryPrice: 100,
			Quantity:   10,
			ExitTime:   &exit,
			ExitPrice:  &exitPrice,
			NetPnL:     &pnl,
		},
		{
			Instrument: "ACME",
			EntryTime:  domain.Day(2024, time.March, 11),
			EntryPrice: 108,
			Quantity:   -5,
		},
	}
	require.NoError(t, store.InsertBulk(ctx, trades))

	ledger, err := store.GetByInstrument(ctx, "ACME")
	require.NoError(t, err)
	require.Len(t, ledger, 2)

	assert.True(t, ledger[0].Closed())
	require.NotNil(t, ledger[0].NetPnL)
	assert.Equal(t, pnl, *ledger[0].NetPnL)
	assert.Equal(t, exit, *ledger[0].ExitTime)

	assert.False(t, ledger[1].Closed())
	assert.Nil(t, ledger[1].NetPnL)
	assert.Equal(t, -5.0, ledger[1].Quantity)
}
