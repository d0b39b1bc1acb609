package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-lab/internal/domain"
)

func dailyBars(instrument string, from time.Time, days int) domain.PriceHistory {
	bars := make(domain.PriceHistory, 0, days)
	for i := 0; i < days; i++ {
		bars = append(bars, domain.PriceBar{
			Instrument: instrument,
			Date:       from.AddDate(0, 0, i),
			Close:      100 + float64(i),
		})
	}
	return bars
}

func closedTrade(entry, exit time.Time, pnl float64) domain.TradeRecord {
	exitPrice := 110.0
	return domain.TradeRecord{
		Instrument: "ACME",
		EntryTime:  entry,
		EntryPrice: 100,
		Quantity:   10,
		ExitTime:   &exit,
		ExitPrice:  &exitPrice,
		NetPnL:     &pnl,
	}
}

func TestSlice_UnboundedReturnsInputsUnchanged(t *testing.T) {
	history := dailyBars("ACME", domain.Day(2020, time.January, 1), 100)
	ledger := []domain.TradeRecord{closedTrade(history[5].Date, history[10].Date, 50)}
	equity := domain.EquitySeries{{Date: history[0].Date, Equity: 1000}}

	h, l, e := Slice(history, ledger, equity, domain.WindowAll)

	assert.Equal(t, len(history), len(h))
	assert.Equal(t, len(ledger), len(l))
	assert.Equal(t, len(equity), len(e))
}

func TestSlice_OneYearWindowFiltersBars(t *testing.T) {
	// Three years of bars ending 2023-12-31.
	history := dailyBars("ACME", domain.Day(2021, time.January, 1), 1095)
	last, ok := history.Last()
	require.True(t, ok)
	start := last.Date.AddDate(-1, 0, 0)

	h, _, _ := Slice(history, nil, nil, domain.Window1Y)

	require.NotEmpty(t, h)
	assert.False(t, h[0].Date.Before(start))
	assert.Equal(t, last.Date, h[len(h)-1].Date)
}

func TestSlice_ShortHistoryDegradesToFull(t *testing.T) {
	history := dailyBars("ACME", domain.Day(2024, time.January, 1), 30)

	h, _, _ := Slice(history, nil, nil, domain.Window5Y)

	assert.Equal(t, len(history), len(h))
}

func TestSlice_KeepsTradeClosedInsideWindow(t *testing.T) {
	history := dailyBars("ACME", domain.Day(2021, time.January, 1), 1095)
	last, _ := history.Last()
	start := last.Date.AddDate(-1, 0, 0)

	// Entered before the window but closed inside it: kept.
	ledger := []domain.TradeRecord{
		closedTrade(start.AddDate(0, -6, 0), start.AddDate(0, 1, 0), 50),
	}

	_, l, _ := Slice(history, ledger, nil, domain.Window1Y)
	assert.Len(t, l, 1)
}

func TestSlice_DropsTradeClosedBeforeWindow(t *testing.T) {
	history := dailyBars("ACME", domain.Day(2021, time.January, 1), 1095)
	last, _ := history.Last()
	start := last.Date.AddDate(-1, 0, 0)

	ledger := []domain.TradeRecord{
		closedTrade(start.AddDate(-1, 0, 0), start.AddDate(0, 0, -10), 50),
	}

	_, l, _ := Slice(history, ledger, nil, domain.Window1Y)
	assert.Empty(t, l)
}

func TestSlice_ExcludesOpenTradeEnteredBeforeWindow(t *testing.T) {
	history := dailyBars("ACME", domain.Day(2021, time.January, 1), 1095)
	last, _ := history.Last()
	start := last.Date.AddDate(-1, 0, 0)

	open := domain.TradeRecord{
		Instrument: "ACME",
		EntryTime:  start.AddDate(0, -3, 0),
		EntryPrice: 100,
		Quantity:   10,
	}
	openInside := domain.TradeRecord{
		Instrument: "ACME",
		EntryTime:  start.AddDate(0, 3, 0),
		EntryPrice: 100,
		Quantity:   10,
	}

	_, l, _ := Slice(history, []domain.TradeRecord{open, openInside}, nil, domain.Window1Y)

	require.Len(t, l, 1)
	assert.Equal(t, openInside.EntryTime, l[0].EntryTime)
}

func TestSlice_EquityFiltered(t *testing.T) {
	history := dailyBars("ACME", domain.Day(2021, time.January, 1), 1095)
	last, _ := history.Last()
	start := last.Date.AddDate(-1, 0, 0)

	equity := domain.EquitySeries{
		{Date: start.AddDate(0, 0, -1), Equity: 900},
		{Date: start, Equity: 1000},
		{Date: last.Date, Equity: 1100},
	}

	_, _, e := Slice(history, nil, equity, domain.Window1Y)
	require.Len(t, e, 2)
	assert.Equal(t, 1000.0, e[0].Equity)
}
