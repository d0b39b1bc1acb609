package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"portfolio-lab/internal/domain"
	"portfolio-lab/internal/storage"
)

func TestPriceHistoryStore_InsertAndGetSorted(t *testing.T) {
	store := NewPriceHistoryStore()
	ctx := context.Background()

	bars := []domain.PriceBar{
		{Instrument: "ACME", Date: domain.Day(2024, time.March, 5), Close: 101},
		{Instrument: "ACME", Date: domain.Day(2024, time.March, 1), Close: 100},
		{Instrument: "ZETA", Date: domain.Day(2024, time.March, 1), Close: 50},
	}
	if err := store.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	history, err := store.GetByInstrument(ctx, "ACME")
	if err != nil {
		t.Fatalf("GetByInstrument failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(history))
	}
	if !history[0].Date.Before(history[1].Date) {
		t.Error("bars not sorted ascending by date")
	}
}

func TestPriceHistoryStore_DuplicateKey(t *testing.T) {
	store := NewPriceHistoryStore()
	ctx := context.Background()

	bar := domain.PriceBar{Instrument: "ACME", Date: domain.Day(2024, time.March, 1), Close: 100}
	if err := store.InsertBulk(ctx, []domain.PriceBar{bar}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []domain.PriceBar{bar})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestPriceHistoryStore_IntraBatchDuplicate(t *testing.T) {
	store := NewPriceHistoryStore()
	ctx := context.Background()

	bar := domain.PriceBar{Instrument: "ACME", Date: domain.Day(2024, time.March, 1), Close: 100}
	err := store.InsertBulk(ctx, []domain.PriceBar{bar, bar})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	// Failed batch must not be partially applied.
	history, _ := store.GetByInstrument(ctx, "ACME")
	if len(history) != 0 {
		t.Errorf("expected no bars after failed batch, got %d", len(history))
	}
}

func TestPriceHistoryStore_Instruments(t *testing.T) {
	store := NewPriceHistoryStore()
	ctx := context.Background()

	bars := []domain.PriceBar{
		{Instrument: "ZETA", Date: domain.Day(2024, time.March, 1), Close: 50},
		{Instrument: "ACME", Date: domain.Day(2024, time.March, 1), Close: 100},
	}
	if err := store.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	instruments, err := store.Instruments(ctx)
	if err != nil {
		t.Fatalf("Instruments failed: %v", err)
	}
	if len(instruments) != 2 || instruments[0] != "ACME" || instruments[1] != "ZETA" {
		t.Errorf("expected sorted [ACME ZETA], got %v", instruments)
	}
}

func TestTradeLedgerStore_InsertAndGetSorted(t *testing.T) {
	store := NewTradeLedgerStore()
	ctx := context.Background()

	trades := []domain.TradeRecord{
		{Instrument: "ACME", EntryTime: domain.Day(2024, time.March, 5), EntryPrice: 101, Quantity: 10},
		{Instrument: "ACME", EntryTime: domain.Day(2024, time.March, 1), EntryPrice: 100, Quantity: 10},
	}
	if err := store.InsertBulk(ctx, trades); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	ledger, err := store.GetByInstrument(ctx, "ACME")
	if err != nil {
		t.Fatalf("GetByInstrument failed: %v", err)
	}
	if len(ledger) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(ledger))
	}
	if !ledger[0].EntryTime.Before(ledger[1].EntryTime) {
		t.Error("trades not sorted ascending by entry time")
	}
}

func TestTradeLedgerStore_UnknownInstrumentIsEmptyNotError(t *testing.T) {
	store := NewTradeLedgerStore()

	ledger, err := store.GetByInstrument(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("GetByInstrument failed: %v", err)
	}
	if len(ledger) != 0 {
		t.Errorf("expected empty ledger, got %d trades", len(ledger))
	}
}

func TestCheckpointStore_RoundTrip(t *testing.T) {
	store := NewCheckpointStore()
	ctx := context.Background()

	if _, err := store.Load(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before save, got %v", err)
	}

	cp := &storage.Checkpoint{Completed: []string{"ACME"}, Elapsed: time.Minute}
	if err := store.Save(ctx, cp); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	cp.Completed[0] = "MUTATED"

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Completed[0] != "ACME" {
		t.Errorf("store leaked caller mutation: %v", got.Completed)
	}
}
