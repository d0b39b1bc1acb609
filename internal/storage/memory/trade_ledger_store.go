package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"portfolio-lab/internal/domain"
	"portfolio-lab/internal/storage"
)

// TradeLedgerStore is an in-memory implementation of storage.TradeLedgerStore.
type TradeLedgerStore struct {
	mu   sync.RWMutex
	data map[string]domain.TradeRecord // keyed by (instrument, entry time, entry price, qty)
}

// NewTradeLedgerStore creates an empty in-memory trade ledger store.
func NewTradeLedgerStore() *TradeLedgerStore {
	return &TradeLedgerStore{data: make(map[string]domain.TradeRecord)}
}

var _ storage.TradeLedgerStore = (*TradeLedgerStore)(nil)

func tradeKey(tr domain.TradeRecord) string {
	return fmt.Sprintf("%s|%d|%g|%g", tr.Instrument, tr.EntryTime.Unix(), tr.EntryPrice, tr.Quantity)
}

// InsertBulk adds trade records. The whole batch fails on any duplicate.
func (s *TradeLedgerStore) InsertBulk(_ context.Context, trades []domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(trades))
	for _, tr := range trades {
		if tr.Instrument == "" || tr.EntryTime.IsZero() {
			return storage.ErrInvalidInput
		}
		key := tradeKey(tr)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, tr := range trades {
		s.data[tradeKey(tr)] = tr
	}
	return nil
}

// GetByInstrument returns the instrument's trades ordered by entry time ASC.
func (s *TradeLedgerStore) GetByInstrument(_ context.Context, instrument string) ([]domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var trades []domain.TradeRecord
	for _, tr := range s.data {
		if tr.Instrument == instrument {
			trades = append(trades, tr)
		}
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].EntryTime.Before(trades[j].EntryTime) })
	return trades, nil
}
