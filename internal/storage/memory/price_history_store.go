// Package memory provides in-memory store implementations used by tests and
// fixture-driven runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"portfolio-lab/internal/domain"
	"portfolio-lab/internal/storage"
)

// PriceHistoryStore is an in-memory implementation of storage.PriceHistoryStore.
type PriceHistoryStore struct {
	mu   sync.RWMutex
	data map[string]domain.PriceBar // keyed by (instrument, date)
}

// NewPriceHistoryStore creates an empty in-memory price history store.
func NewPriceHistoryStore() *PriceHistoryStore {
	return &PriceHistoryStore{data: make(map[string]domain.PriceBar)}
}

var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)

func barKey(bar domain.PriceBar) string {
	return fmt.Sprintf("%s|%s", bar.Instrument, bar.Date.Format("2006-01-02"))
}

// InsertBulk adds bars. The whole batch fails on any duplicate, including
// intra-batch duplicates.
func (s *PriceHistoryStore) InsertBulk(_ context.Context, bars []domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(bars))
	for _, bar := range bars {
		if bar.Instrument == "" || bar.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := barKey(bar)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, bar := range bars {
		s.data[barKey(bar)] = bar
	}
	return nil
}

// GetByInstrument returns the instrument's bars ordered by date ASC.
func (s *PriceHistoryStore) GetByInstrument(_ context.Context, instrument string) (domain.PriceHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var history domain.PriceHistory
	for _, bar := range s.data {
		if bar.Instrument == instrument {
			history = append(history, bar)
		}
	}
	sort.Slice(history, func(i, j int) bool { return history[i].Date.Before(history[j].Date) })
	return history, nil
}

// Instruments lists all instruments with bars, sorted.
func (s *PriceHistoryStore) Instruments(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, bar := range s.data {
		seen[bar.Instrument] = struct{}{}
	}
	instruments := make([]string, 0, len(seen))
	for id := range seen {
		instruments = append(instruments, id)
	}
	sort.Strings(instruments)
	return instruments, nil
}
