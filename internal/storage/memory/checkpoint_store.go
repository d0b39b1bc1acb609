package memory

import (
	"context"
	"sync"

	"portfolio-lab/internal/storage"
)

// CheckpointStore is an in-memory implementation of storage.CheckpointStore.
type CheckpointStore struct {
	mu sync.RWMutex
	cp *storage.Checkpoint
}

// NewCheckpointStore creates an empty in-memory checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{}
}

var _ storage.CheckpointStore = (*CheckpointStore)(nil)

// Load returns the saved checkpoint, or ErrNotFound before any save.
func (s *CheckpointStore) Load(_ context.Context) (*storage.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cp == nil {
		return nil, storage.ErrNotFound
	}
	cp := *s.cp
	cp.Completed = append([]string(nil), s.cp.Completed...)
	return &cp, nil
}

// Save replaces the stored checkpoint.
func (s *CheckpointStore) Save(_ context.Context, cp *storage.Checkpoint) error {
	if cp == nil {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := *cp
	saved.Completed = append([]string(nil), cp.Completed...)
	s.cp = &saved
	return nil
}
