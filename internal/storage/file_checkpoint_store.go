package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileCheckpointStore persists the checkpoint as a JSON flat file. Saves are
// atomic: the record is written to a temp file and renamed over the target so
// a crash never leaves a half-written checkpoint.
type FileCheckpointStore struct {
	path string
}

// NewFileCheckpointStore creates a store backed by the given file path.
func NewFileCheckpointStore(path string) *FileCheckpointStore {
	return &FileCheckpointStore{path: path}
}

var _ CheckpointStore = (*FileCheckpointStore)(nil)

// Load reads the checkpoint file. A missing file means no progress yet.
func (s *FileCheckpointStore) Load(_ context.Context) (*Checkpoint, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &cp, nil
}

// Save writes the checkpoint atomically.
func (s *FileCheckpointStore) Save(_ context.Context, cp *Checkpoint) error {
	if cp == nil {
		return ErrInvalidInput
	}
	raw, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}
