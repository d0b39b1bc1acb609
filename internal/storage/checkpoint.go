package storage

import (
	"context"
	"time"
)

// Checkpoint records batch progress so re-runs can resume by skipping
// completed instruments instead of recomputing them.
type Checkpoint struct {
	Completed []string      `json:"completed"` // instrument ids already evaluated
	Elapsed   time.Duration `json:"elapsed"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Done reports whether an instrument is already checkpointed.
func (c *Checkpoint) Done(instrument string) bool {
	if c == nil {
		return false
	}
	for _, id := range c.Completed {
		if id == instrument {
			return true
		}
	}
	return false
}

// Mark appends an instrument to the completed set if absent.
func (c *Checkpoint) Mark(instrument string) {
	if c.Done(instrument) {
		return
	}
	c.Completed = append(c.Completed, instrument)
}

// CheckpointStore persists batch progress. This is the only shared mutable
// state in a batch run; writes must be serialized by the caller when
// instruments are evaluated in parallel.
type CheckpointStore interface {
	// Load returns the saved checkpoint. Returns ErrNotFound when no
	// progress has been saved yet.
	Load(ctx context.Context) (*Checkpoint, error)

	// Save persists the checkpoint, replacing any previous one.
	Save(ctx context.Context, cp *Checkpoint) error
}
