package runner

import "errors"

// Sentinel errors for the batch error taxonomy. Instrument-level failures
// are recorded on the instrument's result and never abort the batch; only
// the batch deadline and parent cancellation stop the run.
var (
	// ErrInputData marks an instrument whose bars or trades could not be
	// loaded or are unusable.
	ErrInputData = errors.New("instrument input data unavailable")

	// ErrInstrumentTimeout marks an instrument dropped by the
	// per-instrument deadline. Its partial state is discarded.
	ErrInstrumentTimeout = errors.New("instrument evaluation timed out")

	// ErrBatchTimeout is returned by Run when the batch deadline expires.
	// Results computed before the deadline are kept.
	ErrBatchTimeout = errors.New("batch evaluation timed out")
)
