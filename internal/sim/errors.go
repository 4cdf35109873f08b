package sim

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfig is returned by New for any construction-time
	// misconfiguration. It is never retried.
	ErrInvalidConfig = errors.New("sim: invalid configuration")

	// ErrIndexOutOfRange indicates a particle index outside [0, count).
	ErrIndexOutOfRange = errors.New("sim: particle index out of range")
)

// RunError wraps an error that stopped a headless run with where it stopped.
type RunError struct {
	Epoch   int
	Elapsed time.Duration
	Wrapped error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run stopped at epoch %d (%s): %v", e.Epoch, e.Elapsed, e.Wrapped)
}

func (e *RunError) Unwrap() error {
	return e.Wrapped
}
