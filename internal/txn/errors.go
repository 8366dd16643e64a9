package txn

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when the caller's context ends before the
// transaction commits. Nothing the program wrote is visible afterwards.
var ErrCancelled = errors.New("transaction cancelled")

// StorageError reports a failure of the underlying engine: I/O, lock
// contention, constraint or quota failures, or a failed commit.
type StorageError struct {
	// Op is the engine operation that failed, e.g. "begin", "commit" or an
	// effect such as "put pois/abc".
	Op string

	// Cause is the engine's error.
	Cause error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %v", e.Op, e.Cause)
}

// Unwrap returns the engine's error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// IsCancelled returns true if the error is a cancellation.
// Uses errors.Is to handle wrapped errors.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsStorageError returns true if the error is an engine failure.
// Uses errors.As to handle wrapped errors.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// cancelled wraps the context's error so both errors.Is(err, ErrCancelled)
// and errors.Is(err, context.Canceled) hold.
func cancelled(cause error) error {
	if cause == nil {
		return ErrCancelled
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

// programPanic is reported when a program panics instead of returning.
type programPanic struct {
	value any
}

func (p programPanic) Error() string {
	return fmt.Sprintf("transaction program panicked: %v", p.value)
}
