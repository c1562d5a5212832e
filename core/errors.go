package core

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned when a dispatch was superseded by a newer one
	// or explicitly aborted. It is distinct from per-instance invocation
	// errors: a cancelled generation is never persisted as history and is
	// never reported as a user-facing failure.
	ErrCancelled = errors.New("dispatch cancelled")

	// ErrAllFailed is returned when every instance of a dispatch settled
	// with an error, so no history entry was created.
	ErrAllFailed = errors.New("all instances failed")

	// ErrBlobNotFound is returned when a blob for the given key does not
	// exist in a healthy store.
	ErrBlobNotFound = errors.New("blob not found")
)

// InvocationError wraps a single instance's failure. It is isolated by
// design: one failing instance never aborts or fails the dispatch as a
// whole; the error surfaces in that instance's outcome only.
type InvocationError struct {
	InstanceID string
	ModelID    string
	Err        error
}

// Error implements error.
func (e *InvocationError) Error() string {
	return fmt.Sprintf("instance %s (%s): %v", e.InstanceID, e.ModelID, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *InvocationError) Unwrap() error { return e.Err }

// StorageError marks a best-effort persistence failure. It is surfaced to
// the caller for logging but never corrupts in-memory state, which remains
// the source of truth for the current session.
type StorageError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *StorageError) Unwrap() error { return e.Err }
