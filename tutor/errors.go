package tutor

import (
	"errors"
	"fmt"
)

// Sentinel errors for session operations. All reach the caller as typed
// failures; none is ever inferred from message history or event payloads.
var (
	// ErrNotFound indicates an unknown session id on resume, state query
	// or delete-adjacent operations. Surfaced directly, no retry.
	ErrNotFound = errors.New("session not found")

	// ErrAlreadyExists indicates start was called for a live session id.
	// The caller must choose a new id or resume instead.
	ErrAlreadyExists = errors.New("session already exists")

	// ErrSessionBusy indicates a concurrent start or resume on the same
	// session id. The in-flight operation holds the single-writer lock;
	// the caller should retry after it settles.
	ErrSessionBusy = errors.New("session busy")

	// ErrNotSuspended indicates resume was called with no interrupt
	// pending. State is unchanged.
	ErrNotSuspended = errors.New("session not suspended")

	// ErrInterruptMismatch indicates the resume action is not valid for
	// the pending interrupt's kind. State and the pending interrupt are
	// unchanged.
	ErrInterruptMismatch = errors.New("action not valid for pending interrupt")

	// ErrInvalidRetryPolicy indicates a RetryPolicy that violates its
	// constraints.
	ErrInvalidRetryPolicy = errors.New("invalid retry policy")
)

// CapabilityError wraps a failure from a stage capability invocation.
//
// Transient failures (external dependency hiccups) are retried by the
// engine with exponential backoff up to the configured maximum; permanent
// failures abort the run immediately. Either way the session is marked
// failed with its checkpoint preserved once retries are exhausted.
type CapabilityError struct {
	// Stage identifies the capability that failed.
	Stage Stage

	// Transient marks the failure as retryable.
	Transient bool

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable CapabilityError for the given stage.
func Transient(stage Stage, err error) error {
	return &CapabilityError{Stage: stage, Transient: true, Err: err}
}

// IsTransient reports whether err is a retryable capability failure.
func IsTransient(err error) bool {
	var capErr *CapabilityError
	return errors.As(err, &capErr) && capErr.Transient
}
