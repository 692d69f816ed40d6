package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested image does not exist in the index.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState indicates an operation was requested in a lifecycle
	// state where it is not defined (e.g. selecting a result while Idle).
	ErrInvalidState = errors.New("operation not valid in current state")

	// ErrVoteInFlight indicates a feedback submission for the same result
	// is still pending. Votes on a single result are serialised.
	ErrVoteInFlight = errors.New("vote submission already in flight")

	// ErrStreamClosed indicates the streaming channel closed before a
	// terminal completion message arrived.
	ErrStreamClosed = errors.New("stream closed before completion")

	// ErrNoReplayableQuery indicates a filter change was applied but no
	// image-originated query is available to re-issue.
	ErrNoReplayableQuery = errors.New("no image query to replay")
)

// ValidationError is a caller-correctable input problem.
// It is raised before any network traffic and never causes a
// lifecycle transition.
type ValidationError struct {
	// Field names the offending input ("mime_type", "text", ...).
	Field string

	// Reason is a human-readable explanation.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NetworkError is a non-success HTTP status from the backend.
// Message carries the backend-supplied error text verbatim when present.
type NetworkError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the backend error message, or a generic fallback.
	Message string
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Message)
}

// ProtocolError is a response body that violates the backend contract.
// Always surfaced; it signals a bug on one side of the wire.
type ProtocolError struct {
	// Op is the transport operation that failed ("search by image", ...).
	Op string

	// Err is the underlying decode failure.
	Err error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error in %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying decode error.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}
