/*
errors.go - Centralized error taxonomy for the domain core

PURPOSE:
  All domain error kinds in one place for consistency and
  discoverability. The core raises exactly four kinds:

  1. Validation  - malformed input, caught before any state change
  2. State       - well-formed input, current status forbids the operation
  3. Not-found   - a referenced aggregate id does not resolve
  4. Conflict    - optimistic-lock version mismatch on save

  Every kind is a structured type wrapping a sentinel, so callers can
  branch with errors.Is/errors.As instead of parsing strings. Errors
  propagate unchanged through the coordination layer; the HTTP layer is
  the only place that maps them to transport statuses.

USAGE:
  if errors.Is(err, generic.ErrConflict) {
      // reload and retry
  }
  var sv *generic.StateError
  if errors.As(err, &sv) {
      log.Printf("blocked: %s is %s", sv.AggregateType, sv.Current)
  }

SEE ALSO:
  - aggregate.go: raises ErrUnknownEvent on incompatible streams
  - timesheet:    raises all four kinds from command methods
*/
package generic

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation marks malformed input rejected before any state change.
	ErrValidation = errors.New("validation failed")

	// ErrStateViolation marks an operation forbidden by the current status.
	ErrStateViolation = errors.New("operation not allowed in current state")

	// ErrNotFound marks a reference that does not resolve to persisted state.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an optimistic-lock violation. Always recoverable
	// by reload-and-retry; never silently resolved by merging.
	ErrConflict = errors.New("concurrent modification detected")

	// ErrUnknownEvent marks a stored event kind the current code cannot
	// apply. This is a fatal stream incompatibility, not a business error.
	ErrUnknownEvent = errors.New("unknown event kind")
)

// =============================================================================
// STRUCTURED ERRORS - Carry diagnostic context
// =============================================================================

// ValidationError reports a single malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StateError reports an operation the current status forbids. Current
// and Attempted carry the status names for diagnostics; Attempted is the
// operation name when no target status applies (e.g. "update").
type StateError struct {
	AggregateType string
	Current       string
	Attempted     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s in status %s cannot %s", e.AggregateType, e.Current, e.Attempted)
}

func (e *StateError) Unwrap() error { return ErrStateViolation }

// NotFoundError reports an unresolved aggregate reference. Code is a
// stable machine-readable tag (e.g. WORK_LOG_ENTRY_NOT_FOUND). Internal
// is true when the id was resolved inside a coordination command, where
// a miss indicates a data-consistency bug rather than bad caller input.
type NotFoundError struct {
	AggregateType string
	ID            uuid.UUID
	Code          string
	Internal      bool
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found (%s)", e.AggregateType, e.ID, e.Code)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports an optimistic-lock mismatch on save.
type ConflictError struct {
	AggregateType string
	ID            uuid.UUID
	Expected      int
	Actual        int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s %s: expected %d, actual %d",
		e.AggregateType, e.ID, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// UnknownEventError reports an event kind the aggregate cannot apply.
type UnknownEventError struct {
	AggregateType string
	EventKind     string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("%s cannot apply event kind %q", e.AggregateType, e.EventKind)
}

func (e *UnknownEventError) Unwrap() error { return ErrUnknownEvent }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to invalid client input
// or a state the client can observe and correct.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrStateViolation)
}

// IsNotFound returns true if the error indicates a missing aggregate.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
