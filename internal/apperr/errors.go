// Package apperr defines the error taxonomy shared by services and handlers.
// Handlers map these to HTTP status codes; anything else is a 500.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError rejects a malformed input before any write. Index points at
// the offending entry in a batch payload (-1 for non-batch inputs).
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("validation failed at index %d: %s %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// ConflictError signals an idempotency key reused with a different payload,
// or a uniqueness violation on create.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// NotFoundError signals an unknown tenant/invoice/transaction/match reference.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// InvalidStateError signals an operation attempted on an entity whose current
// state forbids it, e.g. confirming an already-confirmed match.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return e.Reason
}

// ErrDependencyUnavailable marks a failure of the AI collaborator. It is
// absorbed by the explanation fallback and never reaches a handler.
var ErrDependencyUnavailable = errors.New("dependency unavailable")
