// Package governance decides which task-status transitions are legal and
// whether an agent role may complete, hand off, or must remediate a unit of
// work. It is a library core: persistence, transport, and authorization are
// supplied by the caller through the narrow store interfaces defined here.
package governance

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the core error taxonomy. Store implementations
// must map their native duplicate-key and missing-row conditions onto
// ErrConflict and ErrNotFound so callers can branch with errors.Is.
var (
	// ErrNotFound reports a referenced status, edge, or rule that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports a duplicate edge or duplicate natural key on create.
	ErrConflict = errors.New("conflict")

	// ErrValidation reports a malformed record, e.g. empty criteria text or
	// an unknown predicate operator.
	ErrValidation = errors.New("validation failure")
)

// StoreError wraps a store-layer failure the core does not interpret or
// retry. Callers decide whether to retry; this core never does.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// storeErr wraps err as a StoreError unless it is already part of the
// taxonomy (NotFound/Conflict/Validation pass through untouched).
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrValidation) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// InvalidTransitionError reports a malformed edge: terminal source,
// self-loop, or unknown status.
type InvalidTransitionError struct {
	From   string
	To     string
	Detail string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %q -> %q: %s", e.From, e.To, e.Detail)
}
