/*
errors.go - Error taxonomy for the reservation board

PURPOSE:
  All board error kinds in one place. Validation errors are detected before
  any store call and never leave partial state behind; store errors are
  surfaced to the caller for user-visible retry, never retried silently.

ERROR CATEGORIES:
  1. Validation errors - empty name, duplicate name, non-positive headcount
  2. Gating errors     - cut-off passed, permission denied
  3. Store errors      - remote store unreachable, partial batch failure

USAGE:
  if errors.Is(err, mealplan.ErrCutoffPassed) { ... }

  var partial *mealplan.PartialBatchError
  if errors.As(err, &partial) {
      retry(partial.FailedRows())
  }
*/
package mealplan

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmptyName is returned when an operation requires a non-empty person
	// name. Unnamed entries are placeholders and may not reserve slots.
	ErrEmptyName = errors.New("empty person name")

	// ErrDuplicateName is returned when adding or renaming to a name that
	// already exists in the active week.
	ErrDuplicateName = errors.New("duplicate person name")

	// ErrInvalidCount is returned for a non-positive headcount.
	ErrInvalidCount = errors.New("invalid headcount")

	// ErrCutoffPassed is returned when a slot's cut-off time for the target
	// date has already passed; the slot is read-only for everyone.
	ErrCutoffPassed = errors.New("cutoff passed")

	// ErrPermissionDenied is returned when an owner identity is tracked for
	// the person and differs from the acting identity.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrPersonNotFound is returned when the named person is not part of the
	// currently loaded week.
	ErrPersonNotFound = errors.New("person not found")

	// ErrOutsideWeek is returned when a (date, slot) key falls outside the
	// currently loaded week window.
	ErrOutsideWeek = errors.New("date outside loaded week")

	// ErrStoreUnavailable is returned when the remote store cannot be
	// reached or rejects an operation wholesale.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrPartialBatch is returned when some rows of a batch write failed
	// while others were applied.
	ErrPartialBatch = errors.New("partial batch failure")
)

// IsValidationError reports whether the error was caught before any store
// call (the model is guaranteed untouched).
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyName) ||
		errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrInvalidCount) ||
		errors.Is(err, ErrCutoffPassed) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrOutsideWeek)
}

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CutoffError reports which cut-off blocked a mutation.
type CutoffError struct {
	MealDate string
	Slot     Slot
	Cutoff   time.Time
}

func (e *CutoffError) Error() string {
	return fmt.Sprintf("cutoff passed for %s-%s (closed at %s)",
		e.MealDate, e.Slot, e.Cutoff.Format(time.RFC3339))
}

func (e *CutoffError) Unwrap() error { return ErrCutoffPassed }

// PermissionError reports whose rows the acting identity may not touch.
type PermissionError struct {
	PersonName string
	Owner      string
	Actor      string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %q is owned by %q, not %q",
		e.PersonName, e.Owner, e.Actor)
}

func (e *PermissionError) Unwrap() error { return ErrPermissionDenied }

// StoreError wraps a failed store round-trip.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return ErrStoreUnavailable }

// RowFailure is one failed row within a batch write.
type RowFailure struct {
	Key RowKey
	Err error
}

// PartialBatchError reports which rows of a batch write failed. Rows not
// listed were applied; the caller decides whether to retry the rest.
type PartialBatchError struct {
	Op     string
	Total  int
	Failed []RowFailure
}

func (e *PartialBatchError) Error() string {
	keys := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		keys[i] = f.Key.String()
	}
	return fmt.Sprintf("%s: %d of %d rows failed: %s",
		e.Op, len(e.Failed), e.Total, strings.Join(keys, ", "))
}

func (e *PartialBatchError) Unwrap() error { return ErrPartialBatch }

// FailedRows returns the keys of the rows that did not persist.
func (e *PartialBatchError) FailedRows() []RowKey {
	keys := make([]RowKey, len(e.Failed))
	for i, f := range e.Failed {
		keys[i] = f.Key
	}
	return keys
}

// =============================================================================
// AUTHORIZATION DECISION
// =============================================================================

// Decision is the outcome of an ownership check. The presentation layer
// interprets RequiresConfirmation with whatever modality it has (the
// original UI used a confirm dialog); the core only hard-blocks Deny.
type Decision int

const (
	Allow Decision = iota
	RequiresConfirmation
	Deny
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RequiresConfirmation:
		return "confirm_required"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}
