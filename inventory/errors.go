/*
errors.go - Centralized error types for the stock ledger

ERROR CATEGORIES:
  1. DuplicateKey     - product/location id already taken
  2. InvalidInput     - missing or malformed field, no partial write
  3. NotFound         - reference to a record that does not exist
  4. StoreUnavailable - storage could not be reached or written

  Nothing here retries. Every error propagates to the caller, which decides
  what the user sees (re-show a form, return 409, ...).

USAGE:
  if errors.Is(err, inventory.ErrDuplicateKey) {
      var dup *inventory.DuplicateKeyError
      errors.As(err, &dup) // dup.Kind, dup.ID
  }
*/
package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateKey is returned when a product or location id already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when a required field is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a referenced product or location doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable is returned when the underlying storage fails.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrQuantityOverflow is returned when a sum or balance does not fit in int64.
	ErrQuantityOverflow = errors.New("integer overflow")

	// ErrStoreRequired is returned when an operation needs an extended store interface.
	ErrStoreRequired = errors.New("operation requires extended store interface")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DuplicateKeyError names the record kind and the id that collided.
type DuplicateKeyError struct {
	Kind string // "product" or "location"
	ID   string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.ID)
}

func (e *DuplicateKeyError) Unwrap() error {
	return ErrDuplicateKey
}

// InvalidInputError names the offending field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// StoreError wraps a storage failure. It matches both ErrStoreUnavailable
// and the driver error it carries.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

// Unavailable wraps err as a StoreError for op. Returns nil for a nil err.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotFound)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
