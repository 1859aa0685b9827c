/*
errors.go - Centralized error types for the inventory core

PURPOSE:
  All error types in one place. Callers match with errors.Is/errors.As;
  the structured types carry enough context for user-facing notifications.

ERROR CATEGORIES:
  1. Validation errors - bad user input, rejected before any write
  2. Not-found / duplicate-key errors - referential failures
  3. Storage errors - database-level failures, surfaced after rollback

SEE ALSO:
  - ledger.go: returns validation/not-found/duplicate errors
  - store/sqlite: wraps driver failures into StorageError
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
	// ErrValidation is returned for non-numeric or out-of-range input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced product or movement
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a product code collides on create.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrStorage is returned when the underlying storage engine fails.
	// Multi-row mutations roll back fully before this surfaces.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports a missing product or movement.
type NotFoundError struct {
	Entity string // "product", "entrada", "salida", "report"
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// DuplicateKeyError reports a product code collision.
type DuplicateKeyError struct {
	Code string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("product code %q already exists", e.Code)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }

// StorageError wraps a storage engine failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return ErrStorage }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation reports whether the error is due to invalid client input.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsDuplicateKey reports whether the error indicates a key collision.
func IsDuplicateKey(err error) bool { return errors.Is(err, ErrDuplicateKey) }
