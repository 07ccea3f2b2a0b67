// Package errors provides standardized error types and helpers for the
// annotation fusion core.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrSchemaMismatch indicates the canonical tokenization is internally
	// inconsistent for a verse. Fatal for that verse, other verses continue.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrUnaligned indicates a source span found no canonical overlap
	ErrUnaligned = errors.New("unaligned span")
	// ErrInvalidTransition indicates a disallowed review status transition
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrVersionConflict indicates a concurrent disposition on the same
	// review item
	ErrVersionConflict = errors.New("version conflict")
)

// SchemaMismatchError reports a verse whose canonical token count differs
// from a previous run of the same tokenization rules.
type SchemaMismatchError struct {
	Verse    string // verse reference (e.g., "hbo:Gen.1.1")
	Expected int    // token count from the prior run
	Got      int    // token count from this run
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch for %s: prior run produced %d tokens, this run produced %d",
		e.Verse, e.Expected, e.Got)
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

// UnalignedSpanError reports a source contribution whose span overlaps no
// canonical token. Recorded, never fatal.
type UnalignedSpanError struct {
	SourceID string // contributing source
	Text     string // source token text
	Reason   string // reason code (e.g., "no_overlap")
}

func (e *UnalignedSpanError) Error() string {
	return fmt.Sprintf("source %s: span %q unaligned: %s", e.SourceID, e.Text, e.Reason)
}

func (e *UnalignedSpanError) Unwrap() error {
	return ErrUnaligned
}

// InvalidTransitionError reports a rejected review status transition.
// The ledger state is unchanged; the caller must retry with a valid action.
type InvalidTransitionError struct {
	ItemID string // review item identifier
	From   string // current status
	To     string // requested status
	Reason string // optional detail (e.g., missing corrected value)
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid transition %s -> %s for item %s: %s", e.From, e.To, e.ItemID, e.Reason)
	}
	return fmt.Sprintf("invalid transition %s -> %s for item %s", e.From, e.To, e.ItemID)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// VersionConflictError reports two concurrent dispositions racing on the
// same review item. Reported, not retried automatically.
type VersionConflictError struct {
	ItemID   string // review item identifier
	Expected string // status observed when the action was prepared
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on item %s: status changed since read (was %s)", e.ItemID, e.Expected)
}

func (e *VersionConflictError) Unwrap() error {
	return ErrVersionConflict
}

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "review item", "verse")
	ID       string // Identifier of the resource
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
