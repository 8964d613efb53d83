/*
errors.go - Centralized error types for the billing engine

ERROR CATEGORIES:
  1. Lookup errors      - Student or fee-cycle reads failed (caller-visible)
  2. Persistence conflicts - Insert collided with an existing row (benign)
  3. Aggregation errors - A ledger read operation failed (caller-visible)
  4. Dependency errors  - The external mark-overdue procedure failed

Structured errors wrap a sentinel so callers classify with errors.Is while
the message carries enough context (student, operation) to diagnose without
a stack trace.
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStudentNotFound is returned when a referenced student doesn't exist.
	ErrStudentNotFound = errors.New("student not found")

	// ErrPeriodNotFound is returned when a referenced billing period doesn't exist.
	ErrPeriodNotFound = errors.New("billing period not found")

	// ErrBillNotFound is returned when a referenced bill doesn't exist.
	ErrBillNotFound = errors.New("fee bill not found")

	// ErrPersistenceConflict is returned when an insert collides with an
	// existing row. This is expected behavior for schedule regeneration.
	ErrPersistenceConflict = errors.New("row already exists")

	// ErrInvalidTransition is returned when a status change is not allowed
	// by the period lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// LookupError reports a failed student or fee-cycle read. Always
// caller-visible; never retried inside the engine.
type LookupError struct {
	StudentID StudentID
	Resource  string // e.g. "students", "student_fee_cycles"
	Err       error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s for student %s: %v", e.Resource, e.StudentID, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// ConflictError reports a benign insert collision during generation.
// Logged, never raised to the generator's caller.
type ConflictError struct {
	StudentID StudentID
	Key       string // natural key of the colliding row
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("period already exists for student %s: %s", e.StudentID, e.Key)
}

func (e *ConflictError) Unwrap() error { return ErrPersistenceConflict }

// AggregationError reports a failed ledger read, identifying which operation
// failed. Retries, if any, belong to the caller.
type AggregationError struct {
	Op        string // "pending_periods", "overdue_periods", "student_total_dues"
	StudentID StudentID
	Err       error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("%s for student %s: %v", e.Op, e.StudentID, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// DependencyError reports a failure in an external server-side procedure.
// The engine has no compensating logic; the error propagates with context.
type DependencyError struct {
	Procedure string
	Err       error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("procedure %s failed: %v", e.Procedure, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConflict reports whether the error is a benign persistence conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrPersistenceConflict)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrPeriodNotFound) ||
		errors.Is(err, ErrBillNotFound)
}
