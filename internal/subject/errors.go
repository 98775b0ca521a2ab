package subject

import (
	"errors"
	"fmt"
)

// OperationError represents a failure of an erasure or export call.
//
// OperationError includes structured fields for diagnostics.
type OperationError struct {
	// Code identifies the error category.
	Code ErrorCode

	// OperationID identifies the failed call in logs.
	OperationID string

	// Table is the table being processed, if any.
	Table string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes operation errors.
type ErrorCode string

const (
	// ErrCodeUnresolvable indicates a table has no join path to an anchor.
	ErrCodeUnresolvable ErrorCode = "UNRESOLVABLE_TABLE"

	// ErrCodeCycle indicates bridge declarations that loop.
	ErrCodeCycle ErrorCode = "CYCLE_DETECTED"

	// ErrCodeHook indicates an extension hook failed.
	ErrCodeHook ErrorCode = "HOOK_FAILED"

	// ErrCodeCatalog indicates the catalog or dimension registry failed.
	ErrCodeCatalog ErrorCode = "CATALOG_FAILED"

	// ErrCodeExecution indicates a statement failed to build or run.
	ErrCodeExecution ErrorCode = "EXECUTION_FAILED"
)

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s: %v (operation=%s, table=%s)", e.Code, e.Err, e.OperationID, e.Table)
	}
	return fmt.Sprintf("%s: %v (operation=%s)", e.Code, e.Err, e.OperationID)
}

// Unwrap returns the underlying cause.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// Code returns the ErrorCode of err, or "" when err is not an
// OperationError.
// Uses errors.As to handle wrapped errors.
func Code(err error) ErrorCode {
	var oe *OperationError
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ""
}

// IsUnresolvable returns true if err reports an unresolvable table.
func IsUnresolvable(err error) bool {
	return Code(err) == ErrCodeUnresolvable
}

// IsHookError returns true if err reports a failed extension hook.
func IsHookError(err error) bool {
	return Code(err) == ErrCodeHook
}
