// Package errors provides the structured error type the timeline engine
// surfaces for every store-backed failure. All failures share one kind
// carrying a category, a code, and the attempted operation's description, so
// hosts can classify without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Category classifies errors by the concern that produced them.
type Category string

const (
	CategoryValidation Category = "VALIDATION"
	CategoryStore      Category = "STORE"
	CategorySchema     Category = "SCHEMA"
	CategoryQuery      Category = "QUERY"
	CategoryInternal   Category = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeInvalidEvent  = "INVALID_EVENT"
	CodeInvalidConfig = "INVALID_CONFIG"
	CodeInvalidRange  = "INVALID_RANGE"

	// Store codes
	CodeStoreQueryFailed = "STORE_QUERY_FAILED"
	CodeStoreWriteFailed = "STORE_WRITE_FAILED"
	CodeTxFailed         = "TX_FAILED"

	// Schema codes
	CodeSchemaInitFailed    = "SCHEMA_INIT_FAILED"
	CodeSchemaUpgradeFailed = "SCHEMA_UPGRADE_FAILED"

	// Query codes
	CodeScanFailed = "SCAN_FAILED"

	// Internal codes
	CodeGroupDecodeFailed = "GROUP_DECODE_FAILED"
	CodeUnexpected        = "UNEXPECTED"
)

// CoreError is the one error kind the engine returns for failed operations.
// Op describes the operation that was being attempted when the failure
// happened.
type CoreError struct {
	Category Category
	Code     string
	Op       string
	Cause    error
}

// Error returns a formatted error string.
func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Op, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Op)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *CoreError) Is(target error) bool {
	var t *CoreError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a CoreError with no cause.
func New(category Category, code, op string) *CoreError {
	return &CoreError{Category: category, Code: code, Op: op}
}

// Wrap creates a CoreError wrapping an underlying cause.
func Wrap(category Category, code, op string, cause error) *CoreError {
	return &CoreError{Category: category, Code: code, Op: op, Cause: cause}
}

// GetCategory extracts the category from an error chain. Returns the empty
// string when no CoreError is present.
func GetCategory(err error) Category {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ""
}

// GetCode extracts the code from an error chain. Returns the empty string
// when no CoreError is present.
func GetCode(err error) string {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// Convenience constructors for common errors.

func NewValidationError(code, op string) *CoreError {
	return New(CategoryValidation, code, op)
}

func NewStoreError(code, op string, cause error) *CoreError {
	return Wrap(CategoryStore, code, op, cause)
}

func NewSchemaError(code, op string, cause error) *CoreError {
	return Wrap(CategorySchema, code, op, cause)
}

func NewQueryError(op string, cause error) *CoreError {
	return Wrap(CategoryQuery, CodeScanFailed, op, cause)
}

func NewInternalError(op string, cause error) *CoreError {
	return Wrap(CategoryInternal, CodeUnexpected, op, cause)
}
