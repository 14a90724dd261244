package dwn

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for store operations.
//
// Callers use it to tell "the node answered no" apart from "the node could not be
// reached", which decides whether a call is retried.
type ErrorCategory string

const (
	// ErrorUnreachable indicates the node could not be contacted
	ErrorUnreachable ErrorCategory = "unreachable"

	// ErrorTimeout indicates the node took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorRejected indicates the node refused the message (4xx reply)
	ErrorRejected ErrorCategory = "rejected"

	// ErrorBadReply indicates the node answered with something unparseable
	ErrorBadReply ErrorCategory = "bad_reply"

	// ErrorNotFound indicates the requested tenant, key or record does not exist
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorUnauthorized indicates a signature or credential problem
	ErrorUnauthorized ErrorCategory = "unauthorized"

	// ErrorInternal indicates an unexpected failure inside the node
	ErrorInternal ErrorCategory = "internal"
)

// StoreError wraps store failures with a category and the operation that failed.
type StoreError struct {
	Category  ErrorCategory
	Op        string
	Message   string
	Err       error
	Retryable bool
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dwn %s [%s]: %s: %v", e.Op, e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("dwn %s [%s]: %s", e.Op, e.Category, e.Message)
}

// Unwrap supports error unwrapping
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a categorized error. Unreachable and timeout failures are
// retryable; every other category is permanent.
func NewStoreError(category ErrorCategory, op, message string, err error) *StoreError {
	return &StoreError{
		Category:  category,
		Op:        op,
		Message:   message,
		Err:       err,
		Retryable: category == ErrorUnreachable || category == ErrorTimeout,
	}
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// CategoryOf extracts the error category from an error
func CategoryOf(err error) ErrorCategory {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Category
	}
	return ErrorInternal
}
