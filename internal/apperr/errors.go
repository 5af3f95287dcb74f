package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is the sentinel wrapped by every NotFoundError, so callers can
// match with errors.Is without caring which entity was missing.
var ErrNotFound = errors.New("not found")

// ValidationError reports required fields that were missing or invalid.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: missing or invalid fields: %s", strings.Join(e.Fields, ", "))
}

// NewValidation creates a ValidationError for the given field names.
func NewValidation(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// AuthorizationError reports an operation the caller is not allowed to perform
// directly, such as completing an order without the confirmation code.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized: %s", e.Reason)
}

// InvalidCodeError reports a failed confirmation-code check.
type InvalidCodeError struct {
	OrderCode string
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid confirmation code for order %s", e.OrderCode)
}

// NotFoundError reports a missing order, product, cart item or user.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound creates a NotFoundError for the given entity and identifier.
func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// StorageError reports a failed read or write against the persistent store.
// Retryable marks transient failures (timeouts) the caller may retry.
type StorageError struct {
	Op        string
	Key       string
	Retryable bool
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s on key %q failed: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient StorageError.
func IsRetryable(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Retryable
}
