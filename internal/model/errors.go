package model

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage marks failures originating in the persistence layer.
	ErrStorage = errors.New("storage error")
	// ErrClosed is returned by components used after shutdown.
	ErrClosed = errors.New("closed")
)

// StorageError wraps a driver failure so callers can test for the category
// with errors.Is(err, ErrStorage) while keeping the driver chain intact.
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// ValidationError reports a rejected request field. Missing entries are not
// errors anywhere in the service layer; lookups return a nil entry instead.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
