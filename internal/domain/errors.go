package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when no record matches.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by repositories when a unique constraint rejects a write.
	ErrConflict = errors.New("conflict")

	// ErrNotConfigured is returned when a tenant scoped operation has no API key.
	ErrNotConfigured = errors.New("api key not configured")

	// ErrUnauthorized covers unknown or suspended tenants and bad session tokens.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials is deliberately generic so callers cannot tell
	// a missing directory entry from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
