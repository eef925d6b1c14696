package config

import "fmt"

// ValidationError reports a single env-var value that fails Config.Validate.
type ValidationError struct {
	Field  string // env var name, e.g. "MAX_LIMIT"
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given env var.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
