package entity

import (
	"errors"
	"fmt"
)

// ErrValidationFailed is matched by every *ValidationError via errors.Is.
var ErrValidationFailed = errors.New("validation failed")

// ValidationError represents a validation error with detailed field information.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Is lets callers test for ErrValidationFailed without knowing the field.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
