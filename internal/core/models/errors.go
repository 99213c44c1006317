package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a face record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrBackendUnavailable marks a persistent-store failure. It is handled
// inside the storage layer (degraded mode) and never surfaced to callers.
var ErrBackendUnavailable = errors.New("storage backend unavailable")

// ErrPipelineUnavailable marks a detection/embedding service failure.
var ErrPipelineUnavailable = errors.New("detection pipeline unavailable")

// ValidationError rejects bad input before any mutation takes place.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// AmbiguousInputError is returned by enrollment when the image does not
// contain exactly one face.
type AmbiguousInputError struct {
	FacesDetected int
}

func (e *AmbiguousInputError) Error() string {
	return fmt.Sprintf("enrollment requires exactly one face, detected %d", e.FacesDetected)
}
