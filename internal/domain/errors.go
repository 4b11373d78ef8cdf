package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrDuplicate    = errors.New("duplicate resource")
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")
)

// ValidationError maps each offending field to a message
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a single-field validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// DuplicateResourceError is returned when a uniqueness rule is violated
type DuplicateResourceError struct {
	Message string
}

func (e *DuplicateResourceError) Error() string { return e.Message }

func (e *DuplicateResourceError) Is(target error) bool { return target == ErrDuplicate }

// NotFoundError is returned when an id does not resolve
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AccessDeniedError is returned when the access policy rejects an operation
type AccessDeniedError struct {
	Reason string
}

func (e *AccessDeniedError) Error() string { return "access denied: " + e.Reason }

func (e *AccessDeniedError) Is(target error) bool { return target == ErrAccessDenied }
