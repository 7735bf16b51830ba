// Package apperr holds the error values shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"strings"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrDisabled  = errors.New("feature disabled")
)

// ValidationError accumulates human-readable problems found while validating input.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// Add records a problem.
func (e *ValidationError) Add(problem string) {
	e.Problems = append(e.Problems, problem)
}

// Empty reports whether no problem was recorded.
func (e *ValidationError) Empty() bool {
	return len(e.Problems) == 0
}

// OrNil returns e when it holds problems and nil otherwise, so callers can
// `return v.OrNil()` without returning a typed nil.
func (e *ValidationError) OrNil() error {
	if e == nil || e.Empty() {
		return nil
	}
	return e
}

// Invalid builds a ValidationError with the given problems.
func Invalid(problems ...string) error {
	return &ValidationError{Problems: problems}
}

// Problems extracts the problem list from err when it wraps a ValidationError.
func Problems(err error) []string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Problems
	}
	return nil
}
