package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/garnizeh/trailblazers/internal/apperr"
)

func TestValidationError_OrNil(t *testing.T) {
	v := &apperr.ValidationError{}
	if err := v.OrNil(); err != nil {
		t.Fatalf("expected nil for empty validation error, got %v", err)
	}

	v.Add("name is required")
	v.Add("score out of range")
	err := v.OrNil()
	if err == nil {
		t.Fatalf("expected error after Add")
	}
	if got := err.Error(); got != "validation failed: name is required; score out of range" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestProblems_Wrapped(t *testing.T) {
	err := fmt.Errorf("save evaluation: %w", apperr.Invalid("a", "b"))
	p := apperr.Problems(err)
	if len(p) != 2 || p[0] != "a" || p[1] != "b" {
		t.Fatalf("unexpected problems %v", p)
	}

	if apperr.Problems(errors.New("plain")) != nil {
		t.Fatalf("expected nil problems for plain error")
	}
}
