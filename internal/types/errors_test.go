package types

import (
	"errors"
	"fmt"
	"testing"
)

func isValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func TestNotFoundError(t *testing.T) {
	err := fmt.Errorf("load: %w", NotFound("issue", "abc"))

	if !errors.Is(err, ErrNotFound) {
		t.Error("should match ErrNotFound")
	}
	if !errors.Is(err, ErrIssueNotFound) {
		t.Error("should match ErrIssueNotFound")
	}
	if errors.Is(err, ErrProjectNotFound) {
		t.Error("should not match another entity")
	}
	if errors.Is(err, NotFound("issue", "other")) {
		t.Error("should not match a different id")
	}

	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.ID != "abc" {
		t.Fatalf("errors.As = %+v", nf)
	}
	if got := nf.Error(); got != "issue abc not found" {
		t.Errorf("Error() = %q", got)
	}
	if got := ErrSprintNotFound.Error(); got != "sprint not found" {
		t.Errorf("Error() = %q", got)
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("key", "must be uppercase")
	if !isValidation(err) {
		t.Error("should match ErrValidation")
	}
	if got := err.Error(); got != "key: must be uppercase" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&ValidationError{Reason: "bad"}).Error(); got != "bad" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := fmt.Errorf("start sprint: %w", ErrInvalidTransition)
	if !errors.Is(wrapped, ErrInvalidTransition) || !isValidation(wrapped) {
		t.Error("ErrInvalidTransition should be a validation failure")
	}
}

func TestImportFormatError(t *testing.T) {
	err := &ImportFormatError{Path: "issues[3].id", Reason: "required"}
	if !errors.Is(err, ErrImportFormat) {
		t.Error("should match ErrImportFormat")
	}
	if got := err.Error(); got != "import: issues[3].id: required" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&ImportFormatError{Reason: "not JSON"}).Error(); got != "import: not JSON" {
		t.Errorf("Error() = %q", got)
	}
}
