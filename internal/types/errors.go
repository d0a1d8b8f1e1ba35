package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the three error families callers branch on.
var (
	// ErrNotFound matches every NotFoundError regardless of entity.
	ErrNotFound = errors.New("not found")

	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrImportFormat matches every ImportFormatError.
	ErrImportFormat = errors.New("invalid import payload")
)

// NotFoundError reports a missing row, e.g. a project id that does not resolve.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is matches ErrNotFound, and any *NotFoundError for the same entity whose ID
// is empty (the per-entity sentinels below).
func (e *NotFoundError) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	t, ok := target.(*NotFoundError)
	if !ok {
		return false
	}
	return t.Entity == e.Entity && (t.ID == "" || t.ID == e.ID)
}

// Per-entity sentinels, for use with errors.Is.
var (
	ErrProjectNotFound  = &NotFoundError{Entity: "project"}
	ErrIssueNotFound    = &NotFoundError{Entity: "issue"}
	ErrSprintNotFound   = &NotFoundError{Entity: "sprint"}
	ErrCommentNotFound  = &NotFoundError{Entity: "comment"}
	ErrWorkflowNotFound = &NotFoundError{Entity: "workflow"}
	ErrUserNotFound     = &NotFoundError{Entity: "user"}
	ErrBoardNotFound    = &NotFoundError{Entity: "board"}
	ErrRowNotFound      = &NotFoundError{Entity: "row"}
)

// NotFound builds a NotFoundError for the given entity kind and id.
func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError reports input that breaks a domain rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ErrInvalidTransition is returned when a sprint is asked to move backwards or
// skip a state.
var ErrInvalidTransition = &ValidationError{Field: "status", Reason: "invalid sprint state transition"}

// ImportFormatError reports a malformed or incomplete import payload.
// Path names the offending element, e.g. "issues[3].projectId".
type ImportFormatError struct {
	Path   string
	Reason string
}

func (e *ImportFormatError) Error() string {
	if e.Path == "" {
		return "import: " + e.Reason
	}
	return fmt.Sprintf("import: %s: %s", e.Path, e.Reason)
}

func (e *ImportFormatError) Unwrap() error { return ErrImportFormat }
