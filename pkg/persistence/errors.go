// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow definition was not found.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrExecutionNotFound indicates an execution row was not found.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrRuleNotFound indicates an automation rule was not found. It is also
	// returned for ownership failures so a non-creator cannot probe for rule
	// existence.
	ErrRuleNotFound = errors.New("automation rule not found")

	// ErrStatusNotFound indicates a workflow status was not found.
	ErrStatusNotFound = errors.New("status not found")

	// ErrTransitionNotFound indicates a transition rule was not found.
	ErrTransitionNotFound = errors.New("transition not found")

	// ErrDuplicateStatusName indicates a status name collision within a project.
	ErrDuplicateStatusName = errors.New("status name already used in project")

	// ErrCategoriesSeeded indicates the category set was already seeded; the
	// key set is immutable once written.
	ErrCategoriesSeeded = errors.New("categories already seeded")
)

// StoreError wraps persistence errors with operation context.
type StoreError struct {
	Op  string // Operation being performed (e.g. "GetByID", "Save")
	ID  string // Entity ID if applicable
	Err error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrRuleNotFound) ||
		errors.Is(err, ErrStatusNotFound) ||
		errors.Is(err, ErrTransitionNotFound)
}
