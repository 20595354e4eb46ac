package models

import (
	"fmt"
	"time"
)

// ExecutionStatus is the lifecycle state of one workflow run.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
	ExecutionStatusTimeout   ExecutionStatus = "timeout"
)

// IsTerminal reports whether the status is a final one.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled, ExecutionStatusTimeout:
		return true
	default:
		return false
	}
}

// CanTransitionTo enforces monotonic execution status transitions: a terminal
// execution never goes back to pending or running.
func (s ExecutionStatus) CanTransitionTo(next ExecutionStatus) bool {
	if s == next {
		return true
	}

	if s.IsTerminal() {
		return false
	}

	if s == ExecutionStatusRunning && next == ExecutionStatusPending {
		return false
	}

	return true
}

// LogEntry is one line of the per-execution log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	NodeID    string    `json:"nodeId,omitempty"`
	Message   string    `json:"message"`
}

// Execution is one concrete run of a workflow definition against a context.
// Rows are created exactly once per trigger invocation and are append-only
// except for the status/result/log fields written at completion.
type Execution struct {
	ID           string            `json:"id"`
	WorkflowID   string            `json:"workflowId"`
	TriggerEvent string            `json:"triggerEvent"`
	Context      *ExecutionContext `json:"context"`
	Status       ExecutionStatus   `json:"status"`
	Log          []LogEntry        `json:"log,omitempty"`
	Result       map[string]any    `json:"result,omitempty"`
	Error        string            `json:"error,omitempty"`
	RetryCount   int               `json:"retryCount"`
	MaxRetries   int               `json:"maxRetries"`
	StartedAt    time.Time         `json:"startedAt"`
	FinishedAt   *time.Time        `json:"finishedAt,omitempty"`
	DurationMS   int64             `json:"durationMs"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// SetStatus moves the execution to the next lifecycle state, rejecting
// non-monotonic transitions.
func (e *Execution) SetStatus(next ExecutionStatus) error {
	if !e.Status.CanTransitionTo(next) {
		return fmt.Errorf("execution %s: illegal status transition %s -> %s", e.ID, e.Status, next)
	}

	e.Status = next
	e.UpdatedAt = time.Now().UTC()

	return nil
}

// Finish stamps the terminal state, elapsed time and outcome fields.
func (e *Execution) Finish(status ExecutionStatus, result map[string]any, execErr string) error {
	if err := e.SetStatus(status); err != nil {
		return err
	}

	now := time.Now().UTC()
	e.FinishedAt = &now
	e.DurationMS = now.Sub(e.StartedAt).Milliseconds()
	e.Result = result
	e.Error = execErr

	return nil
}
