package web

import (
	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/transitions"
)

// ExecuteRequest is the body for workflow and rule execution endpoints.
type ExecuteRequest struct {
	Context models.ExecutionContext `json:"context" validate:"required"`
}

// SimulateRequest carries an unsaved definition plus the context to dry-run
// it with.
type SimulateRequest struct {
	Workflow *models.WorkflowDefinition `json:"workflow" validate:"required"`
	Context  models.ExecutionContext    `json:"context"`
}

// SimulateResponse reports a dry run without persisting anything.
type SimulateResponse struct {
	Success bool              `json:"success"`
	Result  map[string]any    `json:"result,omitempty"`
	Logs    []models.LogEntry `json:"logs,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// CheckTransitionRequest asks whether one status change may happen.
type CheckTransitionRequest struct {
	FromStatus string         `json:"fromStatus"`
	ToStatus   string         `json:"toStatus" validate:"required"`
	Role       string         `json:"role"`
	Fields     map[string]any `json:"fields,omitempty"`
	Estimate   *float64       `json:"estimate,omitempty"`
}

func (r *CheckTransitionRequest) subject() transitions.Subject {
	return transitions.Subject{Fields: r.Fields, Estimate: r.Estimate}
}
