// Package updatefield sets one field on the triggering work item.
package updatefield

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/protocol"
	"github.com/tasklane/automation/pkg/template"
)

var (
	ErrFieldMissing = errors.New("update_field action requires a 'field'")
	ErrNoIssue      = errors.New("execution context carries no issue")
)

type Action struct {
	issues protocol.IssueService
	field  string
	value  any
}

func NewAction(issues protocol.IssueService, config map[string]any) (*Action, error) {
	field, _ := config["field"].(string)
	if field == "" {
		return nil, ErrFieldMissing
	}

	return &Action{issues: issues, field: field, value: config["value"]}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "update_field", "field", a.field)

	if executionCtx.IssueID == "" {
		return nil, ErrNoIssue
	}

	value := a.value
	if s, ok := value.(string); ok {
		rendered, err := template.RenderWithContext(s, executionCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render field value: %w", err)
		}

		value = rendered
	}

	if err := a.issues.UpdateField(ctx, executionCtx.IssueID, a.field, value); err != nil {
		return nil, fmt.Errorf("failed to update field %q: %w", a.field, err)
	}

	logger.InfoContext(ctx, "field updated", "issue_id", executionCtx.IssueID)

	return map[string]any{"issueId": executionCtx.IssueID, "field": a.field, "value": value}, nil
}
