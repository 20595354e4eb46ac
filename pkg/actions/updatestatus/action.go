// Package updatestatus moves the triggering work item to a new status.
package updatestatus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/protocol"
)

var (
	ErrStatusMissing = errors.New("update_status action requires a 'status'")
	ErrNoIssue       = errors.New("execution context carries no issue")
)

type Action struct {
	issues protocol.IssueService
	status string
}

func NewAction(issues protocol.IssueService, config map[string]any) (*Action, error) {
	status, _ := config["status"].(string)
	if status == "" {
		return nil, ErrStatusMissing
	}

	return &Action{issues: issues, status: status}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "update_status", "status", a.status)

	if executionCtx.IssueID == "" {
		return nil, ErrNoIssue
	}

	if err := a.issues.UpdateStatus(ctx, executionCtx.IssueID, a.status); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	logger.InfoContext(ctx, "status updated", "issue_id", executionCtx.IssueID)

	return map[string]any{"issueId": executionCtx.IssueID, "status": a.status}, nil
}
