// Package assignuser assigns the triggering work item to a user.
package assignuser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/protocol"
)

var (
	ErrAssigneeMissing = errors.New("assign_user action requires an 'assignee'")
	ErrNoIssue         = errors.New("execution context carries no issue")
)

type Action struct {
	issues   protocol.IssueService
	assignee string
}

func NewAction(issues protocol.IssueService, config map[string]any) (*Action, error) {
	assignee, _ := config["assignee"].(string)
	if assignee == "" {
		return nil, ErrAssigneeMissing
	}

	return &Action{issues: issues, assignee: assignee}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "assign_user")

	if executionCtx.IssueID == "" {
		return nil, ErrNoIssue
	}

	// "triggering_user" assigns back to whoever caused the event.
	assignee := a.assignee
	if assignee == "triggering_user" {
		if executionCtx.UserID == "" {
			return nil, errors.New("no triggering user in execution context")
		}

		assignee = executionCtx.UserID
	}

	if err := a.issues.AssignUser(ctx, executionCtx.IssueID, assignee); err != nil {
		return nil, fmt.Errorf("failed to assign user: %w", err)
	}

	logger.InfoContext(ctx, "issue assigned", "issue_id", executionCtx.IssueID, "assignee", assignee)

	return map[string]any{"issueId": executionCtx.IssueID, "assignee": assignee}, nil
}
