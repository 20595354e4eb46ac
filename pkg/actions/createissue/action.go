// Package createissue creates a new work item in the triggering project.
package createissue

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
	ErrTitleMissing = errors.New("create_issue action requires a 'title'")
	ErrNoProject    = errors.New("execution context carries no project")
)

type Action struct {
	issues protocol.IssueService
	title  string
	fields map[string]any
}

func NewAction(issues protocol.IssueService, config map[string]any) (*Action, error) {
	title, _ := config["title"].(string)
	if title == "" {
		return nil, ErrTitleMissing
	}

	fields, _ := config["fields"].(map[string]any)

	return &Action{issues: issues, title: title, fields: fields}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "create_issue")

	if executionCtx.ProjectID == "" {
		return nil, ErrNoProject
	}

	title, err := template.RenderWithContext(a.title, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render title: %w", err)
	}

	fields := map[string]any{"title": fmt.Sprintf("%v", title)}

	if a.fields != nil {
		rendered, err := template.RenderMap(a.fields, executionCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render fields: %w", err)
		}

		for k, v := range rendered {
			fields[k] = v
		}
	}

	issueID, err := a.issues.CreateIssue(ctx, executionCtx.ProjectID, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}

	logger.InfoContext(ctx, "issue created", "issue_id", issueID, "project_id", executionCtx.ProjectID)

	return map[string]any{"issueId": issueID, "projectId": executionCtx.ProjectID}, nil
}
