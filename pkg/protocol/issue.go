package protocol

import "context"

// IssueService is the externally-owned work-item collaborator the action
// handlers mutate through. The engine never touches issue storage directly.
type IssueService interface {
	UpdateField(ctx context.Context, issueID, field string, value any) error
	AssignUser(ctx context.Context, issueID, userID string) error
	UpdateStatus(ctx context.Context, issueID, status string) error
	CreateIssue(ctx context.Context, projectID string, fields map[string]any) (string, error)
}
