package models

// ExecutionContext is the wire shape handed to the engine per triggering
// event. The same context feeds workflow runs, rule trigger matching, and
// condition evaluation.
type ExecutionContext struct {
	TriggerEvent string         `json:"triggerEvent"`
	TriggerData  map[string]any `json:"triggerData,omitempty"`
	Variables    map[string]any `json:"variables,omitempty"`
	UserID       string         `json:"userId,omitempty"`
	ProjectID    string         `json:"projectId"`
	IssueID      string         `json:"issueId,omitempty"`
	SprintID     string         `json:"sprintId,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// AsMap flattens the context for declarative condition evaluation. Keys
// mirror the JSON wire names, so expressions address nested values as
// "triggerData.issue.status", "variables.priority" and so on.
func (c *ExecutionContext) AsMap() map[string]any {
	if c == nil {
		return map[string]any{}
	}

	return map[string]any{
		"triggerEvent": c.TriggerEvent,
		"triggerData":  c.TriggerData,
		"variables":    c.Variables,
		"userId":       c.UserID,
		"projectId":    c.ProjectID,
		"issueId":      c.IssueID,
		"sprintId":     c.SprintID,
		"metadata":     c.Metadata,
	}
}
