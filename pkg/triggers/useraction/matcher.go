// Package useraction matches rules triggered by explicit user events.
package useraction

import (
	"context"
	"fmt"

	"github.com/tasklane/automation/pkg/models"
)

type Matcher struct{}

func NewMatcher() *Matcher {
	return &Matcher{}
}

func (*Matcher) Type() models.TriggerType {
	return models.TriggerTypeUserAction
}

// Matches requires an exact event-type string match.
// Config keys: eventType.
func (*Matcher) Matches(_ context.Context, config map[string]any, executionCtx models.ExecutionContext) (bool, string) {
	eventType, _ := config["eventType"].(string)
	if eventType == "" {
		return false, "user_action trigger has no eventType configured"
	}

	if executionCtx.TriggerEvent == eventType {
		return true, ""
	}

	return false, fmt.Sprintf("event %q does not match %q", executionCtx.TriggerEvent, eventType)
}
