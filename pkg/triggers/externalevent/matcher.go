// Package externalevent matches rules triggered by inbound webhooks.
package externalevent

import (
	"context"
	"fmt"

	"github.com/tasklane/automation/pkg/conditions"
	"github.com/tasklane/automation/pkg/models"
)

type Matcher struct{}

func NewMatcher() *Matcher {
	return &Matcher{}
}

func (*Matcher) Type() models.TriggerType {
	return models.TriggerTypeExternalEvent
}

// Matches requires BOTH the webhook URL and the event type to line up.
// Config keys: webhookUrl, eventType. The delivering gateway places the
// receiving URL under triggerData.webhookUrl.
func (*Matcher) Matches(_ context.Context, config map[string]any, executionCtx models.ExecutionContext) (bool, string) {
	webhookURL, _ := config["webhookUrl"].(string)
	eventType, _ := config["eventType"].(string)

	if webhookURL == "" || eventType == "" {
		return false, "external_event trigger needs both webhookUrl and eventType configured"
	}

	received, _ := conditions.Resolve("triggerData.webhookUrl", executionCtx.AsMap()).(string)
	if received != webhookURL {
		return false, fmt.Sprintf("webhook URL %q does not match %q", received, webhookURL)
	}

	if executionCtx.TriggerEvent != eventType {
		return false, fmt.Sprintf("event %q does not match %q", executionCtx.TriggerEvent, eventType)
	}

	return true, ""
}
