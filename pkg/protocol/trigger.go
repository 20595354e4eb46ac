package protocol

import (
	"context"

	"github.com/tasklane/automation/pkg/models"
)

// TriggerMatcher decides whether a rule's trigger fires for a given event
// context. A non-match is not an error: matchers return false plus a human
// readable reason so callers can distinguish a trigger decline from a
// condition decline.
type TriggerMatcher interface {
	Type() models.TriggerType
	Matches(ctx context.Context, config map[string]any, executionCtx models.ExecutionContext) (bool, string)
}
