// Package scheduled matches rules fired by the periodic scanner.
package scheduled

import (
	"context"

	"github.com/tasklane/automation/pkg/models"
)

type Matcher struct{}

func NewMatcher() *Matcher {
	return &Matcher{}
}

func (*Matcher) Type() models.TriggerType {
	return models.TriggerTypeScheduled
}

// Matches is always true: the scanner already decided the rule is due.
// Real schedule gating belongs there, not here.
func (*Matcher) Matches(_ context.Context, _ map[string]any, _ models.ExecutionContext) (bool, string) {
	return true, ""
}
