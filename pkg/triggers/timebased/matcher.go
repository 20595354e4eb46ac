// Package timebased matches rules triggered by temporal comparisons.
package timebased

import (
	"context"
	"fmt"
	"time"

	"github.com/tasklane/automation/pkg/models"
)

// EqualsTolerance is how far "equals now" may drift in either direction.
const EqualsTolerance = 60 * time.Second

type Matcher struct {
	// Now is replaceable for tests.
	Now func() time.Time
}

func NewMatcher() *Matcher {
	return &Matcher{Now: time.Now}
}

func (*Matcher) Type() models.TriggerType {
	return models.TriggerTypeTimeBased
}

// Matches compares the configured instant against the current time.
// Config keys: time (RFC3339), comparison (before|after|equals, default
// equals).
func (m *Matcher) Matches(_ context.Context, config map[string]any, _ models.ExecutionContext) (bool, string) {
	raw, _ := config["time"].(string)
	if raw == "" {
		return false, "time_based trigger has no time configured"
	}

	target, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return false, fmt.Sprintf("time_based trigger has unparseable time %q", raw)
	}

	comparison, _ := config["comparison"].(string)
	if comparison == "" {
		comparison = "equals"
	}

	now := m.Now().UTC()

	switch comparison {
	case "before":
		if now.Before(target) {
			return true, ""
		}

		return false, fmt.Sprintf("current time is not before %s", raw)
	case "after":
		if now.After(target) {
			return true, ""
		}

		return false, fmt.Sprintf("current time is not after %s", raw)
	case "equals":
		drift := now.Sub(target)
		if drift < 0 {
			drift = -drift
		}

		if drift <= EqualsTolerance {
			return true, ""
		}

		return false, fmt.Sprintf("current time is not within %s of %s", EqualsTolerance, raw)
	default:
		return false, fmt.Sprintf("time_based trigger has unknown comparison %q", comparison)
	}
}
