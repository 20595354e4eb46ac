// Package delay pauses an action batch for a bounded duration.
package delay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tasklane/automation/pkg/models"
)

// maxDelay caps user-configured pauses so one rule cannot stall a batch
// indefinitely.
const maxDelay = 5 * time.Minute

type Action struct {
	duration time.Duration
}

func NewAction(config map[string]any) (*Action, error) {
	seconds, ok := toFloat(config["seconds"])
	if !ok || seconds <= 0 {
		return nil, fmt.Errorf("delay action requires a positive 'seconds' value")
	}

	duration := time.Duration(seconds * float64(time.Second))
	if duration > maxDelay {
		duration = maxDelay
	}

	return &Action{duration: duration}, nil
}

func (a *Action) Execute(ctx context.Context, _ models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "delay")
	logger.InfoContext(ctx, "delaying", "duration", a.duration)

	select {
	case <-time.After(a.duration):
		return map[string]any{"delayedMs": a.duration.Milliseconds()}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("delay interrupted: %w", ctx.Err())
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
