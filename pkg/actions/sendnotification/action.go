// Package sendnotification publishes an in-product notification request on
// the event bus. Actual delivery is the notifier service's job.
package sendnotification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tasklane/automation/pkg/eventbus"
	"github.com/tasklane/automation/pkg/events"
	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/template"
)

var ErrMessageMissing = errors.New("send_notification action requires a 'message'")

type Action struct {
	bus        eventbus.EventBus
	message    string
	channel    string
	recipients []string
}

func NewAction(bus eventbus.EventBus, config map[string]any) (*Action, error) {
	message, _ := config["message"].(string)
	if message == "" {
		return nil, ErrMessageMissing
	}

	channel, _ := config["channel"].(string)

	return &Action{
		bus:        bus,
		message:    message,
		channel:    channel,
		recipients: stringSlice(config["recipients"]),
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "send_notification")

	message, err := template.RenderWithContext(a.message, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render message: %w", err)
	}

	recipients := a.recipients
	if len(recipients) == 0 && executionCtx.UserID != "" {
		recipients = []string{executionCtx.UserID}
	}

	event := events.NotificationRequested{
		BaseEvent: events.BaseEvent{
			ID:        a.bus.GenerateID(),
			Type:      events.NotificationRequestedEvent,
			Timestamp: time.Now().UTC(),
			ProjectID: executionCtx.ProjectID,
		},

		Recipients: recipients,
		Channel:    a.channel,
		Message:    fmt.Sprintf("%v", message),
	}

	if err := a.bus.Publish(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to publish notification request: %w", err)
	}

	logger.InfoContext(ctx, "notification requested", "recipients", len(recipients))

	return map[string]any{"recipients": recipients, "message": event.Message}, nil
}

func stringSlice(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(items))

	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}

	return out
}
