// Package sendemail publishes an email request on the event bus for the
// external mailer to deliver.
package sendemail

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

var (
	ErrRecipientsMissing = errors.New("send_email action requires 'to' recipients")
	ErrSubjectMissing    = errors.New("send_email action requires a 'subject'")
)

type Action struct {
	bus     eventbus.EventBus
	to      []string
	subject string
	body    string
}

func NewAction(bus eventbus.EventBus, config map[string]any) (*Action, error) {
	to := stringSlice(config["to"])
	if len(to) == 0 {
		return nil, ErrRecipientsMissing
	}

	subject, _ := config["subject"].(string)
	if subject == "" {
		return nil, ErrSubjectMissing
	}

	body, _ := config["body"].(string)

	return &Action{bus: bus, to: to, subject: subject, body: body}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "send_email")

	subject, err := template.RenderWithContext(a.subject, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}

	body, err := template.RenderWithContext(a.body, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render body: %w", err)
	}

	event := events.EmailRequested{
		BaseEvent: events.BaseEvent{
			ID:        a.bus.GenerateID(),
			Type:      events.EmailRequestedEvent,
			Timestamp: time.Now().UTC(),
			ProjectID: executionCtx.ProjectID,
		},

		To:      a.to,
		Subject: fmt.Sprintf("%v", subject),
		Body:    fmt.Sprintf("%v", body),
	}

	if err := a.bus.Publish(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to publish email request: %w", err)
	}

	logger.InfoContext(ctx, "email requested", "recipients", len(a.to))

	return map[string]any{"to": a.to, "subject": event.Subject}, nil
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
