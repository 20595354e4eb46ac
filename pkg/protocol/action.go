// Package protocol defines the contracts between the automation engine and
// its pluggable collaborators: action handlers, trigger matchers and the
// externally-owned issue service.
package protocol

import (
	"context"
	"log/slog"

	"github.com/tasklane/automation/pkg/models"
)

// Action is one concrete side effect executed when a rule fires. Handlers
// are externally owned; the engine only guarantees ordered, best-effort
// dispatch.
type Action interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error)
}

// ActionFactory builds an Action from its stored configuration. ID returns
// the action kind the factory serves (update_field, webhook_call, ...).
type ActionFactory interface {
	ID() string
	Create(config map[string]any) (Action, error)
}
