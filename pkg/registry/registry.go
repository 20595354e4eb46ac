// Package registry maps action kinds and trigger types to their handlers.
// Dispatch over type strings goes through here and nowhere else, and the
// registry can assert at startup that every declared tag has a handler.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/protocol"
)

type Registry struct {
	logger          *slog.Logger
	actionFactories map[string]protocol.ActionFactory
	triggerMatchers map[models.TriggerType]protocol.TriggerMatcher
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:          logger,
		actionFactories: make(map[string]protocol.ActionFactory),
		triggerMatchers: make(map[models.TriggerType]protocol.TriggerMatcher),
	}
}

func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.actionFactories[factory.ID()] = factory
}

func (r *Registry) RegisterTriggerMatcher(matcher protocol.TriggerMatcher) {
	r.triggerMatchers[matcher.Type()] = matcher
}

// CreateAction builds an action handler for the given kind.
func (r *Registry) CreateAction(actionType string, config map[string]any) (protocol.Action, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type %q not registered", actionType)
	}

	return factory.Create(config)
}

// TriggerMatcher returns the matcher for a trigger type.
func (r *Registry) TriggerMatcher(triggerType models.TriggerType) (protocol.TriggerMatcher, error) {
	matcher, ok := r.triggerMatchers[triggerType]
	if !ok {
		return nil, fmt.Errorf("trigger type %q not registered", triggerType)
	}

	return matcher, nil
}

// ActionTypes returns the registered action kinds.
func (r *Registry) ActionTypes() []string {
	types := make([]string, 0, len(r.actionFactories))
	for t := range r.actionFactories {
		types = append(types, t)
	}

	return types
}

// AssertComplete fails when any declared trigger type lacks a matcher. The
// action set is open-ended (handlers are pluggable), but trigger types are a
// closed enum and every one of them must dispatch somewhere.
func (r *Registry) AssertComplete() error {
	for _, triggerType := range models.TriggerTypes {
		if _, ok := r.triggerMatchers[triggerType]; !ok {
			return fmt.Errorf("trigger type %q has no registered matcher", triggerType)
		}
	}

	return nil
}
