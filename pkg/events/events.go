// Package events defines the lifecycle events the automation core publishes.
// Delivery mechanics (email, chat, webhooks to users) live outside the core;
// the engine only emits requests and facts onto the bus.
package events

import (
	"time"
)

type EventType string

// Bus topics.
const (
	Topic         = "tasklane.automation.events"
	DeliveryTopic = "tasklane.automation.deliveries"
)

const EventTypeMetadataKey = "event_type"

const (
	// Workflow execution lifecycle.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionTimeoutEvent   EventType = "execution.timeout"
	ExecutionCancelledEvent EventType = "execution.cancelled"

	// Automation rules.
	RuleExecutedEvent EventType = "rule.executed"

	// Delivery requests consumed by external notifiers.
	NotificationRequestedEvent EventType = "notification.requested"
	EmailRequestedEvent        EventType = "email.requested"
)

// Event is anything publishable on the bus.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	ProjectID string         `json:"projectId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	WorkflowID   string `json:"workflowId"`
	ExecutionID  string `json:"executionId"`
	TriggerEvent string `json:"triggerEvent,omitempty"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

// ExecutionFinished covers every terminal outcome; Type carries which one.
type ExecutionFinished struct {
	BaseEvent

	WorkflowID  string `json:"workflowId"`
	ExecutionID string `json:"executionId"`
	Status      string `json:"status"`
	DurationMS  int64  `json:"durationMs"`
	Error       string `json:"error,omitempty"`
}

func (e ExecutionFinished) GetType() EventType { return e.Type }

type RuleExecuted struct {
	BaseEvent

	RuleID  string `json:"ruleId"`
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

func (e RuleExecuted) GetType() EventType { return RuleExecutedEvent }

// NotificationRequested asks an external notifier to deliver a message.
type NotificationRequested struct {
	BaseEvent

	Recipients []string `json:"recipients"`
	Channel    string   `json:"channel,omitempty"`
	Message    string   `json:"message"`
}

func (e NotificationRequested) GetType() EventType { return NotificationRequestedEvent }

// EmailRequested asks the external mailer to send an email.
type EmailRequested struct {
	BaseEvent

	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

func (e EmailRequested) GetType() EventType { return EmailRequestedEvent }
