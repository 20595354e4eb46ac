package models

import (
	"sort"
	"time"
)

// TriggerType identifies how an automation rule decides to fire.
type TriggerType string

const (
	TriggerTypeFieldChange   TriggerType = "field_change"
	TriggerTypeTimeBased     TriggerType = "time_based"
	TriggerTypeUserAction    TriggerType = "user_action"
	TriggerTypeExternalEvent TriggerType = "external_event"
	TriggerTypeScheduled     TriggerType = "scheduled"
)

// TriggerTypes lists every trigger type a rule may carry. The registry is
// checked against this list on startup.
var TriggerTypes = []TriggerType{
	TriggerTypeFieldChange,
	TriggerTypeTimeBased,
	TriggerTypeUserAction,
	TriggerTypeExternalEvent,
	TriggerTypeScheduled,
}

// RuleStatus is the activation state of an automation rule.
type RuleStatus string

const (
	RuleStatusActive   RuleStatus = "active"
	RuleStatusInactive RuleStatus = "inactive"
)

// LogicalOperator joins a rule condition to the one after it.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// RuleCondition is one declarative predicate over the execution context.
// Field is a dotted context path; Operator is one of the comparison
// operators understood by the condition evaluator. LogicalOperator joins
// this condition's result with the NEXT condition in the chain (default
// AND); the chain folds strictly left to right with no grouping.
type RuleCondition struct {
	Field           string          `json:"field"    validate:"required"`
	Operator        string          `json:"operator" validate:"required,oneof=equals not_equals contains greater_than less_than"`
	Value           any             `json:"value"`
	LogicalOperator LogicalOperator `json:"logicalOperator,omitempty"`
}

// RuleAction is one side effect to run when a rule fires. Actions execute in
// ascending Order; each failure is recorded independently without aborting
// siblings.
type RuleAction struct {
	ID     string         `json:"id"`
	Type   string         `json:"type" validate:"required"`
	Config map[string]any `json:"config"`
	Order  int            `json:"order"`
}

// AutomationRule matches heterogeneous trigger events and runs an ordered
// action batch. Mutation is ownership-scoped to CreatedBy.
type AutomationRule struct {
	ID            string          `json:"id"`
	ProjectID     string          `json:"projectId" validate:"required"`
	Name          string          `json:"name"      validate:"required,min=3"`
	Description   string          `json:"description"`
	TriggerType   TriggerType     `json:"triggerType" validate:"required"`
	TriggerConfig map[string]any  `json:"triggerConfig"`
	Conditions    []RuleCondition `json:"conditions"`
	Actions       []RuleAction    `json:"actions"`
	Status        RuleStatus      `json:"status"`
	CreatedBy     string          `json:"createdBy"`

	// Rolling aggregate; a full per-rule execution ledger is not retained.
	ExecutionCount int64      `json:"executionCount"`
	SuccessRate    float64    `json:"successRate"` // 0..100
	LastError      string     `json:"lastError,omitempty"`
	LastExecutedAt *time.Time `json:"lastExecutedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsActive reports whether the rule may fire.
func (r *AutomationRule) IsActive() bool {
	return r.Status == RuleStatusActive
}

// OrderedActions returns the actions sorted by ascending Order, stable for
// equal orders.
func (r *AutomationRule) OrderedActions() []RuleAction {
	actions := make([]RuleAction, len(r.Actions))
	copy(actions, r.Actions)

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Order < actions[j].Order
	})

	return actions
}

// ActionResult is the recorded outcome of one action in a batch.
type ActionResult struct {
	Type    string `json:"type"`
	Order   int    `json:"order"`
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RuleResult is the outcome of one rule execution attempt. Declines
// (inactive rule, trigger unmet, conditions unmet) are not errors; they are
// reported through Success=false with a reason in Error.
type RuleResult struct {
	Success bool           `json:"success"`
	Result  []ActionResult `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}
