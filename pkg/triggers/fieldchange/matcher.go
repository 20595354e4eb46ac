// Package fieldchange matches rules triggered by work-item field changes.
package fieldchange

import (
	"context"
	"fmt"

	"github.com/tasklane/automation/pkg/conditions"
	"github.com/tasklane/automation/pkg/models"
)

// operatorTrees maps the rule-facing operator names onto the condition
// evaluator's operator keys. Comparison always goes through the evaluator so
// field-change triggers and rule conditions agree on coercion rules.
var operatorTrees = map[string]string{
	"equals":       conditions.OpEqual,
	"not_equals":   conditions.OpNotEqual,
	"contains":     conditions.OpContains,
	"greater_than": conditions.OpGreater,
	"less_than":    conditions.OpLess,
}

type Matcher struct{}

func NewMatcher() *Matcher {
	return &Matcher{}
}

func (*Matcher) Type() models.TriggerType {
	return models.TriggerTypeFieldChange
}

// Matches compares a nested context path against the configured value.
// Config keys: field (dotted path), operator, value.
func (*Matcher) Matches(_ context.Context, config map[string]any, executionCtx models.ExecutionContext) (bool, string) {
	field, _ := config["field"].(string)
	if field == "" {
		return false, "field_change trigger has no field configured"
	}

	operator, _ := config["operator"].(string)
	if operator == "" {
		operator = "equals"
	}

	op, ok := operatorTrees[operator]
	if !ok {
		return false, fmt.Sprintf("field_change trigger has unknown operator %q", operator)
	}

	expr := map[string]any{op: []any{map[string]any{"var": field}, config["value"]}}
	if conditions.Evaluate(expr, executionCtx.AsMap()) {
		return true, ""
	}

	return false, fmt.Sprintf("field %q did not satisfy %s", field, operator)
}
