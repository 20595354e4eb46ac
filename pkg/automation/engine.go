// Package automation implements the rule engine: ownership-scoped rule CRUD,
// trigger matching, left-to-right condition folding, ordered best-effort
// action batches and rolling per-rule statistics.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tasklane/automation/pkg/conditions"
	"github.com/tasklane/automation/pkg/eventbus"
	"github.com/tasklane/automation/pkg/events"
	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/otelhelper"
	"github.com/tasklane/automation/pkg/persistence"
	"github.com/tasklane/automation/pkg/registry"
)

// conditionOperators maps rule-facing operator names onto the condition
// evaluator's keys, keeping rule conditions and field-change triggers on the
// same coercion rules.
var conditionOperators = map[string]string{
	"equals":       conditions.OpEqual,
	"not_equals":   conditions.OpNotEqual,
	"contains":     conditions.OpContains,
	"greater_than": conditions.OpGreater,
	"less_than":    conditions.OpLess,
}

type Engine struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	stats       StatsRecorder
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewEngine(
	p persistence.Persistence,
	r *registry.Registry,
	stats StatsRecorder,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Engine {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("automation")
	}

	if stats == nil {
		stats = NewMemoryStatsRecorder()
	}

	return &Engine{
		persistence: p,
		registry:    r,
		stats:       stats,
		eventBus:    eventBus,
		tracer:      tracer,
		validate:    validator.New(),
		logger:      logger.With("module", "automation_engine"),
	}
}

// CreateRule validates and stores a new rule owned by its creator.
func (e *Engine) CreateRule(ctx context.Context, rule *models.AutomationRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	if rule.Status == "" {
		rule.Status = models.RuleStatusActive
	}

	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if err := e.validate.Struct(rule); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}

	if _, err := e.registry.TriggerMatcher(rule.TriggerType); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}

	return e.persistence.Rules().Save(ctx, rule)
}

// UpdateRule replaces the mutable fields of a rule. Only the creator may
// update; anyone else gets NotFound, indistinguishable from a missing rule.
func (e *Engine) UpdateRule(ctx context.Context, ruleID, userID string, update *models.AutomationRule) (*models.AutomationRule, error) {
	rule, err := e.owned(ctx, ruleID, userID)
	if err != nil {
		return nil, err
	}

	rule.Name = update.Name
	rule.Description = update.Description
	rule.TriggerType = update.TriggerType
	rule.TriggerConfig = update.TriggerConfig
	rule.Conditions = update.Conditions
	rule.Actions = update.Actions
	rule.UpdatedAt = time.Now().UTC()

	if err := e.validate.Struct(rule); err != nil {
		return nil, fmt.Errorf("invalid rule: %w", err)
	}

	if err := e.persistence.Rules().Save(ctx, rule); err != nil {
		return nil, err
	}

	return rule, nil
}

// ToggleRule flips a rule between active and inactive.
func (e *Engine) ToggleRule(ctx context.Context, ruleID, userID string) (*models.AutomationRule, error) {
	rule, err := e.owned(ctx, ruleID, userID)
	if err != nil {
		return nil, err
	}

	if rule.IsActive() {
		rule.Status = models.RuleStatusInactive
	} else {
		rule.Status = models.RuleStatusActive
	}

	rule.UpdatedAt = time.Now().UTC()

	if err := e.persistence.Rules().Save(ctx, rule); err != nil {
		return nil, err
	}

	return rule, nil
}

// DeleteRule removes a rule, creator only.
func (e *Engine) DeleteRule(ctx context.Context, ruleID, userID string) error {
	if _, err := e.owned(ctx, ruleID, userID); err != nil {
		return err
	}

	return e.persistence.Rules().Delete(ctx, ruleID)
}

// GetRule loads one rule without an ownership check; reading is open.
func (e *Engine) GetRule(ctx context.Context, ruleID string) (*models.AutomationRule, error) {
	return e.persistence.Rules().GetByID(ctx, ruleID)
}

// ListRules returns a project's rules.
func (e *Engine) ListRules(ctx context.Context, projectID string) ([]*models.AutomationRule, error) {
	return e.persistence.Rules().ListByProject(ctx, projectID)
}

// ExecuteRule runs one rule against a context. Expected declines (inactive
// rule, trigger unmet, conditions unmet) come back as Success=false with a
// reason, never as an error. Declines do not touch the rolling statistics;
// only a fired action batch counts as an attempt.
func (e *Engine) ExecuteRule(ctx context.Context, ruleID string, executionCtx models.ExecutionContext) (*models.RuleResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "automation.execute_rule",
		attribute.String(otelhelper.RuleIDKey, ruleID),
		attribute.String(otelhelper.ProjectIDKey, executionCtx.ProjectID),
	)
	defer span.End()

	rule, err := e.persistence.Rules().GetByID(ctx, ruleID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.TriggerTypeKey, string(rule.TriggerType)))

	logger := e.logger.With("rule_id", rule.ID, "project_id", rule.ProjectID)

	if !rule.IsActive() {
		return e.decline(ctx, rule, fmt.Sprintf("rule %s is inactive", rule.ID)), nil
	}

	matcher, err := e.registry.TriggerMatcher(rule.TriggerType)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if matched, reason := matcher.Matches(ctx, rule.TriggerConfig, executionCtx); !matched {
		return e.decline(ctx, rule, "trigger not met: "+reason), nil
	}

	if !e.conditionsMet(rule.Conditions, executionCtx) {
		return e.decline(ctx, rule, "conditions not met"), nil
	}

	logger.Info("rule fired", "trigger_type", rule.TriggerType, "actions", len(rule.Actions))

	results, lastError := e.runActions(ctx, rule, executionCtx, logger)

	success := lastError == ""

	if err := e.stats.Record(ctx, rule, success); err != nil {
		logger.Warn("failed to record rule stats", "error", err)
	}

	now := time.Now().UTC()
	rule.LastExecutedAt = &now
	rule.LastError = lastError
	rule.UpdatedAt = now

	if err := e.persistence.Rules().Save(ctx, rule); err != nil {
		logger.Warn("failed to persist rule stats", "error", err)
	}

	e.publishExecuted(ctx, rule, success, lastError)

	return &models.RuleResult{Success: success, Result: results, Error: lastError}, nil
}

// TestRule dry-runs a rule: the trigger and conditions are evaluated for
// real, but no action runs and no statistic moves. The result lists the
// actions that would have run.
func (e *Engine) TestRule(ctx context.Context, ruleID string, executionCtx models.ExecutionContext) (*models.RuleResult, error) {
	rule, err := e.persistence.Rules().GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	if !rule.IsActive() {
		return &models.RuleResult{Success: false, Error: fmt.Sprintf("rule %s is inactive", rule.ID)}, nil
	}

	matcher, err := e.registry.TriggerMatcher(rule.TriggerType)
	if err != nil {
		return nil, err
	}

	if matched, reason := matcher.Matches(ctx, rule.TriggerConfig, executionCtx); !matched {
		return &models.RuleResult{Success: false, Error: "trigger not met: " + reason}, nil
	}

	if !e.conditionsMet(rule.Conditions, executionCtx) {
		return &models.RuleResult{Success: false, Error: "conditions not met"}, nil
	}

	results := make([]models.ActionResult, 0, len(rule.Actions))
	for _, action := range rule.OrderedActions() {
		results = append(results, models.ActionResult{
			Type:    action.Type,
			Order:   action.Order,
			Success: true,
			Result:  "dry run",
		})
	}

	return &models.RuleResult{Success: true, Result: results}, nil
}

// conditionsMet folds the condition chain strictly left to right: each
// result combines with the next via the PRECEDING condition's logical
// operator, default AND. No grouping.
func (e *Engine) conditionsMet(ruleConditions []models.RuleCondition, executionCtx models.ExecutionContext) bool {
	if len(ruleConditions) == 0 {
		return true
	}

	contextMap := executionCtx.AsMap()

	acc := e.evalCondition(ruleConditions[0], contextMap)

	for i := 1; i < len(ruleConditions); i++ {
		next := e.evalCondition(ruleConditions[i], contextMap)

		if ruleConditions[i-1].LogicalOperator == models.LogicalOr {
			acc = acc || next
		} else {
			acc = acc && next
		}
	}

	return acc
}

func (e *Engine) evalCondition(cond models.RuleCondition, contextMap map[string]any) bool {
	op, ok := conditionOperators[cond.Operator]
	if !ok {
		e.logger.Warn("rule condition has unknown operator", "operator", cond.Operator)

		return false
	}

	expr := map[string]any{op: []any{map[string]any{"var": cond.Field}, cond.Value}}

	return conditions.Evaluate(expr, contextMap)
}

// runActions executes the batch in ascending order. A failing action is
// recorded and skipped over; its siblings still run. The returned lastError
// is the most recent failure, empty when everything succeeded.
func (e *Engine) runActions(ctx context.Context, rule *models.AutomationRule, executionCtx models.ExecutionContext, logger *slog.Logger) ([]models.ActionResult, string) {
	ordered := rule.OrderedActions()
	results := make([]models.ActionResult, 0, len(ordered))

	var lastError string

	for _, item := range ordered {
		actionLogger := logger.With("action_type", item.Type, "action_order", item.Order)

		result := models.ActionResult{Type: item.Type, Order: item.Order}

		output, err := e.runAction(ctx, item, executionCtx, actionLogger)
		if err != nil {
			actionLogger.Warn("action failed", "error", err)

			result.Error = err.Error()
			lastError = err.Error()
		} else {
			result.Success = true
			result.Result = output
		}

		results = append(results, result)
	}

	return results, lastError
}

func (e *Engine) runAction(ctx context.Context, item models.RuleAction, executionCtx models.ExecutionContext, logger *slog.Logger) (output any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("action %s panicked: %v", item.Type, rec)
		}
	}()

	action, err := e.registry.CreateAction(item.Type, item.Config)
	if err != nil {
		return nil, err
	}

	return action.Execute(ctx, executionCtx, logger)
}

func (e *Engine) owned(ctx context.Context, ruleID, userID string) (*models.AutomationRule, error) {
	rule, err := e.persistence.Rules().GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	if rule.CreatedBy != userID {
		return nil, fmt.Errorf("rule %s: %w", ruleID, persistence.ErrRuleNotFound)
	}

	return rule, nil
}

func (e *Engine) decline(ctx context.Context, rule *models.AutomationRule, reason string) *models.RuleResult {
	e.logger.Debug("rule declined", "rule_id", rule.ID, "reason", reason)
	e.publishExecuted(ctx, rule, false, reason)

	return &models.RuleResult{Success: false, Error: reason}
}

func (e *Engine) publishExecuted(ctx context.Context, rule *models.AutomationRule, success bool, reason string) {
	if e.eventBus == nil {
		return
	}

	event := events.RuleExecuted{
		BaseEvent: events.BaseEvent{
			ID:        e.eventBus.GenerateID(),
			Type:      events.RuleExecutedEvent,
			Timestamp: time.Now().UTC(),
			ProjectID: rule.ProjectID,
		},

		RuleID:  rule.ID,
		Success: success,
		Reason:  reason,
	}

	if err := e.eventBus.Publish(ctx, event); err != nil {
		e.logger.Warn("failed to publish rule event", "rule_id", rule.ID, "error", err)
	}
}
