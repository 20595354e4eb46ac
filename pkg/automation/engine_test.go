package automation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/persistence"
	"github.com/tasklane/automation/pkg/persistence/file"
	"github.com/tasklane/automation/pkg/protocol"
	"github.com/tasklane/automation/pkg/registry"
	"github.com/tasklane/automation/pkg/triggers/fieldchange"
	"github.com/tasklane/automation/pkg/triggers/scheduled"
	"github.com/tasklane/automation/pkg/triggers/useraction"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFactory records every execution so tests can assert ordering and
// isolation of the action batch.
type fakeFactory struct {
	id   string
	err  error
	mu   sync.Mutex
	runs []map[string]any
}

func (f *fakeFactory) ID() string { return f.id }

func (f *fakeFactory) Create(config map[string]any) (protocol.Action, error) {
	return &fakeAction{factory: f, config: config}, nil
}

func (f *fakeFactory) record(config map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.runs = append(f.runs, config)
}

type fakeAction struct {
	factory *fakeFactory
	config  map[string]any
}

func (a *fakeAction) Execute(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (any, error) {
	a.factory.record(a.config)

	if a.factory.err != nil {
		return nil, a.factory.err
	}

	return "ok", nil
}

type engineFixture struct {
	engine      *Engine
	persistence persistence.Persistence
	notify      *fakeFactory
	assign      *fakeFactory
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(testLogger())
	reg.RegisterTriggerMatcher(fieldchange.NewMatcher())
	reg.RegisterTriggerMatcher(useraction.NewMatcher())
	reg.RegisterTriggerMatcher(scheduled.NewMatcher())

	notify := &fakeFactory{id: "send_notification"}
	assign := &fakeFactory{id: "assign_user"}
	reg.RegisterAction(notify)
	reg.RegisterAction(assign)

	return &engineFixture{
		engine:      NewEngine(p, reg, nil, nil, nil, testLogger()),
		persistence: p,
		notify:      notify,
		assign:      assign,
	}
}

func (f *engineFixture) saveRule(t *testing.T, rule *models.AutomationRule) {
	t.Helper()
	require.NoError(t, f.persistence.Rules().Save(context.Background(), rule))
}

func baseRule() *models.AutomationRule {
	return &models.AutomationRule{
		ID:          "rule-1",
		ProjectID:   "proj-1",
		Name:        "notify on done",
		TriggerType: models.TriggerTypeUserAction,
		TriggerConfig: map[string]any{
			"eventType": "issue_updated",
		},
		Actions: []models.RuleAction{
			{ID: "a1", Type: "send_notification", Order: 1},
		},
		Status:    models.RuleStatusActive,
		CreatedBy: "user-1",
	}
}

func matchingContext() models.ExecutionContext {
	return models.ExecutionContext{
		TriggerEvent: "issue_updated",
		ProjectID:    "proj-1",
	}
}

func TestExecuteRule_InactiveDeclines(t *testing.T) {
	f := newEngineFixture(t)

	rule := baseRule()
	rule.Status = models.RuleStatusInactive
	f.saveRule(t, rule)

	result, err := f.engine.ExecuteRule(context.Background(), "rule-1", matchingContext())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "inactive")
	assert.Empty(t, f.notify.runs)

	// Declines do not count as execution attempts.
	stored, err := f.persistence.Rules().GetByID(context.Background(), "rule-1")
	require.NoError(t, err)
	assert.Zero(t, stored.ExecutionCount)
}

func TestExecuteRule_DistinguishesTriggerAndConditionDeclines(t *testing.T) {
	f := newEngineFixture(t)

	rule := baseRule()
	rule.Conditions = []models.RuleCondition{
		{Field: "triggerData.priority", Operator: "equals", Value: "high"},
	}
	f.saveRule(t, rule)

	// Wrong event: trigger decline.
	result, err := f.engine.ExecuteRule(context.Background(), "rule-1", models.ExecutionContext{
		TriggerEvent: "issue_created",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "trigger not met")

	// Right event, wrong priority: condition decline with distinct text.
	result, err = f.engine.ExecuteRule(context.Background(), "rule-1", models.ExecutionContext{
		TriggerEvent: "issue_updated",
		TriggerData:  map[string]any{"priority": "low"},
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "conditions not met")
	assert.NotContains(t, result.Error, "trigger")
}

func TestExecuteRule_ConditionChainFoldsLeftToRight(t *testing.T) {
	f := newEngineFixture(t)

	// A=false AND B=true OR C=false folds to (false AND true) OR false.
	rule := baseRule()
	rule.Conditions = []models.RuleCondition{
		{Field: "triggerData.a", Operator: "equals", Value: "x", LogicalOperator: models.LogicalAnd},
		{Field: "triggerData.b", Operator: "equals", Value: "y", LogicalOperator: models.LogicalOr},
		{Field: "triggerData.c", Operator: "equals", Value: "z"},
	}
	f.saveRule(t, rule)

	executionCtx := matchingContext()
	executionCtx.TriggerData = map[string]any{"a": "no", "b": "y", "c": "no"}

	result, err := f.engine.ExecuteRule(context.Background(), "rule-1", executionCtx)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "conditions not met")

	// Flip C true: (false AND true) OR true fires.
	executionCtx.TriggerData["c"] = "z"

	result, err = f.engine.ExecuteRule(context.Background(), "rule-1", executionCtx)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestExecuteRule_ActionsRunInOrderBestEffort(t *testing.T) {
	f := newEngineFixture(t)
	f.notify.err = errors.New("smtp down")

	rule := baseRule()
	rule.Actions = []models.RuleAction{
		{ID: "a2", Type: "assign_user", Order: 2, Config: map[string]any{"step": "second"}},
		{ID: "a1", Type: "send_notification", Order: 1, Config: map[string]any{"step": "first"}},
	}
	f.saveRule(t, rule)

	result, err := f.engine.ExecuteRule(context.Background(), "rule-1", matchingContext())
	require.NoError(t, err)

	// The failing first action did not stop the second.
	require.Len(t, result.Result, 2)
	assert.Equal(t, "send_notification", result.Result[0].Type)
	assert.False(t, result.Result[0].Success)
	assert.Contains(t, result.Result[0].Error, "smtp down")
	assert.Equal(t, "assign_user", result.Result[1].Type)
	assert.True(t, result.Result[1].Success)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "smtp down")
	require.Len(t, f.assign.runs, 1)

	stored, err := f.persistence.Rules().GetByID(context.Background(), "rule-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.ExecutionCount)
	assert.Contains(t, stored.LastError, "smtp down")
	assert.NotNil(t, stored.LastExecutedAt)
}

func TestExecuteRule_RollingSuccessRate(t *testing.T) {
	f := newEngineFixture(t)
	f.saveRule(t, baseRule())

	result, err := f.engine.ExecuteRule(context.Background(), "rule-1", matchingContext())
	require.NoError(t, err)
	require.True(t, result.Success)

	stored, err := f.persistence.Rules().GetByID(context.Background(), "rule-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.ExecutionCount)
	assert.InDelta(t, 100.0, stored.SuccessRate, 0.001)

	// Second attempt fails: rate degrades to 50.
	f.notify.err = errors.New("smtp down")

	_, err = f.engine.ExecuteRule(context.Background(), "rule-1", matchingContext())
	require.NoError(t, err)

	stored, err = f.persistence.Rules().GetByID(context.Background(), "rule-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.ExecutionCount)
	assert.InDelta(t, 50.0, stored.SuccessRate, 0.001)
}

func TestExecuteRule_FieldChangeTrigger(t *testing.T) {
	f := newEngineFixture(t)

	rule := baseRule()
	rule.TriggerType = models.TriggerTypeFieldChange
	rule.TriggerConfig = map[string]any{
		"field":    "triggerData.estimate",
		"operator": "greater_than",
		"value":    8,
	}
	f.saveRule(t, rule)

	result, err := f.engine.ExecuteRule(context.Background(), "rule-1", models.ExecutionContext{
		TriggerData: map[string]any{"estimate": 13},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	result, err = f.engine.ExecuteRule(context.Background(), "rule-1", models.ExecutionContext{
		TriggerData: map[string]any{"estimate": 3},
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "trigger not met")
}

func TestRuleCRUD_OwnershipScoped(t *testing.T) {
	f := newEngineFixture(t)

	rule := baseRule()
	rule.ID = ""
	require.NoError(t, f.engine.CreateRule(context.Background(), rule))
	require.NotEmpty(t, rule.ID)

	t.Run("update by non-creator is NotFound", func(t *testing.T) {
		_, err := f.engine.UpdateRule(context.Background(), rule.ID, "intruder", baseRule())
		require.ErrorIs(t, err, persistence.ErrRuleNotFound)
	})

	t.Run("delete by non-creator is NotFound", func(t *testing.T) {
		err := f.engine.DeleteRule(context.Background(), rule.ID, "intruder")
		require.ErrorIs(t, err, persistence.ErrRuleNotFound)
	})

	t.Run("creator toggles", func(t *testing.T) {
		toggled, err := f.engine.ToggleRule(context.Background(), rule.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, models.RuleStatusInactive, toggled.Status)

		toggled, err = f.engine.ToggleRule(context.Background(), rule.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, models.RuleStatusActive, toggled.Status)
	})

	t.Run("creator updates", func(t *testing.T) {
		update := baseRule()
		update.Name = "renamed rule"

		updated, err := f.engine.UpdateRule(context.Background(), rule.ID, "user-1", update)
		require.NoError(t, err)
		assert.Equal(t, "renamed rule", updated.Name)
	})

	t.Run("creator deletes", func(t *testing.T) {
		require.NoError(t, f.engine.DeleteRule(context.Background(), rule.ID, "user-1"))

		_, err := f.engine.GetRule(context.Background(), rule.ID)
		require.ErrorIs(t, err, persistence.ErrRuleNotFound)
	})
}

func TestCreateRule_Validation(t *testing.T) {
	f := newEngineFixture(t)

	t.Run("rejects short names", func(t *testing.T) {
		rule := baseRule()
		rule.Name = "ab"

		require.Error(t, f.engine.CreateRule(context.Background(), rule))
	})

	t.Run("rejects unknown trigger types", func(t *testing.T) {
		rule := baseRule()
		rule.TriggerType = "telepathy"

		require.Error(t, f.engine.CreateRule(context.Background(), rule))
	})
}

func TestTestRule_DryRun(t *testing.T) {
	f := newEngineFixture(t)
	f.saveRule(t, baseRule())

	result, err := f.engine.TestRule(context.Background(), "rule-1", matchingContext())
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.Result, 1)

	// Dry run: nothing executed, nothing recorded.
	assert.Empty(t, f.notify.runs)

	stored, err := f.persistence.Rules().GetByID(context.Background(), "rule-1")
	require.NoError(t, err)
	assert.Zero(t, stored.ExecutionCount)
}
