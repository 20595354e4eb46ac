package file

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/persistence"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	p := NewPersistence(t.TempDir())
	require.NoError(t, p.HealthCheck(context.Background()))

	return p
}

func TestWorkflowRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	def := &models.WorkflowDefinition{
		ID:        "wf-1",
		ProjectID: "proj-1",
		Name:      "Escalate overdue issues",
		Active:    true,
		Nodes: []*models.Node{
			{ID: "n1", Type: models.NodeTypeStart},
			{ID: "n2", Type: models.NodeTypeEnd},
		},
		Connections: []*models.Connection{{ID: "c1", Source: "n1", Target: "n2"}},
		CreatedAt:   time.Now().UTC(),
	}

	require.NoError(t, p.Workflows().Save(ctx, def))

	loaded, err := p.Workflows().GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Escalate overdue issues", loaded.Name)
	assert.Len(t, loaded.Nodes, 2)

	list, err := p.Workflows().ListByProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, p.Workflows().Delete(ctx, "wf-1"))

	_, err = p.Workflows().GetByID(ctx, "wf-1")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestExecutionRepository_ListByWorkflowOrdersAndLimits(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	base := time.Now().UTC()
	for i, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, p.Executions().Create(ctx, &models.Execution{
			ID:         id,
			WorkflowID: "wf-1",
			Status:     models.ExecutionStatusCompleted,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	executions, err := p.Executions().ListByWorkflow(ctx, "wf-1", 2)
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, "e3", executions[0].ID)
	assert.Equal(t, "e2", executions[1].ID)
}

func TestExecutionRepository_UpdateMissing(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	err := p.Executions().Update(ctx, &models.Execution{ID: "nope"})
	assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)
}

func TestRuleRepository_ListScheduled(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	rules := []*models.AutomationRule{
		{ID: "r1", ProjectID: "p1", TriggerType: models.TriggerTypeScheduled, Status: models.RuleStatusActive},
		{ID: "r2", ProjectID: "p1", TriggerType: models.TriggerTypeScheduled, Status: models.RuleStatusInactive},
		{ID: "r3", ProjectID: "p2", TriggerType: models.TriggerTypeFieldChange, Status: models.RuleStatusActive},
	}
	for _, rule := range rules {
		require.NoError(t, p.Rules().Save(ctx, rule))
	}

	scheduled, err := p.Rules().ListScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, "r1", scheduled[0].ID)
}

func TestTransitionRepository_SeedCategoriesOnce(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	categories := []*models.Category{
		{ID: "cat-1", Key: "todo", Position: 1},
		{ID: "cat-2", Key: "done", Position: 2},
	}

	require.NoError(t, p.Transitions().SeedCategories(ctx, categories))

	err := p.Transitions().SeedCategories(ctx, categories)
	assert.True(t, errors.Is(err, persistence.ErrCategoriesSeeded))

	loaded, err := p.Transitions().Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, "todo", loaded[0].Key)
}

func TestTransitionRepository_StatusInvariants(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	first := &models.Status{ID: "s1", ProjectID: "p1", CategoryID: "cat-1", Name: "To Do", IsDefault: true}
	require.NoError(t, p.Transitions().SaveStatus(ctx, first))

	dup := &models.Status{ID: "s2", ProjectID: "p1", CategoryID: "cat-1", Name: "to do"}
	err := p.Transitions().SaveStatus(ctx, dup)
	assert.ErrorIs(t, err, persistence.ErrDuplicateStatusName)

	second := &models.Status{ID: "s3", ProjectID: "p1", CategoryID: "cat-2", Name: "Done", IsDefault: true}
	require.NoError(t, p.Transitions().SaveStatus(ctx, second))

	statuses, err := p.Transitions().StatusesByProject(ctx, "p1")
	require.NoError(t, err)

	defaults := 0

	for _, status := range statuses {
		if status.IsDefault {
			defaults++
		}
	}

	assert.Equal(t, 1, defaults)
}
