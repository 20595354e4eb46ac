package postgresql_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/persistence"
	"github.com/tasklane/automation/pkg/persistence/postgresql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

// setupTestDB starts (or reuses) a throwaway postgres container. The suite
// is skipped unless POSTGRES_INTEGRATION is set, so plain test runs do not
// need docker.
func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	if os.Getenv("POSTGRES_INTEGRATION") == "" {
		t.Skip("set POSTGRES_INTEGRATION=1 to run postgres integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("tasklane_test"),
			postgres.WithUsername("tasklane"),
			postgres.WithPassword("tasklane"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, p.Close(ctx))
		cancel()
	})

	return p, ctx
}

func TestWorkflowRepository_RoundTrip(t *testing.T) {
	p, ctx := setupTestDB(t)

	def := &models.WorkflowDefinition{
		ID:        uuid.NewString(),
		ProjectID: uuid.NewString(),
		Name:      "integration workflow",
		Active:    true,
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeStart},
			{ID: "end", Type: models.NodeTypeEnd},
		},
		Connections: []*models.Connection{
			{ID: "c1", Source: "start", Target: "end"},
		},
		Settings:  models.WorkflowSettings{MaxExecutionTime: 10},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	require.NoError(t, p.Workflows().Save(ctx, def))

	loaded, err := p.Workflows().GetByID(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, def.Name, loaded.Name)
	assert.True(t, loaded.Active)
	require.Len(t, loaded.Nodes, 2)
	assert.Equal(t, models.NodeTypeStart, loaded.Nodes[0].Type)
	assert.Equal(t, 10, loaded.Settings.MaxExecutionTime)

	listed, err := p.Workflows().ListByProject(ctx, def.ProjectID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, p.Workflows().Delete(ctx, def.ID))

	_, err = p.Workflows().GetByID(ctx, def.ID)
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestExecutionRepository_CreateUpdateList(t *testing.T) {
	p, ctx := setupTestDB(t)

	workflowID := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)

	first := &models.Execution{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		Status:     models.ExecutionStatusRunning,
		Context:    &models.ExecutionContext{TriggerEvent: "issue_updated", ProjectID: "proj-1"},
		StartedAt:  now.Add(-time.Minute),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, p.Executions().Create(ctx, first))

	second := &models.Execution{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		Status:     models.ExecutionStatusRunning,
		StartedAt:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, p.Executions().Create(ctx, second))

	require.NoError(t, first.Finish(models.ExecutionStatusCompleted, map[string]any{"proposedStatus": "Done"}, ""))
	require.NoError(t, p.Executions().Update(ctx, first))

	loaded, err := p.Executions().GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, loaded.Status)
	assert.NotNil(t, loaded.FinishedAt)
	assert.Equal(t, "Done", loaded.Result["proposedStatus"])
	require.NotNil(t, loaded.Context)
	assert.Equal(t, "issue_updated", loaded.Context.TriggerEvent)

	// Most recent first, limit respected.
	listed, err := p.Executions().ListByWorkflow(ctx, workflowID, 10)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID)

	listed, err = p.Executions().ListByWorkflow(ctx, workflowID, 1)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestRuleRepository_ScheduledFilter(t *testing.T) {
	p, ctx := setupTestDB(t)

	now := time.Now().UTC().Truncate(time.Millisecond)

	scheduled := &models.AutomationRule{
		ID:          uuid.NewString(),
		ProjectID:   uuid.NewString(),
		Name:        "nightly cleanup",
		TriggerType: models.TriggerTypeScheduled,
		Status:      models.RuleStatusActive,
		Conditions: []models.RuleCondition{
			{Field: "triggerData.stale", Operator: "equals", Value: true},
		},
		Actions: []models.RuleAction{
			{ID: "a1", Type: "update_status", Config: map[string]any{"status": "Closed"}, Order: 1},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, p.Rules().Save(ctx, scheduled))

	dormant := &models.AutomationRule{
		ID:          uuid.NewString(),
		ProjectID:   scheduled.ProjectID,
		Name:        "dormant rule",
		TriggerType: models.TriggerTypeScheduled,
		Status:      models.RuleStatusInactive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, p.Rules().Save(ctx, dormant))

	listed, err := p.Rules().ListScheduled(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(listed))
	for _, rule := range listed {
		ids = append(ids, rule.ID)
	}

	assert.Contains(t, ids, scheduled.ID)
	assert.NotContains(t, ids, dormant.ID)

	loaded, err := p.Rules().GetByID(ctx, scheduled.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Conditions, 1)
	assert.Equal(t, "triggerData.stale", loaded.Conditions[0].Field)
	require.Len(t, loaded.Actions, 1)
	assert.Equal(t, "update_status", loaded.Actions[0].Type)
}

func TestTransitionRepository_Catalog(t *testing.T) {
	p, ctx := setupTestDB(t)

	projectID := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)

	todo := &models.Status{
		ID: uuid.NewString(), ProjectID: projectID, CategoryID: "cat-todo",
		Name: "Todo", IsDefault: true, Position: 1, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, p.Transitions().SaveStatus(ctx, todo))

	done := &models.Status{
		ID: uuid.NewString(), ProjectID: projectID, CategoryID: "cat-done",
		Name: "Done", Position: 2, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, p.Transitions().SaveStatus(ctx, done))

	t.Run("duplicate name rejected", func(t *testing.T) {
		duplicate := &models.Status{
			ID: uuid.NewString(), ProjectID: projectID, CategoryID: "cat-done",
			Name: "done", CreatedAt: now, UpdatedAt: now,
		}
		err := p.Transitions().SaveStatus(ctx, duplicate)
		require.ErrorIs(t, err, persistence.ErrDuplicateStatusName)
	})

	t.Run("new default demotes the old one", func(t *testing.T) {
		done.IsDefault = true
		require.NoError(t, p.Transitions().SaveStatus(ctx, done))

		statuses, err := p.Transitions().StatusesByProject(ctx, projectID)
		require.NoError(t, err)

		defaults := 0
		for _, status := range statuses {
			if status.IsDefault {
				defaults++
			}
		}

		assert.Equal(t, 1, defaults)
	})

	t.Run("transition round trip", func(t *testing.T) {
		from := todo.ID
		minEstimate := 2.0

		transition := &models.Transition{
			ID: uuid.NewString(), ProjectID: projectID, Name: "Finish",
			FromStatus: &from, ToStatus: done.ID,
			AllowedRoles: []string{"lead"},
			Conditions:   models.TransitionConditions{MinEstimate: &minEstimate, RequireComment: true},
			IsActive:     true, Position: 1, CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, p.Transitions().SaveTransition(ctx, transition))

		listed, err := p.Transitions().TransitionsByProject(ctx, projectID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		require.NotNil(t, listed[0].FromStatus)
		assert.Equal(t, todo.ID, *listed[0].FromStatus)
		assert.Equal(t, []string{"lead"}, listed[0].AllowedRoles)
		require.NotNil(t, listed[0].Conditions.MinEstimate)
		assert.InDelta(t, 2.0, *listed[0].Conditions.MinEstimate, 0.001)
		assert.True(t, listed[0].Conditions.RequireComment)

		require.NoError(t, p.Transitions().DeleteTransition(ctx, transition.ID))

		err = p.Transitions().DeleteTransition(ctx, transition.ID)
		require.ErrorIs(t, err, persistence.ErrTransitionNotFound)
	})
}
