package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/automation/pkg/automation"
	"github.com/tasklane/automation/pkg/cmd"
	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/persistence/file"
	"github.com/tasklane/automation/pkg/transitions"
	"github.com/tasklane/automation/pkg/web"
	"github.com/tasklane/automation/pkg/workflow"
)

type issueServiceStub struct{}

func (issueServiceStub) UpdateField(_ context.Context, _, _ string, _ any) error { return nil }
func (issueServiceStub) AssignUser(_ context.Context, _, _ string) error         { return nil }
func (issueServiceStub) UpdateStatus(_ context.Context, _, _ string) error       { return nil }
func (issueServiceStub) CreateIssue(_ context.Context, _ string, _ map[string]any) (string, error) {
	return "issue-stub", nil
}

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := file.NewPersistence(t.TempDir())

	reg, err := cmd.NewRegistry(logger, issueServiceStub{}, nil)
	require.NoError(t, err)

	runner := workflow.NewRunner(logger)
	orchestrator := workflow.NewOrchestrator(p, runner, nil, nil, logger)
	engine := automation.NewEngine(p, reg, nil, nil, nil, logger)
	machine := transitions.NewMachine(p, logger)

	handlers := web.NewHandlers(p, orchestrator, engine, machine, logger)

	return web.NewApp(handlers)
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any) *http.Response {
	t.Helper()

	var body io.Reader

	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)

		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	req.Header.Set("X-User-ID", "user-1")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &out))

	return out
}

func linearWorkflow(projectID string) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ProjectID: projectID,
		Name:      "api test workflow",
		Active:    true,
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeStart},
			{ID: "end", Type: models.NodeTypeEnd},
		},
		Connections: []*models.Connection{
			{ID: "c1", Source: "start", Target: "end"},
		},
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWorkflowLifecycle(t *testing.T) {
	app := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/workflows", linearWorkflow("proj-1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeBody[models.WorkflowDefinition](t, resp)
	require.NotEmpty(t, created.ID)

	resp = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	fetched := decodeBody[models.WorkflowDefinition](t, resp)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "api test workflow", fetched.Name)

	resp = doJSON(t, app, http.MethodGet, "/workflows/?project_id=proj-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSaveWorkflow_RejectsInvalidGraph(t *testing.T) {
	app := setupTestApp(t)

	def := linearWorkflow("proj-1")
	def.Nodes = def.Nodes[1:] // drop the start node

	resp := doJSON(t, app, http.MethodPost, "/workflows", def)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestValidateWorkflowEndpoint(t *testing.T) {
	app := setupTestApp(t)

	def := linearWorkflow("proj-1")
	def.Connections = nil

	resp := doJSON(t, app, http.MethodPost, "/workflows/validate", def)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody[map[string]any](t, resp)
	assert.Equal(t, false, result["isValid"])
}

func TestExecuteWorkflowEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/workflows", linearWorkflow("proj-1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeBody[models.WorkflowDefinition](t, resp)

	resp = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute",
		web.ExecuteRequest{Context: models.ExecutionContext{TriggerEvent: "manual", ProjectID: "proj-1"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	execution := decodeBody[models.Execution](t, resp)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)

	resp = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listed := decodeBody[map[string][]models.Execution](t, resp)
	assert.Len(t, listed["executions"], 1)

	resp = doJSON(t, app, http.MethodGet, "/executions/"+execution.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExecuteWorkflow_UnknownID(t *testing.T) {
	app := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/workflows/ghost/execute",
		web.ExecuteRequest{Context: models.ExecutionContext{ProjectID: "proj-1"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSimulateWorkflowEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/workflows/simulate", web.SimulateRequest{
		Workflow: linearWorkflow("proj-1"),
		Context:  models.ExecutionContext{TriggerEvent: "manual", ProjectID: "proj-1"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody[web.SimulateResponse](t, resp)
	assert.True(t, result.Success)
}

func TestRuleEndpoints(t *testing.T) {
	app := setupTestApp(t)

	rule := models.AutomationRule{
		ProjectID:   "proj-1",
		Name:        "auto assign",
		TriggerType: models.TriggerTypeUserAction,
		TriggerConfig: map[string]any{
			"eventType": "issue_created",
		},
		Actions: []models.RuleAction{
			{ID: "a1", Type: "assign_user", Config: map[string]any{"assignee": "user-2"}, Order: 1},
		},
	}

	resp := doJSON(t, app, http.MethodPost, "/rules", rule)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeBody[models.AutomationRule](t, resp)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "user-1", created.CreatedBy)

	t.Run("execute with unmet trigger declines", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/rules/"+created.ID+"/execute",
			web.ExecuteRequest{Context: models.ExecutionContext{
				TriggerEvent: "issue_deleted", ProjectID: "proj-1",
			}})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := decodeBody[models.RuleResult](t, resp)
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "trigger not met")
	})

	t.Run("execute with matching trigger fires", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/rules/"+created.ID+"/execute",
			web.ExecuteRequest{Context: models.ExecutionContext{
				TriggerEvent: "issue_created", ProjectID: "proj-1", IssueID: "issue-7",
			}})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := decodeBody[models.RuleResult](t, resp)
		assert.True(t, result.Success)
	})

	t.Run("toggle and delete", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/rules/"+created.ID+"/toggle", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		toggled := decodeBody[models.AutomationRule](t, resp)
		assert.Equal(t, models.RuleStatusInactive, toggled.Status)

		resp = doJSON(t, app, http.MethodDelete, "/rules/"+created.ID, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
}

func TestCreateRule_UnknownTrigger(t *testing.T) {
	app := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/rules", models.AutomationRule{
		ProjectID:   "proj-1",
		Name:        "broken rule",
		TriggerType: models.TriggerType("telepathy"),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTransitionEndpoints(t *testing.T) {
	app := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/categories/seed", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/categories", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	categories := decodeBody[map[string][]models.Category](t, resp)
	require.NotEmpty(t, categories["categories"])

	categoryID := categories["categories"][0].ID

	resp = doJSON(t, app, http.MethodPut, "/projects/proj-1/statuses",
		models.Status{CategoryID: categoryID, Name: "Todo", IsDefault: true, Position: 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPut, "/projects/proj-1/statuses",
		models.Status{CategoryID: categoryID, Name: "Done", Position: 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	t.Run("check allowed in open mode", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/projects/proj-1/transitions/check",
			web.CheckTransitionRequest{FromStatus: "Todo", ToStatus: "Done", Role: "member"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		decision := decodeBody[models.TransitionDecision](t, resp)
		assert.True(t, decision.Allowed)
	})

	t.Run("check unknown target denied", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/projects/proj-1/transitions/check",
			web.CheckTransitionRequest{FromStatus: "Todo", ToStatus: "Nowhere"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		decision := decodeBody[models.TransitionDecision](t, resp)
		assert.False(t, decision.Allowed)
	})

	t.Run("available transitions in open mode", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet,
			"/projects/proj-1/transitions/available?from=Todo&role=member", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		targets := decodeBody[map[string][]models.TransitionTarget](t, resp)
		require.Len(t, targets["transitions"], 1)
		assert.Equal(t, "Done", targets["transitions"][0].StatusName)
	})

	t.Run("duplicate status conflicts", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, "/projects/proj-1/statuses",
			models.Status{CategoryID: categoryID, Name: "todo"})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}
