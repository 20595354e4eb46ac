// Package web exposes the automation engine over REST. Responses follow
// RFC 7807 for errors and plain JSON bodies otherwise.
package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/tasklane/automation/pkg/automation"
	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/persistence"
	"github.com/tasklane/automation/pkg/transitions"
	"github.com/tasklane/automation/pkg/workflow"
)

const defaultExecutionListLimit = 50

// Handlers carries every collaborator the REST surface dispatches to.
type Handlers struct {
	persistence  persistence.Persistence
	orchestrator *workflow.Orchestrator
	engine       *automation.Engine
	machine      *transitions.Machine
	validate     *validator.Validate
	logger       *slog.Logger
}

func NewHandlers(
	p persistence.Persistence,
	orchestrator *workflow.Orchestrator,
	engine *automation.Engine,
	machine *transitions.Machine,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		persistence:  p,
		orchestrator: orchestrator,
		engine:       engine,
		machine:      machine,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		logger:       logger.With("module", "web"),
	}
}

func (h *Handlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}

// --- workflows ---

func (h *Handlers) ListWorkflows(c fiber.Ctx) error {
	projectID := c.Query("project_id")
	if projectID == "" {
		return badRequest(c, "project_id query parameter is required")
	}

	defs, err := h.persistence.Workflows().ListByProject(c.Context(), projectID)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": defs})
}

// SaveWorkflow upserts a definition. Structurally invalid graphs are
// rejected before they reach storage.
func (h *Handlers) SaveWorkflow(c fiber.Ctx) error {
	var def models.WorkflowDefinition
	if err := c.Bind().JSON(&def); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if def.ID == "" {
		def.ID = uuid.NewString()
		def.CreatedAt = time.Now().UTC()
	}

	def.UpdatedAt = time.Now().UTC()

	result := h.orchestrator.ValidateWorkflow(&def)
	if !result.IsValid {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(result)
	}

	if err := h.persistence.Workflows().Save(c.Context(), &def); err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(def)
}

func (h *Handlers) GetWorkflow(c fiber.Ctx) error {
	def, err := h.persistence.Workflows().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(def)
}

func (h *Handlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.persistence.Workflows().Delete(c.Context(), c.Params("id")); err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) ValidateWorkflow(c fiber.Ctx) error {
	var def models.WorkflowDefinition
	if err := c.Bind().JSON(&def); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	return c.JSON(h.orchestrator.ValidateWorkflow(&def))
}

func (h *Handlers) SimulateWorkflow(c fiber.Ctx) error {
	var req SimulateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if req.Workflow == nil {
		return badRequest(c, "workflow definition is required")
	}

	outcome, err := h.orchestrator.SimulateWorkflow(req.Workflow, req.Context)
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp := SimulateResponse{
		Success: outcome.Success,
		Result:  outcome.Result,
		Logs:    outcome.Logs,
	}
	if outcome.Err != nil {
		resp.Error = outcome.Err.Error()
	}

	return c.JSON(resp)
}

// ExecuteWorkflow triggers a run. The execution row is returned even when
// the run itself failed or timed out; the row carries the terminal state.
func (h *Handlers) ExecuteWorkflow(c fiber.Ctx) error {
	var req ExecuteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	execution, err := h.orchestrator.ExecuteWorkflow(c.Context(), c.Params("id"), req.Context)
	if execution != nil {
		return c.Status(fiber.StatusCreated).JSON(execution)
	}

	return handleEngineError(c, err)
}

func (h *Handlers) ListExecutions(c fiber.Ctx) error {
	limit := defaultExecutionListLimit

	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return badRequest(c, "limit must be a positive integer")
		}

		limit = parsed
	}

	executions, err := h.persistence.Executions().ListByWorkflow(c.Context(), c.Params("id"), limit)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

func (h *Handlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.persistence.Executions().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(execution)
}

func (h *Handlers) CancelExecution(c fiber.Ctx) error {
	execution, err := h.orchestrator.CancelExecution(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, err.Error())
		}

		return conflict(c, err.Error())
	}

	return c.JSON(execution)
}

func (h *Handlers) RetryExecution(c fiber.Ctx) error {
	execution, err := h.orchestrator.RetryExecution(c.Context(), c.Params("id"))
	if execution != nil {
		return c.Status(fiber.StatusCreated).JSON(execution)
	}

	return handleEngineError(c, err)
}

// --- automation rules ---

func (h *Handlers) ListRules(c fiber.Ctx) error {
	projectID := c.Query("project_id")
	if projectID == "" {
		return badRequest(c, "project_id query parameter is required")
	}

	rules, err := h.engine.ListRules(c.Context(), projectID)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(fiber.Map{"rules": rules})
}

func (h *Handlers) CreateRule(c fiber.Ctx) error {
	var rule models.AutomationRule
	if err := c.Bind().JSON(&rule); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if rule.CreatedBy == "" {
		rule.CreatedBy = requestUserID(c)
	}

	if err := h.engine.CreateRule(c.Context(), &rule); err != nil {
		return badRequest(c, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(rule)
}

func (h *Handlers) GetRule(c fiber.Ctx) error {
	rule, err := h.engine.GetRule(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(rule)
}

func (h *Handlers) UpdateRule(c fiber.Ctx) error {
	var update models.AutomationRule
	if err := c.Bind().JSON(&update); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	rule, err := h.engine.UpdateRule(c.Context(), c.Params("id"), requestUserID(c), &update)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(rule)
}

func (h *Handlers) ToggleRule(c fiber.Ctx) error {
	rule, err := h.engine.ToggleRule(c.Context(), c.Params("id"), requestUserID(c))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(rule)
}

func (h *Handlers) DeleteRule(c fiber.Ctx) error {
	if err := h.engine.DeleteRule(c.Context(), c.Params("id"), requestUserID(c)); err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteRule fires one rule. Declines come back as Success=false with a
// reason, not as HTTP errors.
func (h *Handlers) ExecuteRule(c fiber.Ctx) error {
	var req ExecuteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	result, err := h.engine.ExecuteRule(c.Context(), c.Params("id"), req.Context)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(result)
}

func (h *Handlers) TestRule(c fiber.Ctx) error {
	var req ExecuteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	result, err := h.engine.TestRule(c.Context(), c.Params("id"), req.Context)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(result)
}

// --- status catalog and transitions ---

func (h *Handlers) ListCategories(c fiber.Ctx) error {
	categories, err := h.persistence.Transitions().Categories(c.Context())
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(fiber.Map{"categories": categories})
}

func (h *Handlers) SeedCategories(c fiber.Ctx) error {
	if err := transitions.Seed(c.Context(), h.persistence); err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) ListStatuses(c fiber.Ctx) error {
	statuses, err := h.persistence.Transitions().StatusesByProject(c.Context(), c.Params("projectId"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(fiber.Map{"statuses": statuses})
}

func (h *Handlers) SaveStatus(c fiber.Ctx) error {
	var status models.Status
	if err := c.Bind().JSON(&status); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	status.ProjectID = c.Params("projectId")

	if status.ID == "" {
		status.ID = uuid.NewString()
		status.CreatedAt = time.Now().UTC()
	}

	status.UpdatedAt = time.Now().UTC()

	if err := h.validate.Struct(status); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.Transitions().SaveStatus(c.Context(), &status); err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(status)
}

func (h *Handlers) ListTransitions(c fiber.Ctx) error {
	rules, err := h.persistence.Transitions().TransitionsByProject(c.Context(), c.Params("projectId"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(fiber.Map{"transitions": rules})
}

func (h *Handlers) SaveTransition(c fiber.Ctx) error {
	var transition models.Transition
	if err := c.Bind().JSON(&transition); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	transition.ProjectID = c.Params("projectId")

	if transition.ID == "" {
		transition.ID = uuid.NewString()
		transition.CreatedAt = time.Now().UTC()
	}

	transition.UpdatedAt = time.Now().UTC()

	if err := h.validate.Struct(transition); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.Transitions().SaveTransition(c.Context(), &transition); err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(transition)
}

func (h *Handlers) DeleteTransition(c fiber.Ctx) error {
	if err := h.persistence.Transitions().DeleteTransition(c.Context(), c.Params("id")); err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) CheckTransition(c fiber.Ctx) error {
	var req CheckTransitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	decision, err := h.machine.IsTransitionAllowed(c.Context(),
		c.Params("projectId"), req.FromStatus, req.ToStatus, req.Role, req.subject())
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(decision)
}

func (h *Handlers) AvailableTransitions(c fiber.Ctx) error {
	from := c.Query("from")
	if from == "" {
		return badRequest(c, "from query parameter is required")
	}

	targets, err := h.machine.AvailableTransitions(c.Context(),
		c.Params("projectId"), from, c.Query("role"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(fiber.Map{"transitions": targets})
}

// requestUserID identifies the caller for ownership checks. Authentication
// is terminated upstream; the gateway forwards the subject in a header.
func requestUserID(c fiber.Ctx) string {
	return c.Get("X-User-ID")
}
