package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tasklane/automation/pkg/eventbus"
	"github.com/tasklane/automation/pkg/events"
	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/otelhelper"
	"github.com/tasklane/automation/pkg/persistence"
	"github.com/tasklane/automation/pkg/validation"
)

// ErrRetryLimitReached is returned by RetryExecution once an execution has
// used all of its retries.
var ErrRetryLimitReached = errors.New("retry limit reached")

// statsWindow bounds how many recent executions feed the rolling workflow
// aggregate. The engine keeps no full ledger beyond this window.
const statsWindow = 100

// GraphRunner runs one definition+context pair and reports the outcome on
// the returned channel. *Runner is the production implementation.
type GraphRunner interface {
	Run(def *models.WorkflowDefinition, executionCtx models.ExecutionContext) <-chan Outcome
}

// Orchestrator owns the execution lifecycle around the Runner: row creation,
// the timeout race, retry, cancellation and stats upkeep.
type Orchestrator struct {
	persistence persistence.Persistence
	runner      GraphRunner
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	logger      *slog.Logger
}

func NewOrchestrator(
	p persistence.Persistence,
	runner GraphRunner,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Orchestrator {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("workflow")
	}

	return &Orchestrator{
		persistence: p,
		runner:      runner,
		eventBus:    eventBus,
		tracer:      tracer,
		logger:      logger.With("module", "workflow_orchestrator"),
	}
}

// ExecuteWorkflow loads the active definition, creates a running execution
// row, and races the runner goroutine against the definition's timeout. The
// terminal row is always persisted; executor failures and timeouts are also
// returned to the caller.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, workflowID string, executionCtx models.ExecutionContext) (*models.Execution, error) {
	return o.execute(ctx, workflowID, executionCtx, 0, 0)
}

func (o *Orchestrator) execute(ctx context.Context, workflowID string, executionCtx models.ExecutionContext, retryCount, maxRetries int) (*models.Execution, error) {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.ProjectIDKey, executionCtx.ProjectID),
	)
	defer span.End()

	def, err := o.loadActive(ctx, workflowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if maxRetries == 0 && def.Settings.RetryOnFailure {
		maxRetries = def.Settings.MaxRetries
	}

	execution := &models.Execution{
		ID:           uuid.NewString(),
		WorkflowID:   workflowID,
		TriggerEvent: executionCtx.TriggerEvent,
		Context:      &executionCtx,
		Status:       models.ExecutionStatusRunning,
		RetryCount:   retryCount,
		MaxRetries:   maxRetries,
		StartedAt:    time.Now().UTC(),
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	span.SetAttributes(attribute.String(otelhelper.ExecutionIDKey, execution.ID))

	if err := o.persistence.Executions().Create(ctx, execution); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to create execution row: %w", err)
	}

	o.publish(ctx, events.ExecutionStarted{
		BaseEvent: o.baseEvent(events.ExecutionStartedEvent, executionCtx.ProjectID),

		WorkflowID:   workflowID,
		ExecutionID:  execution.ID,
		TriggerEvent: executionCtx.TriggerEvent,
	})

	timeout := def.Settings.Timeout()

	logger := o.logger.With("workflow_id", workflowID, "execution_id", execution.ID)
	logger.Info("starting workflow execution", "timeout", timeout)

	var runErr error

	select {
	case outcome := <-o.runner.Run(def, executionCtx):
		execution.Log = outcome.Logs

		if outcome.Err != nil {
			runErr = outcome.Err

			if err := execution.Finish(models.ExecutionStatusFailed, outcome.Result, outcome.Err.Error()); err != nil {
				logger.Error("failed to finish execution", "error", err)
			}
		} else {
			if err := execution.Finish(models.ExecutionStatusCompleted, outcome.Result, ""); err != nil {
				logger.Error("failed to finish execution", "error", err)
			}
		}
	case <-time.After(timeout):
		// The goroutine is abandoned, not signalled. Whatever it already
		// did stands; nothing further it does is observed.
		runErr = fmt.Errorf("workflow execution exceeded timeout of %s", timeout)

		if err := execution.Finish(models.ExecutionStatusTimeout, nil, runErr.Error()); err != nil {
			logger.Error("failed to finish execution", "error", err)
		}
	}

	if err := o.persistence.Executions().Update(ctx, execution); err != nil {
		logger.Error("failed to persist execution outcome", "error", err)
	}

	o.recomputeStats(ctx, def)

	o.publish(ctx, events.ExecutionFinished{
		BaseEvent: o.baseEvent(finishedEventType(execution.Status), executionCtx.ProjectID),

		WorkflowID:  workflowID,
		ExecutionID: execution.ID,
		Status:      string(execution.Status),
		DurationMS:  execution.DurationMS,
		Error:       execution.Error,
	})

	if runErr != nil {
		otelhelper.SetError(span, runErr)
		logger.Warn("workflow execution did not complete", "status", execution.Status, "error", runErr)

		return execution, runErr
	}

	logger.Info("workflow execution completed", "duration_ms", execution.DurationMS)

	return execution, nil
}

// CancelExecution marks the row cancelled. It does not signal a worker that
// is already running the workflow.
func (o *Orchestrator) CancelExecution(ctx context.Context, executionID string) (*models.Execution, error) {
	execution, err := o.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if err := execution.Finish(models.ExecutionStatusCancelled, execution.Result, execution.Error); err != nil {
		return nil, err
	}

	if err := o.persistence.Executions().Update(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to persist cancellation: %w", err)
	}

	o.publish(ctx, events.ExecutionFinished{
		BaseEvent: o.baseEvent(events.ExecutionCancelledEvent, projectID(execution)),

		WorkflowID:  execution.WorkflowID,
		ExecutionID: execution.ID,
		Status:      string(execution.Status),
		DurationMS:  execution.DurationMS,
	})

	return execution, nil
}

// RetryExecution re-runs a finished execution's workflow with its original
// context. The retry produces a new execution row carrying an incremented
// retry count; the original row is left untouched.
func (o *Orchestrator) RetryExecution(ctx context.Context, executionID string) (*models.Execution, error) {
	execution, err := o.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.RetryCount >= execution.MaxRetries {
		return nil, fmt.Errorf("execution %s: %w (%d of %d)",
			executionID, ErrRetryLimitReached, execution.RetryCount, execution.MaxRetries)
	}

	var executionCtx models.ExecutionContext
	if execution.Context != nil {
		executionCtx = *execution.Context
	}

	return o.execute(ctx, execution.WorkflowID, executionCtx, execution.RetryCount+1, execution.MaxRetries)
}

// ValidateWorkflow checks a definition structurally without executing it.
func (o *Orchestrator) ValidateWorkflow(def *models.WorkflowDefinition) *validation.Result {
	return validation.Validate(def)
}

// SimulateWorkflow dry-runs a definition against a context. Nothing is
// persisted and no events are published; invalid definitions are rejected
// before the run.
func (o *Orchestrator) SimulateWorkflow(def *models.WorkflowDefinition, executionCtx models.ExecutionContext) (*Outcome, error) {
	if result := validation.Validate(def); !result.IsValid {
		return nil, fmt.Errorf("definition is invalid: %v", result.Errors)
	}

	select {
	case outcome := <-o.runner.Run(def, executionCtx):
		return &outcome, nil
	case <-time.After(def.Settings.Timeout()):
		return nil, fmt.Errorf("simulation exceeded timeout of %s", def.Settings.Timeout())
	}
}

func (o *Orchestrator) loadActive(ctx context.Context, workflowID string) (*models.WorkflowDefinition, error) {
	def, err := o.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if !def.Active {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, persistence.ErrWorkflowNotFound)
	}

	return def, nil
}

// recomputeStats rebuilds the workflow aggregate from the recent execution
// rows. Failures here never fail the execution itself.
func (o *Orchestrator) recomputeStats(ctx context.Context, def *models.WorkflowDefinition) {
	executions, err := o.persistence.Executions().ListByWorkflow(ctx, def.ID, statsWindow)
	if err != nil {
		o.logger.Warn("failed to list executions for stats", "workflow_id", def.ID, "error", err)

		return
	}

	stats := &models.WorkflowStats{}

	var (
		completed     int64
		terminal      int64
		totalDuration int64
	)

	for _, e := range executions {
		stats.ExecutionCount++

		if !e.Status.IsTerminal() {
			continue
		}

		terminal++
		totalDuration += e.DurationMS

		if e.Status == models.ExecutionStatusCompleted {
			completed++
		}

		if stats.LastExecutedAt == nil || e.StartedAt.After(*stats.LastExecutedAt) {
			started := e.StartedAt
			stats.LastExecutedAt = &started
		}
	}

	if terminal > 0 {
		stats.SuccessRate = float64(completed) / float64(terminal) * 100
		stats.AvgDurationMS = totalDuration / terminal
	}

	def.Stats = stats
	def.UpdatedAt = time.Now().UTC()

	if err := o.persistence.Workflows().Save(ctx, def); err != nil {
		o.logger.Warn("failed to persist workflow stats", "workflow_id", def.ID, "error", err)
	}
}

func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if o.eventBus == nil {
		return
	}

	if err := o.eventBus.Publish(ctx, event); err != nil {
		o.logger.Warn("failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func (o *Orchestrator) baseEvent(eventType events.EventType, projectID string) events.BaseEvent {
	id := uuid.NewString()
	if o.eventBus != nil {
		id = o.eventBus.GenerateID()
	}

	return events.BaseEvent{
		ID:        id,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		ProjectID: projectID,
	}
}

func finishedEventType(status models.ExecutionStatus) events.EventType {
	switch status {
	case models.ExecutionStatusCompleted:
		return events.ExecutionCompletedEvent
	case models.ExecutionStatusTimeout:
		return events.ExecutionTimeoutEvent
	case models.ExecutionStatusCancelled:
		return events.ExecutionCancelledEvent
	default:
		return events.ExecutionFailedEvent
	}
}

func projectID(execution *models.Execution) string {
	if execution.Context == nil {
		return ""
	}

	return execution.Context.ProjectID
}
