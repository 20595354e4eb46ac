package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/persistence"
)

// ExecutionRepository stores execution rows.
type ExecutionRepository struct {
	db *sql.DB
}

const executionColumns = `id, workflow_id, trigger_event, context, status, log, result, error,
	retry_count, max_retries, started_at, finished_at, duration_ms, created_at, updated_at`

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+executionColumns+" FROM executions WHERE id = $1", id)

	execution, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &persistence.StoreError{Op: "GetByID", ID: id, Err: persistence.ErrExecutionNotFound}
	}

	return execution, err
}

// ListByWorkflow returns the most recent executions first, capped at limit.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+executionColumns+" FROM executions WHERE workflow_id = $1 ORDER BY started_at DESC LIMIT $2",
		workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate executions: %w", err)
	}

	return executions, nil
}

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	contextJSON, logJSON, resultJSON, err := executionJSONB(execution)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO executions (`+executionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		execution.ID, execution.WorkflowID, execution.TriggerEvent, contextJSON,
		execution.Status, logJSON, resultJSON, execution.Error,
		execution.RetryCount, execution.MaxRetries,
		execution.StartedAt, execution.FinishedAt, execution.DurationMS,
		execution.CreatedAt, execution.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create execution %s: %w", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) Update(ctx context.Context, execution *models.Execution) error {
	contextJSON, logJSON, resultJSON, err := executionJSONB(execution)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE executions SET
			trigger_event = $2, context = $3, status = $4, log = $5, result = $6,
			error = $7, retry_count = $8, max_retries = $9, started_at = $10,
			finished_at = $11, duration_ms = $12, updated_at = $13
		WHERE id = $1`,
		execution.ID, execution.TriggerEvent, contextJSON, execution.Status,
		logJSON, resultJSON, execution.Error,
		execution.RetryCount, execution.MaxRetries,
		execution.StartedAt, execution.FinishedAt, execution.DurationMS, execution.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update execution %s: %w", execution.ID, err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return &persistence.StoreError{Op: "Update", ID: execution.ID, Err: persistence.ErrExecutionNotFound}
	}

	return nil
}

func executionJSONB(execution *models.Execution) (contextJSON, logJSON, resultJSON any, err error) {
	contextJSON, err = marshalJSONB(execution.Context)
	if err != nil {
		return nil, nil, nil, err
	}

	logJSON, err = marshalJSONB(execution.Log)
	if err != nil {
		return nil, nil, nil, err
	}

	resultJSON, err = marshalJSONB(execution.Result)
	if err != nil {
		return nil, nil, nil, err
	}

	return contextJSON, logJSON, resultJSON, nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution   models.Execution
		contextJSON []byte
		logJSON     []byte
		resultJSON  []byte
	)

	err := row.Scan(&execution.ID, &execution.WorkflowID, &execution.TriggerEvent, &contextJSON,
		&execution.Status, &logJSON, &resultJSON, &execution.Error,
		&execution.RetryCount, &execution.MaxRetries,
		&execution.StartedAt, &execution.FinishedAt, &execution.DurationMS,
		&execution.CreatedAt, &execution.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	if err := unmarshalJSONB(contextJSON, &execution.Context); err != nil {
		return nil, err
	}

	if err := unmarshalJSONB(logJSON, &execution.Log); err != nil {
		return nil, err
	}

	if err := unmarshalJSONB(resultJSON, &execution.Result); err != nil {
		return nil, err
	}

	return &execution, nil
}
