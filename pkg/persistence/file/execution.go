package file

import (
	"context"
	"os"
	"sort"

	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/persistence"
)

const executionsCollection = "executions"

// ExecutionRepository stores execution rows as JSON documents.
type ExecutionRepository struct {
	store *store
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	var execution models.Execution

	err := r.store.read(executionsCollection, id, &execution)
	if os.IsNotExist(err) {
		return nil, &persistence.StoreError{Op: "GetByID", ID: id, Err: persistence.ErrExecutionNotFound}
	}

	if err != nil {
		return nil, err
	}

	return &execution, nil
}

func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	ids, err := r.store.ids(executionsCollection)
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0)

	for _, id := range ids {
		execution, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	// Most recent first.
	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	if limit > 0 && len(executions) > limit {
		executions = executions[:limit]
	}

	return executions, nil
}

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	return r.store.write(executionsCollection, execution.ID, execution)
}

func (r *ExecutionRepository) Update(ctx context.Context, execution *models.Execution) error {
	if _, err := r.GetByID(ctx, execution.ID); err != nil {
		return err
	}

	return r.store.write(executionsCollection, execution.ID, execution)
}
