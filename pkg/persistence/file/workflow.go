package file

import (
	"context"
	"os"
	"sort"

	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/persistence"
)

const workflowsCollection = "workflows"

// WorkflowRepository stores workflow definitions as JSON documents.
type WorkflowRepository struct {
	store *store
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	var def models.WorkflowDefinition

	err := r.store.read(workflowsCollection, id, &def)
	if os.IsNotExist(err) {
		return nil, &persistence.StoreError{Op: "GetByID", ID: id, Err: persistence.ErrWorkflowNotFound}
	}

	if err != nil {
		return nil, err
	}

	return &def, nil
}

func (r *WorkflowRepository) ListByProject(ctx context.Context, projectID string) ([]*models.WorkflowDefinition, error) {
	ids, err := r.store.ids(workflowsCollection)
	if err != nil {
		return nil, err
	}

	defs := make([]*models.WorkflowDefinition, 0, len(ids))

	for _, id := range ids {
		def, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if projectID == "" || def.ProjectID == projectID {
			defs = append(defs, def)
		}
	}

	sort.Slice(defs, func(i, j int) bool {
		return defs[i].CreatedAt.Before(defs[j].CreatedAt)
	})

	return defs, nil
}

func (r *WorkflowRepository) Save(ctx context.Context, def *models.WorkflowDefinition) error {
	return r.store.write(workflowsCollection, def.ID, def)
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	err := r.store.remove(workflowsCollection, id)
	if os.IsNotExist(err) {
		return &persistence.StoreError{Op: "Delete", ID: id, Err: persistence.ErrWorkflowNotFound}
	}

	return err
}
