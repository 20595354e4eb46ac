package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/persistence"
)

// WorkflowRepository stores workflow definitions with the graph columns as
// JSONB documents.
type WorkflowRepository struct {
	db *sql.DB
}

const workflowColumns = `id, project_id, name, description, active, nodes, connections,
	variables, settings, stats, created_by, created_at, updated_at`

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+workflowColumns+" FROM workflows WHERE id = $1", id)

	def, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &persistence.StoreError{Op: "GetByID", ID: id, Err: persistence.ErrWorkflowNotFound}
	}

	return def, err
}

func (r *WorkflowRepository) ListByProject(ctx context.Context, projectID string) ([]*models.WorkflowDefinition, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+workflowColumns+" FROM workflows WHERE project_id = $1 ORDER BY created_at", projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	defs := make([]*models.WorkflowDefinition, 0)

	for rows.Next() {
		def, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}

		defs = append(defs, def)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workflows: %w", err)
	}

	return defs, nil
}

func (r *WorkflowRepository) Save(ctx context.Context, def *models.WorkflowDefinition) error {
	nodes, err := marshalJSONB(def.Nodes)
	if err != nil {
		return err
	}

	connections, err := marshalJSONB(def.Connections)
	if err != nil {
		return err
	}

	variables, err := marshalJSONB(def.Variables)
	if err != nil {
		return err
	}

	settings, err := marshalJSONB(def.Settings)
	if err != nil {
		return err
	}

	stats, err := marshalJSONB(def.Stats)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflows (`+workflowColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			project_id = EXCLUDED.project_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			active = EXCLUDED.active,
			nodes = EXCLUDED.nodes,
			connections = EXCLUDED.connections,
			variables = EXCLUDED.variables,
			settings = EXCLUDED.settings,
			stats = EXCLUDED.stats,
			created_by = EXCLUDED.created_by,
			updated_at = EXCLUDED.updated_at`,
		def.ID, def.ProjectID, def.Name, def.Description, def.Active,
		nodes, connections, variables, settings, stats,
		def.CreatedBy, def.CreatedAt, def.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", def.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return &persistence.StoreError{Op: "Delete", ID: id, Err: persistence.ErrWorkflowNotFound}
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.WorkflowDefinition, error) {
	var (
		def         models.WorkflowDefinition
		nodes       []byte
		connections []byte
		variables   []byte
		settings    []byte
		stats       []byte
	)

	err := row.Scan(&def.ID, &def.ProjectID, &def.Name, &def.Description, &def.Active,
		&nodes, &connections, &variables, &settings, &stats,
		&def.CreatedBy, &def.CreatedAt, &def.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	if err := unmarshalJSONB(nodes, &def.Nodes); err != nil {
		return nil, err
	}

	if err := unmarshalJSONB(connections, &def.Connections); err != nil {
		return nil, err
	}

	if err := unmarshalJSONB(variables, &def.Variables); err != nil {
		return nil, err
	}

	if err := unmarshalJSONB(settings, &def.Settings); err != nil {
		return nil, err
	}

	if err := unmarshalJSONB(stats, &def.Stats); err != nil {
		return nil, err
	}

	return &def, nil
}
