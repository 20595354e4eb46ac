package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/persistence"
)

// TransitionRepository stores the category/status/transition catalog.
type TransitionRepository struct {
	db *sql.DB
}

func (r *TransitionRepository) Categories(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, key, display_name, color, position, created_at FROM categories ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	categories := make([]*models.Category, 0)

	for rows.Next() {
		var category models.Category

		err := rows.Scan(&category.ID, &category.Key, &category.DisplayName,
			&category.Color, &category.Position, &category.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}

		categories = append(categories, &category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}

	return categories, nil
}

// SeedCategories writes the fixed category set once. The key set is
// system-owned and immutable: seeding over an existing set is rejected.
func (r *TransitionRepository) SeedCategories(ctx context.Context, categories []*models.Category) error {
	existing, err := r.Categories(ctx)
	if err != nil {
		return err
	}

	if len(existing) > 0 {
		return persistence.ErrCategoriesSeeded
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}

	for _, category := range categories {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (id, key, display_name, color, position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			category.ID, category.Key, category.DisplayName,
			category.Color, category.Position, category.CreatedAt)
		if err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to seed category %s: %w", category.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit category seed: %w", err)
	}

	return nil
}

func (r *TransitionRepository) StatusesByProject(ctx context.Context, projectID string) ([]*models.Status, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, category_id, name, is_default, position, created_at, updated_at
		FROM statuses WHERE project_id = $1 ORDER BY position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	statuses := make([]*models.Status, 0)

	for rows.Next() {
		var status models.Status

		err := rows.Scan(&status.ID, &status.ProjectID, &status.CategoryID, &status.Name,
			&status.IsDefault, &status.Position, &status.CreatedAt, &status.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}

		statuses = append(statuses, &status)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate statuses: %w", err)
	}

	return statuses, nil
}

// SaveStatus upserts a status. The unique index on (project_id, lower(name))
// enforces name uniqueness; a default status demotes its siblings in the
// same transaction.
func (r *TransitionRepository) SaveStatus(ctx context.Context, status *models.Status) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin status transaction: %w", err)
	}

	if status.IsDefault {
		_, err := tx.ExecContext(ctx,
			"UPDATE statuses SET is_default = FALSE WHERE project_id = $1 AND id <> $2",
			status.ProjectID, status.ID)
		if err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to demote default statuses: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO statuses (id, project_id, category_id, name, is_default, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			category_id = EXCLUDED.category_id,
			name = EXCLUDED.name,
			is_default = EXCLUDED.is_default,
			position = EXCLUDED.position,
			updated_at = EXCLUDED.updated_at`,
		status.ID, status.ProjectID, status.CategoryID, status.Name,
		status.IsDefault, status.Position, status.CreatedAt, status.UpdatedAt)
	if err != nil {
		_ = tx.Rollback()

		if isUniqueViolation(err) {
			return &persistence.StoreError{Op: "SaveStatus", ID: status.ID, Err: persistence.ErrDuplicateStatusName}
		}

		return fmt.Errorf("failed to save status %s: %w", status.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status save: %w", err)
	}

	return nil
}

func (r *TransitionRepository) TransitionsByProject(ctx context.Context, projectID string) ([]*models.Transition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, name, from_status, to_status, allowed_roles, conditions,
			is_active, position, created_at, updated_at
		FROM transitions WHERE project_id = $1 ORDER BY position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	transitions := make([]*models.Transition, 0)

	for rows.Next() {
		var (
			transition   models.Transition
			allowedRoles []byte
			conditions   []byte
		)

		err := rows.Scan(&transition.ID, &transition.ProjectID, &transition.Name,
			&transition.FromStatus, &transition.ToStatus, &allowedRoles, &conditions,
			&transition.IsActive, &transition.Position, &transition.CreatedAt, &transition.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}

		if err := unmarshalJSONB(allowedRoles, &transition.AllowedRoles); err != nil {
			return nil, err
		}

		if err := unmarshalJSONB(conditions, &transition.Conditions); err != nil {
			return nil, err
		}

		transitions = append(transitions, &transition)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transitions: %w", err)
	}

	return transitions, nil
}

func (r *TransitionRepository) SaveTransition(ctx context.Context, transition *models.Transition) error {
	allowedRoles, err := marshalJSONB(transition.AllowedRoles)
	if err != nil {
		return err
	}

	conditions, err := marshalJSONB(transition.Conditions)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO transitions (id, project_id, name, from_status, to_status, allowed_roles,
			conditions, is_active, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			from_status = EXCLUDED.from_status,
			to_status = EXCLUDED.to_status,
			allowed_roles = EXCLUDED.allowed_roles,
			conditions = EXCLUDED.conditions,
			is_active = EXCLUDED.is_active,
			position = EXCLUDED.position,
			updated_at = EXCLUDED.updated_at`,
		transition.ID, transition.ProjectID, transition.Name,
		transition.FromStatus, transition.ToStatus, allowedRoles, conditions,
		transition.IsActive, transition.Position, transition.CreatedAt, transition.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save transition %s: %w", transition.ID, err)
	}

	return nil
}

func (r *TransitionRepository) DeleteTransition(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM transitions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete transition %s: %w", id, err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return &persistence.StoreError{Op: "DeleteTransition", ID: id, Err: persistence.ErrTransitionNotFound}
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	return false
}
