package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/persistence"
)

// RuleRepository stores automation rules.
type RuleRepository struct {
	db *sql.DB
}

const ruleColumns = `id, project_id, name, description, trigger_type, trigger_config,
	conditions, actions, status, created_by, execution_count, success_rate,
	last_error, last_executed_at, created_at, updated_at`

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.AutomationRule, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+ruleColumns+" FROM automation_rules WHERE id = $1", id)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &persistence.StoreError{Op: "GetByID", ID: id, Err: persistence.ErrRuleNotFound}
	}

	return rule, err
}

func (r *RuleRepository) ListByProject(ctx context.Context, projectID string) ([]*models.AutomationRule, error) {
	return r.list(ctx,
		"SELECT "+ruleColumns+" FROM automation_rules WHERE project_id = $1 ORDER BY created_at", projectID)
}

// ListScheduled returns every active scheduled rule across all projects.
func (r *RuleRepository) ListScheduled(ctx context.Context) ([]*models.AutomationRule, error) {
	return r.list(ctx,
		"SELECT "+ruleColumns+" FROM automation_rules WHERE trigger_type = $1 AND status = $2 ORDER BY created_at",
		models.TriggerTypeScheduled, models.RuleStatusActive)
}

func (r *RuleRepository) list(ctx context.Context, query string, args ...any) ([]*models.AutomationRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	rules := make([]*models.AutomationRule, 0)

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}

		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}

	return rules, nil
}

func (r *RuleRepository) Save(ctx context.Context, rule *models.AutomationRule) error {
	triggerConfig, err := marshalJSONB(rule.TriggerConfig)
	if err != nil {
		return err
	}

	conditions, err := marshalJSONB(rule.Conditions)
	if err != nil {
		return err
	}

	actions, err := marshalJSONB(rule.Actions)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO automation_rules (`+ruleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			project_id = EXCLUDED.project_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			conditions = EXCLUDED.conditions,
			actions = EXCLUDED.actions,
			status = EXCLUDED.status,
			created_by = EXCLUDED.created_by,
			execution_count = EXCLUDED.execution_count,
			success_rate = EXCLUDED.success_rate,
			last_error = EXCLUDED.last_error,
			last_executed_at = EXCLUDED.last_executed_at,
			updated_at = EXCLUDED.updated_at`,
		rule.ID, rule.ProjectID, rule.Name, rule.Description,
		rule.TriggerType, triggerConfig, conditions, actions,
		rule.Status, rule.CreatedBy, rule.ExecutionCount, rule.SuccessRate,
		rule.LastError, rule.LastExecutedAt, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save rule %s: %w", rule.ID, err)
	}

	return nil
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM automation_rules WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", id, err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return &persistence.StoreError{Op: "Delete", ID: id, Err: persistence.ErrRuleNotFound}
	}

	return nil
}

func scanRule(row rowScanner) (*models.AutomationRule, error) {
	var (
		rule          models.AutomationRule
		triggerConfig []byte
		conditions    []byte
		actions       []byte
	)

	err := row.Scan(&rule.ID, &rule.ProjectID, &rule.Name, &rule.Description,
		&rule.TriggerType, &triggerConfig, &conditions, &actions,
		&rule.Status, &rule.CreatedBy, &rule.ExecutionCount, &rule.SuccessRate,
		&rule.LastError, &rule.LastExecutedAt, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}

	if err := unmarshalJSONB(triggerConfig, &rule.TriggerConfig); err != nil {
		return nil, err
	}

	if err := unmarshalJSONB(conditions, &rule.Conditions); err != nil {
		return nil, err
	}

	if err := unmarshalJSONB(actions, &rule.Actions); err != nil {
		return nil, err
	}

	return &rule, nil
}
