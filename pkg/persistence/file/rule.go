package file

import (
	"context"
	"os"
	"sort"

	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/persistence"
)

const rulesCollection = "rules"

// RuleRepository stores automation rules as JSON documents.
type RuleRepository struct {
	store *store
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.AutomationRule, error) {
	var rule models.AutomationRule

	err := r.store.read(rulesCollection, id, &rule)
	if os.IsNotExist(err) {
		return nil, &persistence.StoreError{Op: "GetByID", ID: id, Err: persistence.ErrRuleNotFound}
	}

	if err != nil {
		return nil, err
	}

	return &rule, nil
}

func (r *RuleRepository) ListByProject(ctx context.Context, projectID string) ([]*models.AutomationRule, error) {
	return r.list(ctx, func(rule *models.AutomationRule) bool {
		return rule.ProjectID == projectID
	})
}

func (r *RuleRepository) ListScheduled(ctx context.Context) ([]*models.AutomationRule, error) {
	return r.list(ctx, func(rule *models.AutomationRule) bool {
		return rule.TriggerType == models.TriggerTypeScheduled && rule.IsActive()
	})
}

func (r *RuleRepository) list(ctx context.Context, keep func(*models.AutomationRule) bool) ([]*models.AutomationRule, error) {
	ids, err := r.store.ids(rulesCollection)
	if err != nil {
		return nil, err
	}

	rules := make([]*models.AutomationRule, 0)

	for _, id := range ids {
		rule, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if keep(rule) {
			rules = append(rules, rule)
		}
	}

	sort.Slice(rules, func(i, j int) bool {
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})

	return rules, nil
}

func (r *RuleRepository) Save(ctx context.Context, rule *models.AutomationRule) error {
	return r.store.write(rulesCollection, rule.ID, rule)
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	err := r.store.remove(rulesCollection, id)
	if os.IsNotExist(err) {
		return &persistence.StoreError{Op: "Delete", ID: id, Err: persistence.ErrRuleNotFound}
	}

	return err
}
