package file

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/persistence"
)

const (
	categoriesCollection  = "categories"
	statusesCollection    = "statuses"
	transitionsCollection = "transitions"
)

// TransitionRepository stores the category/status/transition catalog.
type TransitionRepository struct {
	store *store
}

func (r *TransitionRepository) Categories(ctx context.Context) ([]*models.Category, error) {
	ids, err := r.store.ids(categoriesCollection)
	if err != nil {
		return nil, err
	}

	categories := make([]*models.Category, 0, len(ids))

	for _, id := range ids {
		var category models.Category
		if err := r.store.read(categoriesCollection, id, &category); err != nil {
			return nil, err
		}

		categories = append(categories, &category)
	}

	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Position < categories[j].Position
	})

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

	for _, category := range categories {
		if err := r.store.write(categoriesCollection, category.ID, category); err != nil {
			return err
		}
	}

	return nil
}

func (r *TransitionRepository) StatusesByProject(ctx context.Context, projectID string) ([]*models.Status, error) {
	ids, err := r.store.ids(statusesCollection)
	if err != nil {
		return nil, err
	}

	statuses := make([]*models.Status, 0)

	for _, id := range ids {
		var status models.Status
		if err := r.store.read(statusesCollection, id, &status); err != nil {
			return nil, err
		}

		if status.ProjectID == projectID {
			statuses = append(statuses, &status)
		}
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Position < statuses[j].Position
	})

	return statuses, nil
}

// SaveStatus enforces name uniqueness and the single-default invariant
// within the status's project.
func (r *TransitionRepository) SaveStatus(ctx context.Context, status *models.Status) error {
	siblings, err := r.StatusesByProject(ctx, status.ProjectID)
	if err != nil {
		return err
	}

	for _, sibling := range siblings {
		if sibling.ID == status.ID {
			continue
		}

		if strings.EqualFold(sibling.Name, status.Name) {
			return &persistence.StoreError{Op: "SaveStatus", ID: status.ID, Err: persistence.ErrDuplicateStatusName}
		}
	}

	if status.IsDefault {
		for _, sibling := range siblings {
			if sibling.ID != status.ID && sibling.IsDefault {
				sibling.IsDefault = false
				if err := r.store.write(statusesCollection, sibling.ID, sibling); err != nil {
					return err
				}
			}
		}
	}

	return r.store.write(statusesCollection, status.ID, status)
}

func (r *TransitionRepository) TransitionsByProject(ctx context.Context, projectID string) ([]*models.Transition, error) {
	ids, err := r.store.ids(transitionsCollection)
	if err != nil {
		return nil, err
	}

	transitions := make([]*models.Transition, 0)

	for _, id := range ids {
		var transition models.Transition
		if err := r.store.read(transitionsCollection, id, &transition); err != nil {
			return nil, err
		}

		if transition.ProjectID == projectID {
			transitions = append(transitions, &transition)
		}
	}

	sort.Slice(transitions, func(i, j int) bool {
		return transitions[i].Position < transitions[j].Position
	})

	return transitions, nil
}

func (r *TransitionRepository) SaveTransition(ctx context.Context, transition *models.Transition) error {
	return r.store.write(transitionsCollection, transition.ID, transition)
}

func (r *TransitionRepository) DeleteTransition(ctx context.Context, id string) error {
	err := r.store.remove(transitionsCollection, id)
	if os.IsNotExist(err) {
		return &persistence.StoreError{Op: "DeleteTransition", ID: id, Err: persistence.ErrTransitionNotFound}
	}

	return err
}
