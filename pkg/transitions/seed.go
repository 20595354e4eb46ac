package transitions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/persistence"
)

// DefaultCategories returns the fixed, system-owned category set. Keys are
// immutable once seeded; only display metadata may change later.
func DefaultCategories() []*models.Category {
	now := time.Now().UTC()

	categories := []*models.Category{
		{Key: "backlog", DisplayName: "Backlog", Color: "#6B7280", Position: 1},
		{Key: "todo", DisplayName: "To Do", Color: "#3B82F6", Position: 2},
		{Key: "in_progress", DisplayName: "In Progress", Color: "#F59E0B", Position: 3},
		{Key: "done", DisplayName: "Done", Color: "#10B981", Position: 4},
		{Key: "cancelled", DisplayName: "Cancelled", Color: "#EF4444", Position: 5},
	}

	for _, category := range categories {
		category.ID = uuid.NewString()
		category.CreatedAt = now
	}

	return categories
}

// Seed writes the default categories if the store has none yet. Re-seeding
// an already seeded store is a no-op.
func Seed(ctx context.Context, p persistence.Persistence) error {
	err := p.Transitions().SeedCategories(ctx, DefaultCategories())
	if errors.Is(err, persistence.ErrCategoriesSeeded) {
		return nil
	}

	return err
}
