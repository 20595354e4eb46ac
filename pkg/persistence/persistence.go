// Package persistence provides the storage abstraction for workflow
// definitions, executions, automation rules and the transition catalog.
// Engine components depend only on these interfaces; definition authoring
// itself lives in the surrounding product.
package persistence

import (
	"context"

	"github.com/tasklane/automation/pkg/models"
)

type Persistence interface {
	Workflows() WorkflowRepository
	Executions() ExecutionRepository
	Rules() RuleRepository
	Transitions() TransitionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.WorkflowDefinition, error)
	Save(ctx context.Context, def *models.WorkflowDefinition) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores execution rows. Rows are created once and then
// only their completion fields are updated.
type ExecutionRepository interface {
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error)
	Create(ctx context.Context, execution *models.Execution) error
	Update(ctx context.Context, execution *models.Execution) error
}

// RuleRepository stores automation rules.
type RuleRepository interface {
	GetByID(ctx context.Context, id string) (*models.AutomationRule, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.AutomationRule, error)
	// ListScheduled returns every active rule with the scheduled trigger
	// type, across all projects. Used by the periodic scanner.
	ListScheduled(ctx context.Context) ([]*models.AutomationRule, error)
	Save(ctx context.Context, rule *models.AutomationRule) error
	Delete(ctx context.Context, id string) error
}

// TransitionRepository stores the category/status/transition catalog.
type TransitionRepository interface {
	Categories(ctx context.Context) ([]*models.Category, error)
	SeedCategories(ctx context.Context, categories []*models.Category) error

	StatusesByProject(ctx context.Context, projectID string) ([]*models.Status, error)
	SaveStatus(ctx context.Context, status *models.Status) error

	TransitionsByProject(ctx context.Context, projectID string) ([]*models.Transition, error)
	SaveTransition(ctx context.Context, transition *models.Transition) error
	DeleteTransition(ctx context.Context, id string) error
}
