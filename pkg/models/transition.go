package models

import "time"

// Category is a fixed, system-seeded status-reporting bucket shared across
// projects. Keys are immutable once seeded; display metadata is not.
type Category struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"` // backlog, todo, in_progress, done, cancelled
	DisplayName string    `json:"displayName"`
	Color       string    `json:"color"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Status is a project-scoped work-item state bound to exactly one category.
// Names are unique per project; at most one status per project is default.
type Status struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"  validate:"required"`
	CategoryID string    `json:"categoryId" validate:"required"`
	Name       string    `json:"name"       validate:"required"`
	IsDefault  bool      `json:"isDefault"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TransitionConditions are the structural gates a transition may carry.
// NoOpenBlockers is declared for forward compatibility but not enforced.
type TransitionConditions struct {
	RequiredFields []string `json:"requiredFields,omitempty"`
	MinEstimate    *float64 `json:"minEstimate,omitempty"`
	RequireComment bool     `json:"requireComment,omitempty"`
	NoOpenBlockers bool     `json:"noOpenBlockers,omitempty"`
}

// Transition permits a status-to-status move. FromStatus nil means wildcard
// (any source). Position breaks ties among matching rules of equal
// specificity.
type Transition struct {
	ID           string               `json:"id"`
	ProjectID    string               `json:"projectId" validate:"required"`
	Name         string               `json:"name"`
	FromStatus   *string              `json:"fromStatus,omitempty"` // status ID; nil = any
	ToStatus     string               `json:"toStatus" validate:"required"`
	AllowedRoles []string             `json:"allowedRoles,omitempty"`
	Conditions   TransitionConditions `json:"conditions"`
	IsActive     bool                 `json:"isActive"`
	Position     int                  `json:"position"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// TransitionDecision is the answer to "may this status change happen".
type TransitionDecision struct {
	Allowed         bool   `json:"allowed"`
	Reason          string `json:"reason,omitempty"`
	TransitionName  string `json:"transitionName,omitempty"`
	CommentRequired bool   `json:"commentRequired"`
}

// TransitionTarget is one entry of a valid-next-state list.
type TransitionTarget struct {
	StatusID        string `json:"statusId"`
	StatusName      string `json:"statusName"`
	TransitionName  string `json:"transitionName,omitempty"`
	CommentRequired bool   `json:"commentRequired"`
}
