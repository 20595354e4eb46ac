// Package transitions implements the status-transition state machine: the
// category/status/transition catalog and the legality decision for work-item
// status changes.
package transitions

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/persistence"
)

// Subject carries the work-item data a transition's structural conditions
// inspect: field values for required-field checks and the numeric estimate.
type Subject struct {
	Fields   map[string]any
	Estimate *float64
}

// Machine answers transition legality questions against a project's catalog.
type Machine struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewMachine(p persistence.Persistence, logger *slog.Logger) *Machine {
	return &Machine{
		persistence: p,
		logger:      logger.With("module", "transition_machine"),
	}
}

// IsTransitionAllowed decides whether a work item may move between the two
// named statuses. The decision procedure, in order: resolve the target name;
// a project with statuses but no transition rules at all is in open mode and
// allows everything; otherwise the most specific matching rule (exact source
// preferred over wildcard, position breaks ties) is enforced for roles and
// structural conditions.
func (m *Machine) IsTransitionAllowed(ctx context.Context, projectID, fromName, toName, role string, subject Subject) (*models.TransitionDecision, error) {
	statuses, err := m.persistence.Transitions().StatusesByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	// Nothing configured for the project: nothing to enforce.
	if len(statuses) == 0 {
		return &models.TransitionDecision{Allowed: true}, nil
	}

	to := statusByName(statuses, toName)
	if to == nil {
		return deny(fmt.Sprintf("status %q is not defined for this project", toName)), nil
	}

	rules, err := m.activeTransitions(ctx, projectID)
	if err != nil {
		return nil, err
	}

	// Open mode: statuses exist but no transition rules were ever set up.
	if len(rules) == 0 {
		return &models.TransitionDecision{Allowed: true}, nil
	}

	from := statusByName(statuses, fromName)

	transition := mostSpecificMatch(rules, from, to)
	if transition == nil {
		return deny(fmt.Sprintf("no transition defined from %q to %q", fromName, toName)), nil
	}

	if len(transition.AllowedRoles) > 0 && !containsFold(transition.AllowedRoles, role) {
		return deny(fmt.Sprintf("role %q is not allowed to perform this transition", role)), nil
	}

	if reason := checkConditions(transition.Conditions, subject); reason != "" {
		return deny(reason), nil
	}

	return &models.TransitionDecision{
		Allowed:         true,
		TransitionName:  transition.Name,
		CommentRequired: transition.Conditions.RequireComment,
	}, nil
}

// AvailableTransitions lists the statuses a work item may move to from the
// given status, for the given role. Targets are deduplicated; structural
// conditions are not evaluated here because they depend on the item's data
// at transition time.
func (m *Machine) AvailableTransitions(ctx context.Context, projectID, fromName, role string) ([]models.TransitionTarget, error) {
	statuses, err := m.persistence.Transitions().StatusesByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if len(statuses) == 0 {
		return []models.TransitionTarget{}, nil
	}

	rules, err := m.activeTransitions(ctx, projectID)
	if err != nil {
		return nil, err
	}

	from := statusByName(statuses, fromName)
	targets := make([]models.TransitionTarget, 0, len(statuses))

	for _, status := range statuses {
		if from != nil && status.ID == from.ID {
			continue
		}

		target := models.TransitionTarget{StatusID: status.ID, StatusName: status.Name}

		if len(rules) > 0 {
			transition := mostSpecificMatch(rules, from, status)
			if transition == nil {
				continue
			}

			if len(transition.AllowedRoles) > 0 && !containsFold(transition.AllowedRoles, role) {
				continue
			}

			target.TransitionName = transition.Name
			target.CommentRequired = transition.Conditions.RequireComment
		}

		targets = append(targets, target)
	}

	return targets, nil
}

func (m *Machine) activeTransitions(ctx context.Context, projectID string) ([]*models.Transition, error) {
	rules, err := m.persistence.Transitions().TransitionsByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	active := make([]*models.Transition, 0, len(rules))

	for _, rule := range rules {
		if rule.IsActive {
			active = append(active, rule)
		}
	}

	return active, nil
}

// mostSpecificMatch picks the rule for (from, to): an exact source match
// beats a wildcard source, and position orders rules of equal specificity.
func mostSpecificMatch(rules []*models.Transition, from, to *models.Status) *models.Transition {
	matches := make([]*models.Transition, 0, 2)

	for _, rule := range rules {
		if rule.ToStatus != to.ID {
			continue
		}

		if rule.FromStatus == nil {
			matches = append(matches, rule)

			continue
		}

		if from != nil && *rule.FromStatus == from.ID {
			matches = append(matches, rule)
		}
	}

	if len(matches) == 0 {
		return nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		iExact := matches[i].FromStatus != nil
		jExact := matches[j].FromStatus != nil

		if iExact != jExact {
			return iExact
		}

		return matches[i].Position < matches[j].Position
	})

	return matches[0]
}

// checkConditions enforces the structural gates. NoOpenBlockers is declared
// on the model but intentionally not enforced yet.
func checkConditions(conditions models.TransitionConditions, subject Subject) string {
	for _, field := range conditions.RequiredFields {
		if !fieldPopulated(subject.Fields, field) {
			return fmt.Sprintf("field %q must be set before this transition", field)
		}
	}

	if conditions.MinEstimate != nil {
		if subject.Estimate == nil {
			return fmt.Sprintf("an estimate of at least %v is required for this transition", *conditions.MinEstimate)
		}

		if *subject.Estimate < *conditions.MinEstimate {
			return fmt.Sprintf("estimate %v is below the required minimum %v", *subject.Estimate, *conditions.MinEstimate)
		}
	}

	return ""
}

func fieldPopulated(fields map[string]any, name string) bool {
	value, ok := fields[name]
	if !ok || value == nil {
		return false
	}

	if s, isString := value.(string); isString {
		return strings.TrimSpace(s) != ""
	}

	return true
}

func statusByName(statuses []*models.Status, name string) *models.Status {
	for _, status := range statuses {
		if strings.EqualFold(status.Name, name) {
			return status
		}
	}

	return nil
}

func containsFold(values []string, value string) bool {
	for _, v := range values {
		if strings.EqualFold(v, value) {
			return true
		}
	}

	return false
}

func deny(reason string) *models.TransitionDecision {
	return &models.TransitionDecision{Allowed: false, Reason: reason}
}
