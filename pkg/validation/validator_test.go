package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/automation/pkg/models"
)

func validDefinition() *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:   "wf-1",
		Name: "Review flow",
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeStart},
			{ID: "check", Type: models.NodeTypeDecision, Config: map[string]any{
				"condition": map[string]any{"==": []any{map[string]any{"var": "triggerData.status"}, "Done"}},
			}},
			{ID: "finish", Type: models.NodeTypeEnd},
		},
		Connections: []*models.Connection{
			{ID: "c1", Source: "start", Target: "check"},
			{ID: "c2", Source: "check", Target: "finish"},
		},
	}
}

func TestValidate_ValidDefinition(t *testing.T) {
	result := Validate(validDefinition())

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidate_StartNodeCardinality(t *testing.T) {
	def := validDefinition()
	def.Nodes[0].Type = models.NodeTypeEnd

	result := Validate(def)
	require.False(t, result.IsValid)
	assert.Contains(t, result.Errors[0], "found none")

	def = validDefinition()
	def.Nodes = append(def.Nodes, &models.Node{ID: "start2", Type: models.NodeTypeStart})

	result = Validate(def)
	require.False(t, result.IsValid)
	assert.Contains(t, result.Errors[0], "found 2")
}

func TestValidate_MissingEndNodeWarns(t *testing.T) {
	def := validDefinition()
	def.Nodes = def.Nodes[:2]
	def.Connections = def.Connections[:1]

	result := Validate(def)
	assert.True(t, result.IsValid)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "no end node")
}

func TestValidate_NodeConfigRequirements(t *testing.T) {
	tests := []struct {
		name   string
		node   *models.Node
		errHas string
	}{
		{
			"decision without condition",
			&models.Node{ID: "d", Type: models.NodeTypeDecision, Config: map[string]any{}},
			"condition",
		},
		{
			"approval without approvers",
			&models.Node{ID: "a", Type: models.NodeTypeApproval, Config: map[string]any{}},
			"approvers",
		},
		{
			"approval with empty approvers",
			&models.Node{ID: "a", Type: models.NodeTypeApproval, Config: map[string]any{"approvers": []any{}}},
			"approvers",
		},
		{
			"status without status value",
			&models.Node{ID: "s", Type: models.NodeTypeStatus, Config: map[string]any{}},
			"status",
		},
		{
			"action without action type",
			&models.Node{ID: "ac", Type: models.NodeTypeAction, Config: map[string]any{}},
			"actionType",
		},
		{
			"unknown type",
			&models.Node{ID: "u", Type: "loop"},
			"unknown type",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			def := validDefinition()
			def.Nodes = append(def.Nodes, tc.node)
			def.Connections = append(def.Connections, &models.Connection{
				ID: "cx", Source: "start", Target: tc.node.ID,
			})

			result := Validate(def)
			require.False(t, result.IsValid)

			found := false

			for _, e := range result.Errors {
				if strings.Contains(e, tc.errHas) {
					found = true
				}
			}

			assert.True(t, found, "expected an error mentioning %q, got %v", tc.errHas, result.Errors)
		})
	}
}

func TestValidate_ConnectionEndpointsMustExist(t *testing.T) {
	def := validDefinition()
	def.Connections = append(def.Connections, &models.Connection{ID: "bad", Source: "start", Target: "ghost"})

	result := Validate(def)
	require.False(t, result.IsValid)
	assert.Contains(t, result.Errors[0], "missing target node ghost")
}

func TestValidate_InvalidConnectionCondition(t *testing.T) {
	def := validDefinition()
	def.Connections[0].Condition = map[string]any{"bogus_op": []any{1, 2}}

	result := Validate(def)
	require.False(t, result.IsValid)
	assert.Contains(t, result.Errors[0], "condition invalid")
}

func TestValidate_OrphanedNodeWarns(t *testing.T) {
	def := validDefinition()
	def.Nodes = append(def.Nodes, &models.Node{ID: "island", Type: models.NodeTypeStatus, Config: map[string]any{"status": "Done"}})

	result := Validate(def)
	assert.True(t, result.IsValid)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "orphaned")
}

func TestValidate_CycleIsError(t *testing.T) {
	def := validDefinition()
	def.Connections = append(def.Connections, &models.Connection{ID: "back", Source: "finish", Target: "check"})

	result := Validate(def)
	require.False(t, result.IsValid)
	assert.Contains(t, result.Errors[0], "cycle")
}

func TestValidate_SelfLoopIsCycle(t *testing.T) {
	def := validDefinition()
	def.Connections = append(def.Connections, &models.Connection{ID: "self", Source: "check", Target: "check"})

	result := Validate(def)
	require.False(t, result.IsValid)
	assert.Contains(t, result.Errors[0], "cycle")
}

func TestValidate_NilDefinition(t *testing.T) {
	result := Validate(nil)
	assert.False(t, result.IsValid)
}
