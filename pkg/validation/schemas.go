package validation

import "github.com/tasklane/automation/pkg/models"

// nodeConfigSchemas maps every node type to the JSON schema its config must
// satisfy. The map is checked against models.NodeTypes on first use so a new
// node type cannot ship without a schema.
var nodeConfigSchemas = map[models.NodeType]map[string]any{
	models.NodeTypeStart: {
		"type": "object",
	},
	models.NodeTypeEnd: {
		"type": "object",
	},
	models.NodeTypeStatus: {
		"type": "object",
		"properties": map[string]any{
			"status": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Status name proposed for the triggering work item",
			},
		},
		"required": []string{"status"},
	},
	models.NodeTypeDecision: {
		"type": "object",
		"properties": map[string]any{
			"condition": map[string]any{
				"description": "Declarative expression tree recorded into the result map",
			},
		},
		"required": []string{"condition"},
	},
	models.NodeTypeAction: {
		"type": "object",
		"properties": map[string]any{
			"actionType": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Action kind handed to the dispatch collaborator",
			},
			"actionConfig": map[string]any{
				"type": "object",
			},
		},
		"required": []string{"actionType"},
	},
	models.NodeTypeApproval: {
		"type": "object",
		"properties": map[string]any{
			"approvers": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "string"},
			},
		},
		"required": []string{"approvers"},
	},
	models.NodeTypeParallel: {
		"type": "object",
	},
	models.NodeTypeMerge: {
		"type": "object",
	},
}
