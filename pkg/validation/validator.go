// Package validation performs structural checks on a workflow definition
// before it is allowed to execute: start-node cardinality, per-type node
// config, connection integrity, orphan detection and cycle rejection.
package validation

import (
	"fmt"

	"github.com/tasklane/automation/pkg/conditions"
	"github.com/tasklane/automation/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// Result is the outcome of validating one definition. Errors block
// execution; warnings do not.
type Result struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.IsValid = false
}

func (r *Result) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate runs every structural check against the definition. Checks run
// in a fixed order and all findings are collected; validation never stops
// at the first problem.
func Validate(def *models.WorkflowDefinition) *Result {
	result := &Result{IsValid: true, Errors: []string{}, Warnings: []string{}}

	if def == nil {
		result.addError("workflow definition is nil")
		return result
	}

	checkStartNodes(def, result)
	checkEndNodes(def, result)
	checkNodeConfigs(def, result)
	checkConnections(def, result)
	checkOrphans(def, result)
	checkCycles(def, result)

	return result
}

func checkStartNodes(def *models.WorkflowDefinition, result *Result) {
	starts := def.NodesOfType(models.NodeTypeStart)

	switch {
	case len(starts) == 0:
		result.addError("workflow must have exactly one start node, found none")
	case len(starts) > 1:
		result.addError("workflow must have exactly one start node, found %d", len(starts))
	}
}

func checkEndNodes(def *models.WorkflowDefinition, result *Result) {
	if len(def.NodesOfType(models.NodeTypeEnd)) == 0 {
		result.addWarning("workflow has no end node")
	}
}

func checkNodeConfigs(def *models.WorkflowDefinition, result *Result) {
	for _, node := range def.Nodes {
		schema, ok := nodeConfigSchemas[node.Type]
		if !ok {
			result.addError("node %s has unknown type %q", node.ID, node.Type)
			continue
		}

		config := node.Config
		if config == nil {
			config = map[string]any{}
		}

		schemaLoader := gojsonschema.NewGoLoader(schema)
		configLoader := gojsonschema.NewGoLoader(config)

		schemaResult, err := gojsonschema.Validate(schemaLoader, configLoader)
		if err != nil {
			result.addError("node %s config could not be validated: %v", node.ID, err)
			continue
		}

		for _, desc := range schemaResult.Errors() {
			result.addError("node %s config invalid: %s", node.ID, desc.String())
		}

		if node.Type == models.NodeTypeDecision {
			if err := conditions.Valid(config["condition"]); err != nil {
				result.addError("node %s decision condition invalid: %v", node.ID, err)
			}
		}
	}
}

func checkConnections(def *models.WorkflowDefinition, result *Result) {
	for _, conn := range def.Connections {
		if def.NodeByID(conn.Source) == nil {
			result.addError("connection %s references missing source node %s", conn.ID, conn.Source)
		}

		if def.NodeByID(conn.Target) == nil {
			result.addError("connection %s references missing target node %s", conn.ID, conn.Target)
		}

		if conn.Condition != nil {
			if err := conditions.Valid(conn.Condition); err != nil {
				result.addError("connection %s condition invalid: %v", conn.ID, err)
			}
		}
	}
}

func checkOrphans(def *models.WorkflowDefinition, result *Result) {
	incoming := make(map[string]int, len(def.Nodes))
	outgoing := make(map[string]int, len(def.Nodes))

	for _, conn := range def.Connections {
		outgoing[conn.Source]++
		incoming[conn.Target]++
	}

	for _, node := range def.Nodes {
		if node.Type == models.NodeTypeStart {
			continue
		}

		if incoming[node.ID] == 0 && outgoing[node.ID] == 0 {
			result.addWarning("node %s (%s) is orphaned: no incoming or outgoing connections", node.ID, node.Type)
		}
	}
}

// checkCycles runs a depth-first search over an index-based adjacency table.
// Loops are categorically disallowed: any directed cycle is an error.
func checkCycles(def *models.WorkflowDefinition, result *Result) {
	adjacency := make(map[string][]string, len(def.Nodes))
	for _, conn := range def.Connections {
		adjacency[conn.Source] = append(adjacency[conn.Source], conn.Target)
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)

	state := make(map[string]int, len(def.Nodes))

	var visit func(id string) bool

	visit = func(id string) bool {
		state[id] = inStack

		for _, next := range adjacency[id] {
			switch state[next] {
			case inStack:
				return true
			case unvisited:
				if visit(next) {
					return true
				}
			}
		}

		state[id] = done

		return false
	}

	for _, node := range def.Nodes {
		if state[node.ID] == unvisited && visit(node.ID) {
			result.addError("workflow contains a cycle reachable from node %s; loops are not allowed", node.ID)
			return
		}
	}
}
