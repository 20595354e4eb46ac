// Package models defines the core domain models for the workflow automation engine.
package models

import "time"

// NodeType identifies the behavior of a workflow node.
type NodeType string

const (
	NodeTypeStart    NodeType = "start"
	NodeTypeEnd      NodeType = "end"
	NodeTypeStatus   NodeType = "status"
	NodeTypeDecision NodeType = "decision"
	NodeTypeAction   NodeType = "action"
	NodeTypeApproval NodeType = "approval"
	NodeTypeParallel NodeType = "parallel"
	NodeTypeMerge    NodeType = "merge"
)

// NodeTypes lists every node type the engine knows about. Validation and the
// runner's handler registry are checked against this list so a new type cannot
// be added without wiring a handler.
var NodeTypes = []NodeType{
	NodeTypeStart,
	NodeTypeEnd,
	NodeTypeStatus,
	NodeTypeDecision,
	NodeTypeAction,
	NodeTypeApproval,
	NodeTypeParallel,
	NodeTypeMerge,
}

// Node is one atomic step in a workflow graph.
type Node struct {
	ID     string         `json:"id"     validate:"required"`
	Type   NodeType       `json:"type"   validate:"required"`
	Name   string         `json:"name"`
	Config map[string]any `json:"config"`
}

// Connection is a directed, optionally conditioned edge between two nodes.
// Condition, when present, is a declarative expression tree evaluated against
// the execution context; a false result skips the edge during traversal.
type Connection struct {
	ID        string `json:"id"     validate:"required"`
	Source    string `json:"source" validate:"required"`
	Target    string `json:"target" validate:"required"`
	Condition any    `json:"condition,omitempty"`
	Label     string `json:"label,omitempty"`
}

// WorkflowSettings carries per-definition execution limits.
type WorkflowSettings struct {
	MaxExecutionTime int  `json:"maxExecutionTime"` // seconds; 0 means default
	RetryOnFailure   bool `json:"retryOnFailure"`
	MaxRetries       int  `json:"maxRetries"`
}

// DefaultExecutionTimeout applies when a definition does not set one.
const DefaultExecutionTimeout = 5 * time.Second

// Timeout returns the effective wall-clock limit for one execution.
func (s WorkflowSettings) Timeout() time.Duration {
	if s.MaxExecutionTime <= 0 {
		return DefaultExecutionTimeout
	}

	return time.Duration(s.MaxExecutionTime) * time.Second
}

// WorkflowDefinition is a user-authored workflow graph.
type WorkflowDefinition struct {
	ID          string           `json:"id"`
	ProjectID   string           `json:"projectId"`
	Name        string           `json:"name"        validate:"required,min=3"`
	Description string           `json:"description"`
	Active      bool             `json:"active"`
	Nodes       []*Node          `json:"nodes"`
	Connections []*Connection    `json:"connections"`
	Variables   map[string]any   `json:"variables,omitempty"`
	Settings    WorkflowSettings `json:"settings"`
	Stats       *WorkflowStats   `json:"stats,omitempty"`
	CreatedBy   string           `json:"createdBy"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// NodeByID returns the node with the given ID, or nil.
func (d *WorkflowDefinition) NodeByID(id string) *Node {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// NodesOfType returns every node of the given type, preserving order.
func (d *WorkflowDefinition) NodesOfType(t NodeType) []*Node {
	nodes := make([]*Node, 0)

	for _, n := range d.Nodes {
		if n.Type == t {
			nodes = append(nodes, n)
		}
	}

	return nodes
}

// OutgoingConnections returns the connections leaving the given node,
// preserving definition order.
func (d *WorkflowDefinition) OutgoingConnections(nodeID string) []*Connection {
	conns := make([]*Connection, 0)

	for _, c := range d.Connections {
		if c.Source == nodeID {
			conns = append(conns, c)
		}
	}

	return conns
}

// WorkflowStats is the rolling aggregate kept per definition. The engine does
// not retain a full execution ledger; these numbers are recomputed from the
// execution rows still on hand after every run.
type WorkflowStats struct {
	ExecutionCount int64      `json:"executionCount"`
	SuccessRate    float64    `json:"successRate"` // 0..100
	AvgDurationMS  int64      `json:"avgDurationMs"`
	LastExecutedAt *time.Time `json:"lastExecutedAt,omitempty"`
}
