// Package workflow runs user-authored workflow graphs: the runner traverses
// one definition inside its own goroutine, and the orchestrator wraps that
// run with persistence, timeout, retry and cancellation semantics.
package workflow

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tasklane/automation/pkg/conditions"
	"github.com/tasklane/automation/pkg/models"
)

// Outcome is the message the runner goroutine sends back when a run ends.
type Outcome struct {
	Success bool
	Result  map[string]any
	Logs    []models.LogEntry
	Err     error
}

// RecordedAction is an action node's request, collected during traversal for
// a separate dispatch collaborator. The runner never performs side effects
// itself.
type RecordedAction struct {
	NodeID     string         `json:"nodeId"`
	ActionType string         `json:"actionType"`
	Config     map[string]any `json:"actionConfig"`
}

// Runner executes one definition+context pair per call. Each run happens in
// a fresh goroutine that owns all of its state; the only communication with
// the caller is the Outcome channel, so an abandoned run (timeout) cannot
// corrupt anything the orchestrator holds.
type Runner struct {
	logger *slog.Logger
}

func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger.With("module", "workflow_runner")}
}

// Run starts the traversal goroutine and returns the channel its Outcome
// arrives on. The channel is buffered so the goroutine can finish and exit
// even if the caller stopped listening after a timeout.
func (r *Runner) Run(def *models.WorkflowDefinition, executionCtx models.ExecutionContext) <-chan Outcome {
	out := make(chan Outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				out <- Outcome{Err: fmt.Errorf("workflow run panicked: %v", rec)}
			}
		}()

		out <- r.run(def, executionCtx)
	}()

	return out
}

func (r *Runner) run(def *models.WorkflowDefinition, executionCtx models.ExecutionContext) Outcome {
	starts := def.NodesOfType(models.NodeTypeStart)
	if len(starts) != 1 {
		return Outcome{Err: fmt.Errorf("workflow %s has %d start nodes, want exactly 1", def.ID, len(starts))}
	}

	contextMap := executionCtx.AsMap()
	if len(def.Variables) > 0 {
		merged := make(map[string]any, len(def.Variables))

		for k, v := range def.Variables {
			merged[k] = v
		}

		for k, v := range executionCtx.Variables {
			merged[k] = v
		}

		contextMap["variables"] = merged
	}

	state := &runState{
		def:        def,
		contextMap: contextMap,
		result:     make(map[string]any),
		visited:    make(map[string]bool),
	}

	if err := state.traverse(starts[0]); err != nil {
		return Outcome{Result: state.result, Logs: state.logs, Err: err}
	}

	r.logger.Debug("workflow run finished",
		"workflow_id", def.ID,
		"nodes_visited", len(state.visited))

	return Outcome{Success: true, Result: state.result, Logs: state.logs}
}

// runState is the per-run mutable state. It lives entirely inside the runner
// goroutine and is handed to the caller only through the final Outcome.
type runState struct {
	def        *models.WorkflowDefinition
	contextMap map[string]any
	result     map[string]any
	logs       []models.LogEntry
	actions    []RecordedAction
	visited    map[string]bool
}

// traverse executes node, then depth-first follows its outgoing connections.
// A connection whose condition evaluates false is skipped; a target already
// visited is skipped, which is what keeps re-entrant graphs from looping.
func (s *runState) traverse(node *models.Node) error {
	if s.visited[node.ID] {
		return nil
	}

	s.visited[node.ID] = true

	handler, ok := nodeHandlers[node.Type]
	if !ok {
		return fmt.Errorf("node %s has unknown type %q", node.ID, node.Type)
	}

	if err := handler(s, node); err != nil {
		s.log("error", node.ID, err.Error())

		return fmt.Errorf("node %s (%s): %w", node.ID, node.Type, err)
	}

	for _, conn := range s.def.OutgoingConnections(node.ID) {
		if conn.Condition != nil && !conditions.Evaluate(conn.Condition, s.contextMap) {
			s.log("info", node.ID, fmt.Sprintf("connection %s skipped: condition false", conn.ID))

			continue
		}

		target := s.def.NodeByID(conn.Target)
		if target == nil {
			return fmt.Errorf("connection %s targets unknown node %s", conn.ID, conn.Target)
		}

		if err := s.traverse(target); err != nil {
			return err
		}
	}

	return nil
}

func (s *runState) log(level, nodeID, message string) {
	s.logs = append(s.logs, models.LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		NodeID:    nodeID,
		Message:   message,
	})
}

type nodeHandler func(s *runState, node *models.Node) error

// nodeHandlers maps every node type to its behavior. A test asserts the map
// covers models.NodeTypes so a new type cannot ship without a handler.
var nodeHandlers = map[models.NodeType]nodeHandler{
	models.NodeTypeStart:    handleStart,
	models.NodeTypeEnd:      handleEnd,
	models.NodeTypeStatus:   handleStatus,
	models.NodeTypeDecision: handleDecision,
	models.NodeTypeAction:   handleAction,
	models.NodeTypeApproval: handleApproval,
	models.NodeTypeParallel: handleParallel,
	models.NodeTypeMerge:    handleMerge,
}

func handleStart(s *runState, node *models.Node) error {
	s.result["startedAt"] = time.Now().UTC().Format(time.RFC3339Nano)
	s.log("info", node.ID, "workflow started")

	return nil
}

func handleEnd(s *runState, node *models.Node) error {
	s.result["finishedAt"] = time.Now().UTC().Format(time.RFC3339Nano)
	s.log("info", node.ID, "workflow reached end node")

	return nil
}

// handleStatus records the proposed status value. Applying it to the work
// item is the issue service's job, not the runner's.
func handleStatus(s *runState, node *models.Node) error {
	status, ok := node.Config["status"].(string)
	if !ok || status == "" {
		return fmt.Errorf("status node requires a %q config value", "status")
	}

	s.result["proposedStatus"] = status
	s.log("info", node.ID, fmt.Sprintf("proposed status %q", status))

	return nil
}

// handleDecision records the condition's boolean result only. It does not
// pick an outgoing branch: branching belongs entirely to connection
// conditions.
func handleDecision(s *runState, node *models.Node) error {
	condition, ok := node.Config["condition"]
	if !ok {
		return fmt.Errorf("decision node requires a %q config value", "condition")
	}

	outcome := conditions.Evaluate(condition, s.contextMap)
	s.result["decision."+node.ID] = outcome
	s.log("info", node.ID, fmt.Sprintf("decision evaluated to %t", outcome))

	return nil
}

// handleAction records the action request for the dispatch collaborator.
func handleAction(s *runState, node *models.Node) error {
	actionType, ok := node.Config["actionType"].(string)
	if !ok || actionType == "" {
		return fmt.Errorf("action node requires an %q config value", "actionType")
	}

	config, _ := node.Config["actionConfig"].(map[string]any)

	recorded := RecordedAction{
		NodeID:     node.ID,
		ActionType: actionType,
		Config:     config,
	}

	s.actions = append(s.actions, recorded)
	s.result["actions"] = s.actions
	s.log("info", node.ID, fmt.Sprintf("recorded action %q for dispatch", actionType))

	return nil
}

// Approval, parallel and merge record configuration markers only. No
// waiting, quorum or concurrent-branch logic runs here.
func handleApproval(s *runState, node *models.Node) error {
	approvers, _ := node.Config["approvers"].([]any)
	if len(approvers) == 0 {
		return fmt.Errorf("approval node requires at least one approver")
	}

	s.result["approval."+node.ID] = map[string]any{
		"approvers": approvers,
		"status":    "pending",
	}
	s.log("info", node.ID, "recorded approval request")

	return nil
}

func handleParallel(s *runState, node *models.Node) error {
	s.result["parallel."+node.ID] = node.Config
	s.log("info", node.ID, "parallel marker recorded")

	return nil
}

func handleMerge(s *runState, node *models.Node) error {
	s.result["merge."+node.ID] = node.Config
	s.log("info", node.ID, "merge marker recorded")

	return nil
}
