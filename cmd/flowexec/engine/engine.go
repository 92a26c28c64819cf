// Package engine implements the Executor Engine: the component that walks
// a Flow graph, renders each node's input, dispatches its handler, records
// outputs, routes on branch results, and emits events and metrics
// (spec.md §4.5 — "the spine").
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/flowexec/cmd/flowexec/flow"
	"github.com/lyzr/flowexec/cmd/flowexec/flowcontext"
	"github.com/lyzr/flowexec/cmd/flowexec/handlers"
	"github.com/lyzr/flowexec/cmd/flowexec/publisher"
	"github.com/lyzr/flowexec/cmd/flowexec/registry"
	"github.com/lyzr/flowexec/cmd/flowexec/render"
	"github.com/lyzr/flowexec/cmd/flowexec/value"
	"github.com/lyzr/flowexec/common/logger"
	"github.com/lyzr/flowexec/common/metrics"
)

// TerminalNodeID is the conventionally named fallback node whose output
// becomes the run's final output when no action node executed at all
// (spec.md §4.5 "Public contract").
const TerminalNodeID = "fetch_answer"

// Engine ties the registry, publisher, and metrics registry together and
// drives a single flow to completion. It holds no per-execution state and
// is safe to share across concurrent Run calls (spec.md §3 "Ownership").
type Engine struct {
	Registry  *registry.Registry
	Publisher publisher.Publisher
	Metrics   *metrics.Registry
	Log       *logger.Logger
}

// New builds an Engine. pub may be publisher.NoOp{} when no sink is configured.
func New(reg *registry.Registry, pub publisher.Publisher, met *metrics.Registry, log *logger.Logger) *Engine {
	return &Engine{Registry: reg, Publisher: pub, Metrics: met, Log: log}
}

// Run executes f to completion or first unrecoverable error, per spec.md
// §4.5's algorithm. ctx carries the caller's optional whole-flow deadline;
// exceeding it at any suspension point fails the run with flow_timeout.
func (e *Engine) Run(ctx context.Context, f *flow.Flow, input map[string]interface{}) Result {
	fc := flowcontext.New(f.Context.UserID, f.Context.TenantID, f.Context.SessionID, f.Context.Input)
	fc.Bootstrap(input)

	var lastActionOutput map[string]value.Value
	hadAction := false

	currentID := f.Nodes[0].ID

	for currentID != "" {
		if ctx.Err() != nil {
			return e.fail(f, "", "", string(ErrFlowTimeout), "whole-flow deadline exceeded")
		}

		node, ok := f.NodeByID(currentID)
		if !ok {
			return e.fail(f, currentID, "", string(ErrDanglingNext), fmt.Sprintf("routing referenced unknown node %q", currentID))
		}

		if node.Hoop == "" {
			currentID = f.NextByPosition(f.IndexOf(node.ID))
			continue
		}

		handler, ok := e.Registry.Lookup(node.Hoop)
		if !ok {
			e.emitEvent(ctx, fc, f.FlowID, node, nil, nil, "fail", string(ErrUnknownHoop))
			return e.fail(f, node.ID, node.Hoop, string(ErrUnknownHoop), fmt.Sprintf("no handler registered for hoop %q", node.Hoop))
		}

		if handler.Classification() == registry.Branch {
			nextID, engErr := e.stepBranch(ctx, fc, f, node, handler)
			if engErr != nil {
				e.emitEvent(ctx, fc, f.FlowID, node, nil, nil, "fail", string(engErr.Kind))
				return e.fail(f, node.ID, node.Hoop, string(engErr.Kind), engErr.Msg)
			}
			currentID = nextID
			continue
		}

		res, rendered, err := e.stepAction(ctx, fc, node, handler)
		if err != nil {
			kind, msg := classifyStepError(ctx, err)
			e.emitEvent(ctx, fc, f.FlowID, node, rendered, nil, "fail", msg)
			return e.fail(f, node.ID, node.Hoop, kind, msg)
		}

		fc.SetOutput(node.ID, res.Output)
		lastActionOutput = res.Output
		hadAction = true
		e.emitEvent(ctx, fc, f.FlowID, node, rendered, res.Output, "success", "")

		currentID = nextNodeID(res.NextID, node, f.NextByPosition(f.IndexOf(node.ID)))
	}

	return e.succeed(f, fc, lastActionOutput, hadAction)
}

// stepBranch evaluates a Branch handler (built-in: IfNode) and returns the
// concrete next node id, mapping the handler's symbolic true/false result
// back onto the node's declared true_path/false_path.
func (e *Engine) stepBranch(ctx context.Context, fc *flowcontext.FlowContext, f *flow.Flow, node *flow.Node, handler registry.NodeHandler) (string, *EngineError) {
	if node.InputFrom == "" {
		return "", newEngineError(ErrMissingUpstreamOutput, node.ID, node.Hoop, "branch node has no input_from")
	}
	upstreamOutput, ok := fc.Output(node.InputFrom)
	if !ok {
		return "", newEngineError(ErrMissingUpstreamOutput, node.ID, node.Hoop, fmt.Sprintf("upstream node %q has not produced output", node.InputFrom))
	}

	snapshot := fc.Snapshot()
	rendered := toValueMap(render.Render(node.Parameters, snapshot))

	fieldV, ok := rendered["field"]
	if !ok {
		return "", newEngineError(ErrMissingUpstreamOutput, node.ID, node.Hoop, "branch node missing required field parameter")
	}
	field, _ := fieldV.AsString()

	for _, name := range handler.RequiredFields() {
		if _, ok := rendered[name]; !ok {
			return "", newEngineError(ErrorKind(registry.ErrInvalidInput), node.ID, node.Hoop, "missing required field: "+name)
		}
	}

	lhs, ok := render.ExtractField(upstreamOutput, field)
	if !ok {
		// The upstream node ran, but its output has no such field: a
		// contract violation on the branch node's own declaration, not a
		// missing upstream execution.
		return "", newEngineError(ErrMissingUpstreamOutput, node.ID, node.Hoop, fmt.Sprintf("upstream output %q has no field %q", node.InputFrom, field))
	}

	branchInput := map[string]value.Value{
		handlers.OperandLHS:      lhs,
		handlers.OperandOperator: rendered["operator"],
		handlers.OperandRHS:      rendered["value"],
	}

	res, err := handler.Execute(ctx, branchInput)
	if err != nil {
		var hErr *registry.HandlerError
		kind := "invalid_input"
		if errors.As(err, &hErr) {
			kind = string(hErr.Kind)
		}
		return "", newEngineError(ErrorKind(kind), node.ID, node.Hoop, err.Error())
	}

	var targetPath string
	switch res.NextID {
	case handlers.BranchTrue:
		targetPath = node.TruePath
	case handlers.BranchFalse:
		targetPath = node.FalsePath
	default:
		targetPath = res.NextID
	}

	if targetPath == "" {
		return "", nil // run ends cleanly
	}
	if _, ok := f.NodeByID(targetPath); !ok {
		return "", newEngineError(ErrDanglingNext, node.ID, node.Hoop, fmt.Sprintf("branch path points at unknown node %q", targetPath))
	}
	return targetPath, nil
}

// stepAction renders, invokes (with retry), and times an Action handler. It
// returns the rendered input alongside the outcome so the caller can attach
// it to the node's ExecutionEvent regardless of success or failure.
func (e *Engine) stepAction(ctx context.Context, fc *flowcontext.FlowContext, node *flow.Node, handler registry.NodeHandler) (registry.Result, map[string]value.Value, error) {
	rawInput, err := e.rawInput(fc, node)
	if err != nil {
		return registry.Result{}, nil, err
	}

	snapshot := fc.Snapshot()
	rendered := toValueMap(render.Render(rawInput, snapshot))

	for _, field := range handler.RequiredFields() {
		if _, ok := rendered[field]; !ok {
			return registry.Result{}, rendered, registry.NewHandlerError(registry.ErrInvalidInput, "missing required field: "+field)
		}
	}

	callCtx := ctx
	if handler.Timeout() > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, handler.Timeout())
		defer cancel()
	}

	start := time.Now()
	var result registry.Result
	retryErr := handlers.WithRetry(callCtx, handler.Retry(), func(attempt int) {
		e.Metrics.ObserveRetry(node.ID, "retried")
	}, func() error {
		res, err := handler.Execute(callCtx, rendered)
		result = res
		return err
	})
	e.Metrics.ObserveNodeExecution(node.ID, node.Hoop, time.Since(start).Seconds())

	if retryErr != nil {
		return registry.Result{}, rendered, retryErr
	}
	return result, rendered, nil
}

// rawInput builds a node's pre-render input map per spec.md §4.5 step 3b:
// declared parameters take precedence when present; otherwise, if
// input_from is set, the upstream node's whole output is forwarded.
func (e *Engine) rawInput(fc *flowcontext.FlowContext, node *flow.Node) (map[string]interface{}, error) {
	if len(node.Parameters) > 0 {
		return node.Parameters, nil
	}
	if node.InputFrom != "" {
		upstream, ok := fc.Output(node.InputFrom)
		if !ok {
			return nil, newEngineError(ErrMissingUpstreamOutput, node.ID, node.Hoop, fmt.Sprintf("upstream node %q has not produced output", node.InputFrom))
		}
		out := make(map[string]interface{}, len(upstream))
		for k, v := range upstream {
			out[k] = v.ToAny()
		}
		return out, nil
	}
	return map[string]interface{}{}, nil
}

func toValueMap(m map[string]interface{}) map[string]value.Value {
	out := make(map[string]value.Value, len(m))
	for k, v := range m {
		out[k] = value.FromAny(v)
	}
	return out
}

// nextNodeID computes the successor per the routing precedence law
// (spec.md §4.5 step 3f / §8 property 2): handler-supplied next_id, then
// node.jump_to, then positionally-next, then end of run.
func nextNodeID(handlerNextID string, node *flow.Node, positional string) string {
	if handlerNextID != "" {
		return handlerNextID
	}
	if node.JumpTo != "" {
		return node.JumpTo
	}
	return positional
}

// classifyStepError turns a stepAction failure into an (engine-or-handler
// error kind, message) pair. A context deadline tripped by the caller's
// own ctx (not the handler's narrower per-call timeout) is reclassified as
// flow_timeout, per spec.md §5.
func classifyStepError(ctx context.Context, err error) (string, string) {
	if ctx.Err() == context.DeadlineExceeded || ctx.Err() == context.Canceled {
		return string(ErrFlowTimeout), "whole-flow deadline exceeded"
	}

	var engErr *EngineError
	if errors.As(err, &engErr) {
		return string(engErr.Kind), engErr.Msg
	}
	var hErr *registry.HandlerError
	if errors.As(err, &hErr) {
		return string(hErr.Kind), hErr.Msg
	}
	return "remote_unavailable", err.Error()
}

func (e *Engine) emitEvent(ctx context.Context, fc *flowcontext.FlowContext, flowID string, node *flow.Node, input, output map[string]value.Value, status, errMsg string) {
	ev := publisher.Event{
		EventID:   uuid.New().String(),
		FlowID:    flowID,
		NodeID:    node.ID,
		Hoop:      node.Hoop,
		Input:     input,
		Output:    output,
		UserID:    fc.UserID,
		TenantID:  fc.TenantID,
		Status:    status,
		Error:     errMsg,
		Timestamp: time.Now().Unix(),
	}
	data, err := ev.Serialize()
	if err != nil {
		e.Log.Error("failed to serialize execution event", "node_id", node.ID, "error", err)
		return
	}
	if err := e.Publisher.Publish(ctx, fc.UserID, data); err != nil {
		e.Log.Warn("failed to publish execution event", "node_id", node.ID, "error", err)
	}
}

func (e *Engine) succeed(f *flow.Flow, fc *flowcontext.FlowContext, lastOutput map[string]value.Value, hadAction bool) Result {
	e.Metrics.ObserveFlowExecution(f.FlowID, string(StatusSuccess))

	output := lastOutput
	if !hadAction {
		if terminal, ok := fc.Output(TerminalNodeID); ok {
			output = terminal
		}
	}
	if output == nil {
		output = map[string]value.Value{}
	}
	return Result{Output: output, Status: StatusSuccess}
}

func (e *Engine) fail(f *flow.Flow, nodeID, hoop, kind, msg string) Result {
	e.Metrics.ObserveFlowExecution(f.FlowID, string(StatusFail))
	return Result{
		Status: StatusFail,
		Failure: &Failure{
			NodeID:  nodeID,
			Hoop:    hoop,
			Kind:    kind,
			Message: msg,
		},
	}
}
