// Package flowcontext implements the per-execution mutable state: identity
// fields, user-injected input, and per-node outputs (spec.md §4.3).
package flowcontext

import (
	"github.com/lyzr/flowexec/cmd/flowexec/value"
)

// FlowContext is owned exclusively by a single execution; it is never
// shared across concurrent runs.
type FlowContext struct {
	UserID    string
	TenantID  string
	SessionID string
	Input     map[string]value.Value
	Outputs   map[string]map[string]value.Value
}

// New creates an empty FlowContext seeded with the flow's declared
// identity fields and input.
func New(userID, tenantID, sessionID string, seedInput map[string]interface{}) *FlowContext {
	fc := &FlowContext{
		UserID:    userID,
		TenantID:  tenantID,
		SessionID: sessionID,
		Input:     make(map[string]value.Value),
		Outputs:   make(map[string]map[string]value.Value),
	}
	for k, v := range seedInput {
		fc.Input[k] = value.FromAny(v)
	}
	return fc
}

// Bootstrap merges caller-supplied input into the context and promotes
// input.input.{user_id,tenant_id} into the identity fields, first-write-wins,
// per spec.md §4.5 step 1 and §8 property 4.
func (fc *FlowContext) Bootstrap(callerInput map[string]interface{}) {
	for k, v := range callerInput {
		fc.Input[k] = value.FromAny(v)
	}

	nested, ok := fc.Input["input"].AsMap()
	if !ok {
		return
	}

	if fc.TenantID == "" {
		if tid, ok := nested["tenant_id"]; ok {
			if s, ok := tid.AsString(); ok {
				fc.TenantID = s
			}
		}
	}
	if fc.UserID == "" {
		if uid, ok := nested["user_id"]; ok {
			if s, ok := uid.AsString(); ok {
				fc.UserID = s
			}
		}
	}
}

// SetOutput stores a node's output atomically under its id. Called exactly
// once, on success, per node.
func (fc *FlowContext) SetOutput(nodeID string, output map[string]value.Value) {
	fc.Outputs[nodeID] = output
}

// Output returns a previously stored node output and whether it exists.
func (fc *FlowContext) Output(nodeID string) (map[string]value.Value, bool) {
	out, ok := fc.Outputs[nodeID]
	return out, ok
}

// Snapshot builds the per-node context view the renderer consumes
// (spec.md §4.1 "Context layering"): identity fields, then FlowContext.Input
// spread into the root, then Outputs keyed by node id (later keys win), plus
// a nested "input" mirror of the caller-supplied input.
func (fc *FlowContext) Snapshot() map[string]value.Value {
	snap := make(map[string]value.Value, len(fc.Input)+len(fc.Outputs)+4)

	snap["user_id"] = value.String(fc.UserID)
	snap["tenant_id"] = value.String(fc.TenantID)
	snap["session_id"] = value.String(fc.SessionID)

	// Nested input.* mirror, so both {{user_id}} and {{input.user_id}} resolve.
	// Set before the spread below so a caller-supplied top-level "input" key
	// (spec.md §8 scenario S1) wins the collision instead of being clobbered.
	snap["input"] = value.Map(fc.Input)

	for k, v := range fc.Input {
		snap[k] = v
	}

	for nodeID, output := range fc.Outputs {
		snap[nodeID] = value.Map(output)
	}

	return snap
}
