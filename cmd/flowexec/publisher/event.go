// Package publisher implements the Side-Effect Publisher: an at-least-once
// outbox that serializes per-node ExecutionEvents and hands them to an
// external sink, partitioned by user_id (spec.md §4.6).
package publisher

import (
	"encoding/json"

	"github.com/lyzr/flowexec/cmd/flowexec/value"
)

// Event is a record of one node's attempted execution (spec.md §3
// "ExecutionEvent"). The engine produces one for every attempted action
// node, success or failure, and for any node that fails (unknown hoop,
// failed branch evaluation); a branch node that routes successfully and an
// empty-hoop node produce none.
type Event struct {
	EventID   string                 `json:"event_id"`
	FlowID    string                 `json:"flow_id"`
	NodeID    string                 `json:"node_id"`
	Hoop      string                 `json:"hoop"`
	Input     map[string]value.Value `json:"input"`
	Output    map[string]value.Value `json:"output,omitempty"`
	UserID    string                 `json:"user_id"`
	TenantID  string                 `json:"tenant_id"`
	Status    string                 `json:"status"` // "success" | "fail"
	Error     string                 `json:"error,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// Serialize encodes the event to its wire payload. The publisher treats
// this payload as an opaque blob — the executor has no opinion on its
// transport framing beyond "bytes routed by user_id".
func (e Event) Serialize() ([]byte, error) {
	return json.Marshal(e)
}
