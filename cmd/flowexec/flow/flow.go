// Package flow implements the Flow Model & Loader: parsing, validating, and
// round-tripping flows between their textual (JSON) and binary
// (field-tagged, length-prefixed) forms.
package flow

import "fmt"

// Node is a single step in a Flow.
type Node struct {
	ID         string
	Hoop       string // empty means pass-through
	Parameters map[string]interface{}
	InputFrom  string
	TruePath   string
	FalsePath  string
	JumpTo     string
}

// Context carries the optional seed identity/input a flow file may declare.
type Context struct {
	UserID    string
	TenantID  string
	SessionID string
	Input     map[string]interface{}
}

// Flow is a named execution plan: an ordered sequence of Nodes plus the
// optional seed Context.
type Flow struct {
	FlowID    string
	TriggerID string
	Context   Context
	Nodes     []Node
}

// NodeByID returns the node with the given id and whether it was found.
func (f *Flow) NodeByID(id string) (*Node, bool) {
	for i := range f.Nodes {
		if f.Nodes[i].ID == id {
			return &f.Nodes[i], true
		}
	}
	return nil, false
}

// IndexOf returns the declaration-order index of the node with the given
// id, or -1 if absent.
func (f *Flow) IndexOf(id string) int {
	for i := range f.Nodes {
		if f.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// NextByPosition returns the id of the node declared immediately after the
// node at the given index, or "" if it was the last node.
func (f *Flow) NextByPosition(index int) string {
	if index < 0 || index+1 >= len(f.Nodes) {
		return ""
	}
	return f.Nodes[index+1].ID
}

// LoadErrorKind classifies a Flow Loader failure, per spec.md §4.2/§7.
type LoadErrorKind string

const (
	ErrMissing    LoadErrorKind = "missing"
	ErrDuplicate  LoadErrorKind = "duplicate"
	ErrDangling   LoadErrorKind = "danglingRef"
	ErrMalformed  LoadErrorKind = "malformed"
)

// LoadError names the offending field alongside its failure kind.
type LoadError struct {
	Kind  LoadErrorKind
	Field string
	Msg   string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("flow load error [%s] field=%s: %s", e.Kind, e.Field, e.Msg)
}

func newLoadError(kind LoadErrorKind, field, msg string) *LoadError {
	return &LoadError{Kind: kind, Field: field, Msg: msg}
}

// Validate asserts the invariants from spec.md §3/§4.2: non-empty flow_id,
// unique node ids, at least one node, and every non-empty input_from/
// true_path/false_path/jump_to reference resolving to an existing node id.
func (f *Flow) Validate() error {
	if f.FlowID == "" {
		return newLoadError(ErrMissing, "flow_id", "flow_id must not be empty")
	}
	if len(f.Nodes) == 0 {
		return newLoadError(ErrMissing, "nodes", "flow must declare at least one node")
	}

	seen := make(map[string]bool, len(f.Nodes))
	for _, n := range f.Nodes {
		if n.ID == "" {
			return newLoadError(ErrMissing, "nodes[].id", "node id must not be empty")
		}
		if seen[n.ID] {
			return newLoadError(ErrDuplicate, "nodes[].id", fmt.Sprintf("duplicate node id %q", n.ID))
		}
		seen[n.ID] = true
	}

	checkRef := func(field, nodeID, ref string) error {
		if ref == "" {
			return nil
		}
		if !seen[ref] {
			return newLoadError(ErrDangling, field, fmt.Sprintf("node %q references unknown node %q", nodeID, ref))
		}
		return nil
	}

	for _, n := range f.Nodes {
		if err := checkRef("input_from", n.ID, n.InputFrom); err != nil {
			return err
		}
		if err := checkRef("true_path", n.ID, n.TruePath); err != nil {
			return err
		}
		if err := checkRef("false_path", n.ID, n.FalsePath); err != nil {
			return err
		}
		if err := checkRef("jump_to", n.ID, n.JumpTo); err != nil {
			return err
		}
	}

	return nil
}
