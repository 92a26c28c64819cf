package engine

import "fmt"

// ErrorKind classifies an engine-level failure, as distinct from a
// handler-level HandlerError (spec.md §7 "Engine errors").
type ErrorKind string

const (
	ErrUnknownHoop           ErrorKind = "unknown_hoop"
	ErrMissingUpstreamOutput ErrorKind = "missing_upstream_output"
	ErrDanglingNext          ErrorKind = "dangling_next"
	ErrFlowTimeout           ErrorKind = "flow_timeout"
)

// EngineError is a terminal engine-level failure, scoped to the node being
// stepped when it was raised.
type EngineError struct {
	Kind   ErrorKind
	NodeID string
	Hoop   string
	Msg    string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine error [%s] node=%s hoop=%s: %s", e.Kind, e.NodeID, e.Hoop, e.Msg)
}

func newEngineError(kind ErrorKind, nodeID, hoop, msg string) *EngineError {
	return &EngineError{Kind: kind, NodeID: nodeID, Hoop: hoop, Msg: msg}
}
