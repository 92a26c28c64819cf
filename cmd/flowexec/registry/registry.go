// Package registry implements the Node Registry: a process-wide table
// mapping hoop kind to handler (spec.md §4.4).
package registry

import (
	"context"
	"time"

	"github.com/lyzr/flowexec/cmd/flowexec/value"
)

// Classification tags how the engine should treat a handler's result.
type Classification int

const (
	// Action handlers produce an output and, on success, route to the
	// handler's next_id, else the node's jump_to, else the positionally next
	// node.
	Action Classification = iota
	// Branch handlers select between true_path and false_path and never
	// produce a user-visible output.
	Branch
)

// ErrorKind is the typed error taxonomy handlers return, per spec.md §4.4/§7.
type ErrorKind string

const (
	ErrInvalidInput     ErrorKind = "invalid_input"
	ErrRemoteUnavailable ErrorKind = "remote_unavailable"
	ErrRemoteError       ErrorKind = "remote_error"
	ErrTimeout           ErrorKind = "timeout"
)

// HandlerError is the typed error a NodeHandler returns.
type HandlerError struct {
	Kind ErrorKind
	Msg  string
}

func (e *HandlerError) Error() string { return string(e.Kind) + ": " + e.Msg }

func NewHandlerError(kind ErrorKind, msg string) *HandlerError {
	return &HandlerError{Kind: kind, Msg: msg}
}

// Result is what a handler returns on success.
type Result struct {
	// Output is populated for Action handlers; empty for Branch handlers.
	Output map[string]value.Value
	// NextID is the handler-supplied next node id. For Branch handlers this
	// is either a symbolic result (the built-in IfNode returns "true" or
	// "false", which the engine maps onto the node's true_path/false_path)
	// or a literal node id. For Action handlers this is
	// normally empty (the engine falls through to jump_to/positional), but
	// a handler may set it to force a specific successor.
	NextID string
}

// RetryPolicy controls how many times and with what backoff an Action
// handler's remote_unavailable errors are retried (spec.md §5).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Cap         time.Duration
}

// DefaultRetryPolicy matches spec.md §5: 3 attempts, base 200ms, cap 2s
// (the backoff wrapper applies the factor-2 exponential growth itself).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, Cap: 2 * time.Second}
}

// NodeHandler is the uniform handler signature every hoop kind implements.
type NodeHandler interface {
	// Execute runs the handler against its rendered input and the context
	// snapshot. It must not mutate the flow graph and may read only its
	// rendered input plus the context snapshot it is given.
	Execute(ctx context.Context, rendered map[string]value.Value) (Result, error)

	// Classification reports whether this handler is an Action or a Branch.
	Classification() Classification

	// RequiredFields names the rendered-input fields this handler requires,
	// used by the engine to surface contract violations uniformly.
	RequiredFields() []string

	// Timeout is this handler's per-call deadline.
	Timeout() time.Duration

	// Retry is this handler's retry policy. Branch handlers typically
	// return a single-attempt policy (MaxAttempts: 1) since they don't make
	// remote calls.
	Retry() RetryPolicy
}

// Registry is the process-wide hoop-kind → handler table. It is read-only
// after construction and safe to share by reference across concurrent
// executions.
type Registry struct {
	handlers map[string]NodeHandler
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]NodeHandler)}
}

// Register binds a hoop kind to its handler. Intended to be called once at
// startup, before the registry is shared across executions.
func (r *Registry) Register(hoop string, h NodeHandler) {
	r.handlers[hoop] = h
}

// Lookup returns the handler bound to hoop and whether one was registered.
func (r *Registry) Lookup(hoop string) (NodeHandler, bool) {
	h, ok := r.handlers[hoop]
	return h, ok
}
