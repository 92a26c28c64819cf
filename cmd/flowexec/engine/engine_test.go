package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lyzr/flowexec/cmd/flowexec/flow"
	"github.com/lyzr/flowexec/cmd/flowexec/handlers"
	"github.com/lyzr/flowexec/cmd/flowexec/publisher"
	"github.com/lyzr/flowexec/cmd/flowexec/registry"
	"github.com/lyzr/flowexec/cmd/flowexec/value"
	"github.com/lyzr/flowexec/common/logger"
	"github.com/lyzr/flowexec/common/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubHandler is a configurable registry.NodeHandler for engine tests.
type stubHandler struct {
	class    registry.Classification
	required []string
	timeout  time.Duration
	retry    registry.RetryPolicy
	execute  func(ctx context.Context, rendered map[string]value.Value) (registry.Result, error)
}

func (s *stubHandler) Classification() registry.Classification { return s.class }
func (s *stubHandler) RequiredFields() []string                { return s.required }
func (s *stubHandler) Timeout() time.Duration                  { return s.timeout }
func (s *stubHandler) Retry() registry.RetryPolicy             { return s.retry }
func (s *stubHandler) Execute(ctx context.Context, rendered map[string]value.Value) (registry.Result, error) {
	return s.execute(ctx, rendered)
}

// recordingPublisher captures every published event for assertion.
type recordingPublisher struct {
	mu     sync.Mutex
	events [][]byte
}

func (p *recordingPublisher) Publish(ctx context.Context, userID string, serialized []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, serialized)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func testLogger() *logger.Logger { return logger.New("error", "text") }

func newTestEngine(reg *registry.Registry, pub publisher.Publisher) *Engine {
	return New(reg, pub, metrics.NewRegistry(), testLogger())
}

func echoHandler(outputKey string) *stubHandler {
	return &stubHandler{
		class: registry.Action,
		execute: func(ctx context.Context, rendered map[string]value.Value) (registry.Result, error) {
			return registry.Result{Output: map[string]value.Value{outputKey: rendered[outputKey]}}, nil
		},
	}
}

// TestRun_S1_FAQPassThrough mirrors spec.md §8 scenario S1.
func TestRun_S1_FAQPassThrough(t *testing.T) {
	reg := registry.New()
	reg.Register("rag_search_faq", &stubHandler{
		class: registry.Action,
		execute: func(ctx context.Context, rendered map[string]value.Value) (registry.Result, error) {
			return registry.Result{Output: map[string]value.Value{"answer": value.String("08:00-17:00")}}, nil
		},
	})
	reg.Register("send_bot_reply", echoHandler("message"))

	f := &flow.Flow{
		FlowID: "faq-flow",
		Nodes: []flow.Node{
			{ID: "fetch", Hoop: "rag_search_faq", Parameters: map[string]interface{}{
				"query":     "{{input.query}}",
				"tenant_id": "{{tenant_id}}",
			}},
			{ID: "reply", Hoop: "send_bot_reply", InputFrom: "fetch", Parameters: map[string]interface{}{
				"message": "{{fetch.answer}}",
			}},
		},
	}

	pub := &recordingPublisher{}
	e := newTestEngine(reg, pub)
	res := e.Run(context.Background(), f, map[string]interface{}{
		"tenant_id": "t1",
		"input":     map[string]interface{}{"query": "jam buka"},
	})

	require.Equal(t, StatusSuccess, res.Status)
	msg, ok := res.Output["message"].AsString()
	require.True(t, ok)
	assert.Equal(t, "08:00-17:00", msg)
	assert.Equal(t, 2, pub.count(), "both nodes should emit a success event")
}

// TestRun_S2_BranchTruePath mirrors spec.md §8 scenario S2.
func TestRun_S2_BranchTruePath(t *testing.T) {
	reg := registry.New()
	reg.Register("stub_score", &stubHandler{
		class: registry.Action,
		execute: func(ctx context.Context, rendered map[string]value.Value) (registry.Result, error) {
			return registry.Result{Output: map[string]value.Value{"score": value.Number(0.82)}}, nil
		},
	})
	reg.Register("IfNode", &handlers.IfNodeHandler{})

	f := &flow.Flow{
		FlowID: "branch-flow",
		Nodes: []flow.Node{
			{ID: "score", Hoop: "stub_score"},
			{ID: "chk", Hoop: "IfNode", InputFrom: "score", Parameters: map[string]interface{}{
				"field": "score", "operator": ">=", "value": 0.7,
			}, TruePath: "ok", FalsePath: "fallback"},
			{ID: "ok", Hoop: ""},
			{ID: "fallback", Hoop: ""},
		},
	}

	e := newTestEngine(reg, &recordingPublisher{})
	res := e.Run(context.Background(), f, nil)

	require.Equal(t, StatusSuccess, res.Status)
	score, ok := res.Output["score"].AsNumber()
	require.True(t, ok)
	assert.Equal(t, 0.82, score)
}

// TestRun_S3_MissingUpstream mirrors spec.md §8 scenario S3.
func TestRun_S3_MissingUpstream(t *testing.T) {
	reg := registry.New()
	reg.Register("consume", echoHandler("value"))

	f := &flow.Flow{
		FlowID: "missing-upstream-flow",
		Nodes: []flow.Node{
			{ID: "consumer", Hoop: "consume", InputFrom: "none"},
		},
	}

	pub := &recordingPublisher{}
	e := newTestEngine(reg, pub)
	res := e.Run(context.Background(), f, nil)

	require.Equal(t, StatusFail, res.Status)
	require.NotNil(t, res.Failure)
	assert.Equal(t, "missing_upstream_output", res.Failure.Kind)
	assert.Equal(t, 1, pub.count())
}

// TestRun_S4_RetryOnTransportError mirrors spec.md §8 scenario S4.
func TestRun_S4_RetryOnTransportError(t *testing.T) {
	attempts := 0
	reg := registry.New()
	reg.Register("flaky", &stubHandler{
		class: registry.Action,
		retry: registry.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Cap: 2 * time.Millisecond},
		execute: func(ctx context.Context, rendered map[string]value.Value) (registry.Result, error) {
			attempts++
			if attempts < 3 {
				return registry.Result{}, registry.NewHandlerError(registry.ErrRemoteUnavailable, "down")
			}
			return registry.Result{Output: map[string]value.Value{"ok": value.Bool(true)}}, nil
		},
	})

	f := &flow.Flow{
		FlowID: "retry-flow",
		Nodes:  []flow.Node{{ID: "n1", Hoop: "flaky"}},
	}

	e := newTestEngine(reg, &recordingPublisher{})
	res := e.Run(context.Background(), f, nil)

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 3, attempts)
}

// TestRun_S5_Deadline mirrors spec.md §8 scenario S5.
func TestRun_S5_Deadline(t *testing.T) {
	reg := registry.New()
	reg.Register("slow", &stubHandler{
		class:   registry.Action,
		timeout: 5 * time.Millisecond,
		retry:   registry.RetryPolicy{MaxAttempts: 1},
		execute: func(ctx context.Context, rendered map[string]value.Value) (registry.Result, error) {
			select {
			case <-ctx.Done():
				return registry.Result{}, registry.NewHandlerError(registry.ErrTimeout, "deadline exceeded")
			case <-time.After(200 * time.Millisecond):
				return registry.Result{Output: map[string]value.Value{}}, nil
			}
		},
	})

	f := &flow.Flow{
		FlowID: "deadline-flow",
		Nodes:  []flow.Node{{ID: "n1", Hoop: "slow"}},
	}

	e := newTestEngine(reg, &recordingPublisher{})
	start := time.Now()
	res := e.Run(context.Background(), f, nil)
	elapsed := time.Since(start)

	require.Equal(t, StatusFail, res.Status)
	assert.Equal(t, "timeout", res.Failure.Kind)
	assert.Less(t, elapsed, 100*time.Millisecond)
}

// TestRun_S6_EmptyHoopSkip mirrors spec.md §8 scenario S6.
func TestRun_S6_EmptyHoopSkip(t *testing.T) {
	reg := registry.New()
	reg.Register("stub", echoHandler("x"))

	f := &flow.Flow{
		FlowID: "skip-flow",
		Nodes: []flow.Node{
			{ID: "n1", Hoop: "stub", Parameters: map[string]interface{}{"x": "a"}},
			{ID: "skip", Hoop: ""},
			{ID: "n2", Hoop: "stub", Parameters: map[string]interface{}{"x": "b"}},
		},
	}

	pub := &recordingPublisher{}
	e := newTestEngine(reg, pub)
	res := e.Run(context.Background(), f, nil)

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 2, pub.count(), "the empty-hoop node must not emit an event")
}

// TestRun_RoutingPrecedence asserts spec.md §8 property 2: handler next_id
// beats node.jump_to beats positional order.
func TestRun_RoutingPrecedence(t *testing.T) {
	reg := registry.New()
	reg.Register("forcer", &stubHandler{
		class: registry.Action,
		execute: func(ctx context.Context, rendered map[string]value.Value) (registry.Result, error) {
			return registry.Result{Output: map[string]value.Value{}, NextID: "target"}, nil
		},
	})
	reg.Register("marker", echoHandler("hit"))

	f := &flow.Flow{
		FlowID: "routing-flow",
		Nodes: []flow.Node{
			{ID: "n1", Hoop: "forcer", JumpTo: "decoy"},
			{ID: "decoy", Hoop: "marker", Parameters: map[string]interface{}{"hit": "decoy"}},
			{ID: "target", Hoop: "marker", Parameters: map[string]interface{}{"hit": "target"}},
		},
	}

	e := newTestEngine(reg, &recordingPublisher{})
	res := e.Run(context.Background(), f, nil)

	require.Equal(t, StatusSuccess, res.Status)
	hit, _ := res.Output["hit"].AsString()
	assert.Equal(t, "target", hit)
}

// TestRun_UnknownHoop asserts spec.md §7's unknown_hoop engine error.
func TestRun_UnknownHoop(t *testing.T) {
	f := &flow.Flow{
		FlowID: "unknown-hoop-flow",
		Nodes:  []flow.Node{{ID: "n1", Hoop: "does_not_exist"}},
	}

	e := newTestEngine(registry.New(), &recordingPublisher{})
	res := e.Run(context.Background(), f, nil)

	require.Equal(t, StatusFail, res.Status)
	assert.Equal(t, "unknown_hoop", res.Failure.Kind)
}
