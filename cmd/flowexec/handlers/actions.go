package handlers

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/lyzr/flowexec/cmd/flowexec/registry"
	"github.com/lyzr/flowexec/cmd/flowexec/value"
)

// classifyTransportError maps a collaborator call's raw error into the
// registry.ErrorKind taxonomy: context deadline exceeded → timeout,
// *remoteError (4xx) → remote_error, anything else (connection refused,
// DNS failure, 5xx) → remote_unavailable, which is the only kind the
// retry wrapper retries.
func classifyTransportError(err error) *registry.HandlerError {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return registry.NewHandlerError(registry.ErrTimeout, err.Error())
	}
	var rErr *remoteError
	if errors.As(err, &rErr) {
		return registry.NewHandlerError(registry.ErrRemoteError, err.Error())
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return registry.NewHandlerError(registry.ErrTimeout, err.Error())
	}
	return registry.NewHandlerError(registry.ErrRemoteUnavailable, err.Error())
}

func requireString(rendered map[string]value.Value, field string) (string, error) {
	v, ok := rendered[field]
	if !ok {
		return "", registry.NewHandlerError(registry.ErrInvalidInput, "missing required field: "+field)
	}
	s, ok := v.AsString()
	if !ok {
		return "", registry.NewHandlerError(registry.ErrInvalidInput, "field is not a string: "+field)
	}
	return s, nil
}

// baseAction holds the parts common to every external-call action handler:
// the collaborator client it calls, its timeout, and its retry policy.
type baseAction struct {
	client  *CollaboratorClient
	timeout time.Duration
	retry   registry.RetryPolicy
}

func (a *baseAction) Classification() registry.Classification { return registry.Action }
func (a *baseAction) Timeout() time.Duration                  { return a.timeout }
func (a *baseAction) Retry() registry.RetryPolicy              { return a.retry }

// defaultTimeout is spec.md §5's "default 5-10 seconds depending on kind".
const defaultTimeout = 8 * time.Second

func newBaseAction(client *CollaboratorClient) baseAction {
	return baseAction{client: client, timeout: defaultTimeout, retry: registry.DefaultRetryPolicy()}
}

// --- FAQ / RAG search -------------------------------------------------

// FAQSearchHandler calls the fuzzy search collaborator (spec.md §6
// "Search/QA: fuzzy_search").
type FAQSearchHandler struct{ baseAction }

func NewFAQSearchHandler(client *CollaboratorClient) *FAQSearchHandler {
	return &FAQSearchHandler{newBaseAction(client)}
}

func (h *FAQSearchHandler) RequiredFields() []string { return []string{"query", "tenant_id"} }

func (h *FAQSearchHandler) Execute(ctx context.Context, rendered map[string]value.Value) (registry.Result, error) {
	query, err := requireString(rendered, "query")
	if err != nil {
		return registry.Result{}, err
	}
	tenantID, err := requireString(rendered, "tenant_id")
	if err != nil {
		return registry.Result{}, err
	}

	var resp struct {
		Answer string `json:"answer"`
	}
	payload := map[string]string{"query": query, "tenant_id": tenantID}
	if err := h.client.PostJSON(ctx, "/faq/search", payload, &resp); err != nil {
		return registry.Result{}, classifyTransportError(err)
	}

	return registry.Result{Output: map[string]value.Value{"answer": value.String(resp.Answer)}}, nil
}

// --- LLM answer --------------------------------------------------------

// LLMAnswerHandler calls the generate_answer collaborator.
type LLMAnswerHandler struct{ baseAction }

func NewLLMAnswerHandler(client *CollaboratorClient) *LLMAnswerHandler {
	return &LLMAnswerHandler{newBaseAction(client)}
}

func (h *LLMAnswerHandler) RequiredFields() []string { return []string{"query", "tenant_id"} }

func (h *LLMAnswerHandler) Execute(ctx context.Context, rendered map[string]value.Value) (registry.Result, error) {
	question, err := requireString(rendered, "query")
	if err != nil {
		return registry.Result{}, err
	}
	tenantID, err := requireString(rendered, "tenant_id")
	if err != nil {
		return registry.Result{}, err
	}

	var resp struct {
		Answer string `json:"answer"`
	}
	payload := map[string]string{"question": question, "tenant_id": tenantID}
	if err := h.client.PostJSON(ctx, "/llm/answer", payload, &resp); err != nil {
		return registry.Result{}, classifyTransportError(err)
	}

	return registry.Result{Output: map[string]value.Value{"answer": value.String(resp.Answer)}}, nil
}

// --- Complaint log -------------------------------------------------------

// ComplaintLogHandler calls the complaint log collaborator.
type ComplaintLogHandler struct{ baseAction }

func NewComplaintLogHandler(client *CollaboratorClient) *ComplaintLogHandler {
	return &ComplaintLogHandler{newBaseAction(client)}
}

func (h *ComplaintLogHandler) RequiredFields() []string { return []string{"user_id", "message"} }

func (h *ComplaintLogHandler) Execute(ctx context.Context, rendered map[string]value.Value) (registry.Result, error) {
	userID, err := requireString(rendered, "user_id")
	if err != nil {
		return registry.Result{}, err
	}
	message, err := requireString(rendered, "message")
	if err != nil {
		return registry.Result{}, err
	}

	payload := map[string]string{"user_id": userID, "message": message}
	if product, ok := rendered["product"]; ok {
		if s, ok := product.AsString(); ok {
			payload["product"] = s
		}
	}
	if source, ok := rendered["source"]; ok {
		if s, ok := source.AsString(); ok {
			payload["source"] = s
		}
	}
	if emotion, ok := rendered["emotion"]; ok {
		if s, ok := emotion.AsString(); ok {
			payload["emotion"] = s
		}
	}

	var resp struct {
		ComplaintID string `json:"complaint_id"`
	}
	if err := h.client.PostJSON(ctx, "/complaints", payload, &resp); err != nil {
		return registry.Result{}, classifyTransportError(err)
	}

	return registry.Result{Output: map[string]value.Value{"complaint_id": value.String(resp.ComplaintID)}}, nil
}

// --- Document CRUD -------------------------------------------------------

// DocumentCRUDOp selects which document-collaborator endpoint a
// DocumentCRUDHandler calls.
type DocumentCRUDOp string

const (
	DocCreate         DocumentCRUDOp = "create"
	DocUpdate         DocumentCRUDOp = "update"
	DocDelete         DocumentCRUDOp = "delete"
	DocUpdateBySearch DocumentCRUDOp = "update_by_search"
)

var docCRUDPaths = map[DocumentCRUDOp]string{
	DocCreate:         "/documents",
	DocUpdate:         "/documents/update",
	DocDelete:         "/documents/delete",
	DocUpdateBySearch: "/documents/update_by_search",
}

// DocumentCRUDHandler calls one of the tenant-scoped document CRUD
// collaborator endpoints (spec.md §6 "Document CRUD: create/update/delete/
// update-by-search").
type DocumentCRUDHandler struct {
	baseAction
	Op DocumentCRUDOp
}

func NewDocumentCRUDHandler(client *CollaboratorClient, op DocumentCRUDOp) *DocumentCRUDHandler {
	return &DocumentCRUDHandler{baseAction: newBaseAction(client), Op: op}
}

func (h *DocumentCRUDHandler) RequiredFields() []string { return []string{"tenant_id"} }

func (h *DocumentCRUDHandler) Execute(ctx context.Context, rendered map[string]value.Value) (registry.Result, error) {
	tenantID, err := requireString(rendered, "tenant_id")
	if err != nil {
		return registry.Result{}, err
	}

	payload := map[string]interface{}{"tenant_id": tenantID}
	for k, v := range rendered {
		if k == "tenant_id" {
			continue
		}
		payload[k] = v.ToAny()
	}

	var resp struct {
		Result map[string]interface{} `json:"result"`
	}
	path, ok := docCRUDPaths[h.Op]
	if !ok {
		return registry.Result{}, registry.NewHandlerError(registry.ErrInvalidInput, "unknown document CRUD op: "+string(h.Op))
	}
	if err := h.client.PostJSON(ctx, path, payload, &resp); err != nil {
		return registry.Result{}, classifyTransportError(err)
	}

	return registry.Result{Output: map[string]value.Value{"result": value.FromAny(resp.Result)}}, nil
}

// --- Notification send ---------------------------------------------------

// NotifySendHandler calls the notification sink collaborator with an
// arbitrary rendered payload (spec.md §6 "Notification sink: publish").
type NotifySendHandler struct{ baseAction }

func NewNotifySendHandler(client *CollaboratorClient) *NotifySendHandler {
	return &NotifySendHandler{newBaseAction(client)}
}

func (h *NotifySendHandler) RequiredFields() []string { return nil }

func (h *NotifySendHandler) Execute(ctx context.Context, rendered map[string]value.Value) (registry.Result, error) {
	payload := make(map[string]interface{}, len(rendered))
	for k, v := range rendered {
		payload[k] = v.ToAny()
	}

	if err := h.client.PostJSON(ctx, "/notify", payload, nil); err != nil {
		return registry.Result{}, classifyTransportError(err)
	}

	return registry.Result{Output: map[string]value.Value{"status": value.String("sent")}}, nil
}

// --- no_op pass-through checkpoint ---------------------------------------

// NoOpHandler is an explicitly registered hoop kind for a named checkpoint
// node with no side effects, distinct from the empty-hoop skip path —
// useful for flows that branch back into a common join point by name.
type NoOpHandler struct{}

func (h *NoOpHandler) Classification() registry.Classification { return registry.Action }
func (h *NoOpHandler) RequiredFields() []string                 { return nil }
func (h *NoOpHandler) Timeout() time.Duration                   { return 0 }
func (h *NoOpHandler) Retry() registry.RetryPolicy              { return registry.RetryPolicy{MaxAttempts: 1} }

func (h *NoOpHandler) Execute(ctx context.Context, rendered map[string]value.Value) (registry.Result, error) {
	return registry.Result{Output: map[string]value.Value{}}, nil
}
