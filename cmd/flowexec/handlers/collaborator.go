// Package handlers implements the built-in node handlers: the IfNode
// branch handler and the external-call action handlers (spec.md §4.4).
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lyzr/flowexec/common/logger"
	"golang.org/x/time/rate"
)

// contextKey avoids collisions with other packages' context keys.
type contextKey string

const userIDKey contextKey = "flowexec-user-id"

// WithUserID attaches a user id to ctx so CollaboratorClient.PostJSON can surface
// it as an X-User-ID header on outbound collaborator calls.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func userIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok && v != ""
}

// CollaboratorClient is a timeout-scoped, rate-limited HTTP client bound to
// a single collaborator's base URL. One instance exists per collaborator
// contract (FAQ search, LLM answer, complaint log, document CRUD,
// notification sink), grounded on the teacher's context-to-header
// HTTPClient and per-kind HTTPWorker timeout handling.
type CollaboratorClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewCollaboratorClient builds a client for one collaborator endpoint.
// timeout bounds a single call; rps bounds the sustained call rate so a
// flow with many fan-out action nodes cannot overrun the collaborator.
func NewCollaboratorClient(baseURL string, timeout time.Duration, rps float64, log *logger.Logger) *CollaboratorClient {
	return &CollaboratorClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), max(1, int(rps))),
		log:     log,
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// PostJSON posts payload as JSON to baseURL+path and decodes the JSON
// response into out. Errors are classified by the caller into the
// registry.ErrorKind taxonomy (timeout vs. remote_unavailable vs.
// remote_error) — this method just reports what happened.
func (c *CollaboratorClient) PostJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if userID, ok := userIDFromContext(ctx); ok {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("collaborator returned %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode >= 400 {
		return &remoteError{status: resp.StatusCode, body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
	}
	return nil
}

// remoteError marks a 4xx response: the peer is reachable and responded,
// it just rejected the call. Lets classifyTransportError tell remote_error
// apart from remote_unavailable/timeout.
type remoteError struct {
	status int
	body   string
}

func (e *remoteError) Error() string {
	return fmt.Sprintf("collaborator rejected request (%d): %s", e.status, e.body)
}

// Collaborators bundles one CollaboratorClient per contract the built-in
// action handlers call, per spec.md §9's "explicitly constructed
// collaborator bundle" design note (replacing the source's process-global
// singletons).
type Collaborators struct {
	FAQSearch    *CollaboratorClient
	LLMAnswer    *CollaboratorClient
	ComplaintLog *CollaboratorClient
	DocumentCRUD *CollaboratorClient
	Notify       *CollaboratorClient
}
