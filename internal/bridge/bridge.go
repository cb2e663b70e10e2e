// Package bridge implements the client side of the conversation protocol:
// it translates a conversation history into a single outbound inference
// request, normalizes the remote response, and exposes a liveness probe.
// The bridge is stateless; callers pass the full history on every call.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	apperrors "chatbridge/internal/errors"
	"chatbridge/internal/model"
)

// Sampling parameters sent with every chat-contract request. These are fixed
// protocol constants, not configuration.
const (
	temperature = 0.7
	maxTokens   = 1024
)

const healthPath = "/health"

// BackendError is returned when the backend answers with a non-success HTTP
// status. It carries the status and raw body for the logs; user-facing code
// maps it to a generic fallback via errors.Is(err, apperrors.ErrBackend).
type BackendError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned %s: %s", e.Status, e.Body)
}

func (e *BackendError) Unwrap() error { return apperrors.ErrBackend }

// Bridge defines the outbound interface to the inference backend.
type Bridge interface {
	// SubmitQuery sends the conversation's latest user message to the
	// backend and returns the assistant's answer text.
	SubmitQuery(ctx context.Context, history []model.Message) (string, error)

	// CheckAvailability reports whether the backend answers its health
	// endpoint with a success status. It never returns an error, so it is
	// safe to call unconditionally.
	CheckAvailability(ctx context.Context) bool
}

// Contract encodes one backend request/response shape. The two deployments
// (general chat vs. data query) are mutually exclusive; exactly one contract
// is active per bridge instance.
type Contract interface {
	// Path is the endpoint path appended to the base URL.
	Path() string
	// EncodeRequest builds the JSON request body for a query.
	EncodeRequest(query, modelID string) (any, error)
	// DecodeResponse extracts the answer text from a 2xx response body.
	DecodeResponse(body []byte) (string, error)
}

type httpBridge struct {
	client   *http.Client
	baseURL  string
	modelID  string
	contract Contract
}

// New creates a Bridge speaking the given contract against baseURL.
func New(baseURL, modelID string, contract Contract) Bridge {
	return &httpBridge{
		client:   &http.Client{},
		baseURL:  baseURL,
		modelID:  modelID,
		contract: contract,
	}
}

func (b *httpBridge) SubmitQuery(ctx context.Context, history []model.Message) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("%w: history must not be empty", apperrors.ErrValidation)
	}
	last := history[len(history)-1]
	if last.Role != model.RoleUser {
		return "", fmt.Errorf("%w: last message must have role %q, got %q",
			apperrors.ErrValidation, model.RoleUser, last.Role)
	}

	// Only the final message's content is transmitted. Prior turns are
	// threaded through the signature but the backend contracts carry a
	// single message; see the package tests for the documented gap.
	payload, err := b.contract.EncodeRequest(last.Content, b.modelID)
	if err != nil {
		return "", fmt.Errorf("could not encode request: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("could not marshal request: %w", err)
	}

	endpoint := b.baseURL + b.contract.Path()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("could not create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", apperrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: could not read response body: %v", apperrors.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("Backend returned non-success status",
			"status", resp.Status, "endpoint", b.contract.Path(), "body", string(bodyBytes))
		return "", &BackendError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(bodyBytes)}
	}

	answer, err := b.contract.DecodeResponse(bodyBytes)
	if err != nil {
		return "", err
	}
	return answer, nil
}

func (b *httpBridge) CheckAvailability(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+healthPath, nil)
	if err != nil {
		return false
	}
	resp, err := b.client.Do(httpReq)
	if err != nil {
		slog.Debug("Health probe failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// IsCancellation reports whether err is the caller aborting the request, as
// opposed to a backend or transport failure.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
