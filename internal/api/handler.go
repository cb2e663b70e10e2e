package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "chatbridge/internal/errors"
	"chatbridge/internal/interfaces"
	"chatbridge/internal/model"
)

// ChatHandler handles HTTP requests for sessions and message streaming.
type ChatHandler struct {
	service interfaces.ChatService
}

func NewChatHandler(svc interfaces.ChatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// HandleCreateSession godoc
// @Summary      Create a session
// @Description  Starts a new, empty in-memory conversation.
// @Tags         Sessions
// @Produce      json
// @Success      201  {object}  session.Snapshot
// @Router       /v1/sessions [post]
func (h *ChatHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	snap := h.service.CreateSession()
	respondWithJSON(w, http.StatusCreated, snap)
}

// HandleListSessions godoc
// @Summary      List sessions
// @Description  Lists all live conversations. Sessions are in-memory only.
// @Tags         Sessions
// @Produce      json
// @Success      200  {array}  session.Snapshot
// @Router       /v1/sessions [get]
func (h *ChatHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.service.ListSessions())
}

// HandleGetSession godoc
// @Summary      Get a session
// @Description  Returns a conversation with its full message history.
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200        {object}  session.Snapshot
// @Failure      404        {object}  ErrorResponse
// @Router       /v1/sessions/{sessionID} [get]
func (h *ChatHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	snap, err := h.service.GetSession(sessionID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

// HandleDeleteSession godoc
// @Summary      Delete a session
// @Description  Cancels any in-flight request and removes the conversation.
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200        {object}  StatusResponse
// @Failure      404        {object}  ErrorResponse
// @Router       /v1/sessions/{sessionID} [delete]
func (h *ChatHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.service.DeleteSession(sessionID); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// HandleStopSession godoc
// @Summary      Stop an in-flight response
// @Description  Aborts the session's outstanding request. The conversation
// @Description  records the stop marker in place of the assistant's answer.
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200        {object}  StopResponse
// @Failure      404        {object}  ErrorResponse
// @Router       /v1/sessions/{sessionID}/stop [post]
func (h *ChatHandler) HandleStopSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	stopped, err := h.service.StopSession(sessionID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StopResponse{Stopped: stopped})
}

// HandleBackendHealth godoc
// @Summary      Probe backend availability
// @Description  Performs a fresh liveness probe against the inference
// @Description  backend. Always answers 200; an unreachable backend is
// @Description  reported as available=false, never as an error.
// @Tags         Backend
// @Produce      json
// @Success      200  {object}  AvailabilityResponse
// @Router       /v1/backend/health [get]
func (h *ChatHandler) HandleBackendHealth(w http.ResponseWriter, r *http.Request) {
	available := h.service.CheckBackend(r.Context())
	respondWithJSON(w, http.StatusOK, AvailabilityResponse{Available: available})
}

// HandleStreamMessage godoc
// @Summary      Send a message
// @Description  Submits a user message and streams the assistant's answer
// @Description  back word by word as Server-Sent Events. The final frame
// @Description  carries the authoritative assistant message.
// @Tags         Sessions
// @Accept       json
// @Produce      text/event-stream
// @Param        sessionID  path  string              true  "Session ID"
// @Param        message    body  SendMessageRequest  true  "User message"
// @Success      200
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /v1/sessions/{sessionID}/messages [post]
func (h *ChatHandler) HandleStreamMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request body", apperrors.ErrValidation))
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithError(w, err)
		return
	}

	// Submission is validated before any stream bytes are written, so
	// conflicts and missing sessions still map to proper status codes.
	sub, err := h.service.Submit(r.Context(), sessionID, req.Content)
	if err != nil {
		respondWithError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	streamChan := make(chan model.StreamChunk)
	go h.service.Stream(sub, streamChan)

	clientGone := false
	for chunk := range streamChan {
		// Keep draining after a disconnect so the service goroutine can
		// finish recording the conversation outcome.
		if clientGone || r.Context().Err() != nil {
			clientGone = true
			continue
		}
		if chunk.Error != "" {
			sendStreamError(w, chunk.Error)
		}
		if err := writeStreamEvent(w, chunk); err != nil {
			slog.Info("Client disconnected mid-stream", "session_id", sessionID)
			clientGone = true
		}
	}
}
