package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"chatbridge/internal/bridge"
	"chatbridge/internal/model"
	"chatbridge/internal/repository"
	"chatbridge/internal/reveal"
	"chatbridge/internal/session"
)

// ChatService glues the conversation state, the backend bridge and the
// word-reveal pacing together. The network call and the presentation pacing
// stay separate concerns: the bridge returns a complete answer, and the
// reveal streamer replays it to the client.
type ChatService struct {
	sessions *session.Manager
	bridge   bridge.Bridge
	repo     repository.Repository
	streamer *reveal.Streamer
	contract string
}

func NewChatService(sessions *session.Manager, b bridge.Bridge, repo repository.Repository, streamer *reveal.Streamer, contract string) *ChatService {
	return &ChatService{
		sessions: sessions,
		bridge:   b,
		repo:     repo,
		streamer: streamer,
		contract: contract,
	}
}

// Submission represents one accepted, in-flight message submission. The
// embedded context is canceled either by the stop endpoint or by the client
// disconnecting from the stream.
type Submission struct {
	UserMessage model.Message

	conv   *session.Conversation
	ctx    context.Context
	cancel context.CancelFunc
}

// CreateSession starts a new empty conversation.
func (s *ChatService) CreateSession() session.Snapshot {
	return s.sessions.Create().Snapshot()
}

// GetSession returns a conversation snapshot.
func (s *ChatService) GetSession(id string) (session.Snapshot, error) {
	conv, err := s.sessions.Get(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return conv.Snapshot(), nil
}

// ListSessions returns snapshots of all live conversations.
func (s *ChatService) ListSessions() []session.Snapshot {
	return s.sessions.List()
}

// DeleteSession cancels any in-flight request and drops the conversation.
func (s *ChatService) DeleteSession(id string) error {
	return s.sessions.Delete(id)
}

// StopSession aborts the session's in-flight request, if any. Stopping is
// not an error: the conversation records the stop marker and returns to a
// resting state. Reports whether anything was actually in flight.
func (s *ChatService) StopSession(id string) (bool, error) {
	conv, err := s.sessions.Get(id)
	if err != nil {
		return false, err
	}
	return conv.Cancel(), nil
}

// Submit validates and registers a new message on the session. It fails with
// ErrConflict while another submission is outstanding, so at most one request
// is in flight per conversation. The returned Submission must be passed to
// Stream.
func (s *ChatService) Submit(ctx context.Context, sessionID, content string) (*Submission, error) {
	conv, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithCancel(ctx)
	userMsg, err := conv.Begin(content, cancel)
	if err != nil {
		cancel()
		return nil, err
	}

	return &Submission{UserMessage: userMsg, conv: conv, ctx: reqCtx, cancel: cancel}, nil
}

// Stream performs the backend exchange for an accepted submission and
// replays the answer word by word on streamChan. The channel is closed when
// the stream ends. All failures other than a user stop terminate with the
// generic fallback entry; raw detail goes to the logs only.
func (s *ChatService) Stream(sub *Submission, streamChan chan<- model.StreamChunk) {
	defer close(streamChan)
	defer sub.cancel()

	conv := sub.conv
	start := time.Now()
	answer, err := s.bridge.SubmitQuery(sub.ctx, conv.Messages())
	latency := time.Since(start)

	if err != nil {
		s.finishWithError(sub, streamChan, err, latency)
		return
	}

	conv.StartReveal()
	for chunk := range s.streamer.Stream(sub.ctx, answer) {
		if chunk.Done {
			break
		}
		streamChan <- model.StreamChunk{Content: chunk.Word}
	}

	if sub.ctx.Err() != nil {
		// Stopped mid-reveal: the marker replaces the answer entirely.
		final := conv.Canceled()
		s.recordExchange(conv.ID, repository.OutcomeCanceled, 0, latency)
		streamChan <- model.StreamChunk{Done: true, Message: &final}
		return
	}

	final := conv.Complete(answer)
	s.recordExchange(conv.ID, repository.OutcomeOK, http.StatusOK, latency)
	streamChan <- model.StreamChunk{Done: true, Message: &final}
}

func (s *ChatService) finishWithError(sub *Submission, streamChan chan<- model.StreamChunk, err error, latency time.Duration) {
	conv := sub.conv

	if bridge.IsCancellation(err) {
		final := conv.Canceled()
		s.recordExchange(conv.ID, repository.OutcomeCanceled, 0, latency)
		streamChan <- model.StreamChunk{Done: true, Message: &final}
		return
	}

	outcome := repository.OutcomeTransportError
	statusCode := 0
	var backendErr *bridge.BackendError
	if errors.As(err, &backendErr) {
		outcome = repository.OutcomeBackendError
		statusCode = backendErr.StatusCode
	}
	slog.Error("Backend exchange failed", "session_id", conv.ID, "outcome", outcome, "error", err)

	final := conv.Fail()
	s.recordExchange(conv.ID, outcome, statusCode, latency)
	streamChan <- model.StreamChunk{Done: true, Message: &final, Error: model.FallbackText}
}

// recordExchange writes one diagnostics row. Best effort: a failing
// diagnostics store must never affect the conversation.
func (s *ChatService) recordExchange(sessionID, outcome string, statusCode int, latency time.Duration) {
	rec := &repository.ExchangeRecord{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Contract:   s.contract,
		Outcome:    outcome,
		StatusCode: statusCode,
		LatencyMs:  latency.Milliseconds(),
		CreatedAt:  time.Now(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.AddExchange(ctx, rec); err != nil {
		slog.Warn("Failed to record exchange diagnostics", "session_id", sessionID, "error", err)
	}
}

// CheckBackend reports backend availability. It never fails; an unreachable
// backend is simply reported as unavailable.
func (s *ChatService) CheckBackend(ctx context.Context) bool {
	return s.bridge.CheckAvailability(ctx)
}
