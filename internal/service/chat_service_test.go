package service_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatbridge/internal/bridge"
	"chatbridge/internal/config"
	apperrors "chatbridge/internal/errors"
	"chatbridge/internal/model"
	"chatbridge/internal/repository"
	"chatbridge/internal/reveal"
	"chatbridge/internal/service"
	"chatbridge/internal/session"
)

type MockBridge struct {
	mock.Mock
}

func (m *MockBridge) SubmitQuery(ctx context.Context, history []model.Message) (string, error) {
	args := m.Called(ctx, history)
	return args.String(0), args.Error(1)
}

func (m *MockBridge) CheckAvailability(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) AddExchange(ctx context.Context, rec *repository.ExchangeRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockRepository) GetExchange(ctx context.Context, id string) (*repository.ExchangeRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ExchangeRecord), args.Error(1)
}

func (m *MockRepository) ListExchanges(ctx context.Context, sessionID string) ([]repository.ExchangeRecord, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.ExchangeRecord), args.Error(1)
}

type Mocks struct {
	bridge   *MockBridge
	repo     *MockRepository
	sessions *session.Manager
}

func setupChatService(t *testing.T, interval time.Duration) (*service.ChatService, Mocks) {
	t.Helper()
	mocks := Mocks{
		bridge:   &MockBridge{},
		repo:     &MockRepository{},
		sessions: session.NewManager(),
	}
	svc := service.NewChatService(mocks.sessions, mocks.bridge, mocks.repo,
		reveal.NewStreamer(interval), config.ContractChat)
	return svc, mocks
}

// drain consumes the whole stream and returns the revealed words and the
// terminal chunk.
func drain(ch <-chan model.StreamChunk) (words []string, final model.StreamChunk) {
	for chunk := range ch {
		if chunk.Done {
			final = chunk
			continue
		}
		if chunk.Content != "" {
			words = append(words, chunk.Content)
		}
	}
	return words, final
}

func expectExchange(m *MockRepository, outcome string, statusCode int) {
	m.On("AddExchange", mock.Anything, mock.MatchedBy(func(rec *repository.ExchangeRecord) bool {
		return rec.Outcome == outcome && rec.StatusCode == statusCode && rec.Contract == config.ContractChat
	})).Return(nil).Once()
}

func TestChatService_Stream_Success(t *testing.T) {
	svc, mocks := setupChatService(t, time.Millisecond)
	snap := svc.CreateSession()

	mocks.bridge.On("SubmitQuery", mock.Anything, mock.AnythingOfType("[]model.Message")).
		Return("Hi there!", nil).Once()
	expectExchange(mocks.repo, repository.OutcomeOK, http.StatusOK)

	sub, err := svc.Submit(context.Background(), snap.ID, "Hello!")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", sub.UserMessage.Content)

	streamChan := make(chan model.StreamChunk)
	go svc.Stream(sub, streamChan)
	words, final := drain(streamChan)

	// Round-trip identity: the reveal reproduces the answer exactly.
	assert.Equal(t, "Hi there!", strings.Join(words, " "))
	require.NotNil(t, final.Message)
	assert.Equal(t, "Hi there!", final.Message.Content)
	assert.Empty(t, final.Error)

	got, err := svc.GetSession(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateIdle, got.State)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, model.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, "Hi there!", got.Messages[1].Content)

	mocks.bridge.AssertExpectations(t)
	mocks.repo.AssertExpectations(t)
}

func TestChatService_Stream_BackendError(t *testing.T) {
	svc, mocks := setupChatService(t, time.Millisecond)
	snap := svc.CreateSession()

	// The raw body stays in the logs; the conversation only ever shows the
	// generic fallback.
	backendErr := &bridge.BackendError{
		StatusCode: http.StatusInternalServerError,
		Status:     "500 Internal Server Error",
		Body:       `{"detail":"Groq API error: boom"}`,
	}
	mocks.bridge.On("SubmitQuery", mock.Anything, mock.Anything).Return("", backendErr).Once()
	expectExchange(mocks.repo, repository.OutcomeBackendError, http.StatusInternalServerError)

	sub, err := svc.Submit(context.Background(), snap.ID, "Hello!")
	require.NoError(t, err)

	streamChan := make(chan model.StreamChunk)
	go svc.Stream(sub, streamChan)
	words, final := drain(streamChan)

	assert.Empty(t, words)
	require.NotNil(t, final.Message)
	assert.Equal(t, model.FallbackText, final.Message.Content)
	assert.Equal(t, model.FallbackText, final.Error)
	assert.NotContains(t, final.Message.Content, "boom")

	got, err := svc.GetSession(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FallbackText, got.Messages[1].Content)

	mocks.repo.AssertExpectations(t)
}

func TestChatService_Stream_TransportError(t *testing.T) {
	svc, mocks := setupChatService(t, time.Millisecond)
	snap := svc.CreateSession()

	mocks.bridge.On("SubmitQuery", mock.Anything, mock.Anything).
		Return("", apperrors.ErrTransport).Once()
	expectExchange(mocks.repo, repository.OutcomeTransportError, 0)

	sub, err := svc.Submit(context.Background(), snap.ID, "Hello!")
	require.NoError(t, err)

	streamChan := make(chan model.StreamChunk)
	go svc.Stream(sub, streamChan)
	_, final := drain(streamChan)

	require.NotNil(t, final.Message)
	assert.Equal(t, model.FallbackText, final.Message.Content)
	mocks.repo.AssertExpectations(t)
}

func TestChatService_Submit_SingleInFlight(t *testing.T) {
	svc, mocks := setupChatService(t, time.Millisecond)
	snap := svc.CreateSession()

	// Keep the first request outstanding until its context is canceled.
	release := make(chan struct{})
	mocks.bridge.On("SubmitQuery", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { <-release }).
		Return("late answer", nil).Once()
	expectExchange(mocks.repo, repository.OutcomeOK, http.StatusOK)

	sub, err := svc.Submit(context.Background(), snap.ID, "first")
	require.NoError(t, err)

	streamChan := make(chan model.StreamChunk)
	go svc.Stream(sub, streamChan)

	// A second submission while the first is outstanding is rejected.
	_, err = svc.Submit(context.Background(), snap.ID, "second")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	close(release)
	drain(streamChan)
}

func TestChatService_Stream_StopMidReveal(t *testing.T) {
	svc, mocks := setupChatService(t, 20*time.Millisecond)
	snap := svc.CreateSession()

	mocks.bridge.On("SubmitQuery", mock.Anything, mock.Anything).
		Return("a b c d", nil).Once()
	expectExchange(mocks.repo, repository.OutcomeCanceled, 0)

	sub, err := svc.Submit(context.Background(), snap.ID, "question")
	require.NoError(t, err)

	streamChan := make(chan model.StreamChunk)
	go svc.Stream(sub, streamChan)

	var received []string
	var final model.StreamChunk
	for chunk := range streamChan {
		if chunk.Done {
			final = chunk
			continue
		}
		received = append(received, chunk.Content)
		if len(received) == 2 {
			// "a b" has been revealed; the user hits stop.
			stopped, err := svc.StopSession(snap.ID)
			require.NoError(t, err)
			assert.True(t, stopped)
		}
	}

	// The recorded entry is the stop marker, never the partial "a b".
	require.NotNil(t, final.Message)
	assert.Equal(t, model.StopMarkerText, final.Message.Content)

	got, err := svc.GetSession(snap.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, model.StopMarkerText, got.Messages[1].Content)
	assert.Equal(t, session.StateCanceled, got.State)

	mocks.repo.AssertExpectations(t)
}

func TestChatService_Stream_StopWhileAwaitingBackend(t *testing.T) {
	svc, mocks := setupChatService(t, time.Millisecond)
	snap := svc.CreateSession()

	mocks.bridge.On("SubmitQuery", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return("", context.Canceled).Once()
	expectExchange(mocks.repo, repository.OutcomeCanceled, 0)

	sub, err := svc.Submit(context.Background(), snap.ID, "question")
	require.NoError(t, err)

	streamChan := make(chan model.StreamChunk)
	go svc.Stream(sub, streamChan)

	stopped, err := svc.StopSession(snap.ID)
	require.NoError(t, err)
	assert.True(t, stopped)

	_, final := drain(streamChan)
	require.NotNil(t, final.Message)
	assert.Equal(t, model.StopMarkerText, final.Message.Content)
	mocks.repo.AssertExpectations(t)
}

func TestChatService_StopSession(t *testing.T) {
	svc, _ := setupChatService(t, time.Millisecond)

	t.Run("Unknown session", func(t *testing.T) {
		_, err := svc.StopSession("missing")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Nothing in flight", func(t *testing.T) {
		snap := svc.CreateSession()
		stopped, err := svc.StopSession(snap.ID)
		require.NoError(t, err)
		assert.False(t, stopped)
	})
}

func TestChatService_Sessions(t *testing.T) {
	svc, _ := setupChatService(t, time.Millisecond)

	snap := svc.CreateSession()
	assert.Len(t, svc.ListSessions(), 1)

	_, err := svc.GetSession("missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, svc.DeleteSession(snap.ID))
	assert.ErrorIs(t, svc.DeleteSession(snap.ID), apperrors.ErrNotFound)
	assert.Empty(t, svc.ListSessions())
}

func TestChatService_CheckBackend(t *testing.T) {
	svc, mocks := setupChatService(t, time.Millisecond)
	mocks.bridge.On("CheckAvailability", mock.Anything).Return(false).Once()
	assert.False(t, svc.CheckBackend(context.Background()))
	mocks.bridge.AssertExpectations(t)
}
