package interfaces

import (
	"context"

	"chatbridge/internal/model"
	"chatbridge/internal/service"
	"chatbridge/internal/session"
)

// This file defines the interfaces for the core service layer. The API layer
// depends on these instead of concrete implementations, which decouples the
// layers and makes handlers easy to test with mocks.

// ChatService is the contract for conversation-related business logic.
type ChatService interface {
	CreateSession() session.Snapshot
	GetSession(id string) (session.Snapshot, error)
	ListSessions() []session.Snapshot
	DeleteSession(id string) error
	StopSession(id string) (bool, error)
	Submit(ctx context.Context, sessionID, content string) (*service.Submission, error)
	Stream(sub *service.Submission, streamChan chan<- model.StreamChunk)
	CheckBackend(ctx context.Context) bool
}
