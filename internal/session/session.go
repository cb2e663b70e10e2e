// Package session holds the server-side conversation state for the chat UI.
// Conversations are append-only message lists kept purely in memory: they
// live for the duration of a UI session and are gone when the process exits.
// Nothing here touches the network; the bridge stays stateless and receives
// the full history on every call.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "chatbridge/internal/errors"
	"chatbridge/internal/model"
)

// State of a conversation. A conversation cycles
// idle -> awaiting -> (revealing | failed | canceled) and any resting state
// (everything except awaiting/revealing) accepts a new submission.
type State string

const (
	StateIdle      State = "idle"
	StateAwaiting  State = "awaiting-response"
	StateRevealing State = "revealing"
	StateFailed    State = "failed"
	StateCanceled  State = "canceled"
)

// Conversation is one UI session's message history plus its request state.
type Conversation struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	messages []model.Message
	state    State
	cancel   context.CancelFunc
}

// Snapshot is the client-facing view of a conversation.
type Snapshot struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	State     State           `json:"state"`
	Messages  []model.Message `json:"messages"`
}

// State returns the current conversation state.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the conversation safe to serialize.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := make([]model.Message, len(c.messages))
	copy(msgs, c.messages)
	return Snapshot{ID: c.ID, CreatedAt: c.CreatedAt, State: c.state, Messages: msgs}
}

// Messages returns a copy of the message history.
func (c *Conversation) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := make([]model.Message, len(c.messages))
	copy(msgs, c.messages)
	return msgs
}

// Begin moves the conversation into the awaiting state, appends the user's
// message and stores the cancel func for the in-flight request. While a
// request is outstanding a second Begin returns ErrConflict: at most one
// submission is in flight per conversation.
func (c *Conversation) Begin(content string, cancel context.CancelFunc) (model.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateAwaiting || c.state == StateRevealing {
		return model.Message{}, fmt.Errorf("%w: a request is already in flight", apperrors.ErrConflict)
	}

	msg := model.Message{
		ID:        uuid.NewString(),
		Role:      model.RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
	c.messages = append(c.messages, msg)
	c.state = StateAwaiting
	c.cancel = cancel
	return msg, nil
}

// StartReveal marks the transition from waiting on the network to replaying
// the answer to the client.
func (c *Conversation) StartReveal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAwaiting {
		c.state = StateRevealing
	}
}

// Complete records the assistant's full answer and returns the conversation
// to idle.
func (c *Conversation) Complete(answer string) model.Message {
	return c.finish(answer, StateIdle)
}

// Fail records the generic fallback message. The raw failure is for the
// logs; the conversation only ever shows the fallback.
func (c *Conversation) Fail() model.Message {
	return c.finish(model.FallbackText, StateFailed)
}

// Canceled records the stop marker after a user-initiated cancellation. Any
// partially revealed prefix is discarded; the marker is the whole entry.
func (c *Conversation) Canceled() model.Message {
	return c.finish(model.StopMarkerText, StateCanceled)
}

func (c *Conversation) finish(content string, state State) model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := model.Message{
		ID:        uuid.NewString(),
		Role:      model.RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
	c.messages = append(c.messages, msg)
	c.state = state
	c.cancel = nil
	return msg
}

// Cancel aborts the in-flight request, if any. It takes effect at the
// network layer and between reveal steps; the reveal loop checks its context
// between words so it stops promptly. Returns false when nothing was in
// flight.
func (c *Conversation) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	c.cancel = nil
	return true
}

// Manager owns all live conversations. Everything is in memory by design.
type Manager struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
}

func NewManager() *Manager {
	return &Manager{conversations: make(map[string]*Conversation)}
}

// Create registers a new, empty conversation.
func (m *Manager) Create() *Conversation {
	conv := &Conversation{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		state:     StateIdle,
	}
	m.mu.Lock()
	m.conversations[conv.ID] = conv
	m.mu.Unlock()
	return conv
}

// Get returns the conversation with the given ID.
func (m *Manager) Get(id string) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", apperrors.ErrNotFound, id)
	}
	return conv, nil
}

// List returns snapshots of all live conversations.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	convs := make([]*Conversation, 0, len(m.conversations))
	for _, c := range m.conversations {
		convs = append(convs, c)
	}
	m.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(convs))
	for _, c := range convs {
		snaps = append(snaps, c.Snapshot())
	}
	return snaps
}

// Delete cancels any in-flight request and removes the conversation.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	conv, ok := m.conversations[id]
	if ok {
		delete(m.conversations, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: session %s", apperrors.ErrNotFound, id)
	}
	conv.Cancel()
	return nil
}
