package model

import "time"

// Roles a message may carry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// FallbackText is the assistant message recorded when a request fails for
// any reason other than an explicit user stop. Raw error detail goes to the
// logs, never to the display.
const FallbackText = "Sorry, I encountered an error. Please try again."

// StopMarkerText is the assistant message recorded when the user stops a
// response mid-reveal. It replaces the answer entirely; a partial prefix is
// never kept.
const StopMarkerText = "Response stopped by user."

// Message is a single turn in a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// StreamChunk is a single frame of the word-reveal stream sent to the client.
// Content carries one word; the client joins words with single spaces and
// hides its caret once a frame with Done arrives. The terminal frame carries
// the authoritative assistant Message recorded in the conversation, which on
// failure or stop is the fallback or stop marker rather than revealed words.
type StreamChunk struct {
	Content string   `json:"content"`
	Done    bool     `json:"done"`
	Message *Message `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
}
