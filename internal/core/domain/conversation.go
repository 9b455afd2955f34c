package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ConversationID uniquely identifies a conversation. It equals the session
// ID supplied by the client.
type ConversationID string

// MessageID uniquely identifies a message within a conversation
type MessageID string

// MessageRole defines who authored a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Conversation represents a multi-turn chat session
type Conversation struct {
	ID        ConversationID `json:"id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Message represents a single entry in a conversation transcript
type Message struct {
	ID             MessageID              `json:"id"`
	ConversationID ConversationID         `json:"conversation_id"`
	Role           MessageRole            `json:"role"`
	Content        string                 `json:"content"`
	TurnID         string                 `json:"turn_id,omitempty"`
	Intent         Intent                 `json:"intent,omitempty"`
	Steps          []ReasoningStep        `json:"steps,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrSessionNotFound      = errors.New("session not found")
)

// NewMessageID returns a fresh msg-<uuid> identifier.
func NewMessageID() MessageID {
	return MessageID("msg-" + uuid.NewString())
}
