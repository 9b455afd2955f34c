package domain

import (
	"context"
	"errors"
)

// ChatRole tags a gateway message.
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is a role-tagged prompt fragment.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// LLMProvider abstracts a language model backend. Calls may fail for any
// network, quota or timeout reason.
type LLMProvider interface {
	Name() string
	Chat(ctx context.Context, messages []ChatMessage) (string, error)
}

var (
	ErrGatewayUnavailable = errors.New("llm gateway unavailable")
	ErrMalformedDecision  = errors.New("malformed gateway decision")
)
