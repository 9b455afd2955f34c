package ports

import (
	"context"
	"time"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

// Catalog is the read-only query surface over products and the
// troubleshooting knowledge base. Implementations must be safe for
// concurrent reads and must return records in insertion order.
type Catalog interface {
	// Products returns every product in catalog order.
	Products() []domain.Product

	// ProductByPartNumber looks a product up by its canonical part number.
	ProductByPartNumber(partNumber string) (domain.Product, bool)

	// Symptoms returns every troubleshooting entry in knowledge-base order.
	Symptoms() []domain.TroubleshootingSymptom
}

// Repository abstracts transcript persistence (DuckDB).
type Repository interface {
	// Conversations
	CreateConversation(ctx context.Context, conv domain.Conversation) error
	GetConversation(ctx context.Context, id domain.ConversationID) (domain.Conversation, error)
	ListConversations(ctx context.Context) ([]domain.Conversation, error)
	DeleteConversation(ctx context.Context, id domain.ConversationID) error

	// Messages
	AddMessage(ctx context.Context, msg domain.Message) error
	ListMessages(ctx context.Context, convID domain.ConversationID, limit int) ([]domain.Message, error)

	Close() error
}

// SessionStore keeps per-session conversational context between turns.
type SessionStore interface {
	// Load returns domain.ErrSessionNotFound for unknown sessions.
	Load(ctx context.Context, sessionID string) (domain.SessionContext, error)
	Save(ctx context.Context, sessionID string, sc domain.SessionContext) error
	Delete(ctx context.Context, sessionID string) error
}

// UnlockFunc releases a lock acquired through a Locker.
type UnlockFunc func(ctx context.Context) error

// Locker serializes work on a key across processes.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
