package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/manthysbr/partsdesk/internal/core/domain"
	"github.com/manthysbr/partsdesk/internal/core/ports"
)

const conversationTitleLen = 60

// ConversationStore records session transcripts with an in-memory cache
// backed by a repository. Hot conversations stay in memory; cold ones are
// loaded on demand.
type ConversationStore struct {
	mu   sync.RWMutex
	repo ports.Repository

	// conversationID -> messages, oldest first
	cache    map[domain.ConversationID][]domain.Message
	order    []domain.ConversationID // LRU order, most recent last
	maxCache int
}

func NewConversationStore(repo ports.Repository, maxCache int) *ConversationStore {
	if maxCache <= 0 {
		maxCache = 64
	}
	return &ConversationStore{
		repo:     repo,
		cache:    make(map[domain.ConversationID][]domain.Message, maxCache),
		order:    make([]domain.ConversationID, 0, maxCache),
		maxCache: maxCache,
	}
}

// Ensure creates the conversation for a session on its first message. The
// first message also becomes the title.
func (s *ConversationStore) Ensure(ctx context.Context, id domain.ConversationID, firstMessage string) (domain.Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, id)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrConversationNotFound) {
		return domain.Conversation{}, err
	}

	now := time.Now()
	conv = domain.Conversation{
		ID:        id,
		Title:     conversationTitle(firstMessage),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		return domain.Conversation{}, err
	}

	s.mu.Lock()
	s.cache[id] = nil
	s.touchLocked(id)
	s.evictLocked()
	s.mu.Unlock()
	return conv, nil
}

func conversationTitle(msg string) string {
	r := []rune(msg)
	if len(r) <= conversationTitleLen {
		return msg
	}
	return string(r[:conversationTitleLen-3]) + "..."
}

func (s *ConversationStore) GetConversation(ctx context.Context, id domain.ConversationID) (domain.Conversation, error) {
	return s.repo.GetConversation(ctx, id)
}

// ListConversations returns all conversations, most recently updated first.
func (s *ConversationStore) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	return s.repo.ListConversations(ctx)
}

func (s *ConversationStore) DeleteConversation(ctx context.Context, id domain.ConversationID) error {
	if err := s.repo.DeleteConversation(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.cache, id)
	s.removeLRULocked(id)
	s.mu.Unlock()
	return nil
}

// AddMessage persists a message and updates the cache.
func (s *ConversationStore) AddMessage(ctx context.Context, msg domain.Message) error {
	if err := s.repo.AddMessage(ctx, msg); err != nil {
		return err
	}

	s.mu.Lock()
	if msgs, ok := s.cache[msg.ConversationID]; ok {
		s.cache[msg.ConversationID] = append(msgs, msg)
	}
	s.touchLocked(msg.ConversationID)
	s.evictLocked()
	s.mu.Unlock()
	return nil
}

// GetMessages returns a conversation's messages. limit=0 means all
// messages; a positive limit returns the most recent ones.
func (s *ConversationStore) GetMessages(ctx context.Context, id domain.ConversationID, limit int) ([]domain.Message, error) {
	s.mu.RLock()
	if msgs, ok := s.cache[id]; ok && limit == 0 {
		result := make([]domain.Message, len(msgs))
		copy(result, msgs)
		s.mu.RUnlock()
		return result, nil
	}
	s.mu.RUnlock()

	msgs, err := s.repo.ListMessages(ctx, id, limit)
	if err != nil {
		return nil, err
	}

	if limit == 0 {
		s.mu.Lock()
		s.cache[id] = msgs
		s.touchLocked(id)
		s.evictLocked()
		s.mu.Unlock()
	}
	return msgs, nil
}

// LRU helpers, mu held.

func (s *ConversationStore) touchLocked(id domain.ConversationID) {
	s.removeLRULocked(id)
	s.order = append(s.order, id)
}

func (s *ConversationStore) removeLRULocked(id domain.ConversationID) {
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *ConversationStore) evictLocked() {
	for len(s.order) > s.maxCache {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.cache, oldest)
	}
}
