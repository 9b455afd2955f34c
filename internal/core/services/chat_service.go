package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

// MaxMessageLength bounds a single user message in runes.
const MaxMessageLength = 2000

var ErrMessageTooLong = errors.New("message too long")

// ChatService is the entry point for a conversational turn. It serializes
// turns per session, feeds the stored session context to the agent, saves
// the updated context, records the transcript and publishes lifecycle
// events. The agent itself stays stateless.
type ChatService struct {
	logger        *slog.Logger
	agent         *PartsAgent
	sessions      *SessionManager
	conversations *ConversationStore // optional
	events        *EventBus          // optional
}

func NewChatService(logger *slog.Logger, agent *PartsAgent, sessions *SessionManager, conversations *ConversationStore, events *EventBus) *ChatService {
	return &ChatService{
		logger:        logger,
		agent:         agent,
		sessions:      sessions,
		conversations: conversations,
		events:        events,
	}
}

// Chat runs one turn for sessionID. An empty sessionID starts a new session;
// the generated ID is returned in the result.
func (s *ChatService) Chat(ctx context.Context, sessionID, message string) (*domain.TurnResult, error) {
	if len([]rune(message)) > MaxMessageLength {
		return nil, fmt.Errorf("%w: limit is %d characters", ErrMessageTooLong, MaxMessageLength)
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var res *domain.TurnResult
	err := s.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		sc, err := s.sessions.Context(ctx, sessionID)
		if err != nil {
			// Losing context only degrades follow-ups.
			s.logger.Warn("session context unavailable, continuing without it", "session_id", sessionID, "error", err)
		}

		s.events.Publish(NewEvent(sessionID, EventTurnStarted, map[string]string{"message": message}))
		res = s.agent.Run(ctx, domain.TurnInput{SessionID: sessionID, Message: message, Context: sc})

		if err := s.sessions.SaveContext(ctx, sessionID, res.Context); err != nil {
			s.logger.Warn("failed to save session context", "session_id", sessionID, "error", err)
		}
		s.record(ctx, message, res)
		s.events.Publish(NewEvent(sessionID, EventTurnCompleted, res))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// record appends the user message and the answer to the transcript.
// Persistence failures are logged; the turn result is already final.
func (s *ChatService) record(ctx context.Context, message string, res *domain.TurnResult) {
	if s.conversations == nil {
		return
	}
	convID := domain.ConversationID(res.SessionID)
	if _, err := s.conversations.Ensure(ctx, convID, message); err != nil {
		s.logger.Warn("failed to create conversation", "session_id", res.SessionID, "error", err)
		return
	}

	now := time.Now()
	user := domain.Message{
		ID:             domain.NewMessageID(),
		ConversationID: convID,
		Role:           domain.RoleUser,
		Content:        message,
		TurnID:         res.TurnID,
		CreatedAt:      now,
	}
	assistant := domain.Message{
		ID:             domain.NewMessageID(),
		ConversationID: convID,
		Role:           domain.RoleAssistant,
		Content:        res.Response,
		TurnID:         res.TurnID,
		Intent:         res.Intent,
		Steps:          res.Reasoning,
		Metadata: map[string]interface{}{
			"source":      string(res.Source),
			"tool":        res.Tool,
			"products":    productPartNumbers(res.Products),
			"duration_ms": res.Duration.Milliseconds(),
		},
		CreatedAt: now.Add(time.Millisecond),
	}
	if res.Error != "" {
		assistant.Metadata["error"] = res.Error
	}

	for _, msg := range []domain.Message{user, assistant} {
		if err := s.conversations.AddMessage(ctx, msg); err != nil {
			s.logger.Warn("failed to persist message", "session_id", res.SessionID, "role", msg.Role, "error", err)
			return
		}
	}
}

func productPartNumbers(ps []domain.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.PartNumber)
	}
	return out
}

// History returns the transcript of a session, oldest first.
func (s *ChatService) History(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	if s.conversations == nil {
		return nil, fmt.Errorf("%w: transcripts are not recorded", domain.ErrConversationNotFound)
	}
	if _, err := s.conversations.GetConversation(ctx, domain.ConversationID(sessionID)); err != nil {
		return nil, err
	}
	return s.conversations.GetMessages(ctx, domain.ConversationID(sessionID), limit)
}

// Reset forgets the session context. The transcript is kept.
func (s *ChatService) Reset(ctx context.Context, sessionID string) error {
	if err := s.sessions.Reset(ctx, sessionID); err != nil {
		return err
	}
	s.events.Publish(NewEvent(sessionID, EventSessionReset, nil))
	return nil
}

// Events subscribes to a session's lifecycle events.
func (s *ChatService) Events(sessionID string) (<-chan Event, func()) {
	return s.events.Subscribe(sessionID)
}

// Tools lists the agent's capabilities.
func (s *ChatService) Tools() []*domain.Tool {
	return s.agent.tools.ListTools()
}
