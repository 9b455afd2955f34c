package services

import (
	"log/slog"
	"sync"
	"time"
)

type EventType string

const (
	EventTurnStarted   EventType = "turn_started"
	EventTurnCompleted EventType = "turn_completed"
	EventSessionReset  EventType = "session_reset"
)

// Event is a session lifecycle notification. Data is the JSON-encodable
// payload (the TurnResult for turn_completed).
type Event struct {
	SessionID string      `json:"sessionId"`
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func NewEvent(sessionID string, typ EventType, data interface{}) Event {
	return Event{SessionID: sessionID, Type: typ, Data: data, Timestamp: time.Now().UnixMilli()}
}

// EventBus fans events out to per-session subscribers. Publishing never
// blocks: a full subscriber drops the event.
type EventBus struct {
	logger *slog.Logger
	mu     sync.RWMutex
	subs   map[string][]chan Event // key: session ID
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		logger: logger,
		subs:   make(map[string][]chan Event),
	}
}

// Subscribe returns a channel receiving events for sessionID and a function
// that closes it.
func (b *EventBus) Subscribe(sessionID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 64)
	b.subs[sessionID] = append(b.subs[sessionID], ch)

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subscribers := b.subs[sessionID]
			for i, sub := range subscribers {
				if sub == ch {
					close(ch)
					b.subs[sessionID] = append(subscribers[:i], subscribers[i+1:]...)
					break
				}
			}
			if len(b.subs[sessionID]) == 0 {
				delete(b.subs, sessionID)
			}
		})
	}
	return ch, unsub
}

func (b *EventBus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[e.SessionID] {
		select {
		case ch <- e:
		default:
			b.logger.Warn("event bus channel full, dropping event", "session_id", e.SessionID, "type", e.Type)
		}
	}
}

// Subscribers reports how many listeners sessionID has.
func (b *EventBus) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}
