package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/manthysbr/partsdesk/internal/core/domain"
	"github.com/manthysbr/partsdesk/internal/core/ports"
)

const defaultLockTTL = 30 * time.Second

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// SessionManager serializes turns per session and owns access to the
// session context store. Different sessions never block each other. Lock
// entries are reference counted and dropped once unused.
type SessionManager struct {
	logger  *slog.Logger
	store   ports.SessionStore
	locker  ports.Locker
	lockTTL time.Duration
	metrics *Metrics

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type SessionOption func(*SessionManager)

// WithSessionLocker adds a cross-process lock taken after the local one.
func WithSessionLocker(l ports.Locker, ttl time.Duration) SessionOption {
	return func(m *SessionManager) {
		m.locker = l
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

func WithSessionMetrics(metrics *Metrics) SessionOption {
	return func(m *SessionManager) { m.metrics = metrics }
}

func NewSessionManager(logger *slog.Logger, store ports.SessionStore, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		logger:  logger,
		store:   store,
		lockTTL: defaultLockTTL,
		locks:   make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *SessionManager) acquire(sessionID string) *sessionLock {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		m.locks[sessionID] = l
	}
	l.refs++
	return l
}

func (m *SessionManager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[sessionID]
	if !ok {
		return
	}
	l.refs--
	if l.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock runs fn while holding the session's lock.
func (m *SessionManager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	l := m.acquire(sessionID)
	l.mu.Lock()
	m.metrics.SessionStarted()
	defer func() {
		m.metrics.SessionFinished()
		l.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire session lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release session lock, it will expire", "session_id", sessionID, "error", err)
			}
		}()
	}

	return fn(ctx)
}

// Context returns the stored context, or an empty one for new sessions.
// Callers inside WithLock use it directly; it takes no lock itself.
func (m *SessionManager) Context(ctx context.Context, sessionID string) (domain.SessionContext, error) {
	sc, err := m.store.Load(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.SessionContext{}, nil
	}
	if err != nil {
		return domain.SessionContext{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return sc, nil
}

func (m *SessionManager) SaveContext(ctx context.Context, sessionID string, sc domain.SessionContext) error {
	if err := m.store.Save(ctx, sessionID, sc); err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

// Reset forgets a session's context.
func (m *SessionManager) Reset(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		err := m.store.Delete(ctx, sessionID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return err
	})
}

// activeLocks is the number of sessions with a holder or waiter.
func (m *SessionManager) activeLocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// MemorySessionStore keeps session contexts in process memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.SessionContext
}

var _ ports.SessionStore = (*MemorySessionStore)(nil)

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domain.SessionContext)}
}

func (s *MemorySessionStore) Load(_ context.Context, sessionID string) (domain.SessionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.sessions[sessionID]
	if !ok {
		return domain.SessionContext{}, domain.ErrSessionNotFound
	}
	return sc, nil
}

func (s *MemorySessionStore) Save(_ context.Context, sessionID string, sc domain.SessionContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = sc
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}
