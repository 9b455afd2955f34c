package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/manthysbr/partsdesk/internal/core/domain"
	"github.com/manthysbr/partsdesk/internal/core/ports"
)

const defaultPrefix = "partsdesk:session:"

// SessionStore keeps session contexts in Redis as JSON values. Every save
// refreshes the TTL, so idle sessions expire on their own.
type SessionStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ ports.SessionStore = (*SessionStore)(nil)

type Option func(*SessionStore)

func WithTTL(ttl time.Duration) Option {
	return func(s *SessionStore) { s.ttl = ttl }
}

func WithPrefix(prefix string) Option {
	return func(s *SessionStore) { s.prefix = prefix }
}

// NewClient connects to addr and verifies the connection.
func NewClient(ctx context.Context, addr string) (*backend.Client, error) {
	client := backend.NewClient(&backend.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func NewSessionStore(client *backend.Client, opts ...Option) *SessionStore {
	s := &SessionStore{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *SessionStore) Load(ctx context.Context, sessionID string) (domain.SessionContext, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, backend.Nil) {
		return domain.SessionContext{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionContext{}, fmt.Errorf("redis get: %w", err)
	}

	var sc domain.SessionContext
	if err := json.Unmarshal([]byte(val), &sc); err != nil {
		return domain.SessionContext{}, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return sc, nil
}

func (s *SessionStore) Save(ctx context.Context, sessionID string, sc domain.SessionContext) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	n, err := s.client.Del(ctx, s.key(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Ping reports whether Redis answers.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// Locker implements ports.Locker with SET NX PX and a token-checked
// release, so several replicas never run the same session's turn at once.
type Locker struct {
	client *backend.Client
	prefix string
	retry  time.Duration
}

var _ ports.Locker = (*Locker)(nil)

func NewLocker(client *backend.Client, prefix string) *Locker {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Locker{client: client, prefix: prefix, retry: 50 * time.Millisecond}
}

func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock: %w", err)
		}
		if ok {
			return func(ctx context.Context) error {
				return l.client.Eval(ctx, unlockScript, []string{lockKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
