package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSessionStore_RoundTrip(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client, WithTTL(time.Hour))
	ctx := context.Background()

	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	sc := domain.SessionContext{
		PartNumber:    "PS11752778",
		ModelNumber:   "WRS325SDHZ",
		Category:      domain.CategoryRefrigerator,
		PendingIntent: domain.IntentCompatibility,
	}
	require.NoError(t, store.Save(ctx, "s1", sc))
	assert.True(t, mr.Exists("partsdesk:session:s1"))
	assert.Equal(t, time.Hour, mr.TTL("partsdesk:session:s1"))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sc, got)

	require.NoError(t, store.Delete(ctx, "s1"))
	assert.ErrorIs(t, store.Delete(ctx, "s1"), domain.ErrSessionNotFound)
	require.NoError(t, store.Ping(ctx))
}

func TestSessionStore_Expiry(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client, WithTTL(time.Minute), WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", domain.SessionContext{PartNumber: "PS3406971"}))
	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionStore_CorruptValue(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client)
	require.NoError(t, mr.Set("partsdesk:session:bad", "{not json"))

	_, err := store.Load(context.Background(), "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestLocker_LockUnlock(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "s1", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:s1"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:s1"))
}

func TestLocker_Contention(t *testing.T) {
	_, client := newTestClient(t)
	first := NewLocker(client, "test:")
	second := NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := first.Lock(ctx, "s1", 5*time.Second)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	_, err = second.Lock(waitCtx, "s1", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))
	unlock2, err := second.Lock(ctx, "s1", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLocker_StaleUnlockKeepsNewOwner(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "s1", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	unlock2, err := locker.Lock(ctx, "s1", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("test:lock:s1"), "expired holder must not release the new lock")
	require.NoError(t, unlock2(ctx))
}
