package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PubSub(t *testing.T) {
	bus := NewEventBus(discardLogger())

	ch, unsub := bus.Subscribe("session-1")
	defer unsub()

	bus.Publish(NewEvent("session-1", EventTurnStarted, map[string]string{"message": "hi"}))

	select {
	case received := <-ch:
		assert.Equal(t, "session-1", received.SessionID)
		assert.Equal(t, EventTurnStarted, received.Type)
		assert.Equal(t, map[string]string{"message": "hi"}, received.Data)
		assert.NotZero(t, received.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEventBus_OtherSessionsNotNotified(t *testing.T) {
	bus := NewEventBus(discardLogger())

	ch, unsub := bus.Subscribe("a")
	defer unsub()

	bus.Publish(NewEvent("b", EventTurnCompleted, nil))

	select {
	case e := <-ch:
		t.Fatalf("unexpected event: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus(discardLogger())

	ch, unsub := bus.Subscribe("session-2")
	assert.Equal(t, 1, bus.Subscribers("session-2"))
	unsub()
	unsub()
	assert.Equal(t, 0, bus.Subscribers("session-2"))

	bus.Publish(NewEvent("session-2", EventTurnStarted, nil))

	_, ok := <-ch
	assert.False(t, ok, "channel is closed after unsubscribe")
}

func TestEventBus_MultipleSubscribers(t *testing.T) {
	bus := NewEventBus(discardLogger())

	ch1, unsub1 := bus.Subscribe("s")
	defer unsub1()
	ch2, unsub2 := bus.Subscribe("s")
	defer unsub2()

	bus.Publish(NewEvent("s", EventTurnCompleted, "done"))

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			assert.Equal(t, "done", e.Data)
		case <-time.After(time.Second):
			t.Fatal("timeout")
		}
	}
}

func TestEventBus_FullSubscriberDropsEvents(t *testing.T) {
	bus := NewEventBus(discardLogger())
	ch, unsub := bus.Subscribe("s")
	defer unsub()

	for i := 0; i < cap(ch)+10; i++ {
		bus.Publish(NewEvent("s", EventTurnStarted, i))
	}
	require.Len(t, ch, cap(ch))
	assert.Equal(t, 0, (<-ch).Data)
}

func TestEventBus_NilSafe(t *testing.T) {
	var bus *EventBus
	assert.NotPanics(t, func() { bus.Publish(NewEvent("s", EventTurnStarted, nil)) })
}
