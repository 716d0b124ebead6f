package live

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	var calls int
	sub := bus.Subscribe("chats:alice", func() { calls++ })
	defer sub.Dispose()

	bus.Publish("chats:alice")
	bus.Publish("chats:alice")
	assert.Equal(t, 2, calls)
}

func TestPublishOtherTopicDoesNotNotify(t *testing.T) {
	bus := NewBus()

	var calls int
	sub := bus.Subscribe("chats:alice", func() { calls++ })
	defer sub.Dispose()

	bus.Publish("chats:bob")
	assert.Equal(t, 0, calls)
}

func TestDisposeStopsDelivery(t *testing.T) {
	bus := NewBus()

	var calls int
	sub := bus.Subscribe("messages:a_b", func() { calls++ })

	bus.Publish("messages:a_b")
	sub.Dispose()
	bus.Publish("messages:a_b")

	assert.Equal(t, 1, calls)
}

func TestDoubleDisposeIsSafe(t *testing.T) {
	bus := NewBus()

	sub := bus.Subscribe("requests:alice", func() {})
	sub.Dispose()
	sub.Dispose()

	assert.Equal(t, 0, bus.ActiveTopics())
}

func TestRegistryEmptyAfterTeardown(t *testing.T) {
	bus := NewBus()

	subs := []*Subscription{
		bus.Subscribe("chats:alice", func() {}),
		bus.Subscribe("chats:alice", func() {}),
		bus.Subscribe("feed", func() {}),
		bus.Subscribe("notifications:bob", func() {}),
	}
	assert.Equal(t, 3, bus.ActiveTopics())
	assert.Equal(t, 2, bus.Subscribers("chats:alice"))

	for _, s := range subs {
		s.Dispose()
	}
	assert.Equal(t, 0, bus.ActiveTopics())
	assert.Equal(t, 0, bus.Subscribers("chats:alice"))
}

func TestPublishMultipleTopics(t *testing.T) {
	bus := NewBus()

	var a, b int
	subA := bus.Subscribe("chats:alice", func() { a++ })
	subB := bus.Subscribe("chats:bob", func() { b++ })
	defer subA.Dispose()
	defer subB.Dispose()

	bus.Publish("chats:alice", "chats:bob")
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}
