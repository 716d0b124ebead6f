// Package live implements the in-process subscription registry behind every
// live query: a topic keyed fan-out where each subscribe hands back a
// disposer, and publishing a topic re-notifies every current subscriber.
package live

import "sync"

// Handler is invoked once per publish of a subscribed topic. Handlers run
// synchronously on the publisher's goroutine and must not block for long.
type Handler func()

// Bus is a topic keyed subscription registry.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	topics map[string]map[uint64]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{topics: make(map[string]map[uint64]Handler)}
}

// Subscription is the disposer returned by Subscribe. Dispose is safe to
// call more than once and after the bus has already dropped the entry.
type Subscription struct {
	bus   *Bus
	topic string
	id    uint64
	once  sync.Once
}

// Dispose removes the subscription from the registry.
func (s *Subscription) Dispose() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s.topic, s.id)
	})
}

// Subscribe registers a handler for a topic and returns its disposer.
// Exactly one Dispose call is expected per successful Subscribe.
func (b *Bus) Subscribe(topic string, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if _, ok := b.topics[topic]; !ok {
		b.topics[topic] = make(map[uint64]Handler)
	}
	b.topics[topic][id] = fn

	return &Subscription{bus: b, topic: topic, id: id}
}

// Publish notifies every subscriber of each given topic.
func (b *Bus) Publish(topics ...string) {
	for _, topic := range topics {
		b.mu.RLock()
		handlers := make([]Handler, 0, len(b.topics[topic]))
		for _, fn := range b.topics[topic] {
			handlers = append(handlers, fn)
		}
		b.mu.RUnlock()

		for _, fn := range handlers {
			fn()
		}
	}
}

// Subscribers reports how many handlers a topic currently has.
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// ActiveTopics reports how many topics have at least one subscriber. Teardown
// paths assert this reaches zero to catch leaked subscriptions.
func (b *Bus) ActiveTopics() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics)
}

func (b *Bus) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if handlers, ok := b.topics[topic]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.topics, topic)
		}
	}
}
