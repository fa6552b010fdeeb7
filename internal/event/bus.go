// Package event provides the in-memory event bus that connects the ingest
// layer, the notification pipeline, and the WebSocket push layer.
package event

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is a single message on the bus.
type Event struct {
	Topic     string
	Source    string
	Timestamp time.Time
	Payload   any
}

// Handler processes an event. Handlers must not block for long; use
// PublishAsync for work that may take time.
type Handler func(ctx context.Context, event Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is an in-memory topic-based event bus. Publish runs handlers in the
// caller's goroutine; PublishAsync dispatches each handler in its own
// goroutine. Handler panics are isolated and logged.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string][]subscription
	allSubs []subscription
	nextID  uint64
	logger  *zap.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		subs:   make(map[string][]subscription),
		logger: logger,
	}
}

// Subscribe registers a handler for one topic and returns an unsubscribe func.
func (b *Bus) Subscribe(topic string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.subs[topic]
		for i, s := range entries {
			if s.id == id {
				b.subs[topic] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// SubscribeAll registers a handler for every topic and returns an
// unsubscribe func.
func (b *Bus) SubscribeAll(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.allSubs = append(b.allSubs, subscription{id: id, handler: h})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.allSubs {
			if s.id == id {
				b.allSubs = append(b.allSubs[:i], b.allSubs[i+1:]...)
				return
			}
		}
	}
}

// Publish dispatches the event synchronously to all matching handlers.
func (b *Bus) Publish(ctx context.Context, event Event) {
	for _, s := range b.snapshot(event.Topic) {
		b.safeCall(ctx, s.handler, event)
	}
}

// PublishAsync dispatches the event to all matching handlers, each in its
// own goroutine.
func (b *Bus) PublishAsync(ctx context.Context, event Event) {
	for _, s := range b.snapshot(event.Topic) {
		go b.safeCall(ctx, s.handler, event)
	}
}

// snapshot copies the matching handler list under the read lock so handlers
// may subscribe/unsubscribe during dispatch.
func (b *Bus) snapshot(topic string) []subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]subscription, 0, len(b.subs[topic])+len(b.allSubs))
	out = append(out, b.subs[topic]...)
	out = append(out, b.allSubs...)
	return out
}

func (b *Bus) safeCall(ctx context.Context, h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", event.Topic),
				zap.String("source", event.Source),
				zap.Any("panic", r),
			)
		}
	}()
	h(ctx, event)
}
