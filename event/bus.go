package event

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ncobase/pulse/logging/logger"
)

// Event types published by the monitoring engine
const (
	TypeMetrics       = "metrics"
	TypeHealth        = "health"
	TypeAlert         = "alert"
	TypeAlertResolved = "alert_resolved"
)

// Event is the envelope delivered to subscribers
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler receives published events
type Handler func(Event)

// Publisher is the narrow publishing side of the bus
type Publisher interface {
	Publish(eventType string, data any)
}

// Bus is an in-process publish/subscribe fan-out.
// Delivery is synchronous, there is no backlog or replay.
type Bus struct {
	subscribers map[uint64]Handler
	nextID      atomic.Uint64
	mu          sync.RWMutex
	metrics     struct {
		published     atomic.Int64
		delivered     atomic.Int64
		failed        atomic.Int64
		lastEventTime atomic.Value
	}
}

// NewBus creates a new Bus
func NewBus() *Bus {
	b := &Bus{
		subscribers: make(map[uint64]Handler),
	}
	b.metrics.lastEventTime.Store(time.Time{})
	return b
}

// Subscribe adds handler to the active set.
// The returned func removes exactly that handler and is safe to call more than once.
func (b *Bus) Subscribe(handler Handler) (unsubscribe func()) {
	if handler == nil {
		return func() {}
	}

	id := b.nextID.Add(1)

	b.mu.Lock()
	b.subscribers[id] = handler
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers an event to every subscriber active at call time
func (b *Bus) Publish(eventType string, data any) {
	now := time.Now()
	evt := Event{Type: eventType, Data: data, Timestamp: now}

	b.metrics.published.Add(1)
	b.metrics.lastEventTime.Store(now)

	for _, handler := range b.snapshot() {
		b.deliver(evt, handler)
	}
}

// snapshot copies the active handlers in subscription order
func (b *Bus) snapshot() []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]uint64, 0, len(b.subscribers))
	for id := range b.subscribers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.subscribers[id])
	}
	return handlers
}

// deliver invokes one handler, containing any panic it raises
func (b *Bus) deliver(evt Event, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.failed.Add(1)
			logger.Errorf(context.Background(), "panic in %s event subscriber: %v", evt.Type, r)
		}
	}()

	handler(evt)
	b.metrics.delivered.Add(1)
}

// Len returns the number of active subscribers
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close drops every subscriber
func (b *Bus) Close() {
	b.mu.Lock()
	b.subscribers = make(map[uint64]Handler)
	b.mu.Unlock()
}

// Stats returns event bus metrics
func (b *Bus) Stats() map[string]any {
	return map[string]any{
		"published_events": b.metrics.published.Load(),
		"delivered_events": b.metrics.delivered.Load(),
		"failed_events":    b.metrics.failed.Load(),
		"last_event_time":  b.metrics.lastEventTime.Load().(time.Time),
		"subscribers":      b.Len(),
		"failure_rate":     b.failureRate(),
	}
}

// failureRate calculates the failed delivery percentage
func (b *Bus) failureRate() float64 {
	failed := b.metrics.failed.Load()
	total := b.metrics.delivered.Load() + failed
	if total == 0 {
		return 0.0
	}
	return (float64(failed) / float64(total)) * 100.0
}
