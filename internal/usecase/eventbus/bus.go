// Package eventbus is the in-process notification bus the session controller
// uses to tell presentation layers that state changed.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"chatwidget/internal/domain"
)

// DefaultQueueSize is the per-subscriber mailbox capacity.
const DefaultQueueSize = 256

type delivery struct {
	ctx   context.Context
	event domain.Event
}

// subscriber owns one mailbox and one goroutine, so a subscriber sees events
// in publish order.
type subscriber struct {
	id      uint64
	match   domain.EventType // empty matches every type
	handler domain.EventHandler
	inbox   chan delivery
}

// Option configures a Bus.
type Option func(*Bus)

// WithQueueSize sets the per-subscriber mailbox capacity.
func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// Bus is an in-process, goroutine-safe event bus.
type Bus struct {
	mu        sync.RWMutex
	subs      map[uint64]*subscriber
	nextID    atomic.Uint64
	queueSize int
	logger    *slog.Logger
	wg        sync.WaitGroup
	closed    atomic.Bool
	dropped   atomic.Uint64
}

// New creates an event bus.
func New(logger *slog.Logger, opts ...Option) *Bus {
	b := &Bus{
		subs:      make(map[uint64]*subscriber),
		queueSize: DefaultQueueSize,
		logger:    logger,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Publish enqueues event for every matching subscriber. It never blocks: a
// subscriber whose mailbox is full misses the event.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.match != "" && sub.match != event.Type {
			continue
		}
		select {
		case sub.inbox <- delivery{ctx: ctx, event: event}:
		default:
			b.dropped.Add(1)
			b.logger.Warn("event dropped, subscriber queue full",
				"event", string(event.Type),
				"subscriber", sub.id,
			)
		}
	}
}

// Dropped returns how many deliveries were discarded because a mailbox was full.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Subscribe registers a handler for a specific event type.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	return b.add(eventType, handler)
}

// SubscribeAll registers a handler that receives every event.
// Returns an unsubscribe function.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	return b.add("", handler)
}

func (b *Bus) add(match domain.EventType, handler domain.EventHandler) func() {
	sub := &subscriber{
		id:      b.nextID.Add(1),
		match:   match,
		handler: handler,
		inbox:   make(chan delivery, b.queueSize),
	}

	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		return func() {}
	}
	b.subs[sub.id] = sub
	b.wg.Add(1)
	b.mu.Unlock()

	go b.run(sub)

	return func() { b.remove(sub.id) }
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.inbox)
	}
}

func (b *Bus) run(sub *subscriber) {
	defer b.wg.Done()
	for d := range sub.inbox {
		b.deliver(sub, d)
	}
}

func (b *Bus) deliver(sub *subscriber, d delivery) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", string(d.event.Type),
				"panic", r,
			)
		}
	}()
	sub.handler(d.ctx, d.event)
}

// Close stops new publishes, lets every subscriber drain what is already
// queued and waits for them. Close is idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed.Swap(true) {
		b.mu.Unlock()
		return
	}
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.inbox)
	}
	b.mu.Unlock()
	b.wg.Wait()
}
