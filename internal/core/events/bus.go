package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
	Payload() interface{}
}

type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) Payload() interface{}  { return e.Data }

type Handler func(ctx context.Context, event Event) error

// EventBus fans events out to in-process subscribers. Asynchronous
// deliveries are tracked so Drain can wait for them on shutdown.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	inline   map[string][]Handler
	inflight sync.WaitGroup
	logger   *slog.Logger
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[string][]Handler),
		inline:   make(map[string][]Handler),
		logger:   logger,
	}
}

// SubscribeSync registers a handler that Publish runs on the caller's
// goroutine before returning. Use it for work later reads depend on, such
// as cache invalidation.
func (eb *EventBus) SubscribeSync(eventType string, handler Handler) {
	eb.mu.Lock()
	eb.inline[eventType] = append(eb.inline[eventType], handler)
	eb.mu.Unlock()

	eb.logger.Debug("inline event handler registered", "event_type", eventType)
}

func (eb *EventBus) Subscribe(eventType string, handler Handler) {
	eb.mu.Lock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	n := len(eb.handlers[eventType])
	eb.mu.Unlock()

	eb.logger.Debug("event handler registered", "event_type", eventType, "total_handlers", n)
}

// SubscribeMany registers handler for each of eventTypes.
func (eb *EventBus) SubscribeMany(eventTypes []string, handler Handler) {
	for _, t := range eventTypes {
		eb.Subscribe(t, handler)
	}
}

// subscribers returns copies so delivery never races a late Subscribe.
func (eb *EventBus) subscribers(eventType string) (inline, async []Handler) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if hs := eb.inline[eventType]; len(hs) > 0 {
		inline = append([]Handler(nil), hs...)
	}
	if hs := eb.handlers[eventType]; len(hs) > 0 {
		async = append([]Handler(nil), hs...)
	}
	return inline, async
}

// Publish runs inline subscribers first, then delivers event to every other
// subscriber on its own goroutine. The asynchronous handlers get a context
// detached from the caller's cancellation. Handler failures are logged, never
// returned.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	inline, handlers := eb.subscribers(event.EventType())
	for _, h := range inline {
		if err := eb.deliver(ctx, h, event); err != nil {
			eb.logger.Error("inline event handler failed",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"error", err)
		}
	}
	if handlers == nil {
		eb.logger.Debug("no handlers for event type", "event_type", event.EventType())
		return nil
	}

	detached := context.WithoutCancel(ctx)
	eb.inflight.Add(len(handlers))
	for _, h := range handlers {
		go func(h Handler) {
			defer eb.inflight.Done()
			if err := eb.deliver(detached, h, event); err != nil {
				eb.logger.Error("event handler failed",
					"event_type", event.EventType(),
					"event_id", event.EventID(),
					"error", err)
			}
		}(h)
	}
	return nil
}

// PublishSync runs every subscriber on the caller's goroutine, inline ones
// first, in registration order and stops at the first failure.
func (eb *EventBus) PublishSync(ctx context.Context, event Event) error {
	inline, async := eb.subscribers(event.EventType())
	for _, h := range append(inline, async...) {
		if err := eb.deliver(ctx, h, event); err != nil {
			return fmt.Errorf("handler failed for event %s: %w", event.EventType(), err)
		}
	}
	return nil
}

// Drain blocks until asynchronous deliveries finish or ctx is done.
func (eb *EventBus) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		eb.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (eb *EventBus) deliver(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return h(ctx, event)
}
