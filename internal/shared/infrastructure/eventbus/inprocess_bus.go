package eventbus

import (
	"context"
	"log/slog"
	"sync"
)

// Handler processes a published event payload.
type Handler func(ctx context.Context, routingKey string, payload []byte)

// InProcessBus dispatches events synchronously to in-process subscribers.
// It is the default when no broker is configured.
type InProcessBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

// NewInProcessBus creates a new in-process event bus.
func NewInProcessBus(logger *slog.Logger) *InProcessBus {
	return &InProcessBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for a routing key.
func (b *InProcessBus) Subscribe(routingKey string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[routingKey] = append(b.handlers[routingKey], handler)
}

// Publish delivers the payload to every handler registered for the key.
// A panicking handler is logged and does not affect other handlers.
func (b *InProcessBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	b.mu.RLock()
	handlers := b.handlers[routingKey]
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.dispatch(ctx, routingKey, payload, handler)
	}
	return nil
}

func (b *InProcessBus) dispatch(ctx context.Context, routingKey string, payload []byte, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				slog.String("routing_key", routingKey),
				slog.Any("panic", r))
		}
	}()
	handler(ctx, routingKey, payload)
}

// Close is a no-op for the in-process bus.
func (b *InProcessBus) Close() error {
	return nil
}
