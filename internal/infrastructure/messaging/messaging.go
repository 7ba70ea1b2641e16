package messaging

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Handler processes a single message taken off the event bus.
type Handler func(ctx context.Context, key, value []byte) error

// Publisher sends an event onto the bus.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Subscriber delivers bus messages to a handler until ctx is done.
type Subscriber interface {
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

// LocalBus is an in-process bus used when no broker is configured.
// Publish delivers synchronously to every registered handler.
type LocalBus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

// Subscribe registers a handler for all future messages.
func (b *LocalBus) Subscribe(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

func (b *LocalBus) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, []byte(key), data); err != nil {
			log.Warn().Err(err).Str("component", "bus").Str("key", key).Msg("handler failed")
		}
	}
	return nil
}

// Consume registers handler and blocks until ctx is cancelled.
func (b *LocalBus) Consume(ctx context.Context, handler Handler) error {
	b.Subscribe(handler)
	<-ctx.Done()
	return ctx.Err()
}

func (b *LocalBus) Close() error {
	return nil
}
