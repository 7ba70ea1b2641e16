package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBus_PublishFansOut(t *testing.T) {
	bus := NewLocalBus()
	var got []string

	bus.Subscribe(func(ctx context.Context, key, value []byte) error {
		got = append(got, "a:"+string(key))
		return nil
	})
	bus.Subscribe(func(ctx context.Context, key, value []byte) error {
		var payload map[string]string
		require.NoError(t, json.Unmarshal(value, &payload))
		got = append(got, "b:"+payload["name"])
		return nil
	})

	err := bus.Publish(context.Background(), "order-1", map[string]string{"name": "placed"})

	require.NoError(t, err)
	assert.Equal(t, []string{"a:order-1", "b:placed"}, got)
}

func TestLocalBus_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := NewLocalBus()
	calls := 0

	bus.Subscribe(func(ctx context.Context, key, value []byte) error {
		calls++
		return errors.New("boom")
	})
	bus.Subscribe(func(ctx context.Context, key, value []byte) error {
		calls++
		return nil
	})

	err := bus.Publish(context.Background(), "k", struct{}{})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestLocalBus_ConsumeBlocksUntilCancelled(t *testing.T) {
	bus := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())

	received := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- bus.Consume(ctx, func(ctx context.Context, key, value []byte) error {
			received <- string(key)
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.handlers) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, bus.Publish(context.Background(), "book-9", "x"))
	assert.Equal(t, "book-9", <-received)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
