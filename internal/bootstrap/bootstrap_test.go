package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/example/bookstore/internal/config"
	"github.com/example/bookstore/internal/infrastructure/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Store Tests
// ============================================

func TestOpenStores_Memory(t *testing.T) {
	bus := messaging.NewLocalBus()
	var published []string
	bus.Subscribe(func(_ context.Context, key, _ []byte) error {
		published = append(published, string(key))
		return nil
	})

	stores, err := OpenStores(context.Background(), config.Config{StoreBackend: config.BackendMemory}, bus)
	require.NoError(t, err)
	defer stores.Close()

	require.NoError(t, stores.Docs.Put(context.Background(), "books", "b1", []byte(`{}`)))
	_, err = stores.Events.Append(context.Background(), "b1", "Book", "BookCreated", map[string]string{"title": "Dune"})
	require.NoError(t, err)

	assert.Equal(t, []string{"b1"}, published)
}

func TestOpenStores_SQLite(t *testing.T) {
	cfg := config.Config{StoreBackend: config.BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "bookstore.db")}
	ctx := context.Background()

	stores, err := OpenStores(ctx, cfg, messaging.NewLocalBus())
	require.NoError(t, err)

	require.NoError(t, stores.Docs.Put(ctx, "books", "b1", []byte(`{"stock":2}`)))
	_, err = stores.Events.Append(ctx, "b1", "Book", "BookCreated", map[string]string{"title": "Dune"})
	require.NoError(t, err)
	require.NoError(t, stores.Close())

	reopened, err := OpenStores(ctx, cfg, messaging.NewLocalBus())
	require.NoError(t, err)
	defer reopened.Close()

	doc, err := reopened.Docs.Get(ctx, "books", "b1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"stock":2}`, string(doc))
	events, err := reopened.Events.GetAllEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestOpenStores_UnknownBackend(t *testing.T) {
	_, err := OpenStores(context.Background(), config.Config{StoreBackend: "mongo"}, messaging.NewLocalBus())
	assert.ErrorContains(t, err, `unknown store backend "mongo"`)
}

// ============================================
// Bus Tests
// ============================================

func TestOpenBus(t *testing.T) {
	bus, err := OpenBus(config.Config{EventBus: config.BusLocal}, "api")
	require.NoError(t, err)
	assert.IsType(t, &messaging.LocalBus{}, bus)
	assert.NoError(t, bus.Close())

	_, err = OpenBus(config.Config{EventBus: "carrier-pigeon"}, "api")
	assert.ErrorContains(t, err, "unknown event bus")
}

func TestFanout(t *testing.T) {
	var calls []string
	record := func(name string, err error) messaging.Handler {
		return func(_ context.Context, key, _ []byte) error {
			calls = append(calls, name+":"+string(key))
			return err
		}
	}
	boom := errors.New("boom")

	err := Fanout(record("projector", boom), record("feed", nil))(context.Background(), []byte("order-1"), nil)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"projector:order-1", "feed:order-1"}, calls)
}
