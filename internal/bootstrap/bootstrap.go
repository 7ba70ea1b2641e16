// Package bootstrap builds the stores and the event bus a process runs on,
// as selected by config.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/bookstore/internal/config"
	"github.com/example/bookstore/internal/infrastructure/kafka"
	"github.com/example/bookstore/internal/infrastructure/messaging"
	"github.com/example/bookstore/internal/infrastructure/rabbitmq"
	"github.com/example/bookstore/internal/infrastructure/store"
	"github.com/rs/zerolog/log"
)

const redisPrefix = "bookstore"

// Bus is an event bus a process can both publish to and consume from.
type Bus interface {
	messaging.Publisher
	messaging.Subscriber
}

// Stores is the document store and event log of one backend.
type Stores struct {
	Docs   store.DocumentStore
	Events store.EventStoreInterface
	close  func() error
}

func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores connects the configured backend. Events appended to the log are
// published on publisher.
func OpenStores(ctx context.Context, cfg config.Config, publisher messaging.Publisher) (*Stores, error) {
	logger := log.With().Str("component", "bootstrap").Str("backend", cfg.StoreBackend).Logger()

	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn().Msg("using the in-memory store, data is lost on restart")
		return &Stores{Docs: store.NewMemoryStore(), Events: store.NewEventStore(publisher)}, nil

	case config.BackendPostgres:
		db, err := store.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return openSQL(ctx, db, store.Postgres, publisher)

	case config.BackendSQLite:
		db, err := store.ConnectSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return openSQL(ctx, db, store.SQLite, publisher)

	case config.BackendDynamo:
		client, err := store.NewDynamoClient(ctx, cfg.AWSRegion, cfg.DynamoEndpoint)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Docs:   store.NewDynamoStore(client, cfg.DynamoTable),
			Events: store.NewDynamoEventStore(client, cfg.DynamoEventsTable, publisher),
		}, nil

	case config.BackendRedis:
		client, err := store.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		logger.Warn().Msg("redis keeps documents only, the event log is in memory")
		return &Stores{
			Docs:   store.NewRedisStore(client, redisPrefix),
			Events: store.NewEventStore(publisher),
			close:  client.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func openSQL(ctx context.Context, db *sql.DB, dialect store.Dialect, publisher messaging.Publisher) (*Stores, error) {
	docs := store.NewSQLStore(db, dialect)
	events := store.NewSQLEventStore(db, dialect, publisher)
	if err := errors.Join(docs.Migrate(ctx), events.Migrate(ctx)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dialect.Name, err)
	}
	return &Stores{Docs: docs, Events: events, close: db.Close}, nil
}

// kafkaBus pairs a producer with a consumer group on the same topic.
type kafkaBus struct {
	producer *kafka.Producer
	consumer *kafka.Consumer
}

func (b *kafkaBus) Publish(ctx context.Context, key string, event any) error {
	return b.producer.Publish(ctx, key, event)
}

func (b *kafkaBus) Consume(ctx context.Context, handler messaging.Handler) error {
	return b.consumer.Consume(ctx, handler)
}

func (b *kafkaBus) Close() error {
	return errors.Join(b.producer.Close(), b.consumer.Close())
}

// OpenBus connects the configured event bus. group names the consumer, so
// every process reading the bus sees every event once.
func OpenBus(cfg config.Config, group string) (Bus, error) {
	switch cfg.EventBus {
	case config.BusLocal:
		return messaging.NewLocalBus(), nil
	case config.BusKafka:
		return &kafkaBus{
			producer: kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic),
			consumer: kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroup+"-"+group),
		}, nil
	case config.BusRabbit:
		client, err := rabbitmq.Dial(cfg.RabbitURL, cfg.RabbitExchange, cfg.RabbitQueue+"."+group)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, fmt.Errorf("unknown event bus %q", cfg.EventBus)
}

// Fanout hands each message to every handler in turn. A failing handler
// does not stop the others.
func Fanout(handlers ...messaging.Handler) messaging.Handler {
	return func(ctx context.Context, key, value []byte) error {
		var errs []error
		for _, h := range handlers {
			errs = append(errs, h(ctx, key, value))
		}
		return errors.Join(errs...)
	}
}
