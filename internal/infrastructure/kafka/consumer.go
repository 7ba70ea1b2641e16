package kafka

import (
	"context"

	"github.com/example/bookstore/internal/infrastructure/messaging"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// Consumer reads bookstore events from a topic as part of a consumer group.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

// Consume blocks, handing every message to handler until ctx is done.
// Handler failures are logged and the message is committed anyway.
func (c *Consumer) Consume(ctx context.Context, handler messaging.Handler) error {
	logger := log.With().Str("component", "kafka").Str("topic", c.reader.Config().Topic).Logger()
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error().Err(err).Msg("read message")
			continue
		}

		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			logger.Error().Err(err).Str("key", string(msg.Key)).Int64("offset", msg.Offset).Msg("handle message")
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
