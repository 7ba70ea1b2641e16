package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/bookstore/internal/infrastructure/messaging"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// RoutingPrefix is prepended to the aggregate id to form the routing key.
const RoutingPrefix = "events."

// Client publishes and consumes bookstore events over a durable topic exchange.
type Client struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	queue    string
}

func Dial(url, exchange, queue string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Client{conn: conn, ch: ch, exchange: exchange, queue: queue}, nil
}

// RoutingKey returns the routing key used for an aggregate's events.
func RoutingKey(key string) string {
	return RoutingPrefix + key
}

func (c *Client) Publish(ctx context.Context, key string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.ch.PublishWithContext(ctx, c.exchange, RoutingKey(key), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    key,
		Body:         body,
	})
}

// Consume binds the client's queue to every event and blocks until ctx is done
// or the broker closes the delivery channel.
func (c *Client) Consume(ctx context.Context, handler messaging.Handler) error {
	q, err := c.ch.QueueDeclare(c.queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}
	if err := c.ch.QueueBind(q.Name, RoutingPrefix+"#", c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", q.Name, err)
	}
	deliveries, err := c.ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}

	logger := log.With().Str("component", "rabbitmq").Str("queue", q.Name).Logger()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", q.Name)
			}
			if err := handler(ctx, []byte(d.MessageId), d.Body); err != nil {
				logger.Error().Err(err).Str("routing_key", d.RoutingKey).Msg("handle message")
			}
			if err := d.Ack(false); err != nil {
				logger.Error().Err(err).Msg("ack")
			}
		}
	}
}

func (c *Client) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
