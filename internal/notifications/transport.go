package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"feedhub/internal/observability"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

// PostsChannel is the Redis channel post change events are published on.
const PostsChannel = "feed:posts"

// Transport carries encoded events between API instances so every instance's hub sees them.
type Transport interface {
	Publish(ctx context.Context, payload []byte) error
	// Subscribe delivers every published payload to onMessage until ctx is done.
	Subscribe(ctx context.Context, onMessage func(payload []byte)) error
	Close() error
}

// deliver runs onMessage, keeping a panicking handler from killing the subscriber loop.
func deliver(transport string, onMessage func([]byte), payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			observability.Log.Error("panic in event subscriber",
				slog.String("transport", transport),
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	onMessage(payload)
}

// RedisTransport publishes events over Redis pub/sub.
type RedisTransport struct {
	rdb     *redis.Client
	channel string
}

// NewRedisTransport creates a RedisTransport on PostsChannel.
func NewRedisTransport(rdb *redis.Client) *RedisTransport {
	return &RedisTransport{rdb: rdb, channel: PostsChannel}
}

func (t *RedisTransport) Publish(ctx context.Context, payload []byte) error {
	if err := t.rdb.Publish(ctx, t.channel, payload).Err(); err != nil {
		observability.RedisErrorRate.WithLabelValues("publish").Inc()
		return err
	}
	return nil
}

func (t *RedisTransport) Subscribe(ctx context.Context, onMessage func(payload []byte)) error {
	sub := t.rdb.Subscribe(ctx, t.channel)
	// Wait for the confirmation so nothing published after Subscribe returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		observability.RedisErrorRate.WithLabelValues("subscribe").Inc()
		return fmt.Errorf("subscribe %s: %w", t.channel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				deliver("redis", onMessage, []byte(msg.Payload))
			}
		}
	}()

	return nil
}

// Close is a no-op; the Redis client is shared and closed by its owner.
func (t *RedisTransport) Close() error { return nil }

// RabbitMQTransport publishes events to a fanout exchange. Each instance consumes
// through its own exclusive queue bound to the exchange.
type RabbitMQTransport struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewRabbitMQTransport dials url and declares the fanout exchange.
func NewRabbitMQTransport(url, exchange string) (*RabbitMQTransport, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if strings.TrimSpace(exchange) == "" {
		return nil, errors.New("rabbitmq exchange is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &RabbitMQTransport{conn: conn, channel: ch, exchange: exchange}, nil
}

func (t *RabbitMQTransport) Publish(ctx context.Context, payload []byte) error {
	return t.channel.PublishWithContext(ctx, t.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        payload,
	})
}

func (t *RabbitMQTransport) Subscribe(ctx context.Context, onMessage func(payload []byte)) error {
	q, err := t.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return err
	}
	if err := t.channel.QueueBind(q.Name, "", t.exchange, false, nil); err != nil {
		return err
	}

	deliveries, err := t.channel.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					return
				}
				deliver("rabbitmq", onMessage, delivery.Body)
			}
		}
	}()

	return nil
}

// Close closes the underlying channel and connection.
func (t *RabbitMQTransport) Close() error {
	if t.channel != nil {
		_ = t.channel.Close()
	}
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}
