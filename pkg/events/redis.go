package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisChannel relays native events published on Redis pub/sub topics into a
// local Bus. Topics are the event names prefixed with prefix.
// It is used when the SDK runs in a separate process (e.g. a device agent).
type RedisChannel struct {
	*Bus
	client *redis.Client
	prefix string
	logger *slog.Logger

	retryBase time.Duration
	retryMax  time.Duration
}

// NewRedisChannel creates a relay. Call Start to begin consuming.
func NewRedisChannel(client *redis.Client, prefix string, logger *slog.Logger) *RedisChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisChannel{
		Bus:    NewBus(logger),
		client: client,
		prefix: prefix,
		logger: logger,

		retryBase: 500 * time.Millisecond,
		retryMax:  30 * time.Second,
	}
}

// Topic returns the Redis topic for an event name.
func (r *RedisChannel) Topic(name string) string {
	return r.prefix + name
}

// Emit publishes payload to the event's topic. Delivery to local listeners
// happens when the message comes back through Start.
func (r *RedisChannel) Emit(name string, payload []byte) {
	if err := r.client.Publish(context.Background(), r.Topic(name), payload).Err(); err != nil {
		r.logger.Error("Failed to publish location event", "name", name, "error", err)
	}
}

// Ping checks the connection to Redis.
func (r *RedisChannel) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Start consumes the event topics until ctx is done. A dropped subscription
// is re-established with exponential backoff.
func (r *RedisChannel) Start(ctx context.Context) error {
	topics := make([]string, 0, len(Names))
	byTopic := make(map[string]string, len(Names))
	for _, n := range Names {
		t := r.Topic(n)
		topics = append(topics, t)
		byTopic[t] = n
	}

	r.logger.Info("Redis event relay is running", "topics", topics)
	backoff := NewBackoff(r.retryBase, r.retryMax)
	for {
		received, err := r.consume(ctx, topics, byTopic)
		if ctx.Err() != nil {
			r.logger.Info("shutting down Redis event relay")
			return nil
		}
		if received {
			backoff.Reset()
		}

		delay := backoff.Next()
		r.logger.Warn("Redis event relay interrupted, resubscribing",
			"error", err, "attempt", backoff.Failures(), "retry_in", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			r.logger.Info("shutting down Redis event relay")
			return nil
		}
	}
}

// consume runs one subscription and reports whether it delivered anything.
func (r *RedisChannel) consume(ctx context.Context, topics []string, byTopic map[string]string) (bool, error) {
	pubsub := r.client.Subscribe(ctx, topics...)
	defer func() {
		if err := pubsub.Close(); err != nil {
			r.logger.Warn("failed to close pubsub", "error", err)
		}
	}()

	if _, err := pubsub.Receive(ctx); err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}

	received := false
	msgCh := pubsub.Channel()
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return received, errors.New("pubsub channel closed by Redis")
			}
			name, known := byTopic[msg.Channel]
			if !known {
				continue
			}
			received = true
			r.Bus.Emit(name, []byte(msg.Payload))
		case <-ctx.Done():
			return received, ctx.Err()
		}
	}
}
