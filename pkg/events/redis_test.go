package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableRelay points at a port nothing listens on.
func unreachableRelay(t *testing.T) *RedisChannel {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	r := NewRedisChannel(client, "test:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.retryBase = 10 * time.Millisecond
	r.retryMax = 20 * time.Millisecond
	return r
}

func TestRedisChannel_Topic(t *testing.T) {
	r := unreachableRelay(t)
	assert.Equal(t, "test:"+LocationUpdate, r.Topic(LocationUpdate))
	assert.Equal(t, "test:"+LocationError, r.Topic(LocationError))
}

func TestRedisChannel_PingUnreachable(t *testing.T) {
	r := unreachableRelay(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := r.Ping(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}

func TestRedisChannel_StartRetriesUntilCancelled(t *testing.T) {
	r := unreachableRelay(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestRedisChannel_LocalDelivery(t *testing.T) {
	r := unreachableRelay(t)
	got := make(chan Outcome, 1)
	sub := r.Subscribe(LocationError, func(o Outcome) { got <- o })
	defer sub.Remove()

	r.Bus.Emit(LocationError, EncodeError("no fix"))
	select {
	case o := <-got:
		assert.False(t, o.OK())
		assert.Equal(t, "no fix", o.Failure.Message)
	case <-time.After(time.Second):
		t.Fatal("listener not called")
	}
}
