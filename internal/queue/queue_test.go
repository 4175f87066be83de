package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubegate/internal/models"
)

type recordingSink struct {
	mu     sync.Mutex
	events []models.WatchEvent
	fail   error
}

func (s *recordingSink) Record(_ context.Context, event models.WatchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.events = append(s.events, event)
	return nil
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Stream:        "watch:events",
		Group:         "watch-recorders",
		Consumer:      "test-1",
		ClaimInterval: time.Minute,
		Block:         10 * time.Millisecond,
	}
}

func TestPublishAndConsume(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	sink := &recordingSink{}
	consumer := NewConsumer(client, testConsumerConfig(), zerolog.Nop(), NewWatchHandler(sink, zerolog.Nop()))
	require.NoError(t, consumer.EnsureGroup(ctx))
	require.NoError(t, consumer.EnsureGroup(ctx))

	watchedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	publisher := NewWatchPublisher(client, "watch:events")
	require.NoError(t, publisher.Record(ctx, models.WatchEvent{
		UserID:    "user-1",
		VideoID:   "video-1",
		Duration:  95,
		Completed: true,
		WatchedAt: watchedAt,
	}))

	acked, err := consumer.ReadOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, acked)

	require.Len(t, sink.events, 1)
	got := sink.events[0]
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "video-1", got.VideoID)
	assert.Equal(t, 95, got.Duration)
	assert.True(t, got.Completed)
	assert.True(t, watchedAt.Equal(got.WatchedAt))

	pending, err := client.XPending(ctx, "watch:events", "watch-recorders").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 0, pending.Count)
}

func TestFailedMessagesStayPending(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	sink := &recordingSink{fail: errors.New("db down")}
	consumer := NewConsumer(client, testConsumerConfig(), zerolog.Nop(), NewWatchHandler(sink, zerolog.Nop()))
	require.NoError(t, consumer.EnsureGroup(ctx))

	require.NoError(t, NewWatchPublisher(client, "watch:events").Record(ctx, models.WatchEvent{
		UserID:  "user-1",
		VideoID: "video-1",
	}))

	acked, err := consumer.ReadOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, acked)

	pending, err := client.XPending(ctx, "watch:events", "watch-recorders").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending.Count)
}

func TestMalformedMessagesAreDropped(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	sink := &recordingSink{}
	consumer := NewConsumer(client, testConsumerConfig(), zerolog.Nop(), NewWatchHandler(sink, zerolog.Nop()))
	require.NoError(t, consumer.EnsureGroup(ctx))

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: "watch:events",
		Values: map[string]any{"type": "watch", "payload": "{not json"},
	}).Err())
	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: "watch:events",
		Values: map[string]any{"type": "other"},
	}).Err())

	acked, err := consumer.ReadOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, acked)
	assert.Empty(t, sink.events)
}
