package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tubegate/internal/models"
)

const watchMessageType = "watch"

// streamMaxLen caps the stream so an idle worker cannot grow it without bound.
const streamMaxLen = 100_000

type watchPayload struct {
	UserID    string    `json:"user_id"`
	VideoID   string    `json:"video_id"`
	Duration  int       `json:"duration"`
	Completed bool      `json:"completed"`
	WatchedAt time.Time `json:"watched_at"`
}

// WatchPublisher records watch events by appending them to a Redis stream.
type WatchPublisher struct {
	client *redis.Client
	stream string
}

func NewWatchPublisher(client *redis.Client, stream string) *WatchPublisher {
	return &WatchPublisher{client: client, stream: stream}
}

func (p *WatchPublisher) Record(ctx context.Context, event models.WatchEvent) error {
	payload, err := json.Marshal(watchPayload{
		UserID:    event.UserID,
		VideoID:   event.VideoID,
		Duration:  event.Duration,
		Completed: event.Completed,
		WatchedAt: event.WatchedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode watch event: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"type":    watchMessageType,
			"payload": string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish watch event: %w", err)
	}
	return nil
}

type WatchSink interface {
	Record(ctx context.Context, event models.WatchEvent) error
}

// WatchHandler moves stream messages into a durable sink. Malformed messages
// are logged and dropped so they do not block the group.
type WatchHandler struct {
	sink   WatchSink
	logger zerolog.Logger
}

func NewWatchHandler(sink WatchSink, logger zerolog.Logger) *WatchHandler {
	return &WatchHandler{sink: sink, logger: logger}
}

func (h *WatchHandler) Handle(ctx context.Context, msg redis.XMessage) error {
	if t, _ := msg.Values["type"].(string); t != watchMessageType {
		h.logger.Warn().Str("message_id", msg.ID).Str("type", t).Msg("unknown message type")
		return nil
	}

	raw, _ := msg.Values["payload"].(string)
	var payload watchPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil || payload.UserID == "" || payload.VideoID == "" {
		h.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed watch event")
		return nil
	}

	if err := h.sink.Record(ctx, models.WatchEvent{
		UserID:    payload.UserID,
		VideoID:   payload.VideoID,
		Duration:  payload.Duration,
		Completed: payload.Completed,
		WatchedAt: payload.WatchedAt,
	}); err != nil {
		return fmt.Errorf("record watch event: %w", err)
	}

	h.logger.Debug().Str("message_id", msg.ID).Str("video_id", payload.VideoID).Msg("watch event stored")
	return nil
}
