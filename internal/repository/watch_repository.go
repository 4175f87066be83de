package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"tubegate/internal/ids"
	"tubegate/internal/models"
)

// WatchRepository is the append-only watch_history sink.
type WatchRepository struct {
	pool *pgxpool.Pool
}

func NewWatchRepository(pool *pgxpool.Pool) *WatchRepository {
	return &WatchRepository{pool: pool}
}

func (r *WatchRepository) Record(ctx context.Context, event models.WatchEvent) error {
	const query = `
		INSERT INTO watch_history (id, user_id, video_id, duration, completed, watched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		ids.New(),
		event.UserID,
		event.VideoID,
		event.Duration,
		event.Completed,
		event.WatchedAt,
	)
	if err != nil {
		return fmt.Errorf("insert watch event: %w", err)
	}
	return nil
}
