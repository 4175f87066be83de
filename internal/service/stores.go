package service

import (
	"context"

	"tubegate/internal/models"
)

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
}

type VideoStore interface {
	GetByID(ctx context.Context, id string) (models.Video, error)
	ActiveRecent(ctx context.Context, limit int) ([]models.Video, error)
}

// WatchRecorder is satisfied by the Postgres repository, the in-memory store
// and the Redis stream publisher.
type WatchRecorder interface {
	Record(ctx context.Context, event models.WatchEvent) error
}
