package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tubegate/internal/ids"
	"tubegate/internal/models"
)

type VideoRepository struct {
	pool *pgxpool.Pool
}

func NewVideoRepository(pool *pgxpool.Pool) *VideoRepository {
	return &VideoRepository{pool: pool}
}

func (r *VideoRepository) Create(ctx context.Context, video models.Video) error {
	const query = `
		INSERT INTO videos (
			id, title, description, provider_id, thumbnail_url, is_active, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := r.pool.Exec(ctx, query,
		video.ID,
		video.Title,
		video.Description,
		video.ProviderID,
		video.ThumbnailURL,
		video.IsActive,
		video.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

// DeleteAll empties the catalogue. Only the seeder calls it.
func (r *VideoRepository) DeleteAll(ctx context.Context) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM videos`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *VideoRepository) GetByID(ctx context.Context, id string) (models.Video, error) {
	if !ids.Valid(id) {
		return models.Video{}, ErrVideoNotFound
	}

	const query = `
		SELECT id, title, description, provider_id, thumbnail_url, is_active, created_at
		FROM videos WHERE id = $1
	`

	row := r.pool.QueryRow(ctx, query, id)
	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrVideoNotFound
		}
		return models.Video{}, err
	}
	return video, nil
}

func (r *VideoRepository) ActiveRecent(ctx context.Context, limit int) ([]models.Video, error) {
	const query = `
		SELECT id, title, description, provider_id, thumbnail_url, is_active, created_at
		FROM videos
		WHERE is_active = TRUE
		ORDER BY created_at DESC, id ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	videos := make([]models.Video, 0, limit)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	if err := row.Scan(
		&video.ID,
		&video.Title,
		&video.Description,
		&video.ProviderID,
		&video.ThumbnailURL,
		&video.IsActive,
		&video.CreatedAt,
	); err != nil {
		return models.Video{}, err
	}
	video.CreatedAt = video.CreatedAt.UTC()
	return video, nil
}
