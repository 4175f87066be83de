package main

import (
	"context"
	"time"

	"tubegate/internal/config"
	"tubegate/internal/database"
	"tubegate/internal/log"
	"tubegate/internal/repository"
	"tubegate/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Debug)

	if cfg.Database.Driver != "postgres" {
		logger.Fatal().Str("driver", cfg.Database.Driver).Msg("seeding needs a persistent store; the api seeds the memory driver itself")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer pool.Close()

	// Migrations create the tables and the email, is_active and
	// (user_id, video_id) indexes.
	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate postgres")
	}

	removed, inserted, err := seed.Replace(ctx, repository.NewVideoRepository(pool), time.Now())
	if err != nil {
		logger.Fatal().Err(err).Msg("seed failed")
	}

	logger.Info().
		Int64("removed", removed).
		Int("inserted", inserted).
		Msg("video catalogue seeded")
}
