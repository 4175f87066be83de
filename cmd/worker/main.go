package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"tubegate/internal/cache"
	"tubegate/internal/config"
	"tubegate/internal/database"
	"tubegate/internal/log"
	"tubegate/internal/queue"
	"tubegate/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Debug)

	if cfg.Redis.Addr == "" {
		logger.Fatal().Msg("worker requires REDIS_ADDR")
	}
	if cfg.Database.Driver != "postgres" {
		logger.Fatal().Str("driver", cfg.Database.Driver).Msg("worker requires the postgres driver")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	pool, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer pool.Close()

	handler := queue.NewWatchHandler(repository.NewWatchRepository(pool), logger)
	consumer := queue.NewConsumer(client, queue.ConsumerConfig{
		Stream:        cfg.Watch.Stream,
		Group:         cfg.Watch.Group,
		Consumer:      cfg.Watch.Consumer,
		ClaimInterval: cfg.Watch.ClaimInterval,
	}, logger, handler)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("consumer stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("consumer did not stop in time")
	}
}
