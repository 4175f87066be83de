package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tubegate/internal/cache"
	"tubegate/internal/config"
	"tubegate/internal/database"
	"tubegate/internal/handlers"
	"tubegate/internal/jobs"
	"tubegate/internal/log"
	"tubegate/internal/queue"
	"tubegate/internal/ratelimit"
	"tubegate/internal/repository"
	"tubegate/internal/security"
	"tubegate/internal/seed"
	"tubegate/internal/server"
	"tubegate/internal/service"
)

type stores struct {
	users   service.UserStore
	videos  service.VideoStore
	watches service.WatchRecorder
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Debug)

	ctx := context.Background()
	checks := make(map[string]handlers.Pinger)
	scheduler := jobs.NewScheduler(logger)

	var dbPool *pgxpool.Pool
	var st stores
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		mem := repository.NewMemoryStore()
		if _, n, err := seed.Replace(ctx, mem.Videos(), time.Now()); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed memory store")
		} else {
			logger.Info().Int("videos", n).Msg("memory store seeded")
		}
		st = stores{users: mem.Users(), videos: mem.Videos(), watches: mem.Watches()}
	default:
		dbPool, err = database.NewPostgresPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect postgres")
		}
		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, dbPool); err != nil {
				logger.Fatal().Err(err).Msg("failed to migrate postgres")
			}
		}
		checks["database"] = dbPool
		st = stores{
			users:   repository.NewUserRepository(dbPool),
			videos:  repository.NewVideoRepository(dbPool),
			watches: repository.NewWatchRepository(dbPool),
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		checks["redis"] = cache.Pinger{Client: redisClient}
	}

	var blacklist repository.Blacklist
	var limiter ratelimit.Limiter
	if redisClient != nil {
		blacklist = repository.NewRedisBlacklist(redisClient)
		if cfg.RateLimit.Enabled {
			limiter = ratelimit.NewRedisLimiter(redisClient)
		}
	} else {
		memBlacklist := repository.NewMemoryBlacklist()
		scheduler.AddSweeper("blacklist", memBlacklist)
		blacklist = memBlacklist
		if cfg.RateLimit.Enabled {
			memLimiter := ratelimit.NewMemoryLimiter()
			scheduler.AddSweeper("ratelimit", memLimiter)
			limiter = memLimiter
		}
	}

	if cfg.Watch.Sink == "stream" {
		if redisClient == nil {
			logger.Fatal().Msg("watch sink \"stream\" requires REDIS_ADDR")
		}
		st.watches = queue.NewWatchPublisher(redisClient, cfg.Watch.Stream)
	}

	tokens := security.NewTokenService(security.TokenConfig{
		SessionSecret:  cfg.Security.JWTSecretKey,
		PlaybackSecret: cfg.Security.PlaybackTokenSecret,
		AccessTTL:      cfg.Security.AccessTTL(),
		RefreshTTL:     cfg.Security.RefreshTTL(),
		PlaybackTTL:    cfg.Security.PlaybackTTL(),
	})
	hasher, err := security.NewPasswordHasher(cfg.Security.BcryptCost)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid bcrypt cost")
	}

	authService := service.NewAuthService(st.users, blacklist, tokens, hasher, logger)
	videoService := service.NewVideoService(st.videos, st.watches, tokens, service.VideoServiceConfig{
		DashboardLimit: cfg.Video.DashboardLimit,
		Sink:           cfg.Watch.Sink,
	}, logger)

	handlerSet := handlers.NewHandlerSet(handlers.Dependencies{
		Config:  cfg,
		Auth:    authService,
		Videos:  videoService,
		Limiter: limiter,
		Checks:  checks,
		Log:     logger,
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scheduler did not stop in time")
	}

	if db != nil {
		db.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
