package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"tubegate/internal/config"
	"tubegate/internal/middleware"
	"tubegate/internal/ratelimit"
	"tubegate/internal/service"
)

// Pinger is anything health can probe: the pgx pool, the redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Config *config.AppConfig
	Auth   *service.AuthService
	Videos *service.VideoService
	// Limiter is nil when rate limiting is disabled.
	Limiter ratelimit.Limiter
	Checks  map[string]Pinger
	Log     zerolog.Logger
}

type HandlerSet struct {
	log          zerolog.Logger
	cfg          *config.AppConfig
	authService  *service.AuthService
	videoService *service.VideoService
	limiter      ratelimit.Limiter
	checks       map[string]Pinger
}

func NewHandlerSet(deps Dependencies) HandlerSet {
	return HandlerSet{
		log:          deps.Log,
		cfg:          deps.Config,
		authService:  deps.Auth,
		videoService: deps.Videos,
		limiter:      deps.Limiter,
		checks:       deps.Checks,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limits := h.cfg.RateLimit
	api := router.Group("")
	api.Use(middleware.RateLimit(h.limiter, "default", limits.Default, h.log))

	guard := middleware.Auth(h.authService, h.log)

	auth := api.Group("/auth")
	{
		auth.POST("/signup", middleware.RateLimit(h.limiter, "signup", limits.Signup, h.log), h.Signup)
		auth.POST("/login", middleware.RateLimit(h.limiter, "login", limits.Login, h.log), h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.GET("/me", guard, h.Me)
		auth.POST("/logout", middleware.Auth(h.authService, h.log, middleware.AllowRevoked()), h.Logout)
	}

	protected := api.Group("")
	protected.Use(guard)
	{
		protected.GET("/dashboard", h.Dashboard)
		protected.GET("/video/:id/stream", h.Stream)
		protected.POST("/video/:id/track", h.Track)
	}
}
