package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	defaultJWTSecret      = "dev-secret-key-change-me"
	defaultPlaybackSecret = "playback-secret-change-me"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory". The memory driver keeps everything in
	// process and is meant for local development and tests.
	Driver          string
	URL             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	Migrate         bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SecurityConfig lifetimes are in seconds, matching the environment contract.
type SecurityConfig struct {
	JWTSecretKey           string
	JWTAccessTokenExpires  int
	JWTRefreshTokenExpires int
	PlaybackTokenSecret    string
	PlaybackTokenExpires   int
	BcryptCost             int
}

func (s SecurityConfig) AccessTTL() time.Duration {
	return time.Duration(s.JWTAccessTokenExpires) * time.Second
}

func (s SecurityConfig) RefreshTTL() time.Duration {
	return time.Duration(s.JWTRefreshTokenExpires) * time.Second
}

func (s SecurityConfig) PlaybackTTL() time.Duration {
	return time.Duration(s.PlaybackTokenExpires) * time.Second
}

type VideoConfig struct {
	DashboardLimit int
}

type RateRule struct {
	Limit  int
	Window time.Duration
}

type RateLimitConfig struct {
	Enabled bool
	Default RateRule
	Login   RateRule
	Signup  RateRule
}

type WatchConfig struct {
	// Sink is "postgres" (direct insert) or "stream" (Redis stream drained by the worker).
	Sink          string
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

type AppConfig struct {
	Environment      string
	Debug            bool
	HTTP             HTTPConfig
	Database         DatabaseConfig
	Redis            RedisConfig
	Security         SecurityConfig
	Video            VideoConfig
	RateLimit        RateLimitConfig
	Watch            WatchConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that would weaken the token design.
func (c *AppConfig) Validate() error {
	sec := c.Security
	if sec.JWTSecretKey == "" || sec.PlaybackTokenSecret == "" {
		return errors.New("config: JWT_SECRET_KEY and PLAYBACK_TOKEN_SECRET must be set")
	}
	if sec.JWTSecretKey == sec.PlaybackTokenSecret {
		return errors.New("config: JWT_SECRET_KEY and PLAYBACK_TOKEN_SECRET must differ")
	}
	if c.Environment == "production" &&
		(sec.JWTSecretKey == defaultJWTSecret || sec.PlaybackTokenSecret == defaultPlaybackSecret) {
		return errors.New("config: development secrets are not allowed in production")
	}
	if sec.JWTAccessTokenExpires <= 0 || sec.JWTRefreshTokenExpires <= 0 || sec.PlaybackTokenExpires <= 0 {
		return errors.New("config: token lifetimes must be positive")
	}
	if c.Video.DashboardLimit <= 0 {
		return errors.New("config: video dashboard limit must be positive")
	}
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	switch c.Watch.Sink {
	case "postgres", "stream":
	default:
		return fmt.Errorf("config: unknown watch sink %q", c.Watch.Sink)
	}
	return nil
}

// bindEnv maps keys whose environment names do not follow the dotted-key
// convention.
func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"database.driver":                 "STORE_DRIVER",
		"database.url":                    "DATABASE_URL",
		"security.jwtsecretkey":           "JWT_SECRET_KEY",
		"security.jwtaccesstokenexpires":  "JWT_ACCESS_TOKEN_EXPIRES",
		"security.jwtrefreshtokenexpires": "JWT_REFRESH_TOKEN_EXPIRES",
		"security.playbacktokensecret":    "PLAYBACK_TOKEN_SECRET",
		"security.playbacktokenexpires":   "PLAYBACK_TOKEN_EXPIRES",
		"security.bcryptcost":             "SECURITY_BCRYPT_COST",
		"video.dashboardlimit":            "VIDEO_DASHBOARD_LIMIT",
		"allowcorsorigins":                "CORS_ALLOW_ORIGINS",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("debug", false)

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 5000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "postgres://localhost:5432/video_app?sslmode=disable")
	v.SetDefault("database.maxopen", 30)
	v.SetDefault("database.maxidle", 5)
	v.SetDefault("database.connmaxlifetime", "30m")
	v.SetDefault("database.migrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.jwtsecretkey", defaultJWTSecret)
	v.SetDefault("security.jwtaccesstokenexpires", 900)
	v.SetDefault("security.jwtrefreshtokenexpires", 604800)
	v.SetDefault("security.playbacktokensecret", defaultPlaybackSecret)
	v.SetDefault("security.playbacktokenexpires", 3600)
	v.SetDefault("security.bcryptcost", 10)

	v.SetDefault("video.dashboardlimit", 2)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.default.limit", 50)
	v.SetDefault("ratelimit.default.window", "1h")
	v.SetDefault("ratelimit.login.limit", 5)
	v.SetDefault("ratelimit.login.window", "1m")
	v.SetDefault("ratelimit.signup.limit", 10)
	v.SetDefault("ratelimit.signup.window", "1m")

	v.SetDefault("watch.sink", "postgres")
	v.SetDefault("watch.stream", "watch:events")
	v.SetDefault("watch.group", "watch-recorders")
	v.SetDefault("watch.consumer", "worker-1")
	v.SetDefault("watch.claiminterval", "30s")

	v.SetDefault("allowcorsorigins", []string{"*"})
}
