package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tubegate/internal/config"
	"tubegate/internal/ids"
	"tubegate/internal/middleware"
	"tubegate/internal/models"
	"tubegate/internal/ratelimit"
	"tubegate/internal/repository"
	"tubegate/internal/security"
	"tubegate/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	router *gin.Engine
	store  *repository.MemoryStore
	now    time.Time
}

type appOptions struct {
	accessTTL time.Duration
	limiter   ratelimit.Limiter
}

func newTestApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()
	if opts.accessTTL == 0 {
		opts.accessTTL = 15 * time.Minute
	}

	app := &testApp{
		store: repository.NewMemoryStore(),
		now:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return app.now }

	tokens := security.NewTokenService(security.TokenConfig{
		SessionSecret:  "session-secret",
		PlaybackSecret: "playback-secret",
		AccessTTL:      opts.accessTTL,
		RefreshTTL:     7 * 24 * time.Hour,
		PlaybackTTL:    time.Hour,
	}, security.WithClock(clock))
	hasher, err := security.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.AppConfig{
		RateLimit: config.RateLimitConfig{
			Enabled: opts.limiter != nil,
			Default: config.RateRule{Limit: 1000, Window: time.Hour},
			Login:   config.RateRule{Limit: 5, Window: time.Minute},
			Signup:  config.RateRule{Limit: 10, Window: time.Minute},
		},
	}

	log := zerolog.Nop()
	auth := service.NewAuthService(app.store.Users(), repository.NewMemoryBlacklist(), tokens, hasher, log)
	videos := service.NewVideoService(app.store.Videos(), app.store.Watches(), tokens,
		service.VideoServiceConfig{DashboardLimit: 2, Sink: "memory"}, log)

	handlerSet := NewHandlerSet(Dependencies{
		Config:  cfg,
		Auth:    auth,
		Videos:  videos,
		Limiter: opts.limiter,
		Log:     log,
	})

	app.router = gin.New()
	app.router.Use(middleware.RequestID(), middleware.Recovery(log))
	handlerSet.Register(app.router.Group(""))
	return app
}

func (a *testApp) seedVideo(t *testing.T, providerID string, active bool, age time.Duration) models.Video {
	t.Helper()
	v := models.Video{
		ID:           ids.New(),
		Title:        "Talk from " + age.String() + " ago",
		Description:  "A recorded talk.",
		ProviderID:   providerID,
		ThumbnailURL: "https://cdn.example.com/" + ids.New() + ".jpg",
		IsActive:     active,
		CreatedAt:    a.now.Add(-age),
	}
	require.NoError(t, a.store.Videos().Create(context.Background(), v))
	return v
}

func (a *testApp) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *testApp) signup(t *testing.T, name, email, password string) authResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/signup", gin.H{"name": name, "email": email, "password": password}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authResponse](t, rec)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, appOptions{})
	rec := app.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "API is running", body["message"])
}

func TestHappyPath(t *testing.T) {
	app := newTestApp(t, appOptions{})
	first := app.seedVideo(t, "qp0HIF3SfI4", true, time.Hour)
	second := app.seedVideo(t, "iCvmsMzlF7o", true, 2*time.Hour)
	third := app.seedVideo(t, "arj7oStGLkU", true, 3*time.Hour)

	auth := app.signup(t, "Ada", "ada@x.io", "pw12ab")
	assert.Equal(t, "User created successfully", auth.Message)
	assert.Equal(t, "Bearer", auth.TokenType)
	assert.Equal(t, 900, auth.ExpiresIn)
	assert.Equal(t, "ada@x.io", auth.User.Email)
	_, err := time.Parse(time.RFC3339, auth.User.CreatedAt)
	assert.NoError(t, err)

	rec := app.do(t, http.MethodGet, "/dashboard", nil, auth.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	raw := rec.Body.String()
	for _, v := range []models.Video{first, second, third} {
		assert.NotContains(t, raw, v.ProviderID)
	}
	assert.NotContains(t, raw, "provider_id")

	dash := decode[dashboardResponse](t, rec)
	require.Equal(t, 2, dash.Count)
	require.Len(t, dash.Videos, 2)
	assert.Equal(t, first.ID, dash.Videos[0].ID)
	assert.Equal(t, second.ID, dash.Videos[1].ID)
	for _, v := range dash.Videos {
		assert.NotEmpty(t, v.PlaybackToken)
	}

	rec = app.do(t, http.MethodGet, "/video/"+first.ID+"/stream?token="+dash.Videos[0].PlaybackToken, nil, auth.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "provider_id")

	stream := decode[streamResponse](t, rec)
	assert.True(t, strings.HasPrefix(stream.StreamURL, "https://www.youtube.com/embed/"))
	assert.Contains(t, stream.StreamURL, "autoplay=1")
	assert.NotContains(t, stream.StreamURL, "watch?v=")
	assert.Equal(t, first.ID, stream.VideoID)
	assert.Equal(t, first.Title, stream.Title)
	assert.Equal(t, app.now.Add(time.Hour).Unix(), stream.ExpiresAt)
}

func TestStreamWrongVideo(t *testing.T) {
	app := newTestApp(t, appOptions{})
	v1 := app.seedVideo(t, "one", true, time.Hour)
	v2 := app.seedVideo(t, "two", true, 2*time.Hour)
	auth := app.signup(t, "Ada", "ada@x.io", "pw12ab")

	dash := decode[dashboardResponse](t, app.do(t, http.MethodGet, "/dashboard", nil, auth.AccessToken))
	require.Equal(t, v1.ID, dash.Videos[0].ID)

	rec := app.do(t, http.MethodGet, "/video/"+v2.ID+"/stream?token="+dash.Videos[0].PlaybackToken, nil, auth.AccessToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[middleware.ErrorBody](t, rec)
	assert.Equal(t, "Invalid token", body.Error)
	assert.Contains(t, body.Message, "invalid or expired")
}

func TestStreamErrors(t *testing.T) {
	app := newTestApp(t, appOptions{})
	hidden := app.seedVideo(t, "hidden", false, time.Hour)
	auth := app.signup(t, "Ada", "ada@x.io", "pw12ab")

	rec := app.do(t, http.MethodGet, "/video/"+hidden.ID+"/stream", nil, auth.AccessToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing token", decode[middleware.ErrorBody](t, rec).Error)

	rec = app.do(t, http.MethodGet, "/video/"+hidden.ID+"/stream?token=abc", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tokens := security.NewTokenService(security.TokenConfig{
		SessionSecret:  "session-secret",
		PlaybackSecret: "playback-secret",
		PlaybackTTL:    time.Hour,
	}, security.WithClock(func() time.Time { return app.now }))

	hiddenTok, err := tokens.GeneratePlaybackToken(hidden.ID)
	require.NoError(t, err)
	ghost := ids.New()
	ghostTok, err := tokens.GeneratePlaybackToken(ghost)
	require.NoError(t, err)

	inactive := app.do(t, http.MethodGet, "/video/"+hidden.ID+"/stream?token="+hiddenTok, nil, auth.AccessToken)
	missing := app.do(t, http.MethodGet, "/video/"+ghost+"/stream?token="+ghostTok, nil, auth.AccessToken)
	assert.Equal(t, http.StatusNotFound, inactive.Code)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.JSONEq(t, missing.Body.String(), inactive.Body.String())
}

func TestPlaybackTokenExpires(t *testing.T) {
	app := newTestApp(t, appOptions{accessTTL: 24 * time.Hour})
	v := app.seedVideo(t, "one", true, time.Hour)
	auth := app.signup(t, "Ada", "ada@x.io", "pw12ab")
	dash := decode[dashboardResponse](t, app.do(t, http.MethodGet, "/dashboard", nil, auth.AccessToken))

	app.now = app.now.Add(time.Hour)
	rec := app.do(t, http.MethodGet, "/video/"+v.ID+"/stream?token="+dash.Videos[0].PlaybackToken, nil, auth.AccessToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutBlacklistsAccessToken(t *testing.T) {
	app := newTestApp(t, appOptions{})
	app.signup(t, "Ada", "ada@x.io", "pw12ab")

	rec := app.do(t, http.MethodPost, "/auth/login", gin.H{"email": "ada@x.io", "password": "pw12ab"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[authResponse](t, rec)
	assert.Equal(t, "Login successful", login.Message)

	rec = app.do(t, http.MethodPost, "/auth/logout", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logout successful", decode[map[string]string](t, rec)["message"])

	rec = app.do(t, http.MethodGet, "/auth/me", nil, login.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode[middleware.ErrorBody](t, rec)
	assert.Contains(t, strings.ToLower(body.Error), "invalidated")

	rec = app.do(t, http.MethodPost, "/auth/logout", nil, login.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/dashboard", nil, login.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDuplicateSignup(t *testing.T) {
	app := newTestApp(t, appOptions{})
	app.signup(t, "Dup", "dup@x.io", "pw12ab")

	rec := app.do(t, http.MethodPost, "/auth/signup", gin.H{"name": "Dup", "email": "dup@x.io", "password": "pw12ab"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Conflict", decode[middleware.ErrorBody](t, rec).Error)

	app.signup(t, "Foo", "Foo@x.com", "pw12ab")
	rec = app.do(t, http.MethodPost, "/auth/signup", gin.H{"name": "Foo", "email": "foo@X.com", "password": "pw12ab"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRefresh(t *testing.T) {
	app := newTestApp(t, appOptions{})
	auth := app.signup(t, "Ada", "ada@x.io", "pw12ab")

	rec := app.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": auth.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "refresh_token")
	out := decode[refreshResponse](t, rec)
	assert.Equal(t, "Bearer", out.TokenType)
	assert.Equal(t, 900, out.ExpiresIn)

	rec = app.do(t, http.MethodGet, "/auth/me", nil, out.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]userResponse](t, rec)
	assert.Equal(t, auth.User.ID, me["user"].ID)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = app.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": ""}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation error", decode[middleware.ErrorBody](t, rec).Error)

	rec = app.do(t, http.MethodPost, "/auth/refresh", gin.H{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request", decode[middleware.ErrorBody](t, rec).Error)

	rec = app.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": "garbage"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenFamiliesAreSeparate(t *testing.T) {
	app := newTestApp(t, appOptions{})
	auth := app.signup(t, "Ada", "ada@x.io", "pw12ab")

	rec := app.do(t, http.MethodGet, "/auth/me", nil, auth.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": auth.AccessToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpiredAccessToken(t *testing.T) {
	app := newTestApp(t, appOptions{accessTTL: time.Second})
	auth := app.signup(t, "Ada", "ada@x.io", "pw12ab")
	assert.Equal(t, 1, auth.ExpiresIn)

	rec := app.do(t, http.MethodGet, "/auth/me", nil, auth.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	app.now = app.now.Add(2 * time.Second)
	rec = app.do(t, http.MethodGet, "/auth/me", nil, auth.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", decode[middleware.ErrorBody](t, rec).Error)
}

func TestGuardRejectsDeletedUser(t *testing.T) {
	app := newTestApp(t, appOptions{})
	auth := app.signup(t, "Ada", "ada@x.io", "pw12ab")
	app.store.Users().Delete(context.Background(), auth.User.ID)

	rec := app.do(t, http.MethodGet, "/auth/me", nil, auth.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "User not found", decode[middleware.ErrorBody](t, rec).Error)

	rec = app.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": auth.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignupValidation(t *testing.T) {
	app := newTestApp(t, appOptions{})

	rec := app.do(t, http.MethodPost, "/auth/signup", "not json", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[middleware.ErrorBody](t, rec)
	assert.Equal(t, "Invalid request", body.Error)
	assert.Equal(t, "Request body must be JSON", body.Message)

	rec = app.do(t, http.MethodPost, "/auth/signup", gin.H{"name": "Ada", "email": "ada@x.io", "password": "abcdef"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body = decode[middleware.ErrorBody](t, rec)
	assert.Equal(t, "Validation error", body.Error)
	assert.Equal(t, "Password must contain at least one number", body.Message)

	for _, empty := range []string{"null", "{}", "[]", `"ada"`} {
		rec = app.do(t, http.MethodPost, "/auth/signup", empty, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, empty)
		assert.Equal(t, "Invalid request", decode[middleware.ErrorBody](t, rec).Error, empty)

		rec = app.do(t, http.MethodPost, "/auth/login", empty, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, empty)
		assert.Equal(t, "Invalid request", decode[middleware.ErrorBody](t, rec).Error, empty)
	}
}

func TestSignupPasswordByteLimit(t *testing.T) {
	app := newTestApp(t, appOptions{})

	tooLong := "a1" + strings.Repeat("x", 71)
	rec := app.do(t, http.MethodPost, "/auth/signup", gin.H{"name": "Ada", "email": "ada@x.io", "password": tooLong}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[middleware.ErrorBody](t, rec)
	assert.Equal(t, "Validation error", body.Error)
	assert.Equal(t, "Password must be at most 72 bytes", body.Message)

	longest := "a1" + strings.Repeat("x", 70)
	rec = app.do(t, http.MethodPost, "/auth/signup", gin.H{"name": "Ada", "email": "ada@x.io", "password": longest}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(t, http.MethodPost, "/auth/login", gin.H{"email": "ada@x.io", "password": longest}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginFailures(t *testing.T) {
	app := newTestApp(t, appOptions{})
	app.signup(t, "Ada", "ada@x.io", "pw12ab")

	rec := app.do(t, http.MethodPost, "/auth/login", gin.H{"email": "ada@x.io"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	wrong := app.do(t, http.MethodPost, "/auth/login", gin.H{"email": "ada@x.io", "password": "nope12"}, "")
	unknown := app.do(t, http.MethodPost, "/auth/login", gin.H{"email": "eve@x.io", "password": "nope12"}, "")
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.JSONEq(t, wrong.Body.String(), unknown.Body.String())

	rec = app.do(t, http.MethodPost, "/auth/login", gin.H{"email": "ADA@X.IO", "password": "pw12ab"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTrack(t *testing.T) {
	app := newTestApp(t, appOptions{})
	v := app.seedVideo(t, "one", true, time.Hour)
	auth := app.signup(t, "Ada", "ada@x.io", "pw12ab")

	rec := app.do(t, http.MethodPost, "/video/"+v.ID+"/track", gin.H{"duration": 30, "completed": true, "player": "web"}, auth.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "Watch event recorded", body["message"])
	assert.Equal(t, v.ID, body["video_id"])

	rec = app.do(t, http.MethodPost, "/video/"+v.ID+"/track", nil, auth.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/video/"+v.ID+"/track", gin.H{"duration": -10}, auth.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/video/"+ids.New()+"/track", nil, auth.AccessToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodPost, "/video/"+v.ID+"/track", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	events := app.store.Watches().Events()
	require.Len(t, events, 3)
	assert.Equal(t, auth.User.ID, events[0].UserID)
	assert.Equal(t, 30, events[0].Duration)
	assert.True(t, events[0].Completed)
	assert.Equal(t, 0, events[1].Duration)
	assert.False(t, events[1].Completed)
	assert.Equal(t, 0, events[2].Duration)
}

func TestLoginRateLimit(t *testing.T) {
	app := newTestApp(t, appOptions{limiter: ratelimit.NewMemoryLimiter()})
	app.signup(t, "Ada", "ada@x.io", "pw12ab")

	creds := gin.H{"email": "ada@x.io", "password": "wrong1"}
	for i := 0; i < 5; i++ {
		rec := app.do(t, http.MethodPost, "/auth/login", creds, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := app.do(t, http.MethodPost, "/auth/login", creds, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = app.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
