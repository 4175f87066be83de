package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tubegate/internal/models"
	"tubegate/internal/security"
	"tubegate/internal/service"
)

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.User, *security.SessionClaims, error)
	Resolve(ctx context.Context, accessToken string) (models.User, *security.SessionClaims, error)
}

type authOptions struct {
	allowRevoked bool
}

type AuthOption func(*authOptions)

// AllowRevoked lets an already blacklisted but otherwise valid token through.
// Logout uses it so that repeating a logout still succeeds.
func AllowRevoked() AuthOption {
	return func(o *authOptions) {
		o.allowRevoked = true
	}
}

type principalKey struct{}

type principal struct {
	user   models.User
	token  string
	claims *security.SessionClaims
}

// Auth guards a route group. On success the user, the raw bearer token and
// its claims travel on the request context.
func Auth(auth Authenticator, log zerolog.Logger, opts ...AuthOption) gin.HandlerFunc {
	var options authOptions
	for _, opt := range opts {
		opt(&options)
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			Abort(c, http.StatusUnauthorized, "Authorization header is missing", "Please provide a valid access token")
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			Abort(c, http.StatusUnauthorized, "Invalid authorization header format", "Use format: Bearer <token>")
			return
		}
		tokenStr := parts[1]

		user, claims, err := auth.Authenticate(c.Request.Context(), tokenStr)
		if options.allowRevoked && errors.Is(err, service.ErrTokenInvalidated) {
			user, claims, err = auth.Resolve(c.Request.Context(), tokenStr)
		}
		switch {
		case err == nil:
		case errors.Is(err, service.ErrTokenInvalidated):
			Abort(c, http.StatusUnauthorized, "Token has been invalidated", "Please login again")
			return
		case errors.Is(err, service.ErrInvalidAccessToken):
			Abort(c, http.StatusUnauthorized, "Invalid or expired token", "Please login again")
			return
		case errors.Is(err, service.ErrUserGone):
			Abort(c, http.StatusUnauthorized, "User not found", "The user associated with this token no longer exists")
			return
		default:
			log.Error().Err(err).Str("request_id", GetRequestID(c)).Msg("authenticate request")
			AbortInternal(c)
			return
		}

		ctx := context.WithValue(c.Request.Context(), principalKey{}, principal{
			user:   user,
			token:  tokenStr,
			claims: claims,
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func principalFrom(c *gin.Context) (principal, bool) {
	p, ok := c.Request.Context().Value(principalKey{}).(principal)
	return p, ok
}

// CurrentUser returns the user resolved by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	p, ok := principalFrom(c)
	return p.user, ok
}

func AccessToken(c *gin.Context) (string, bool) {
	p, ok := principalFrom(c)
	return p.token, ok
}

func AccessClaims(c *gin.Context) (*security.SessionClaims, bool) {
	p, ok := principalFrom(c)
	return p.claims, ok
}
