package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"tubegate/internal/middleware"
	"tubegate/internal/service"
)

// fail is the single place where service outcomes become HTTP responses.
func (h HandlerSet) fail(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.Abort(c, http.StatusBadRequest, "Validation error", verr.Message)
	case errors.Is(err, service.ErrEmailTaken):
		middleware.Abort(c, http.StatusConflict, "Conflict", "Email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		middleware.Abort(c, http.StatusUnauthorized, "Authentication failed", "Invalid email or password")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		middleware.Abort(c, http.StatusUnauthorized, "Authentication failed", "Invalid or expired refresh token")
	case errors.Is(err, service.ErrUserGone):
		middleware.Abort(c, http.StatusUnauthorized, "Authentication failed", "User not found")
	case errors.Is(err, service.ErrMissingPlaybackToken):
		middleware.Abort(c, http.StatusBadRequest, "Missing token", "Playback token is required")
	case errors.Is(err, service.ErrInvalidPlaybackToken):
		middleware.Abort(c, http.StatusBadRequest, "Invalid token", "Playback token is invalid or expired")
	case errors.Is(err, service.ErrVideoNotFound):
		middleware.Abort(c, http.StatusNotFound, "Not found", "Video not found")
	default:
		h.log.Error().
			Err(err).
			Str("path", c.Request.URL.Path).
			Str("request_id", middleware.GetRequestID(c)).
			Msg("request failed")
		middleware.AbortInternal(c)
	}
}

func badJSON(c *gin.Context) {
	middleware.Abort(c, http.StatusBadRequest, "Invalid request", "Request body must be JSON")
}

// bindObject decodes a JSON object body into dst. A body that is not an
// object, or is null or {}, is answered with badJSON.
func bindObject(c *gin.Context, dst any) bool {
	raw, err := c.GetRawData()
	if err != nil {
		badJSON(c)
		return false
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil || len(members) == 0 {
		badJSON(c)
		return false
	}

	if err := binding.JSON.BindBody(raw, dst); err != nil {
		badJSON(c)
		return false
	}
	return true
}
