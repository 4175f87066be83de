package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Health reports liveness. Dependency failures are listed but do not change
// the status code.
func (h HandlerSet) Health(c *gin.Context) {
	resp := healthResponse{Status: "healthy", Message: "API is running"}
	if len(h.checks) == 0 {
		c.JSON(http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp.Checks = make(map[string]string, len(h.checks))
	for name, pinger := range h.checks {
		if err := pinger.Ping(ctx); err != nil {
			resp.Checks[name] = "error"
			h.log.Error().Err(err).Str("dependency", name).Msg("health check failed")
			continue
		}
		resp.Checks[name] = "ok"
	}
	c.JSON(http.StatusOK, resp)
}
