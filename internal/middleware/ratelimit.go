package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tubegate/internal/config"
	"tubegate/internal/metrics"
	"tubegate/internal/ratelimit"
)

// RateLimit applies a fixed-window budget per client IP. Budgets are scoped,
// so the login and signup limits count independently of the default one.
// A limiter error lets the request through.
func RateLimit(limiter ratelimit.Limiter, scope string, rule config.RateRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || rule.Limit <= 0 {
			c.Next()
			return
		}

		key := scope + ":" + c.ClientIP()
		decision, err := limiter.Allow(c.Request.Context(), key, rule)
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("rate limiter failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		if !decision.Allowed {
			retry := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(retry))
			metrics.RateLimitedTotal.WithLabelValues(scope).Inc()
			log.Warn().
				Str("scope", scope).
				Str("client_ip", c.ClientIP()).
				Int("limit", rule.Limit).
				Dur("window", rule.Window).
				Msg("rate limit exceeded")
			Abort(c, http.StatusTooManyRequests, "Too many requests",
				"Rate limit exceeded, retry in "+strconv.Itoa(retry)+" seconds")
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		c.Next()
	}
}
