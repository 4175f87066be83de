package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubegate_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tubegate_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// LoginAttemptsTotal outcome is success, invalid or error.
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubegate_login_attempts_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	SignupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubegate_signups_total",
		Help: "Signup attempts by outcome.",
	}, []string{"outcome"})

	PlaybackTokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tubegate_playback_tokens_issued_total",
		Help: "Playback tokens minted by the dashboard.",
	})

	StreamRedemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubegate_stream_redemptions_total",
		Help: "Playback token redemptions by outcome.",
	}, []string{"outcome"})

	WatchEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubegate_watch_events_total",
		Help: "Watch events accepted, by sink.",
	}, []string{"sink"})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubegate_rate_limited_total",
		Help: "Requests rejected by the rate limiter, by scope.",
	}, []string{"scope"})
)
