// Package ratelimit implements fixed-window request budgets keyed by an
// arbitrary string, usually scope plus client IP.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"tubegate/internal/config"
)

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string, rule config.RateRule) (Decision, error)
}

type window struct {
	start time.Time
	count int
	size  time.Duration
}

type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, rule config.RateRule) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.start.Add(w.size)) {
		w = &window{start: now, size: rule.Window}
		l.windows[key] = w
	}
	w.count++

	if w.count > rule.Limit {
		return Decision{RetryAfter: w.start.Add(w.size).Sub(now)}, nil
	}
	return Decision{Allowed: true, Remaining: rule.Limit - w.count}, nil
}

// Sweep forgets windows that have already closed.
func (l *MemoryLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.windows {
		if !now.Before(w.start.Add(w.size)) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}
