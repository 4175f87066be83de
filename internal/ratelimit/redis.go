package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tubegate/internal/config"
)

const keyPrefix = "ratelimit:"

// RedisLimiter shares counters between api replicas. The first hit in a
// window creates the counter and arms its expiry.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, rule config.RateRule) (Decision, error) {
	redisKey := keyPrefix + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, rule.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	if count > int64(rule.Limit) {
		ttl, err := l.client.PTTL(ctx, redisKey).Result()
		if err != nil {
			return Decision{}, fmt.Errorf("rate limit ttl: %w", err)
		}
		if ttl < 0 {
			// counter lost its expiry; re-arm it so the key cannot stick forever
			_ = l.client.Expire(ctx, redisKey, rule.Window).Err()
			ttl = rule.Window
		}
		return Decision{RetryAfter: ttl}, nil
	}
	return Decision{Allowed: true, Remaining: rule.Limit - int(count)}, nil
}
