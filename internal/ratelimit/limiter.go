package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxRequestsPerWindow = 10
	window               = 15 * time.Minute
)

// Limiter tracks per-IP request counts in Redis with a fixed window.
// Counters expire on their own, so a quiet IP costs nothing.
type Limiter struct {
	redis *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{redis: client}
}

func rateLimitKey(ip, purpose string) string {
	return fmt.Sprintf("ratelimit:%s:%s", purpose, ip)
}

// CheckIPRateLimit reports whether the IP has exceeded the window budget
// for the given purpose.
func (l *Limiter) CheckIPRateLimit(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.redis.Get(ctx, rateLimitKey(ip, purpose)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get rate limit counter: %w", err)
	}
	return count >= maxRequestsPerWindow, nil
}

// RecordIPRequest increments the counter for the IP, starting the window
// on the first request.
func (l *Limiter) RecordIPRequest(ctx context.Context, ip, purpose string) error {
	key := rateLimitKey(ip, purpose)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, window).Err(); err != nil {
			return fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
	}
	return nil
}
