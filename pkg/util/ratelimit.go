package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter kept in Redis.
type RateLimiter struct {
	rdb    *redis.Client
	window time.Duration
}

func NewRateLimiter(rdb *redis.Client, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, window: window}
}

// Allow increments key and reports whether the count is still within limit.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int64) (bool, int64, error) {
	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return true, 0, err
	}

	// expire on first increment so the window starts with the first hit
	if count == 1 {
		r.rdb.Expire(ctx, key, r.window)
	}

	return count <= limit, count, nil
}

// Reset clears the counter for key.
func (r *RateLimiter) Reset(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// RateLimitKey formats the key for a form and client address.
func RateLimitKey(form, clientIP string) string {
	return fmt.Sprintf("ratelimit:%s:%s", form, clientIP)
}
