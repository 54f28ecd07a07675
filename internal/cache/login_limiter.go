package cache

import (
	"context"
	"fmt"
	"time"
)

// LoginLimiter throttles failed login attempts per client IP using Redis
// counters with a rolling one-minute window.
type LoginLimiter struct {
	redis       *RedisClient
	maxAttempts int64
	window      time.Duration
}

// NewLoginLimiter creates a limiter allowing 5 failed attempts per minute.
func NewLoginLimiter(redis *RedisClient) *LoginLimiter {
	return &LoginLimiter{
		redis:       redis,
		maxAttempts: 5,
		window:      time.Minute,
	}
}

func (l *LoginLimiter) key(ip string) string {
	return fmt.Sprintf("login:fail:%s", ip)
}

// Allow reports whether the IP is still under the failed-attempt threshold.
// Redis errors fail open: an unreachable cache must not lock everyone out.
func (l *LoginLimiter) Allow(ctx context.Context, ip string) bool {
	raw, err := l.redis.Get(ctx, l.key(ip))
	if err != nil {
		return true
	}
	var count int64
	fmt.Sscanf(raw, "%d", &count)
	return count < l.maxAttempts
}

// RecordFailure increments the failed-attempt counter for the IP.
func (l *LoginLimiter) RecordFailure(ctx context.Context, ip string) {
	key := l.key(ip)
	count, err := l.redis.Incr(ctx, key)
	if err != nil {
		return
	}
	if count == 1 {
		_ = l.redis.Expire(ctx, key, l.window)
	}
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, ip string) {
	_ = l.redis.Delete(ctx, l.key(ip))
}
