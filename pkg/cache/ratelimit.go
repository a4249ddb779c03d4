package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RateLimiter interface {
	// Allow reports whether userID may perform action now, and starts a new window if so.
	Allow(ctx context.Context, userID uuid.UUID, action string, window time.Duration) (bool, error)
}

type redisRateLimiter struct {
	rdb *redis.Client
}

// NewRateLimiter returns a limiter that allows everything when rdb is nil.
func NewRateLimiter(rdb *redis.Client) RateLimiter {
	return &redisRateLimiter{rdb: rdb}
}

func (l *redisRateLimiter) Allow(ctx context.Context, userID uuid.UUID, action string, window time.Duration) (bool, error) {
	if l.rdb == nil || window <= 0 {
		return true, nil
	}

	key := fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)
	wasSet, err := l.rdb.SetNX(ctx, key, "locked", window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}
	return wasSet, nil
}
