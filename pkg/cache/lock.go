package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Locker interface {
	// Acquire takes key for at most ttl. ok is false when another holder has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

type redisLocker struct {
	rdb *redis.Client
}

// NewLocker returns a redis lease locker. Without redis every Acquire succeeds.
func NewLocker(rdb *redis.Client) Locker {
	return &redisLocker{rdb: rdb}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if l.rdb == nil {
		return func() {}, true, nil
	}

	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// the caller's ctx may already be done
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err(); err != nil {
			log.Printf("⚠️ Failed to release lock %s: %v", key, err)
		}
	}
	return release, true, nil
}
