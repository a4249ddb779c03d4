package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNilClientAllowsEverything(t *testing.T) {
	ctx := context.Background()

	ok, err := NewRateLimiter(nil).Allow(ctx, uuid.New(), "connection_request", time.Minute)
	if err != nil || !ok {
		t.Fatalf("Allow = %v, %v", ok, err)
	}

	release, ok, err := NewLocker(nil).Acquire(ctx, "lock:test", time.Minute)
	if err != nil || !ok {
		t.Fatalf("Acquire = %v, %v", ok, err)
	}
	release()
}

func TestRedisLockAndLimit(t *testing.T) {
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run against REDIS_URL")
	}

	ctx := context.Background()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	rdb, err := Connect(ctx, url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer rdb.Close()

	locker := NewLocker(rdb)
	key := "lock:test:" + uuid.NewString()

	release, ok, err := locker.Acquire(ctx, key, time.Minute)
	if err != nil || !ok {
		t.Fatalf("first Acquire = %v, %v", ok, err)
	}
	if _, ok, _ := locker.Acquire(ctx, key, time.Minute); ok {
		t.Fatal("second Acquire should fail while held")
	}
	release()
	release2, ok, err := locker.Acquire(ctx, key, time.Minute)
	if err != nil || !ok {
		t.Fatalf("Acquire after release = %v, %v", ok, err)
	}
	release2()

	limiter := NewRateLimiter(rdb)
	user := uuid.New()
	if ok, _ := limiter.Allow(ctx, user, "test", time.Minute); !ok {
		t.Fatal("first call should pass")
	}
	if ok, _ := limiter.Allow(ctx, user, "test", time.Minute); ok {
		t.Fatal("second call inside window should be limited")
	}
}
