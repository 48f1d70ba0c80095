package lease

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryLockerExclusive(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	token, err := l.TryLock(ctx, "job-1", time.Minute)
	if err != nil {
		t.Fatalf("TryLock error: %v", err)
	}
	if _, err := l.TryLock(ctx, "job-1", time.Minute); !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
	if _, err := l.TryLock(ctx, "job-2", time.Minute); err != nil {
		t.Fatalf("independent key should lock: %v", err)
	}

	if err := l.Unlock(ctx, "job-1", "someone-else"); err != nil {
		t.Fatalf("Unlock error: %v", err)
	}
	if _, err := l.TryLock(ctx, "job-1", time.Minute); !errors.Is(err, ErrHeld) {
		t.Fatalf("foreign token must not release the lease")
	}

	if err := l.Unlock(ctx, "job-1", token); err != nil {
		t.Fatalf("Unlock error: %v", err)
	}
	if _, err := l.TryLock(ctx, "job-1", time.Minute); err != nil {
		t.Fatalf("expected lease after unlock, got %v", err)
	}
}

func TestMemoryLockerExpiry(t *testing.T) {
	l := NewMemoryLocker()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if _, err := l.TryLock(context.Background(), "job-1", time.Second); err != nil {
		t.Fatalf("TryLock error: %v", err)
	}
	now = now.Add(2 * time.Second)
	if _, err := l.TryLock(context.Background(), "job-1", time.Second); err != nil {
		t.Fatalf("expired lease should be reclaimable: %v", err)
	}
}

func TestRedisLocker(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	cli := redis.NewClient(opts)
	defer cli.Close()

	ctx := context.Background()
	l := NewRedisLocker(cli, "test:lease:")
	key := "job-" + time.Now().Format("150405.000000")

	token, err := l.TryLock(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("TryLock error: %v", err)
	}
	if _, err := l.TryLock(ctx, key, time.Minute); !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
	if err := l.Unlock(ctx, key, token); err != nil {
		t.Fatalf("Unlock error: %v", err)
	}
	if _, err := l.TryLock(ctx, key, time.Minute); err != nil {
		t.Fatalf("expected lease after unlock, got %v", err)
	}
}
