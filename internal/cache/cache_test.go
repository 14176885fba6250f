package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// testValkeyClient returns a Redis client for tests.
// Skips if Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15, // Use DB 15 for tests.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		for _, pattern := range []string{lockKeyPrefix + "*", statusKey} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestConnectValkey(t *testing.T) {
	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")

	client, err := ConnectValkey(host, port, os.Getenv("VALKEY_PASSWORD"), 15)
	if err != nil {
		t.Skipf("skipping: Valkey not available: %v", err)
	}
	defer client.Close()

	pong, err := client.Ping(context.Background()).Result()
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if pong != "PONG" {
		t.Errorf("expected PONG, got %q", pong)
	}
}

func TestRunLockExclusive(t *testing.T) {
	client := testValkeyClient(t)
	lock := NewRunLock(client)
	ctx := context.Background()

	release, ok, err := lock.TryLock(ctx, "test-daily", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first TryLock: ok=%v err=%v", ok, err)
	}

	if _, ok, err := lock.TryLock(ctx, "test-daily", time.Minute); err != nil || ok {
		t.Fatalf("second TryLock should fail: ok=%v err=%v", ok, err)
	}

	release()

	release2, ok, err := lock.TryLock(ctx, "test-daily", time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryLock after release: ok=%v err=%v", ok, err)
	}
	release2()
}

func TestRunLockReleaseKeepsForeignLock(t *testing.T) {
	client := testValkeyClient(t)
	lock := NewRunLock(client)
	ctx := context.Background()

	release, ok, err := lock.TryLock(ctx, "test-expire", 50*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	time.Sleep(150 * time.Millisecond)

	// Another instance takes the expired lock.
	other, ok, err := lock.TryLock(ctx, "test-expire", time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryLock after expiry: ok=%v err=%v", ok, err)
	}
	defer other()

	release()
	if n, _ := client.Exists(ctx, lockKeyPrefix+"test-expire").Result(); n != 1 {
		t.Error("stale release removed another holder's lock")
	}
}

func TestStatusCache(t *testing.T) {
	client := testValkeyClient(t)
	sc := NewStatusCache(client, time.Minute)
	ctx := context.Background()

	if _, ok := sc.Get(ctx); ok {
		t.Fatal("expected cache miss")
	}
	body := []byte(`{"success":true}`)
	sc.Set(ctx, body)
	got, ok := sc.Get(ctx)
	if !ok || string(got) != string(body) {
		t.Fatalf("hit: ok=%v body=%q", ok, got)
	}
	sc.Invalidate(ctx)
	if _, ok := sc.Get(ctx); ok {
		t.Error("expected miss after invalidation")
	}
}

func TestNewStatusCacheDefaultTTL(t *testing.T) {
	sc := NewStatusCache(nil, 0)
	if sc.ttl != DefaultStatusTTL {
		t.Errorf("expected DefaultStatusTTL (%v), got %v", DefaultStatusTTL, sc.ttl)
	}
}
