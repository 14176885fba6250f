// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// lockKeyPrefix is the Valkey key prefix for trigger run locks.
const lockKeyPrefix = "lock:"

// releaseScript deletes the lock only if it still holds our token, so a
// run that outlived its TTL never frees a lock taken by another instance.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock is a cross-instance mutex for scheduled triggers.
type RunLock struct {
	client *redis.Client
}

// NewRunLock creates a run lock backed by the given Valkey client.
func NewRunLock(client *redis.Client) *RunLock {
	return &RunLock{client: client}
}

// TryLock takes the named lock for at most ttl. ok is false when another
// holder has it. The returned release func is safe to call once.
func (l *RunLock) TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error) {
	key := lockKeyPrefix + name
	token := uuid.NewString()

	ok, err = l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			slog.Warn("run lock release failed", "lock", name, "error", err)
		}
	}
	return release, true, nil
}
