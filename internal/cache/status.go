// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statusKey = "regeneration:status"

	// DefaultStatusTTL is how long a status report stays cached.
	DefaultStatusTTL = 30 * time.Second
)

// StatusCache holds the last rendered regeneration status report. Runs
// invalidate it when they change the queue.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatusCache creates a status cache backed by the given Valkey client.
func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	if ttl == 0 {
		ttl = DefaultStatusTTL
	}
	return &StatusCache{client: client, ttl: ttl}
}

// Get returns the cached report body.
func (c *StatusCache) Get(ctx context.Context) ([]byte, bool) {
	val, err := c.client.Get(ctx, statusKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("status cache get error", "error", err)
		return nil, false
	}
	return val, true
}

// Set stores a report body with the configured TTL.
func (c *StatusCache) Set(ctx context.Context, body []byte) {
	if err := c.client.Set(ctx, statusKey, body, c.ttl).Err(); err != nil {
		slog.Warn("status cache set error", "error", err)
	}
}

// Invalidate drops the cached report.
func (c *StatusCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, statusKey).Err(); err != nil {
		slog.Warn("status cache invalidate error", "error", err)
	}
}
