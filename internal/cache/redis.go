// Package cache keeps extracted job requirements in Redis between runs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spigell/cv-matcher/internal/matching"
)

const (
	keyPrefix  = "cvmatcher:requirements:"
	DefaultTTL = 24 * time.Hour
)

// Requirements is a matching.RequirementCache backed by Redis.
type Requirements struct {
	client redis.Cmdable
	ttl    time.Duration
}

// Connect parses redisURL, checks the server and returns a ready cache.
func Connect(ctx context.Context, redisURL string, ttl time.Duration) (*Requirements, *redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return New(rdb, ttl), rdb, nil
}

// New wraps an existing client. A non-positive ttl means DefaultTTL.
func New(client redis.Cmdable, ttl time.Duration) *Requirements {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Requirements{client: client, ttl: ttl}
}

func (c *Requirements) Get(ctx context.Context, key string) (matching.JobRequirements, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return matching.JobRequirements{}, false, nil
	}
	if err != nil {
		return matching.JobRequirements{}, false, fmt.Errorf("get cached requirements: %w", err)
	}

	var req matching.JobRequirements
	if err := json.Unmarshal(val, &req); err != nil {
		return matching.JobRequirements{}, false, fmt.Errorf("decode cached requirements: %w", err)
	}
	return req, true, nil
}

func (c *Requirements) Set(ctx context.Context, key string, req matching.JobRequirements) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode requirements: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache requirements: %w", err)
	}
	return nil
}
