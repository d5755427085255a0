// Package cache stores JSON-encoded reference data in Redis.
//
// Cache failures never fail a request: Get reports a miss and the caller
// falls back to the database. Errors are logged and returned so callers can
// count them if they care.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL applies when no TTL is configured.
const DefaultTTL = time.Hour

// keyPrefix namespaces every key written by this package.
const keyPrefix = "d21:"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis is a JSON cache backed by a Redis client.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a cache. It does not connect; call Ping to verify.
func NewRedis(opts Options) *Redis {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:        opts.Addr,
			Password:    opts.Password,
			DB:          opts.DB,
			DialTimeout: 2 * time.Second,
		}),
		ttl: ttl,
	}
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Get decodes the value at key into dst. A missing key is (false, nil).
func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		slog.WarnContext(ctx, "cache get failed", "key", key, "error", err)
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		slog.WarnContext(ctx, "cache entry undecodable", "key", key, "error", err)
		return false, err
	}
	return true, nil
}

// Set stores value at key with the configured TTL.
func (r *Redis) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	if err := r.client.Set(ctx, keyPrefix+key, raw, r.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "cache set failed", "key", key, "error", err)
		return err
	}
	return nil
}

// Delete removes keys, used after reseeding reference data.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = keyPrefix + k
	}
	return r.client.Del(ctx, full...).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Nop is a cache that never hits.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any) error         { return nil }
func (Nop) Delete(context.Context, ...string) error        { return nil }
