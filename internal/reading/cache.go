package reading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// cacheKeyLatest holds the newest reading across all streams.
	cacheKeyLatest = "homelink:latest"

	// cacheKeyStreamPrefix prefixes per-stream latest keys.
	cacheKeyStreamPrefix = "homelink:latest:"

	// cacheTTL bounds staleness if the bridge stops updating the cache.
	cacheTTL = 24 * time.Hour
)

// Cache is a write-through Redis cache for latest readings.
//
// Ingestion updates it on every stored reading; the HTTP latest endpoint
// reads it before falling back to SQLite. Cache failures are best-effort:
// callers log and continue.
type Cache struct {
	client *redis.Client
}

// NewCache creates a latest-reading cache backed by the given Redis client.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// SetLatest stores the reading under both the global and per-stream keys.
//
// Sensors can deliver readings out of order (epoch timestamps from device
// clocks), while the store answers "latest" by payload timestamp. Each key
// is therefore only overwritten when the incoming reading is at least as
// new as the cached one, keeping the fast path in agreement with SQLite.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - r: Reading to cache
//
// Returns:
//   - error: nil on success, otherwise the Redis error
func (c *Cache) SetLatest(ctx context.Context, r *SensorReading) error {
	if r == nil {
		return fmt.Errorf("reading is nil")
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshalling reading: %w", err)
	}

	if err := c.setIfNewer(ctx, cacheKeyLatest, r.Timestamp, payload); err != nil {
		return err
	}
	return c.setIfNewer(ctx, cacheKeyStreamPrefix+r.SensorID, r.Timestamp, payload)
}

// setIfNewer writes payload under key unless the cached entry already
// carries a newer timestamp. The read-compare-write is racy under
// concurrent ingestion, but the cache is best-effort and SQLite remains
// the source of truth.
func (c *Cache) setIfNewer(ctx context.Context, key string, ts time.Time, payload []byte) error {
	cached, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if supersededBy(cached, ts) {
			return nil
		}
	case errors.Is(err, redis.Nil):
		// No entry yet; write unconditionally.
	default:
		return fmt.Errorf("reading cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, cacheTTL).Err(); err != nil {
		return fmt.Errorf("caching latest reading: %w", err)
	}
	return nil
}

// supersededBy reports whether the cached entry is newer than a candidate
// timestamp. Unparseable entries never win; they get overwritten.
func supersededBy(cached []byte, ts time.Time) bool {
	var r SensorReading
	if json.Unmarshal(cached, &r) != nil {
		return false
	}
	return r.Timestamp.After(ts)
}

// Latest returns the cached newest reading, optionally for one stream.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - sensorID: Stream to query ("" = any stream)
//
// Returns:
//   - *SensorReading: The cached reading
//   - error: ErrCacheMiss when no entry exists
func (c *Cache) Latest(ctx context.Context, sensorID string) (*SensorReading, error) {
	key := cacheKeyLatest
	if sensorID != "" {
		key = cacheKeyStreamPrefix + sensorID
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	var r SensorReading
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("unmarshalling cached reading: %w", err)
	}

	return &r, nil
}

// HealthCheck verifies the Redis connection with a ping.
func (c *Cache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
