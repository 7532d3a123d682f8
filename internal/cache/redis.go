package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	return json.Unmarshal([]byte(val), dest)
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

const ingestMarkerKey = "ingest:last_run"

// IngestMarker records the last successful ingestion run in redis so process
// restarts do not re-embed a populated index. Implements ingest.Marker.
type IngestMarker struct {
	cache *Cache
}

func NewIngestMarker(c *Cache) *IngestMarker {
	return &IngestMarker{cache: c}
}

func (m *IngestMarker) LastRun(ctx context.Context) (time.Time, bool) {
	var at time.Time
	if err := m.cache.Get(ctx, ingestMarkerKey, &at); err != nil {
		return time.Time{}, false
	}
	return at, !at.IsZero()
}

func (m *IngestMarker) SetLastRun(ctx context.Context, at time.Time) error {
	if err := m.cache.Set(ctx, ingestMarkerKey, at, 0); err != nil {
		slog.Warn("could not persist ingest marker", "error", err)
		return err
	}
	return nil
}
