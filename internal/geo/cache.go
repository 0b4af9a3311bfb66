package geo

import (
	"context"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// Cache is the time-bounded geolocation cache consulted before any provider
// call. Implementations must be safe for concurrent use; a lost update
// between two concurrent fills is acceptable.
type Cache interface {
	Get(ctx context.Context, ip string) (Location, bool)
	Set(ctx context.Context, ip string, loc Location, ttl time.Duration)
}

const redisKeyPrefix = "watchtower:geolocation:"

// RedisCache stores cache entries as JSON values with a per-key TTL.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, ip string) (Location, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+ip).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn("Geolocation cache read failed", "ip", ip, "error", err)
		}
		return Location{}, false
	}

	var loc Location
	if err := json.Unmarshal(data, &loc); err != nil {
		// Corrupt entry: treat as a miss, the next fill overwrites it.
		log.Warn("Discarding corrupt geolocation cache entry", "ip", ip, "error", err)
		return Location{}, false
	}
	return loc, true
}

func (c *RedisCache) Set(ctx context.Context, ip string, loc Location, ttl time.Duration) {
	data, err := json.Marshal(loc)
	if err != nil {
		log.Error("Failed to encode geolocation cache entry", "ip", ip, "error", err)
		return
	}

	if err := c.client.Set(ctx, redisKeyPrefix+ip, data, ttl).Err(); err != nil {
		log.Warn("Geolocation cache write failed", "ip", ip, "error", err)
	}
}

type memoryCacheEntry struct {
	loc     Location
	expires time.Time
}

// MemoryCache is the in-process fallback used when Redis is unavailable, and
// in tests. Entries expire lazily on read.
type MemoryCache struct {
	entries sync.Map
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Get(_ context.Context, ip string) (Location, bool) {
	raw, ok := c.entries.Load(ip)
	if !ok {
		return Location{}, false
	}

	entry := raw.(memoryCacheEntry)
	if time.Now().After(entry.expires) {
		c.entries.Delete(ip)
		return Location{}, false
	}
	return entry.loc, true
}

func (c *MemoryCache) Set(_ context.Context, ip string, loc Location, ttl time.Duration) {
	c.entries.Store(ip, memoryCacheEntry{loc: loc, expires: time.Now().Add(ttl)})
}
