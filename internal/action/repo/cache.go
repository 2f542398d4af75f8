package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

// Cache is a short-lived read cache for configuration documents.
type Cache interface {
	// Get decodes the cached value into out and reports whether it was found.
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

type RedisCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisCache(rdb redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (r *RedisCache) cacheKey(key string) string {
	return fmt.Sprintf("actionserver:config:%s", key)
}

func (r *RedisCache) Get(ctx context.Context, key string, out any) (bool, error) {
	k := r.cacheKey(key)
	s, err := r.rdb.Get(ctx, k).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		logx.Error().Err(err).Str("key", k).Msg("failed to read config cache")
		return false, errx.WrapRedis(err)
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		logx.Warn().Err(err).Str("key", k).Msg("dropping undecodable cache entry")
		_ = r.rdb.Del(ctx, k).Err()
		return false, nil
	}
	return true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	k := r.cacheKey(key)
	if err := r.rdb.Set(ctx, k, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", k).Msg("failed to write config cache")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	k := r.cacheKey(key)
	if err := r.rdb.Del(ctx, k).Err(); err != nil {
		logx.Error().Err(err).Str("key", k).Msg("failed to delete config cache entry")
		return errx.WrapRedis(err)
	}
	return nil
}

// MemoryCache is an in-process Cache with per-entry expiry, used when Redis
// is not configured.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, key string, out any) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(e.data, out); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value any) error {
	if m.ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	m.mu.Lock()
	m.entries[key] = memoryEntry{data: b, expires: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

var (
	_ Cache = (*RedisCache)(nil)
	_ Cache = (*MemoryCache)(nil)
)
