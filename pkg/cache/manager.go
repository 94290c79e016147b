package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StaleRetention is how long a stale entry with validators stays in Redis so
// it can be revalidated with a conditional request.
const StaleRetention = 1 * time.Hour

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager handles caching operations with Redis backend.
type Manager struct {
	redis  *redis.Client
	maxTTL time.Duration
}

// NewManager creates a new cache manager with Redis backend.
// maxTTL caps the freshness lifetime of any entry; 0 means no cap.
func NewManager(redisClient *redis.Client, maxTTL time.Duration) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis:  redisClient,
		maxTTL: maxTTL,
	}
}

// Get retrieves a cache entry by key. Stale entries are returned too; callers
// check IsExpired and revalidate. Returns ErrCacheMiss if the key doesn't exist.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		_ = m.Delete(ctx, key)
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		CacheStale.Inc()
	} else {
		CacheHits.WithLabelValues("redis").Inc()
	}

	return &entry, nil
}

// Set stores an entry. The Redis TTL is the entry's freshness lifetime (capped
// by maxTTL) plus StaleRetention when the entry can be revalidated.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	if m.maxTTL > 0 && entry.TTL() > m.maxTTL {
		entry.Expires = time.Now().Add(m.maxTTL)
	}

	ttl := entry.TTL()
	if ShouldMakeConditionalRequest(entry) {
		ttl += StaleRetention
	}
	if ttl <= 0 {
		// Stale and not revalidatable, nothing worth keeping
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data)))

	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// Refresh moves the expiry of an existing entry, typically after a 304 Not
// Modified response, and returns the refreshed entry.
func (m *Manager) Refresh(ctx context.Context, key Key, newExpires time.Time) (*Entry, error) {
	entry, err := m.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	entry.Expires = newExpires
	if err := m.Set(ctx, key, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// Ping checks that Redis is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
