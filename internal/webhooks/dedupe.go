package webhook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brewloop/subswap-backend/pkg/config"
	"github.com/brewloop/subswap-backend/pkg/logger"
	"github.com/brewloop/subswap-backend/pkg/redis"
)

const dedupeScope = "webhook"

// Deduplicator suppresses webhook replays by event identifier. An empty
// identifier can never be deduplicated, so it is never a duplicate.
type Deduplicator interface {
	IsDuplicate(ctx context.Context, eventID string) (bool, error)
}

// MemoryDeduplicator tracks seen event ids in a bounded in-process map.
// Once the map grows past its cap it is cleared wholesale; senders retry
// within seconds, so briefly reopening the window is acceptable. State is
// lost on restart for the same reason.
type MemoryDeduplicator struct {
	mu         sync.Mutex
	seen       map[string]time.Time
	maxEntries int
	now        func() time.Time
}

// NewMemoryDeduplicator builds an in-process deduplicator.
func NewMemoryDeduplicator(maxEntries int) *MemoryDeduplicator {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryDeduplicator{
		seen:       make(map[string]time.Time),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// IsDuplicate records the event id and reports whether it was seen before.
func (d *MemoryDeduplicator) IsDuplicate(_ context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[eventID]; ok {
		return true, nil
	}
	if len(d.seen) >= d.maxEntries {
		d.seen = make(map[string]time.Time)
	}
	d.seen[eventID] = d.now()
	return false, nil
}

// RedisDeduplicator shares dedupe state across instances through a
// SetNX-with-TTL guard.
type RedisDeduplicator struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewRedisDeduplicator builds a shared-store deduplicator.
func NewRedisDeduplicator(store redis.IdempotencyStore, cfg config.DedupeConfig, logg *logger.Logger) (*RedisDeduplicator, error) {
	if store == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduplicator{store: store, ttl: ttl, logg: logg}, nil
}

// IsDuplicate claims the event id atomically; a failed claim means another
// delivery got there first.
func (d *RedisDeduplicator) IsDuplicate(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, nil
	}
	key := d.store.IdempotencyKey(dedupeScope, eventID)
	claimed, err := d.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), d.ttl)
	if err != nil {
		return false, fmt.Errorf("claiming webhook event: %w", err)
	}
	return !claimed, nil
}
