package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brewloop/subswap-backend/pkg/config"
	"github.com/brewloop/subswap-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace      = "subswap"
	idempotencyPrefix = "idempotency"
	queuePrefix       = "queue"
	batchPrefix       = "batch"
)

// Client wraps the redis connection helpers needed by the platform.
type Client struct {
	raw *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// IdempotencyStore exposes minimal operations used by webhook dedupe guards.
type IdempotencyStore interface {
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// New bootstraps a Redis client with pooling/timeouts and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// SetNX sets a value only if the key does not exist yet.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.raw == nil {
		return false, errors.New("redis client not initialized")
	}
	return c.raw.SetNX(ctx, key, value, ttl).Result()
}

// Del removes the provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.Del(ctx, keys...).Err()
}

// RPush appends values to the tail of a list and returns the new length.
func (c *Client) RPush(ctx context.Context, key string, values ...any) (int64, error) {
	if c.raw == nil {
		return 0, errors.New("redis client not initialized")
	}
	return c.raw.RPush(ctx, key, values...).Result()
}

// LLen returns the length of a list.
func (c *Client) LLen(ctx context.Context, key string) (int64, error) {
	if c.raw == nil {
		return 0, errors.New("redis client not initialized")
	}
	return c.raw.LLen(ctx, key).Result()
}

// LMove atomically moves the head of src to the tail of dst. Returns the
// moved value, or redis.Nil wrapped as empty when src is empty.
func (c *Client) LMove(ctx context.Context, src, dst string) (string, bool, error) {
	if c.raw == nil {
		return "", false, errors.New("redis client not initialized")
	}
	val, err := c.raw.LMove(ctx, src, dst, "LEFT", "RIGHT").Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// LRem removes count occurrences of value from the list.
func (c *Client) LRem(ctx context.Context, key string, count int64, value any) (int64, error) {
	if c.raw == nil {
		return 0, errors.New("redis client not initialized")
	}
	return c.raw.LRem(ctx, key, count, value).Result()
}

// LRange returns entries between start and stop, inclusive.
func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if c.raw == nil {
		return nil, errors.New("redis client not initialized")
	}
	return c.raw.LRange(ctx, key, start, stop).Result()
}

// DrainList atomically reads and removes the oldest n entries of a list.
// The read and the trim run in one MULTI/EXEC so concurrent appends can
// neither be lost nor double-delivered.
func (c *Client) DrainList(ctx context.Context, key string, n int64) ([]string, error) {
	if c.raw == nil {
		return nil, errors.New("redis client not initialized")
	}
	pipe := c.raw.TxPipeline()
	rangeCmd := pipe.LRange(ctx, key, 0, n-1)
	pipe.LTrim(ctx, key, n, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return rangeCmd.Result()
}

// ZAdd adds a member with the given score to a sorted set.
func (c *Client) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

// ZDue returns members whose score is at or below max, lowest score first.
// Members are not removed; callers claim them individually with ZRem.
func (c *Client) ZDue(ctx context.Context, key string, max float64) ([]string, error) {
	if c.raw == nil {
		return nil, errors.New("redis client not initialized")
	}
	return c.raw.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%f", max),
	}).Result()
}

// ZRem removes one member from a sorted set and reports how many entries
// went away, so a caller can tell whether it won the claim over a
// concurrent remover.
func (c *Client) ZRem(ctx context.Context, key, member string) (int64, error) {
	if c.raw == nil {
		return 0, errors.New("redis client not initialized")
	}
	return c.raw.ZRem(ctx, key, member).Result()
}

// IdempotencyKey returns a namespaced key for idempotency storage.
func (c *Client) IdempotencyKey(scope, id string) string {
	return buildKey(idempotencyPrefix, scope, id)
}

// QueueKey returns a namespaced key for one of a queue's backing lists.
func (c *Client) QueueKey(name, part string) string {
	return buildKey(queuePrefix, name, part)
}

// BatchKey returns a namespaced key for a notifier batch list.
func (c *Client) BatchKey(name string) string {
	return buildKey(batchPrefix, name)
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func buildKey(parts ...string) string {
	if len(parts) == 0 {
		return keyNamespace
	}
	clean := []string{keyNamespace}
	for _, part := range parts {
		if part == "" {
			continue
		}
		clean = append(clean, strings.TrimSpace(part))
	}
	return strings.Join(clean, ":")
}
