// Package redisstore is the Redis-backed response cache.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/observability"
)

type Option func(*redis.Options)

func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.ReadTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.WriteTimeout = d }
}

type Client struct {
	rdb *redis.Client
}

func New(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     32,
		MinIdleConns: 2,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	}
	for _, f := range opts {
		f(ro)
	}

	c := &Client{rdb: redis.NewClient(ro)}
	if err := c.Ping(ctx); err != nil {
		_ = c.rdb.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Ping(ctx context.Context) error {
	start := time.Now()
	err := c.rdb.Ping(ctx).Err()
	observability.ObserveCacheOp("ping", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCacheOp("get", nil, time.Since(start).Seconds())
		return nil, false, nil
	}
	observability.ObserveCacheOp("get", err, time.Since(start).Seconds())
	if err != nil {
		return nil, false, fmt.Errorf("redis GET %q: %w", key, err)
	}
	return b, true, nil
}

func (c *Client) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.rdb.Set(ctx, key, val, ttl).Err()
	observability.ObserveCacheOp("set", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis SET %q: %w", key, err)
	}
	return nil
}

// generationKey counts purges. It lives outside every listing prefix.
const generationKey = "storefront:cache:generation"

// KEYS[1] generation, KEYS[2] entry; ARGV gen, value, ttl in ms (0 = none).
var setIfGeneration = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if (cur or '0') ~= ARGV[1] then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

func (c *Client) Generation(ctx context.Context) (uint64, error) {
	start := time.Now()
	gen, err := c.rdb.Get(ctx, generationKey).Uint64()
	if errors.Is(err, redis.Nil) {
		gen, err = 0, nil
	}
	observability.ObserveCacheOp("generation", err, time.Since(start).Seconds())
	if err != nil {
		return 0, fmt.Errorf("redis GET %q: %w", generationKey, err)
	}
	return gen, nil
}

// SetIfGeneration compares and writes in one script, so it is ordered
// against the INCR that starts every purge.
func (c *Client) SetIfGeneration(ctx context.Context, key string, val []byte, ttl time.Duration, gen uint64) (bool, error) {
	start := time.Now()
	var ms int64
	if ttl > 0 {
		ms = max(ttl.Milliseconds(), 1)
	}
	res, err := setIfGeneration.Run(ctx, c.rdb, []string{generationKey, key},
		strconv.FormatUint(gen, 10), val, ms).Int()
	op := "set"
	if err == nil && res == 0 {
		op = "set_stale"
	}
	observability.ObserveCacheOp(op, err, time.Since(start).Seconds())
	if err != nil {
		return false, fmt.Errorf("redis conditional SET %q: %w", key, err)
	}
	return res == 1, nil
}

const purgeBatch = 256

// PurgePrefix bumps the generation, then walks the keyspace with SCAN and
// unlinks matching keys in batches. Fills made through SetIfGeneration
// either land before the bump, and are found by the scan, or are rejected.
func (c *Client) PurgePrefix(ctx context.Context, prefix string) (int, error) {
	start := time.Now()
	n, err := c.purge(ctx, prefix)
	observability.ObserveCacheOp("purge", err, time.Since(start).Seconds())
	return n, err
}

func (c *Client) purge(ctx context.Context, prefix string) (int, error) {
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		return 0, fmt.Errorf("redis INCR %q: %w", generationKey, err)
	}
	iter := c.rdb.Scan(ctx, 0, prefix+"*", purgeBatch).Iterator()
	batch := make([]string, 0, purgeBatch)
	n := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		removed, err := c.rdb.Unlink(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("redis UNLINK (%d keys): %w", len(batch), err)
		}
		n += int(removed)
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == purgeBatch {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("redis SCAN %q: %w", prefix, err)
	}
	if err := flush(); err != nil {
		return n, err
	}
	return n, nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
