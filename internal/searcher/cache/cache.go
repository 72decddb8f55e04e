// Package cache stores ranked search results in Redis. Values are JSON
// compressed with zstd, since untruncated title and anchor results can hold
// hundreds of thousands of hits. Redis failures never fail a search: a
// circuit breaker stops calling Redis while it is unhealthy and lookups fall
// through to the executor.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/searcher/executor"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/resilience"
)

const keyPrefix = "wikisearch:"

// Backend is the key-value store behind the cache. *redis.Client satisfies
// it.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies one cacheable query.
type Key struct {
	Endpoint executor.Endpoint
	Terms    []string
	Limit    int
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache over backend. Key misses do not count as failures of
// the circuit breaker built from breakerCfg.
func New(backend Backend, ttl time.Duration, breakerCfg resilience.CircuitBreakerConfig) (*QueryCache, error) {
	breakerCfg.IsFailure = func(err error) bool {
		return !pkgredis.IsNilError(err)
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		breaker: resilience.NewCircuitBreaker("redis-cache", breakerCfg),
		encoder: encoder,
		decoder: decoder,
		logger:  slog.Default().With("component", "query-cache"),
	}, nil
}

func (c *QueryCache) Get(ctx context.Context, key Key) (*executor.SearchResult, bool) {
	redisKey := buildKey(key)
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.backend.Get(ctx, redisKey)
		return err
	})
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Warn("cache get failed", "key", redisKey, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	result, err := c.decode(data)
	if err != nil {
		c.logger.Error("cache decode failed", "key", redisKey, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "endpoint", key.Endpoint, "key", redisKey)
	return result, true
}

func (c *QueryCache) Set(ctx context.Context, key Key, result *executor.SearchResult) {
	redisKey := buildKey(key)
	data, err := c.encode(result)
	if err != nil {
		c.logger.Error("cache encode failed", "key", redisKey, "error", err)
		return
	}
	if err := c.breaker.Execute(func() error {
		return c.backend.Set(ctx, redisKey, data, c.ttl)
	}); err != nil {
		c.logger.Warn("cache set failed", "key", redisKey, "error", err)
	}
}

// GetOrCompute returns the cached result of key or computes, stores and
// returns it. Concurrent misses on the same key share one computation. The
// boolean reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key Key,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(buildKey(key), func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops every cached result and returns how many were removed.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.backend.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState exposes the state of the Redis circuit breaker.
func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

func (c *QueryCache) encode(result *executor.SearchResult) ([]byte, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return c.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/4)), nil
}

func (c *QueryCache) decode(data []byte) (*executor.SearchResult, error) {
	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	var result executor.SearchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("unmarshalling: %w", err)
	}
	return &result, nil
}

// buildKey hashes the endpoint, the normalized terms in query order and the
// limit. Order and repeats are kept because query-term multiplicity changes
// scores.
func buildKey(key Key) string {
	raw := fmt.Sprintf("%s|%s|limit=%d", key.Endpoint, strings.Join(key.Terms, "\x1f"), key.Limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%x", keyPrefix, key.Endpoint, hash[:16])
}
