package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/resilience"
)

type memoryBackend struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
	gets int
	ttls []time.Duration
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{data: make(map[string][]byte)}
}

func (b *memoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gets++
	if b.err != nil {
		return nil, b.err
	}
	v, ok := b.data[key]
	if !ok {
		return nil, goredis.Nil
	}
	return v, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.data[key] = value
	b.ttls = append(b.ttls, ttl)
	return nil
}

func (b *memoryBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range b.data {
		if strings.HasPrefix(k, prefix) {
			delete(b.data, k)
			n++
		}
	}
	return n, nil
}

func newTestCache(t *testing.T, backend Backend) *QueryCache {
	t.Helper()
	c, err := New(backend, time.Minute, resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})
	require.NoError(t, err)
	return c
}

func sampleResult() *executor.SearchResult {
	return &executor.SearchResult{
		Endpoint: executor.EndpointTitle,
		Terms:    []string{"berlin", "wall"},
		Hits: []executor.Hit{
			{DocID: 4, Title: "Berlin Wall", Score: 1},
			{DocID: 9, Title: "", Score: 0.5},
		},
	}
}

func TestSetThenGet(t *testing.T) {
	backend := newMemoryBackend()
	c := newTestCache(t, backend)
	key := Key{Endpoint: executor.EndpointTitle, Terms: []string{"berlin", "wall"}}

	_, ok := c.Get(context.Background(), key)
	assert.False(t, ok)

	c.Set(context.Background(), key, sampleResult())
	got, ok := c.Get(context.Background(), key)
	require.True(t, ok)
	assert.Equal(t, sampleResult(), got)
	assert.Equal(t, []time.Duration{time.Minute}, backend.ttls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestMissesDoNotTripBreaker(t *testing.T) {
	c := newTestCache(t, newMemoryBackend())
	for i := 0; i < 10; i++ {
		_, ok := c.Get(context.Background(), Key{Endpoint: executor.EndpointSearch, Terms: []string{"x"}})
		assert.False(t, ok)
	}
	assert.Equal(t, resilience.StateClosed, c.BreakerState())
}

func TestBackendFailureOpensBreaker(t *testing.T) {
	backend := newMemoryBackend()
	backend.err = errors.New("connection refused")
	c := newTestCache(t, backend)
	key := Key{Endpoint: executor.EndpointSearch, Terms: []string{"x"}}

	for i := 0; i < 4; i++ {
		_, ok := c.Get(context.Background(), key)
		assert.False(t, ok)
	}
	assert.Equal(t, resilience.StateOpen, c.BreakerState())
	// the open breaker short-circuits further calls
	assert.Equal(t, 2, backend.gets)
}

func TestGetOrComputeCollapsesConcurrentMisses(t *testing.T) {
	c := newTestCache(t, newMemoryBackend())
	key := Key{Endpoint: executor.EndpointBody, Terms: []string{"slow"}, Limit: 10}

	var computed atomic.Int32
	release := make(chan struct{})
	compute := func() (*executor.SearchResult, error) {
		computed.Add(1)
		<-release
		return sampleResult(), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _, err := c.GetOrCompute(context.Background(), key, compute)
			assert.NoError(t, err)
			assert.Len(t, res.Hits, 2)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, computed.Load(), int32(8))
	assert.GreaterOrEqual(t, computed.Load(), int32(1))

	res, hit, err := c.GetOrCompute(context.Background(), key, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, sampleResult(), res)
}

func TestGetOrComputePropagatesError(t *testing.T) {
	c := newTestCache(t, newMemoryBackend())
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), Key{Endpoint: executor.EndpointSearch}, func() (*executor.SearchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestInvalidate(t *testing.T) {
	backend := newMemoryBackend()
	c := newTestCache(t, backend)
	c.Set(context.Background(), Key{Endpoint: executor.EndpointSearch, Terms: []string{"a"}}, sampleResult())
	c.Set(context.Background(), Key{Endpoint: executor.EndpointTitle, Terms: []string{"a"}}, sampleResult())
	backend.data["unrelated"] = []byte("keep")

	n, err := c.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, backend.data, "unrelated")
}

func TestBuildKeyIsOrderAndMultiplicitySensitive(t *testing.T) {
	base := Key{Endpoint: executor.EndpointSearch, Terms: []string{"a", "b"}}
	assert.Equal(t, buildKey(base), buildKey(Key{Endpoint: executor.EndpointSearch, Terms: []string{"a", "b"}}))
	assert.NotEqual(t, buildKey(base), buildKey(Key{Endpoint: executor.EndpointSearch, Terms: []string{"a", "b", "b"}}))
	assert.NotEqual(t, buildKey(base), buildKey(Key{Endpoint: executor.EndpointTitle, Terms: []string{"a", "b"}}))
	assert.NotEqual(t, buildKey(base), buildKey(Key{Endpoint: executor.EndpointSearch, Terms: []string{"a", "b"}, Limit: 5}))
	assert.True(t, strings.HasPrefix(buildKey(base), keyPrefix+"search:"))
}
