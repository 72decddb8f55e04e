package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObservePostingLookup(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePostingLookup("text", "found", 64)
	m.ObservePostingLookup("text", "found", 16)
	m.ObservePostingLookup("text", "not_found", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PostingLookupsTotal.WithLabelValues("text", "found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PostingLookupsTotal.WithLabelValues("text", "not_found")))
	assert.Equal(t, 80.0, testutil.ToFloat64(m.PostingBytesRead.WithLabelValues("text")))
}

func TestNewRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}

func TestObserveSearch(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveSearch("search", "ok", false, 10, 20*time.Millisecond)
	m.ObserveSearch("search", "ok", true, 10, time.Millisecond)
	m.ObserveSearch("search_title", "zero_result", false, 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("search", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("search_title", "zero_result")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMissesTotal))
	assert.Equal(t, 3, testutil.CollectAndCount(m.SearchLatency))
}

func TestSetBreakerState(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SetBreakerState("redis-cache", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("redis-cache")))
}
