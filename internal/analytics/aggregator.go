package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/kafka"
)

const (
	latencyWindow     = 10000
	maxTrackedQueries = 50000
	topQueryCount     = 10
)

// AggregatedStats is a point-in-time view of everything the Aggregator has
// seen since it started.
type AggregatedStats struct {
	TotalSearches     int64                    `json:"total_searches"`
	CacheHits         int64                    `json:"cache_hits"`
	CacheMisses       int64                    `json:"cache_misses"`
	ZeroResultCount   int64                    `json:"zero_result_count"`
	AvgLatencyMs      float64                  `json:"avg_latency_ms"`
	P50LatencyMs      float64                  `json:"p50_latency_ms"`
	P95LatencyMs      float64                  `json:"p95_latency_ms"`
	P99LatencyMs      float64                  `json:"p99_latency_ms"`
	Endpoints         map[string]EndpointStats `json:"endpoints"`
	TopQueries        []QueryCount             `json:"top_queries"`
	ZeroResultQueries []QueryCount             `json:"zero_result_queries"`
	QueriesPerMinute  float64                  `json:"queries_per_minute"`
	Since             time.Time                `json:"since"`
}

// EndpointStats breaks the totals down by endpoint.
type EndpointStats struct {
	Searches     int64   `json:"searches"`
	CacheHits    int64   `json:"cache_hits"`
	ZeroResults  int64   `json:"zero_results"`
	AvgReturned  float64 `json:"avg_returned"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	P95LatencyMs float64 `json:"p95_latency_ms"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

type endpointCounters struct {
	searches    int64
	cacheHits   int64
	zeroResults int64
	returned    int64
	latencies   *window
}

// Aggregator folds SearchEvents into running statistics. Latency percentiles
// are computed over the most recent events only.
type Aggregator struct {
	mu                sync.Mutex
	totalSearches     int64
	cacheHits         int64
	zeroResults       int64
	latencies         *window
	endpoints         map[string]*endpointCounters
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time
	now               func() time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         newWindow(latencyWindow),
		endpoints:         make(map[string]*endpointCounters),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		now:               time.Now,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent adapts the Aggregator to a Kafka consumer. Undecodable
// messages are logged and skipped so they do not block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[SearchEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode search event", "key", string(key), "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// Publish lets the Aggregator sit directly behind a Collector when Kafka is
// disabled.
func (a *Aggregator) Publish(_ context.Context, events []SearchEvent) error {
	for _, ev := range events {
		a.Record(ev)
	}
	return nil
}

// Record folds one event into the statistics.
func (a *Aggregator) Record(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSearches++
	if event.CacheHit {
		a.cacheHits++
	}
	a.latencies.add(event.LatencyMs)

	ep, ok := a.endpoints[event.Endpoint]
	if !ok {
		ep = &endpointCounters{latencies: newWindow(latencyWindow)}
		a.endpoints[event.Endpoint] = ep
	}
	ep.searches++
	ep.returned += int64(event.Returned)
	ep.latencies.add(event.LatencyMs)
	if event.CacheHit {
		ep.cacheHits++
	}

	bump(a.queryCounts, event.Query)
	if event.ZeroResult() {
		a.zeroResults++
		ep.zeroResults++
		bump(a.zeroResultQueries, event.Query)
	}
}

// bump counts query, ignoring new queries once the table is full.
func bump(counts map[string]int64, query string) {
	if _, ok := counts[query]; ok || len(counts) < maxTrackedQueries {
		counts[query]++
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.totalSearches - a.cacheHits,
		ZeroResultCount: a.zeroResults,
		Endpoints:       make(map[string]EndpointStats, len(a.endpoints)),
		Since:           a.startTime,
	}
	if sorted := a.latencies.sorted(); len(sorted) > 0 {
		stats.AvgLatencyMs = mean(sorted)
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	for name, ep := range a.endpoints {
		sorted := ep.latencies.sorted()
		stats.Endpoints[name] = EndpointStats{
			Searches:     ep.searches,
			CacheHits:    ep.cacheHits,
			ZeroResults:  ep.zeroResults,
			AvgReturned:  float64(ep.returned) / float64(ep.searches),
			AvgLatencyMs: mean(sorted),
			P95LatencyMs: percentile(sorted, 95),
		}
	}
	stats.TopQueries = topN(a.queryCounts, topQueryCount)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, topQueryCount)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

// window is a fixed-size ring of the most recent samples.
type window struct {
	samples []float64
	next    int
	full    bool
}

func newWindow(size int) *window {
	return &window{samples: make([]float64, size)}
}

func (w *window) add(v float64) {
	w.samples[w.next] = v
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
}

func (w *window) sorted() []float64 {
	n := w.next
	if w.full {
		n = len(w.samples)
	}
	out := make([]float64, n)
	copy(out, w.samples[:n])
	sort.Float64s(out)
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func percentile(sorted []float64, pct int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n most frequent queries, ties broken alphabetically.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
