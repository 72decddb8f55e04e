// Command loadtest drives the search endpoints with a fixed pool of workers
// and reports throughput, latency percentiles and status codes per endpoint.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:8080] [-concurrency 10] [-duration 30s]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Endpoints   []string
	Limit       int
	Queries     []string
}

// endpointStats collects the samples of one endpoint.
type endpointStats struct {
	mu          sync.Mutex
	requests    int64
	errors      int64
	latencies   []time.Duration
	statusCodes map[int]int64
}

type Stats struct {
	mu        sync.Mutex
	endpoints map[string]*endpointStats
}

func NewStats() *Stats {
	return &Stats{endpoints: make(map[string]*endpointStats)}
}

func (s *Stats) endpoint(name string) *endpointStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	es, ok := s.endpoints[name]
	if !ok {
		es = &endpointStats{statusCodes: make(map[int]int64)}
		s.endpoints[name] = es
	}
	return es
}

// RecordRequest adds one sample. A transport error counts as an error with
// no latency sample.
func (s *Stats) RecordRequest(endpoint string, duration time.Duration, statusCode int, err error) {
	es := s.endpoint(endpoint)
	es.mu.Lock()
	defer es.mu.Unlock()
	es.requests++
	if err != nil {
		es.errors++
		return
	}
	if statusCode < 200 || statusCode >= 300 {
		es.errors++
	}
	es.latencies = append(es.latencies, duration)
	es.statusCodes[statusCode]++
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	endpoints := flag.String("endpoints", "search,search_body,search_title,search_anchor", "comma-separated endpoints to exercise")
	limit := flag.Int("limit", 100, "limit passed to the field endpoints (0 for none)")
	flag.Parse()

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Endpoints:   strings.Split(*endpoints, ","),
		Limit:       *limit,
		Queries: []string{
			"berlin wall",
			"python programming language",
			"world war ii",
			"albert einstein relativity",
			"photosynthesis",
			"history of the roman empire",
			"machine learning",
			"great barrier reef",
			"mount everest expedition",
			"jazz music new orleans",
			"quantum mechanics",
			"olympic games",
			"the and of",
		},
	}

	fmt.Println("=== wiki-search load test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Endpoints:   %s\n", strings.Join(cfg.Endpoints, ", "))
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Println()

	stats := runLoadTest(cfg)
	if !printReport(os.Stdout, stats, cfg.Duration) {
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

// targetURL builds the request for the n-th query of a worker. The blended
// endpoint takes no limit.
func targetURL(cfg Config, endpoint, query string) string {
	v := url.Values{}
	v.Set("query", query)
	if endpoint != "search" && cfg.Limit > 0 {
		v.Set("limit", strconv.Itoa(cfg.Limit))
	}
	return fmt.Sprintf("%s/%s?%s", cfg.BaseURL, endpoint, v.Encode())
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for n := workerID; ctx.Err() == nil; n++ {
				endpoint := cfg.Endpoints[n%len(cfg.Endpoints)]
				query := cfg.Queries[(n/len(cfg.Endpoints))%len(cfg.Queries)]

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL(cfg, endpoint, query), nil)
				if err != nil {
					stats.RecordRequest(endpoint, 0, 0, err)
					continue
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						stats.RecordRequest(endpoint, elapsed, 0, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.RecordRequest(endpoint, elapsed, resp.StatusCode, nil)
			}
		}(w)
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

// printReport writes the per-endpoint summary and reports whether any
// request completed.
func printReport(w io.Writer, stats *Stats, duration time.Duration) bool {
	stats.mu.Lock()
	names := make([]string, 0, len(stats.endpoints))
	for name := range stats.endpoints {
		names = append(names, name)
	}
	stats.mu.Unlock()
	sort.Strings(names)

	var total int64
	for _, name := range names {
		es := stats.endpoint(name)
		es.mu.Lock()
		latencies := append([]time.Duration(nil), es.latencies...)
		requests, errs := es.requests, es.errors
		codes := make([]int, 0, len(es.statusCodes))
		for code := range es.statusCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		counts := make([]int64, len(codes))
		for i, code := range codes {
			counts[i] = es.statusCodes[code]
		}
		es.mu.Unlock()
		total += requests

		fmt.Fprintf(w, "=== /%s ===\n", name)
		fmt.Fprintf(w, "Requests:     %d\n", requests)
		fmt.Fprintf(w, "Errors:       %d (%.2f%%)\n", errs, 100*float64(errs)/math.Max(1, float64(requests)))
		fmt.Fprintf(w, "Requests/sec: %.2f\n", float64(requests)/duration.Seconds())
		if len(latencies) > 0 {
			sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
			fmt.Fprintf(w, "Latency:      min %s  p50 %s  p95 %s  p99 %s  max %s\n",
				latencies[0],
				percentile(latencies, 50),
				percentile(latencies, 95),
				percentile(latencies, 99),
				latencies[len(latencies)-1],
			)
		}
		for i, code := range codes {
			fmt.Fprintf(w, "  %d: %d\n", code, counts[i])
		}
		fmt.Fprintln(w)
	}
	return total > 0
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
