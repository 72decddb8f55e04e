// Package handler exposes the search endpoints over HTTP. Search responses
// are JSON arrays of [doc_id, title] pairs in rank order.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/metrics"
)

const maxIDListBytes = 4 << 20

// Searcher is the query side of *executor.Executor.
type Searcher interface {
	Terms(endpoint executor.Endpoint, raw string) []string
	Run(ctx context.Context, endpoint executor.Endpoint, terms []string, limit int) (*executor.SearchResult, error)
	PageRanks(ids []uint32) []float64
	PageViews(ids []uint32) []int64
}

// Tracker receives one event per answered query. *analytics.Collector
// satisfies it.
type Tracker interface {
	Track(event analytics.SearchEvent) bool
}

type Handler struct {
	searcher Searcher
	cache    *cache.QueryCache
	tracker  Tracker
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a Handler. queryCache, tracker and m are optional.
func New(searcher Searcher, queryCache *cache.QueryCache, tracker Tracker, m *metrics.Metrics) *Handler {
	return &Handler{
		searcher: searcher,
		cache:    queryCache,
		tracker:  tracker,
		metrics:  m,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Routes lists the paths Register serves, for metric labelling.
func Routes() []string {
	return []string{
		"/search", "/search_body", "/search_title", "/search_anchor",
		"/get_pagerank", "/get_pageview",
		"/api/v1/cache/stats", "/api/v1/cache/invalidate",
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /search", h.Search(executor.EndpointSearch))
	mux.HandleFunc("GET /search_body", h.Search(executor.EndpointBody))
	mux.HandleFunc("GET /search_title", h.Search(executor.EndpointTitle))
	mux.HandleFunc("GET /search_anchor", h.Search(executor.EndpointAnchor))
	mux.HandleFunc("POST /get_pagerank", h.PageRank)
	mux.HandleFunc("POST /get_pageview", h.PageView)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search answers ?query= for endpoint. The blended endpoint ignores limit.
func (h *Handler) Search(endpoint executor.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		log := logger.FromContext(ctx)

		query := r.URL.Query().Get("query")
		limit, err := parseLimit(endpoint, r.URL.Query().Get("limit"))
		if err != nil {
			h.writeError(w, err)
			return
		}

		terms := h.searcher.Terms(endpoint, query)
		if len(terms) == 0 {
			h.observe(endpoint, "empty_query", false, 0, time.Since(start))
			h.writeJSON(w, http.StatusOK, []any{})
			return
		}

		result, cacheHit, err := h.run(ctx, endpoint, terms, limit)
		if err != nil {
			log.Error("search failed", "endpoint", endpoint, "query", query, "error", err)
			h.writeError(w, err)
			return
		}

		elapsed := time.Since(start)
		resultType := "ok"
		if len(result.Hits) == 0 {
			resultType = "zero_result"
		}
		h.observe(endpoint, resultType, cacheHit, len(result.Hits), elapsed)
		log.Info("search completed",
			"endpoint", endpoint,
			"terms", len(terms),
			"returned", len(result.Hits),
			"cache_hit", cacheHit,
			"latency_ms", elapsed.Milliseconds(),
		)
		if h.tracker != nil {
			h.tracker.Track(analytics.SearchEvent{
				Endpoint:  string(endpoint),
				Query:     query,
				TermCount: len(terms),
				Returned:  len(result.Hits),
				LatencyMs: float64(elapsed.Microseconds()) / 1000,
				CacheHit:  cacheHit,
				RequestID: logger.RequestID(ctx),
				Timestamp: time.Now().UTC(),
			})
		}

		h.writeJSON(w, http.StatusOK, pairs(result.Hits))
	}
}

func (h *Handler) run(ctx context.Context, endpoint executor.Endpoint, terms []string, limit int) (*executor.SearchResult, bool, error) {
	compute := func() (*executor.SearchResult, error) {
		return h.searcher.Run(ctx, endpoint, terms, limit)
	}
	if h.cache == nil {
		res, err := compute()
		return res, false, err
	}
	return h.cache.GetOrCompute(ctx, cache.Key{Endpoint: endpoint, Terms: terms, Limit: limit}, compute)
}

// parseLimit reads the optional limit. Zero means no limit.
func parseLimit(endpoint executor.Endpoint, raw string) (int, error) {
	if raw == "" || endpoint == executor.EndpointSearch {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"limit must be a non-negative integer, got %q", raw)
	}
	return limit, nil
}

// pairs renders hits as [doc_id, title] arrays.
func pairs(hits []executor.Hit) [][2]any {
	out := make([][2]any, len(hits))
	for i, hit := range hits {
		out[i] = [2]any{hit.DocID, hit.Title}
	}
	return out
}

// PageRank answers a JSON list of doc ids with their PageRank, 0 if unknown.
func (h *Handler) PageRank(w http.ResponseWriter, r *http.Request) {
	ids, err := decodeIDs(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.searcher.PageRanks(ids))
}

// PageView answers a JSON list of doc ids with their view counts, 0 if
// unknown.
func (h *Handler) PageView(w http.ResponseWriter, r *http.Request) {
	ids, err := decodeIDs(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.searcher.PageViews(ids))
}

func decodeIDs(w http.ResponseWriter, r *http.Request) ([]uint32, error) {
	var ids []uint32
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIDListBytes))
	if err := dec.Decode(&ids); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"body must be a JSON array of document ids: %v", err)
	}
	if ids == nil {
		ids = []uint32{}
	}
	return ids, nil
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}

	removed, err := h.cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cache invalidation failed"})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "removed": removed})
}

func (h *Handler) observe(endpoint executor.Endpoint, resultType string, cacheHit bool, returned int, elapsed time.Duration) {
	if h.metrics != nil {
		h.metrics.ObserveSearch(string(endpoint), resultType, cacheHit, returned, elapsed)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := http.StatusText(status)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
