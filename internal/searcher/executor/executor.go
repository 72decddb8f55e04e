package executor

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/metadata"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/tracing"
)

// Endpoint names one kind of search.
type Endpoint string

const (
	EndpointSearch Endpoint = "search"
	EndpointBody   Endpoint = "search_body"
	EndpointTitle  Endpoint = "search_title"
	EndpointAnchor Endpoint = "search_anchor"
)

// Stemmed reports whether the endpoint queries a stemmed field.
func (e Endpoint) Stemmed() bool {
	return e != EndpointBody
}

// Hit is one ranked document.
type Hit struct {
	DocID uint32  `json:"doc_id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// SearchResult is the ranked answer to one query.
type SearchResult struct {
	Endpoint Endpoint `json:"endpoint"`
	Terms    []string `json:"terms"`
	Hits     []Hit    `json:"hits"`
	TookMs   float64  `json:"took_ms"`
}

// Params are the ranking constants of the executor. A nil Stemmer means
// tokenizer.Porter.
type Params struct {
	BM25       ranker.BM25Params
	Weights    merger.Weights
	MaxResults int
	Stemmer    tokenizer.Stemmer
}

// ParamsFromConfig derives ranking parameters from the search section.
func ParamsFromConfig(cfg config.SearchConfig) Params {
	return Params{
		BM25:       ranker.BM25Params{K: cfg.BM25K, B: cfg.BM25B},
		Weights:    merger.Weights{Title: cfg.TitleWeight, Body: cfg.BodyWeight, Anchor: cfg.AnchorWeight},
		MaxResults: cfg.MaxResults,
		Stemmer:    tokenizer.Stemmers[cfg.Stemmer],
	}
}

// Executor answers queries against one loaded bundle and its metadata. It
// holds no mutable state and is safe for concurrent use.
type Executor struct {
	bundle *corpus.Bundle
	meta   *metadata.Store
	params Params
	logger *slog.Logger
}

func New(bundle *corpus.Bundle, meta *metadata.Store, params Params) *Executor {
	if params.Stemmer == nil {
		params.Stemmer = tokenizer.Porter
	}
	return &Executor{
		bundle: bundle,
		meta:   meta,
		params: params,
		logger: slog.Default().With("component", "query-executor"),
	}
}

// Terms normalizes raw the way endpoint expects.
func (e *Executor) Terms(endpoint Endpoint, raw string) []string {
	if !endpoint.Stemmed() {
		return tokenizer.NormalizeWith(raw, nil)
	}
	return tokenizer.NormalizeWith(raw, e.params.Stemmer)
}

// Run dispatches to the search of endpoint. limit caps field searches; the
// blended search always caps at MaxResults.
func (e *Executor) Run(ctx context.Context, endpoint Endpoint, terms []string, limit int) (*SearchResult, error) {
	switch endpoint {
	case EndpointBody:
		return e.searchBody(ctx, terms, limit)
	case EndpointTitle:
		return e.searchMembership(ctx, EndpointTitle, index.FieldTitle, terms, limit)
	case EndpointAnchor:
		return e.searchMembership(ctx, EndpointAnchor, index.FieldAnchor, terms, limit)
	default:
		return e.search(ctx, terms)
	}
}

// Search is the blended query: BM25 over the stemmed body, binary match over
// titles and anchors, combined and reranked by PageRank.
func (e *Executor) Search(ctx context.Context, raw string) (*SearchResult, error) {
	return e.search(ctx, e.Terms(EndpointSearch, raw))
}

// SearchBody ranks by cosine similarity over the unstemmed body.
func (e *Executor) SearchBody(ctx context.Context, raw string, limit int) (*SearchResult, error) {
	return e.searchBody(ctx, e.Terms(EndpointBody, raw), limit)
}

// SearchTitle ranks by the fraction of query terms found in the title.
func (e *Executor) SearchTitle(ctx context.Context, raw string, limit int) (*SearchResult, error) {
	return e.searchMembership(ctx, EndpointTitle, index.FieldTitle, e.Terms(EndpointTitle, raw), limit)
}

// SearchAnchor ranks by the fraction of query terms found in anchor text.
func (e *Executor) SearchAnchor(ctx context.Context, raw string, limit int) (*SearchResult, error) {
	return e.searchMembership(ctx, EndpointAnchor, index.FieldAnchor, e.Terms(EndpointAnchor, raw), limit)
}

func (e *Executor) search(ctx context.Context, terms []string) (*SearchResult, error) {
	start := time.Now()
	if len(terms) == 0 {
		return emptyResult(EndpointSearch), nil
	}
	ctx, span := tracing.StartSpan(ctx, "search", logger.RequestID(ctx))
	defer e.finish(ctx, span)
	span.SetAttr("terms", len(terms))

	var title, body, anchor ranker.ScoreMap
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		body, err = e.score(gctx, "bm25", func() ranker.ScoreMap {
			return ranker.BM25(e.bundle.Field(index.FieldText), terms, e.bundle.Stats, e.params.BM25)
		})
		return err
	})
	g.Go(func() error {
		var err error
		title, err = e.score(gctx, "title", func() ranker.ScoreMap {
			return ranker.BinaryMatch(e.bundle.Field(index.FieldTitle), terms)
		})
		return err
	})
	g.Go(func() error {
		var err error
		anchor, err = e.score(gctx, "anchor", func() ranker.ScoreMap {
			return ranker.BinaryMatch(e.bundle.Field(index.FieldAnchor), terms)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	_, mergeSpan := tracing.StartChildSpan(ctx, "merge")
	merged := merger.Combine(title, body, anchor, e.params.Weights)
	ranked := merger.Rerank(merged, e.meta.PageRank, e.meta.AnchorPageRank())
	ranked = merger.Truncate(ranked, e.params.MaxResults)
	mergeSpan.SetAttr("merged", len(merged))
	mergeSpan.End()

	return e.result(EndpointSearch, terms, ranked, start), nil
}

func (e *Executor) searchBody(ctx context.Context, terms []string, limit int) (*SearchResult, error) {
	start := time.Now()
	if len(terms) == 0 {
		return emptyResult(EndpointBody), nil
	}
	ctx, span := tracing.StartSpan(ctx, string(EndpointBody), logger.RequestID(ctx))
	defer e.finish(ctx, span)

	scores, err := e.score(ctx, "cosine", func() ranker.ScoreMap {
		return ranker.Cosine(e.bundle.Field(index.FieldTextNoStem), terms, e.bundle.Stats)
	})
	if err != nil {
		return nil, err
	}
	return e.result(EndpointBody, terms, merger.TopN(scores, limit), start), nil
}

func (e *Executor) searchMembership(ctx context.Context, endpoint Endpoint, field index.Field, terms []string, limit int) (*SearchResult, error) {
	start := time.Now()
	if len(terms) == 0 {
		return emptyResult(endpoint), nil
	}
	ctx, span := tracing.StartSpan(ctx, string(endpoint), logger.RequestID(ctx))
	defer e.finish(ctx, span)

	scores, err := e.score(ctx, string(field), func() ranker.ScoreMap {
		return ranker.BinaryMatch(e.bundle.Field(field), terms)
	})
	if err != nil {
		return nil, err
	}
	return e.result(endpoint, terms, merger.TopN(scores, limit), start), nil
}

// score runs one scorer under a child span. Scorers do not block on
// anything but shard reads, so cancellation is only checked before starting.
func (e *Executor) score(ctx context.Context, name string, fn func() ranker.ScoreMap) (ranker.ScoreMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, span := tracing.StartChildSpan(ctx, name)
	scores := fn()
	span.SetAttr("matched", len(scores))
	span.End()
	return scores, nil
}

func (e *Executor) result(endpoint Endpoint, terms []string, ranked []ranker.ScoredDoc, start time.Time) *SearchResult {
	hits := make([]Hit, len(ranked))
	missing := 0
	for i, doc := range ranked {
		title, ok := e.meta.Title(doc.DocID)
		if !ok {
			missing++
		}
		hits[i] = Hit{DocID: doc.DocID, Title: title, Score: doc.Score}
	}
	if missing > 0 {
		e.logger.Debug("documents without title", "endpoint", endpoint, "count", missing)
	}
	return &SearchResult{
		Endpoint: endpoint,
		Terms:    terms,
		Hits:     hits,
		TookMs:   float64(time.Since(start).Microseconds()) / 1000,
	}
}

func (e *Executor) finish(ctx context.Context, span *tracing.Span) {
	span.End()
	span.Log(ctx, e.logger)
}

func emptyResult(endpoint Endpoint) *SearchResult {
	return &SearchResult{Endpoint: endpoint, Terms: []string{}, Hits: []Hit{}}
}

// PageRanks returns the PageRank of every id, zero when unknown.
func (e *Executor) PageRanks(ids []uint32) []float64 {
	out := make([]float64, len(ids))
	for i, id := range ids {
		out[i], _ = e.meta.PageRank(id)
	}
	return out
}

// PageViews returns the page-view count of every id, zero when unknown.
func (e *Executor) PageViews(ids []uint32) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i], _ = e.meta.PageViews(id)
	}
	return out
}
