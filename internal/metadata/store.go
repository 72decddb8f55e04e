// Package metadata holds per-document data that is not part of any posting
// list: titles, PageRank and page-view counts. Everything is loaded into
// memory once at startup and only read afterwards.
package metadata

import (
	"context"
	"log/slog"
)

// Store is the read-only document metadata.
type Store struct {
	titles    map[uint32]string
	pageRank  map[uint32]float64
	pageViews map[uint32]int64
	anchorDoc uint32
	anchorPR  float64
	hasAnchor bool
}

// Title returns the title of doc.
func (s *Store) Title(doc uint32) (string, bool) {
	t, ok := s.titles[doc]
	return t, ok
}

// PageRank returns the PageRank of doc.
func (s *Store) PageRank(doc uint32) (float64, bool) {
	pr, ok := s.pageRank[doc]
	return pr, ok
}

// PageViews returns the page-view count of doc.
func (s *Store) PageViews(doc uint32) (int64, bool) {
	v, ok := s.pageViews[doc]
	return v, ok
}

// AnchorPageRank is the PageRank of the reference document used to scale
// authority scores: the first PageRank entry the loader read. It is zero
// when no PageRank was loaded.
func (s *Store) AnchorPageRank() float64 {
	return s.anchorPR
}

// AnchorDoc returns the reference document behind AnchorPageRank.
func (s *Store) AnchorDoc() (uint32, bool) {
	return s.anchorDoc, s.hasAnchor
}

// Counts reports how many titles, PageRank and page-view entries are held.
func (s *Store) Counts() (titles, pageRanks, pageViews int) {
	return len(s.titles), len(s.pageRank), len(s.pageViews)
}

// Builder accumulates metadata from a loader. It is not safe for concurrent
// use.
type Builder struct {
	store *Store
}

func NewBuilder() *Builder {
	return &Builder{store: &Store{
		titles:    make(map[uint32]string),
		pageRank:  make(map[uint32]float64),
		pageViews: make(map[uint32]int64),
	}}
}

func (b *Builder) AddTitle(doc uint32, title string) {
	b.store.titles[doc] = title
}

// AddPageRank records the PageRank of doc. The first call fixes the anchor.
func (b *Builder) AddPageRank(doc uint32, rank float64) {
	if !b.store.hasAnchor {
		b.store.anchorDoc = doc
		b.store.anchorPR = rank
		b.store.hasAnchor = true
	}
	b.store.pageRank[doc] = rank
}

func (b *Builder) AddPageViews(doc uint32, views int64) {
	b.store.pageViews[doc] = views
}

// Build returns the finished Store. The builder must not be used afterwards.
func (b *Builder) Build() *Store {
	s := b.store
	b.store = nil
	return s
}

// Loader fills a Builder from a metadata source.
type Loader interface {
	Load(ctx context.Context, b *Builder) error
}

// Load runs loader and returns the resulting Store.
func Load(ctx context.Context, loader Loader) (*Store, error) {
	b := NewBuilder()
	if err := loader.Load(ctx, b); err != nil {
		return nil, err
	}
	s := b.Build()
	titles, ranks, views := s.Counts()
	slog.Default().With("component", "metadata").Info("document metadata loaded",
		"titles", titles,
		"pagerank", ranks,
		"pageviews", views,
		"anchor_pagerank", s.anchorPR,
	)
	return s, nil
}
