package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/blobstore"
)

func TestBuilderAnchorIsFirstPageRank(t *testing.T) {
	b := NewBuilder()
	b.AddPageRank(42, 3.5)
	b.AddPageRank(7, 100)
	b.AddPageRank(42, 9)
	s := b.Build()

	assert.Equal(t, 3.5, s.AnchorPageRank())
	doc, ok := s.AnchorDoc()
	assert.True(t, ok)
	assert.Equal(t, uint32(42), doc)

	pr, ok := s.PageRank(42)
	assert.True(t, ok)
	assert.Equal(t, 9.0, pr)
}

func TestEmptyStore(t *testing.T) {
	s := NewBuilder().Build()
	assert.Zero(t, s.AnchorPageRank())
	_, ok := s.AnchorDoc()
	assert.False(t, ok)
	_, ok = s.Title(1)
	assert.False(t, ok)
}

func TestFileLoader(t *testing.T) {
	blobs := blobstore.NewMemoryStore()
	blobs.Put("meta/titles.jsonl", []byte(
		`{"id": 1, "title": "Anarchism"}`+"\n"+
			`{"id": 25, "title": "Autism"}`+"\n"))
	blobs.Put("meta/pagerank.jsonl", []byte(
		`{"id": 25, "rank": 2.5}`+"\n"+
			`{"id": 1, "rank": 10}`+"\n"))
	blobs.Put("meta/pageviews.jsonl", []byte(`{"id": 1, "views": 1200}`))

	s, err := Load(context.Background(), &FileLoader{
		Blobs:         blobs,
		TitlesPath:    "meta/titles.jsonl",
		PageRankPath:  "meta/pagerank.jsonl",
		PageViewsPath: "meta/pageviews.jsonl",
	})
	require.NoError(t, err)

	title, ok := s.Title(25)
	assert.True(t, ok)
	assert.Equal(t, "Autism", title)
	assert.Equal(t, 2.5, s.AnchorPageRank())

	views, ok := s.PageViews(1)
	assert.True(t, ok)
	assert.Equal(t, int64(1200), views)
	_, ok = s.PageViews(25)
	assert.False(t, ok)

	titles, ranks, pageViews := s.Counts()
	assert.Equal(t, []int{2, 2, 1}, []int{titles, ranks, pageViews})
}

func TestFileLoaderSkipsEmptyPaths(t *testing.T) {
	blobs := blobstore.NewMemoryStore()
	blobs.Put("titles.jsonl", []byte(`{"id": 3, "title": "Three"}`))

	s, err := Load(context.Background(), &FileLoader{Blobs: blobs, TitlesPath: "titles.jsonl"})
	require.NoError(t, err)
	titles, ranks, views := s.Counts()
	assert.Equal(t, 1, titles)
	assert.Zero(t, ranks)
	assert.Zero(t, views)
}

func TestFileLoaderErrors(t *testing.T) {
	blobs := blobstore.NewMemoryStore()
	blobs.Put("bad.jsonl", []byte(`{"id": 1, "title": "ok"}`+"\n"+`{"id": "x"`))

	_, err := Load(context.Background(), &FileLoader{Blobs: blobs, TitlesPath: "bad.jsonl"})
	assert.ErrorContains(t, err, "record 2")

	_, err = Load(context.Background(), &FileLoader{Blobs: blobs, PageRankPath: "missing.jsonl"})
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
