package ranker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/postings"
	apperrors "github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/errors"
)

type fakeSource struct {
	lists   map[string]postings.PostingList
	df      map[string]int
	corrupt map[string]bool
	reads   int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		lists:   make(map[string]postings.PostingList),
		df:      make(map[string]int),
		corrupt: make(map[string]bool),
	}
}

func (f *fakeSource) add(term string, list ...postings.Posting) *fakeSource {
	f.lists[term] = list
	f.df[term] = len(list)
	return f
}

func (f *fakeSource) Read(term string) (postings.PostingList, error) {
	f.reads++
	if f.corrupt[term] {
		return nil, fmt.Errorf("term %q: %w", term, apperrors.ErrCorruptIndex)
	}
	list, ok := f.lists[term]
	if !ok {
		return nil, fmt.Errorf("term %q: %w", term, apperrors.ErrTermNotFound)
	}
	return list, nil
}

func (f *fakeSource) DocFreq(term string) (int, bool) {
	df, ok := f.df[term]
	return df, ok
}

var wikiStats = index.CorpusStats{TotalDocs: 6348910, AvgDocLength: 320.405}

var wikiBM25 = BM25Params{K: 0.75, B: 0.40}

func TestBM25SingleTerm(t *testing.T) {
	src := newFakeSource().add("rome", postings.Posting{DocID: 7, TF: 3, DocLen: 300})
	// shrink the list but keep the declared df so the idf matches the example
	src.df["rome"] = 100

	scores := BM25(src, []string{"rome"}, wikiStats, wikiBM25)
	require.Len(t, scores, 1)
	assert.InDelta(t, 15.561355165484096, scores.Get(7), 1e-9)
}

func TestBM25QueryTermCountScales(t *testing.T) {
	src := newFakeSource().add("rome", postings.Posting{DocID: 7, TF: 3, DocLen: 300})
	once := BM25(src, []string{"rome"}, wikiStats, wikiBM25)
	twice := BM25(src, []string{"rome", "rome"}, wikiStats, wikiBM25)
	assert.InDelta(t, 2*once.Get(7), twice.Get(7), 1e-9)
	// repeated terms are read once
	assert.Equal(t, 2, src.reads)
}

func TestBM25MonotonicInDocFreq(t *testing.T) {
	posting := postings.Posting{DocID: 1, TF: 2, DocLen: 250}
	prev := -1.0
	for _, df := range []int{5000, 500, 50, 5, 1} {
		src := newFakeSource().add("term", posting)
		src.df["term"] = df
		score := BM25(src, []string{"term"}, wikiStats, wikiBM25).Get(1)
		assert.Greater(t, score, prev, "df=%d", df)
		prev = score
	}
}

func TestBM25SkipsMissingAndCorruptTerms(t *testing.T) {
	src := newFakeSource().
		add("good", postings.Posting{DocID: 1, TF: 1, DocLen: 100}).
		add("broken", postings.Posting{DocID: 2, TF: 1, DocLen: 100})
	src.corrupt["broken"] = true

	scores := BM25(src, []string{"absent", "broken", "good"}, wikiStats, wikiBM25)
	assert.Len(t, scores, 1)
	assert.True(t, scores.Has(1))
	assert.False(t, scores.Has(2))
}

func cosineFixture() *fakeSource {
	return newFakeSource().
		add("apple",
			postings.Posting{DocID: 1, TF: 2, NormWeight: 0.4, DocLen: 10},
			postings.Posting{DocID: 2, TF: 1, NormWeight: 0.2, DocLen: 12},
		).
		add("pie", postings.Posting{DocID: 1, TF: 1, NormWeight: 0.3, DocLen: 10})
}

func TestCosineWorkedExample(t *testing.T) {
	stats := index.CorpusStats{TotalDocs: 10, AvgDocLength: 11}
	// w_apple = 0.5*log2(10/(2+1e-7)), w_pie = 0.5*log2(10/(1+1e-7))
	// doc1 = (0.4*w_apple + 0.3*w_pie)/|w|, doc2 = 0.2*w_apple/|w|
	scores := Cosine(cosineFixture(), []string{"apple", "pie"}, stats)
	require.Len(t, scores, 2)
	assert.InDelta(t, 0.47504674976595657, scores.Get(1), 1e-6)
	assert.InDelta(t, 0.11457912512848746, scores.Get(2), 1e-6)
}

func TestCosineCountsRepeatedTermsInNorm(t *testing.T) {
	stats := index.CorpusStats{TotalDocs: 10, AvgDocLength: 11}
	// apple appears twice: its squared weight enters the norm twice and its
	// postings are accumulated twice
	scores := Cosine(cosineFixture(), []string{"apple", "apple", "pie"}, stats)
	assert.InDelta(t, 0.6401928874553895, scores.Get(1), 1e-6)
	assert.InDelta(t, 0.2523918600189077, scores.Get(2), 1e-6)
}

func TestCosineUnknownTerms(t *testing.T) {
	stats := index.CorpusStats{TotalDocs: 10, AvgDocLength: 11}
	assert.Empty(t, Cosine(cosineFixture(), []string{"banana", "kiwi"}, stats))
	assert.Empty(t, Cosine(cosineFixture(), nil, stats))

	withUnknown := Cosine(cosineFixture(), []string{"apple", "pie", "banana"}, stats)
	assert.Len(t, withUnknown, 2)
}

func TestBinaryMatch(t *testing.T) {
	src := newFakeSource().
		add("first", postings.Posting{DocID: 10}, postings.Posting{DocID: 20}).
		add("second", postings.Posting{DocID: 10})

	scores := BinaryMatch(src, []string{"first", "second"})
	assert.Equal(t, ScoreMap{10: 1.0, 20: 0.5}, scores)
}

func TestBinaryMatchCountsEveryOccurrence(t *testing.T) {
	src := newFakeSource().add("first", postings.Posting{DocID: 10})

	scores := BinaryMatch(src, []string{"first", "first", "missing"})
	assert.InDelta(t, 2.0/3.0, scores.Get(10), 1e-12)
}

func TestScorersNeverFabricateDocs(t *testing.T) {
	src := cosineFixture()
	src.add("solo", postings.Posting{DocID: 99, TF: 1, NormWeight: 0.1, DocLen: 5})
	member := map[uint32]bool{1: true, 2: true, 99: true}

	terms := []string{"apple", "solo", "ghost"}
	for name, scores := range map[string]ScoreMap{
		"bm25":   BM25(src, terms, wikiStats, wikiBM25),
		"cosine": Cosine(src, terms, wikiStats),
		"binary": BinaryMatch(src, terms),
	} {
		for doc, score := range scores {
			assert.True(t, member[doc], "%s produced doc %d", name, doc)
			assert.NotZero(t, score, "%s produced a zero entry", name)
		}
	}
}

func TestScoreMapSorted(t *testing.T) {
	scores := ScoreMap{5: 1.5, 3: 2.0, 9: 1.5, 1: 0.25}
	assert.Equal(t, []ScoredDoc{
		{DocID: 3, Score: 2.0},
		{DocID: 5, Score: 1.5},
		{DocID: 9, Score: 1.5},
		{DocID: 1, Score: 0.25},
	}, scores.Sorted())
	assert.Zero(t, scores.Get(42))
}
