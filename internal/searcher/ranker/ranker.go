// Package ranker scores documents for one signal at a time. Each scorer reads
// the posting lists of the query terms from a single field and returns a
// sparse ScoreMap holding only documents that matched at least one term.
package ranker

import (
	"errors"
	"log/slog"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/postings"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/errors"
)

// cosineEpsilon smooths the idf of the cosine scorer.
const cosineEpsilon = 1e-7

// PostingSource is the read side of one field's posting store.
type PostingSource interface {
	Read(term string) (postings.PostingList, error)
	DocFreq(term string) (int, bool)
}

// ScoredDoc is one entry of an ordered result.
type ScoredDoc struct {
	DocID uint32  `json:"doc_id"`
	Score float64 `json:"score"`
}

// ScoreMap accumulates per-document scores. A missing key scores zero.
type ScoreMap map[uint32]float64

// Get returns the score of doc, or zero when doc never matched.
func (m ScoreMap) Get(doc uint32) float64 {
	return m[doc]
}

// Has reports whether doc matched.
func (m ScoreMap) Has(doc uint32) bool {
	_, ok := m[doc]
	return ok
}

// Add increments the score of doc by v, creating the entry if needed.
func (m ScoreMap) Add(doc uint32, v float64) {
	m[doc] += v
}

// Sorted returns the entries ordered by descending score, ties broken by
// ascending doc id.
func (m ScoreMap) Sorted() []ScoredDoc {
	result := make([]ScoredDoc, 0, len(m))
	for doc, score := range m {
		result = append(result, ScoredDoc{DocID: doc, Score: score})
	}
	SortDocs(result)
	return result
}

// SortDocs orders docs by descending score, ties broken by ascending doc id.
func SortDocs(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].DocID < docs[j].DocID
	})
}

// BM25Params are the saturation and length-normalization constants.
type BM25Params struct {
	K float64
	B float64
}

// BM25 scores the unique terms of the query against a scored field.
// Query-term multiplicity scales each term's contribution.
func BM25(src PostingSource, terms []string, stats index.CorpusStats, params BM25Params) ScoreMap {
	scores := make(ScoreMap)
	counts := tokenizer.Counts(terms)
	for _, term := range tokenizer.Unique(terms) {
		list, ok := readTerm(src, term)
		if !ok {
			continue
		}
		df, _ := src.DocFreq(term)
		idf := computeIDF(stats.TotalDocs, int64(df))
		qtf := float64(counts[term])
		for _, p := range list {
			tfNorm := computeTFNorm(float64(p.TF), float64(p.DocLen), stats.AvgDocLength, params)
			scores.Add(p.DocID, qtf*tfNorm*idf)
		}
	}
	return scores
}

// Cosine scores the query against a scored field as the dot product of a
// tf-idf query vector with the precomputed document weights, divided by the
// query norm. The norm sums the squared weight once per occurrence of a term,
// repeats included, matching the reference scoring formula.
func Cosine(src PostingSource, terms []string, stats index.CorpusStats) ScoreMap {
	scores := make(ScoreMap)
	if len(terms) == 0 {
		return scores
	}
	weights := queryWeights(src, terms, stats)

	var normSq float64
	lists := make(map[string]postings.PostingList, len(weights))
	for _, term := range terms {
		w := weights[term]
		normSq += w * w
		list, cached := lists[term]
		if !cached {
			var ok bool
			if list, ok = readTerm(src, term); !ok {
				continue
			}
			lists[term] = list
		}
		for _, p := range list {
			scores.Add(p.DocID, w*float64(p.NormWeight))
		}
	}
	if normSq == 0 {
		// every term is unknown to the field, so no document can have matched
		return make(ScoreMap)
	}
	norm := math.Sqrt(normSq)
	for doc, score := range scores {
		scores[doc] = score / norm
	}
	return scores
}

// queryWeights builds the tf-idf query vector over the unique terms the field
// indexes.
func queryWeights(src PostingSource, terms []string, stats index.CorpusStats) map[string]float64 {
	counts := tokenizer.Counts(terms)
	weights := make(map[string]float64, len(counts))
	for term, count := range counts {
		df, ok := src.DocFreq(term)
		if !ok {
			continue
		}
		tf := float64(count) / float64(len(terms))
		idf := math.Log2(float64(stats.TotalDocs) / (float64(df) + cosineEpsilon))
		weights[term] = tf * idf
	}
	return weights
}

// BinaryMatch scores a membership field by the fraction of query-term
// occurrences whose posting list contains the document.
func BinaryMatch(src PostingSource, terms []string) ScoreMap {
	scores := make(ScoreMap)
	if len(terms) == 0 {
		return scores
	}
	lists := make(map[string]postings.PostingList)
	for _, term := range terms {
		list, cached := lists[term]
		if !cached {
			var ok bool
			if list, ok = readTerm(src, term); !ok {
				continue
			}
			lists[term] = list
		}
		for _, p := range list {
			scores.Add(p.DocID, 1)
		}
	}
	n := float64(len(terms))
	for doc, score := range scores {
		scores[doc] = score / n
	}
	return scores
}

// readTerm reads the posting list of term. Missing and corrupt terms
// contribute nothing to the query.
func readTerm(src PostingSource, term string) (postings.PostingList, bool) {
	list, err := src.Read(term)
	if err == nil {
		return list, true
	}
	if !errors.Is(err, apperrors.ErrTermNotFound) {
		slog.Warn("skipping term", "component", "ranker", "term", term, "error", err)
	}
	return nil, false
}

func computeIDF(totalDocs int64, docFreq int64) float64 {
	if docFreq <= 0 {
		return 0
	}
	return math.Log((1 + float64(totalDocs)) / float64(docFreq))
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64, params BM25Params) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + params.K*(1-params.B+params.B*lengthRatio)
	if denominator == 0 {
		return 0
	}
	return (termFreq * (params.K + 1)) / denominator
}
