package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/searcher/ranker"
)

// Weights are the per-channel multipliers of Combine.
type Weights struct {
	Title  float64
	Body   float64
	Anchor float64
}

// Combine blends the title, body and anchor score maps. When exactly two of
// the three maps are empty the remaining one is returned as is, without its
// weight. Otherwise every matched document gets the weighted sum of the
// channels it appears in.
func Combine(title, body, anchor ranker.ScoreMap, w Weights) ranker.ScoreMap {
	empty := 0
	for _, m := range []ranker.ScoreMap{title, body, anchor} {
		if len(m) == 0 {
			empty++
		}
	}
	if empty == 2 {
		switch {
		case len(title) > 0:
			return title
		case len(body) > 0:
			return body
		default:
			return anchor
		}
	}

	result := make(ranker.ScoreMap, len(title)+len(body)+len(anchor))
	for doc, score := range title {
		result.Add(doc, w.Title*score)
	}
	for doc, score := range body {
		result.Add(doc, w.Body*score)
	}
	for doc, score := range anchor {
		result.Add(doc, w.Anchor*score)
	}
	return result
}

// Rerank adds a link-authority boost to every merged score and returns the
// documents in ranked order. The boost is the document's PageRank divided by
// anchorPR, the PageRank of a fixed reference document. Documents without a
// PageRank keep their merged score. A zero anchorPR disables the boost.
func Rerank(merged ranker.ScoreMap, pageRank func(doc uint32) (float64, bool), anchorPR float64) []ranker.ScoredDoc {
	result := make([]ranker.ScoredDoc, 0, len(merged))
	for doc, score := range merged {
		if anchorPR != 0 {
			if pr, ok := pageRank(doc); ok {
				score += pr / anchorPR
			}
		}
		result = append(result, ranker.ScoredDoc{DocID: doc, Score: score})
	}
	ranker.SortDocs(result)
	return result
}

// TopN returns the limit best documents of scores in ranked order. A
// non-positive limit keeps everything.
func TopN(scores ranker.ScoreMap, limit int) []ranker.ScoredDoc {
	if limit <= 0 || limit >= len(scores) {
		return scores.Sorted()
	}
	h := &scoredDocHeap{}
	heap.Init(h)
	for doc, score := range scores {
		heap.Push(h, ranker.ScoredDoc{DocID: doc, Score: score})
		if h.Len() > limit {
			heap.Pop(h)
		}
	}
	result := make([]ranker.ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(ranker.ScoredDoc)
	}
	return result
}

// Truncate caps an already ranked slice at limit entries. A non-positive
// limit keeps everything.
func Truncate(docs []ranker.ScoredDoc, limit int) []ranker.ScoredDoc {
	if limit > 0 && len(docs) > limit {
		return docs[:limit]
	}
	return docs
}

// scoredDocHeap is a min-heap on rank: the root is the worst document kept.
type scoredDocHeap []ranker.ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].DocID > h[j].DocID
}

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ranker.ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
