package ranker

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/postings"
)

func benchSource(numDocs int, terms []string) *fakeSource {
	rng := rand.New(rand.NewSource(42))
	src := newFakeSource()
	for _, term := range terms {
		list := make(postings.PostingList, 0, numDocs)
		for doc := 0; doc < numDocs; doc++ {
			if rng.Intn(3) == 0 {
				continue
			}
			list = append(list, postings.Posting{
				DocID:      uint32(doc),
				TF:         uint16(rng.Intn(20) + 1),
				NormWeight: rng.Float32() * 10,
				DocLen:     uint32(rng.Intn(2000) + 50),
			})
		}
		src.add(term, list...)
	}
	return src
}

var benchTerms = []string{"berlin", "wall", "german", "reunif"}

func BenchmarkBM25(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("docs=%d", n), func(b *testing.B) {
			src := benchSource(n, benchTerms)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = BM25(src, benchTerms, wikiStats, wikiBM25)
			}
		})
	}
}

func BenchmarkCosine(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("docs=%d", n), func(b *testing.B) {
			src := benchSource(n, benchTerms)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = Cosine(src, benchTerms, wikiStats)
			}
		})
	}
}

func BenchmarkBinaryMatch(b *testing.B) {
	src := benchSource(10000, benchTerms)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = BinaryMatch(src, benchTerms)
	}
}

func BenchmarkSorted(b *testing.B) {
	scores := BM25(benchSource(10000, benchTerms), benchTerms, wikiStats, wikiBM25)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = scores.Sorted()
	}
}
