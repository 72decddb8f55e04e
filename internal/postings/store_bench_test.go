package postings_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/postings"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/testutil"
)

func BenchmarkRead(b *testing.B) {
	r := rand.New(rand.NewSource(11))
	for _, n := range []int{10, 1000, 100000} {
		for _, blockSize := range []int64{4096, 1999998} {
			b.Run(fmt.Sprintf("postings=%d/block=%d", n, blockSize), func(b *testing.B) {
				list := syntheticScored(r, n)
				s := testutil.OpenField(b, index.FieldText, postings.Scored, blockSize, []testutil.TermPostings{
					{Term: "filler", Postings: syntheticScored(r, 7)},
					{Term: "target", Postings: list},
				})
				b.ReportAllocs()
				b.SetBytes(int64(n * postings.Scored.RecordSize()))
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := s.Read("target"); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkDecode(b *testing.B) {
	list := syntheticScored(rand.New(rand.NewSource(3)), 10000)
	data := postings.Encode(nil, postings.Scored, list)
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := postings.Decode(data, postings.Scored, len(list)); err != nil {
			b.Fatal(err)
		}
	}
}
