package tokenizer

import (
	"strings"
	"testing"
)

var sampleTexts = map[string]string{
	"short": "The Fall of the Berlin Wall",
	"medium": `The Berlin Wall was a guarded concrete barrier that encircled West Berlin
        from 1961 to 1989, separating it from East Berlin and the German Democratic
        Republic. Construction of the wall was commenced on 13 August 1961. The wall
        cut off West Berlin from surrounding East Germany, including East Berlin.`,
	"long": strings.Repeat(`Information retrieval systems combine tokenization, stemming
        and stop word removal to normalize text into searchable terms. The inverted
        index maps each term to the documents containing it. BM25 ranking considers
        term frequency, document length normalization and inverse document frequency
        to produce relevance scores for every candidate article. `, 20),
}

func BenchmarkNormalize(b *testing.B) {
	for name, text := range sampleTexts {
		for _, stem := range []bool{false, true} {
			label := name + "/nostem"
			if stem {
				label = name + "/stem"
			}
			b.Run(label, func(b *testing.B) {
				b.ReportAllocs()
				b.SetBytes(int64(len(text)))
				for i := 0; i < b.N; i++ {
					_ = Normalize(text, stem)
				}
			})
		}
	}
}

func BenchmarkNormalizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = Normalize(text, true)
		}
	})
}

func BenchmarkCounts(b *testing.B) {
	terms := Normalize(sampleTexts["long"], false)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Counts(terms)
	}
}
