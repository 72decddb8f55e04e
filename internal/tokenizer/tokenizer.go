// Package tokenizer normalizes query text into index terms. It lower-cases
// input, extracts words with the same pattern the index writer used, removes
// stop-words, and optionally stems. The stemmed fields of the shipped index
// were written with the original Porter algorithm, so Porter is the default.
package tokenizer

import (
	"regexp"
	"strings"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
	"github.com/kljensen/snowball/english"
)

// Stemmer reduces a lower-cased word to its index form. An empty result
// drops the word.
type Stemmer func(word string) string

// Porter applies the original (1980) Porter algorithm.
func Porter(word string) string {
	return porterstemmer.StemString(word)
}

// Snowball applies the Snowball English (Porter2) algorithm. It only matches
// indices whose stemmed fields were written with Porter2.
func Snowball(word string) string {
	return english.Stem(word, true)
}

// Stemmers maps the names accepted by search.stemmer to their stemmer.
var Stemmers = map[string]Stemmer{
	"porter":   Porter,
	"snowball": Snowball,
}

// wordPattern matches a leading letter, digit, '#' or '@' followed by 2 to 24
// word characters, each optionally preceded by an apostrophe or hyphen.
var wordPattern = regexp.MustCompile(`[#@\pL\pN_](['\-]?[\pL\pN_]){2,24}`)

var stopWords = buildStopWords(englishStopWords, corpusStopWords)

// englishStopWords is the NLTK English list.
var englishStopWords = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you",
	"you're", "you've", "you'll", "you'd", "your", "yours", "yourself",
	"yourselves", "he", "him", "his", "himself", "she", "she's", "her",
	"hers", "herself", "it", "it's", "its", "itself", "they", "them",
	"their", "theirs", "themselves", "what", "which", "who", "whom", "this",
	"that", "that'll", "these", "those", "am", "is", "are", "was", "were",
	"be", "been", "being", "have", "has", "had", "having", "do", "does",
	"did", "doing", "a", "an", "the", "and", "but", "if", "or", "because",
	"as", "until", "while", "of", "at", "by", "for", "with", "about",
	"against", "between", "into", "through", "during", "before", "after",
	"above", "below", "to", "from", "up", "down", "in", "out", "on", "off",
	"over", "under", "again", "further", "then", "once", "here", "there",
	"when", "where", "why", "how", "all", "any", "both", "each", "few",
	"more", "most", "other", "some", "such", "no", "nor", "not", "only",
	"own", "same", "so", "than", "too", "very", "s", "t", "can", "will",
	"just", "don", "don't", "should", "should've", "now", "d", "ll", "m",
	"o", "re", "ve", "y", "ain", "aren", "aren't", "couldn", "couldn't",
	"didn", "didn't", "doesn", "doesn't", "hadn", "hadn't", "hasn",
	"hasn't", "haven", "haven't", "isn", "isn't", "ma", "mightn",
	"mightn't", "mustn", "mustn't", "needn", "needn't", "shan", "shan't",
	"shouldn", "shouldn't", "wasn", "wasn't", "weren", "weren't", "won",
	"won't", "wouldn", "wouldn't",
}

// corpusStopWords are wiki boilerplate terms that carry no signal.
var corpusStopWords = []string{
	"category", "references", "also", "links", "extenal", "see", "thumb",
}

func buildStopWords(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range lists {
		for _, w := range list {
			set[w] = struct{}{}
		}
	}
	return set
}

// IsStopWord reports whether word is dropped during normalization.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// Normalize breaks raw into terms, in order and with duplicates kept. When
// stem is set every term is reduced with the Porter stemmer.
func Normalize(raw string, stem bool) []string {
	if stem {
		return NormalizeWith(raw, Porter)
	}
	return NormalizeWith(raw, nil)
}

// NormalizeWith is Normalize with an explicit stemmer. A nil stemmer leaves
// terms unstemmed.
func NormalizeWith(raw string, stemmer Stemmer) []string {
	words := wordPattern.FindAllString(strings.ToLower(raw), -1)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if IsStopWord(word) {
			continue
		}
		if stemmer != nil {
			word = stemmer(word)
			if word == "" {
				continue
			}
		}
		terms = append(terms, word)
	}
	return terms
}

// Counts returns the multiplicity of every term.
func Counts(terms []string) map[string]int {
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	return counts
}

// Unique returns terms with duplicates removed, keeping first occurrences.
func Unique(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
