package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		stem bool
		want []string
	}{
		{"lowercases and drops stop words", "The Quick brown fox, the quick!", false, []string{"quick", "brown", "fox", "quick"}},
		{"short words skipped", "go to ai lab", false, []string{"lab"}},
		{"hyphen and apostrophe kept inside words", "state-of-the-art O'Neill", false, []string{"state-of-the-art", "o'neill"}},
		{"hash and at prefixes", "#golang @gopher", false, []string{"#golang", "@gopher"}},
		{"corpus boilerplate", "See also references thumb links", false, []string{}},
		{"stemmed", "running cats jumped", true, []string{"run", "cat", "jump"}},
		{"duplicates preserved when stemmed", "cats cat", true, []string{"cat", "cat"}},
		{"empty", "", true, []string{}},
		{"stop words only", "the and of it's", true, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw, tt.stem))
		})
	}
}

func TestNormalizeStemsLikePorter(t *testing.T) {
	// Outputs of the original Porter algorithm, which wrote the stemmed fields.
	tests := map[string]string{
		"fairly":     "fairli",
		"generously": "gener",
		"happily":    "happili",
		"caresses":   "caress",
		"ponies":     "poni",
		"motoring":   "motor",
		"hopping":    "hop",
		"relational": "relat",
		"hopeful":    "hope",
		"goodness":   "good",
		"adjustment": "adjust",
	}
	for word, want := range tests {
		t.Run(word, func(t *testing.T) {
			assert.Equal(t, []string{want}, Normalize(word, true))
		})
	}
}

func TestNormalizeWithSnowball(t *testing.T) {
	assert.Equal(t, []string{"fair", "generous", "happili"}, NormalizeWith("fairly generously happily", Snowball))
	assert.Equal(t, []string{"fairli", "gener", "happili"}, NormalizeWith("fairly generously happily", Porter))
	assert.Equal(t, []string{"fairly"}, NormalizeWith("fairly", nil))
}

func TestStemmersByName(t *testing.T) {
	assert.Len(t, Stemmers, 2)
	assert.Equal(t, "gener", Stemmers["porter"]("generously"))
	assert.Equal(t, "generous", Stemmers["snowball"]("generously"))
}

func TestNormalizeCapsWordLength(t *testing.T) {
	terms := Normalize("abcdefghijklmnopqrstuvwxyzabcd", false)
	assert.Equal(t, []string{"abcdefghijklmnopqrstuvwxy", "zabcd"}, terms)
}

func TestNormalizeIsPure(t *testing.T) {
	raw := "Distributed search engines rank documents"
	assert.Equal(t, Normalize(raw, true), Normalize(raw, true))
}

func TestCountsAndUnique(t *testing.T) {
	terms := []string{"b", "a", "b", "c", "a", "b"}
	assert.Equal(t, map[string]int{"a": 2, "b": 3, "c": 1}, Counts(terms))
	assert.Equal(t, []string{"b", "a", "c"}, Unique(terms))
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("the"))
	assert.True(t, IsStopWord("extenal"))
	assert.False(t, IsStopWord("wikipedia"))
}
