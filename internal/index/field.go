// Package index holds the per-field dictionary of a prebuilt inverted index:
// document frequencies and the shard locations of every posting list, plus
// the corpus-wide statistics the rankers need. Everything here is loaded once
// and never mutated.
package index

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Field names one of the four prebuilt indices.
type Field string

const (
	FieldText       Field = "text"
	FieldTextNoStem Field = "text_nostem"
	FieldTitle      Field = "title"
	FieldAnchor     Field = "anchor"
)

// Fields lists every field in load order.
var Fields = []Field{FieldText, FieldTextNoStem, FieldTitle, FieldAnchor}

// Span is one (shard, offset) pair of a posting location. Serialized as a
// two-element JSON array, the same shape the index writer emits.
type Span struct {
	Shard  string
	Offset int64
}

func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{s.Shard, s.Offset})
}

func (s *Span) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("posting span: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("posting span: want [shard, offset], got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &s.Shard); err != nil {
		return fmt.Errorf("posting span shard: %w", err)
	}
	if err := json.Unmarshal(raw[1], &s.Offset); err != nil {
		return fmt.Errorf("posting span offset: %w", err)
	}
	if s.Offset < 0 {
		return fmt.Errorf("posting span offset %d is negative", s.Offset)
	}
	return nil
}

// Location lists, in order, the spans that hold one term's posting list. A
// list larger than the space left in its first shard continues at the start
// of the next one.
type Location []Span

// FieldIndex is the dictionary of one field.
type FieldIndex struct {
	DF   map[string]int      `json:"df"`
	Locs map[string]Location `json:"locs"`
}

// Lookup returns the document frequency and location of term.
func (f *FieldIndex) Lookup(term string) (int, Location, bool) {
	df, ok := f.DF[term]
	if !ok {
		return 0, nil, false
	}
	return df, f.Locs[term], true
}

// Shards returns the sorted, distinct shard names referenced by the field.
func (f *FieldIndex) Shards() []string {
	seen := make(map[string]struct{})
	shards := make([]string, 0)
	for _, loc := range f.Locs {
		for _, span := range loc {
			if _, ok := seen[span.Shard]; ok {
				continue
			}
			seen[span.Shard] = struct{}{}
			shards = append(shards, span.Shard)
		}
	}
	sort.Strings(shards)
	return shards
}

// Decode parses a serialized field dictionary and checks that every term with
// a document frequency has a location.
func Decode(data []byte) (*FieldIndex, error) {
	var f FieldIndex
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing field index: %w", err)
	}
	if f.DF == nil {
		f.DF = make(map[string]int)
	}
	if f.Locs == nil {
		f.Locs = make(map[string]Location)
	}
	for term, df := range f.DF {
		if df < 0 {
			return nil, fmt.Errorf("term %q has negative df %d", term, df)
		}
		if _, ok := f.Locs[term]; !ok && df > 0 {
			return nil, fmt.Errorf("term %q has df %d but no posting location", term, df)
		}
	}
	return &f, nil
}

// CorpusStats are the global statistics shared by every query.
type CorpusStats struct {
	TotalDocs    int64
	AvgDocLength float64
}
