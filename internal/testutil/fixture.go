// Package testutil builds small in-memory field indices for tests. It lays
// posting lists into fixed-size shards exactly the way the offline index
// writer does, so lists straddle shard boundaries whenever a shard fills up.
package testutil

import (
	"encoding/json"
	"fmt"
	"path"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/postings"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/blobstore"
)

// TermPostings is one term and its posting list, in write order.
type TermPostings struct {
	Term     string
	Postings postings.PostingList
}

// ShardName returns the name of the n-th shard of a field.
func ShardName(n int) string {
	return fmt.Sprintf("postings_%03d.bin", n)
}

// WriteField encodes terms into shards of blockSize bytes under dir in store,
// writes dir/index.json and returns the dictionary.
func WriteField(t testing.TB, store *blobstore.MemoryStore, dir string, kind postings.Kind, blockSize int64, terms []TermPostings) *index.FieldIndex {
	t.Helper()
	dict := &index.FieldIndex{
		DF:   make(map[string]int, len(terms)),
		Locs: make(map[string]index.Location, len(terms)),
	}
	var shards [][]byte
	var cur []byte
	for _, tp := range terms {
		data := postings.Encode(nil, kind, tp.Postings)
		var loc index.Location
		for {
			if int64(len(cur)) >= blockSize {
				shards = append(shards, cur)
				cur = nil
			}
			room := int(blockSize) - len(cur)
			n := min(room, len(data))
			loc = append(loc, index.Span{Shard: ShardName(len(shards)), Offset: int64(len(cur))})
			cur = append(cur, data[:n]...)
			data = data[n:]
			if len(data) == 0 {
				break
			}
		}
		dict.DF[tp.Term] = len(tp.Postings)
		dict.Locs[tp.Term] = loc
	}
	shards = append(shards, cur)
	for i, shard := range shards {
		store.Put(path.Join(dir, ShardName(i)), shard)
	}
	encoded, err := json.Marshal(dict)
	require.NoError(t, err)
	store.Put(path.Join(dir, "index.json"), encoded)
	return dict
}

// OpenField writes terms with WriteField and opens a Store over them.
func OpenField(t testing.TB, field index.Field, kind postings.Kind, blockSize int64, terms []TermPostings) *postings.Store {
	t.Helper()
	store := blobstore.NewMemoryStore()
	dict := WriteField(t, store, string(field), kind, blockSize, terms)
	s, err := postings.Open(t.Context(), store, field, kind, dict, postings.Options{
		Dir:       string(field),
		BlockSize: blockSize,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// Membership builds membership postings for the given doc ids.
func Membership(docIDs ...uint32) postings.PostingList {
	list := make(postings.PostingList, len(docIDs))
	for i, id := range docIDs {
		list[i] = postings.Posting{DocID: id}
	}
	return list
}
