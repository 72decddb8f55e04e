package postings

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/blobstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/errors"
)

// Lookup outcomes reported to a Recorder.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeCorrupt  = "corrupt"
)

// Recorder receives per-lookup statistics. A nil Recorder is allowed.
type Recorder interface {
	ObservePostingLookup(field string, outcome string, bytesRead int)
}

// Store reads the posting lists of one field. All shard handles are opened up
// front and only ever read positionally, so a Store is safe for concurrent
// use without locking.
type Store struct {
	field     index.Field
	kind      Kind
	dict      *index.FieldIndex
	shards    map[string]blobstore.Blob
	blockSize int64
	recorder  Recorder
	logger    *slog.Logger
}

// Options configures Open.
type Options struct {
	// Dir is the blob prefix holding the field's shards.
	Dir string
	// BlockSize is the fixed capacity of every shard file.
	BlockSize int64
	Recorder  Recorder
}

// Open opens every shard referenced by dict.
func Open(ctx context.Context, blobs blobstore.Store, field index.Field, kind Kind, dict *index.FieldIndex, opts Options) (*Store, error) {
	if opts.BlockSize <= 0 {
		return nil, fmt.Errorf("field %s: block size must be positive, got %d", field, opts.BlockSize)
	}
	s := &Store{
		field:     field,
		kind:      kind,
		dict:      dict,
		shards:    make(map[string]blobstore.Blob),
		blockSize: opts.BlockSize,
		recorder:  opts.Recorder,
		logger:    slog.Default().With("component", "posting-store", "field", string(field)),
	}
	for _, name := range dict.Shards() {
		blob, err := blobs.Open(ctx, path.Join(opts.Dir, name))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("field %s: opening shard %s: %w", field, name, err)
		}
		s.shards[name] = blob
	}
	s.logger.Info("posting store opened",
		"kind", kind.String(),
		"terms", len(dict.DF),
		"shards", len(s.shards),
	)
	return s, nil
}

// Field returns the field this store serves.
func (s *Store) Field() index.Field {
	return s.field
}

// Kind returns the record layout of the field.
func (s *Store) Kind() Kind {
	return s.kind
}

// Terms returns the dictionary size of the field.
func (s *Store) Terms() int {
	return len(s.dict.DF)
}

// DocFreq returns the document frequency of term and whether it is indexed.
func (s *Store) DocFreq(term string) (int, bool) {
	df, ok := s.dict.DF[term]
	return df, ok
}

// Read returns the decoded posting list of term. It fails with
// ErrTermNotFound when the field has no such term and with ErrCorruptIndex
// when the shards hold fewer bytes than the declared document frequency needs.
// Both are per-term conditions; callers skip the term.
func (s *Store) Read(term string) (PostingList, error) {
	df, loc, ok := s.dict.Lookup(term)
	if !ok {
		s.observe(OutcomeNotFound, 0)
		return nil, fmt.Errorf("field %s, term %q: %w", s.field, term, apperrors.ErrTermNotFound)
	}
	if df < 0 {
		s.observe(OutcomeCorrupt, 0)
		return nil, fmt.Errorf("field %s, term %q: %w: negative document frequency %d",
			s.field, term, apperrors.ErrCorruptIndex, df)
	}
	want := int64(df) * int64(s.kind.RecordSize())
	// The declared size is checked against what the spans can hold before
	// anything is allocated for it.
	room, err := s.spanCapacity(loc)
	if err != nil {
		s.observe(OutcomeCorrupt, 0)
		return nil, fmt.Errorf("field %s, term %q: %w: %v", s.field, term, apperrors.ErrCorruptIndex, err)
	}
	if want > room {
		s.observe(OutcomeCorrupt, 0)
		return nil, fmt.Errorf("field %s, term %q: %w: document frequency %d needs %d bytes, spans hold %d",
			s.field, term, apperrors.ErrCorruptIndex, df, want, room)
	}
	data, err := s.readSpans(loc, want)
	if err != nil {
		s.observe(OutcomeCorrupt, len(data))
		return nil, fmt.Errorf("field %s, term %q: %w: %v", s.field, term, apperrors.ErrCorruptIndex, err)
	}
	if int64(len(data)) < want {
		s.observe(OutcomeCorrupt, len(data))
		return nil, fmt.Errorf("field %s, term %q: %w: read %d of %d bytes",
			s.field, term, apperrors.ErrCorruptIndex, len(data), want)
	}
	list, err := Decode(data, s.kind, df)
	if err != nil {
		s.observe(OutcomeCorrupt, len(data))
		return nil, fmt.Errorf("field %s, term %q: %w: %v", s.field, term, apperrors.ErrCorruptIndex, err)
	}
	s.observe(OutcomeFound, len(data))
	return list, nil
}

// spanCapacity returns how many bytes loc can yield: per span, the part of
// its shard between the span offset and the end of the block or of the shard,
// whichever comes first.
func (s *Store) spanCapacity(loc index.Location) (int64, error) {
	var room int64
	for _, span := range loc {
		shard, ok := s.shards[span.Shard]
		if !ok {
			return 0, fmt.Errorf("shard %s: %w", span.Shard, apperrors.ErrShardUnavailable)
		}
		if n := min(s.blockSize, shard.Size()) - span.Offset; n > 0 {
			room += n
		}
	}
	return room, nil
}

// readSpans concatenates up to want bytes from loc. Each span contributes at
// most the room left in its shard after the span offset. A short read stops
// the walk; the caller detects the shortfall.
func (s *Store) readSpans(loc index.Location, want int64) ([]byte, error) {
	data := make([]byte, 0, want)
	remaining := want
	for _, span := range loc {
		if remaining == 0 {
			break
		}
		shard, ok := s.shards[span.Shard]
		if !ok {
			return data, fmt.Errorf("shard %s: %w", span.Shard, apperrors.ErrShardUnavailable)
		}
		n := min(remaining, s.blockSize-span.Offset)
		if n <= 0 {
			return data, fmt.Errorf("offset %d outside block of %d bytes in shard %s", span.Offset, s.blockSize, span.Shard)
		}
		chunk := make([]byte, n)
		read, err := shard.ReadAt(chunk, span.Offset)
		data = append(data, chunk[:read]...)
		remaining -= int64(read)
		if err != nil && err != io.EOF {
			return data, fmt.Errorf("reading shard %s at %d: %w", span.Shard, span.Offset, err)
		}
		if int64(read) < n {
			break
		}
	}
	return data, nil
}

func (s *Store) observe(outcome string, bytesRead int) {
	if s.recorder != nil {
		s.recorder.ObservePostingLookup(string(s.field), outcome, bytesRead)
	}
}

// Close releases every shard handle.
func (s *Store) Close() error {
	var firstErr error
	for name, blob := range s.shards {
		if err := blob.Close(); err != nil {
			s.logger.Error("closing shard", "shard", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
