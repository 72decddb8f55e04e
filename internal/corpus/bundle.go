// Package corpus assembles the immutable index bundle a searcher serves
// from: one posting store per field plus the corpus statistics. The bundle
// is built once at startup and shared by reference with every request.
package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/postings"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/blobstore"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/resilience"
)

// IndexFile is the name of the dictionary blob inside each field directory.
const IndexFile = "index.json"

// KindOf returns the record layout stored for field.
func KindOf(field index.Field) postings.Kind {
	switch field {
	case index.FieldTitle, index.FieldAnchor:
		return postings.Membership
	default:
		return postings.Scored
	}
}

// Bundle is the loaded, read-only index of every field.
type Bundle struct {
	Stats  index.CorpusStats
	fields map[index.Field]*postings.Store
}

// NewBundle wraps already opened stores. Used by tests and by Load.
func NewBundle(stats index.CorpusStats, stores ...*postings.Store) *Bundle {
	b := &Bundle{Stats: stats, fields: make(map[index.Field]*postings.Store, len(stores))}
	for _, s := range stores {
		b.fields[s.Field()] = s
	}
	return b
}

// Field returns the store of f, or nil when the field was not loaded.
func (b *Bundle) Field(f index.Field) *postings.Store {
	return b.fields[f]
}

// Ready reports whether every field is loaded.
func (b *Bundle) Ready() error {
	for _, f := range index.Fields {
		if b.fields[f] == nil {
			return fmt.Errorf("field %s not loaded", f)
		}
	}
	return nil
}

func (b *Bundle) Close() error {
	var firstErr error
	for _, s := range b.fields {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Options configures Load.
type Options struct {
	// Dirs maps every field to its directory inside the blob store.
	Dirs        map[index.Field]string
	BlockSize   int64
	LoadTimeout time.Duration
	Recorder    postings.Recorder
}

// OptionsFromConfig derives load options from the index section.
func OptionsFromConfig(cfg config.IndexConfig) Options {
	return Options{
		Dirs: map[index.Field]string{
			index.FieldText:       cfg.Fields.Text,
			index.FieldTextNoStem: cfg.Fields.TextNoStem,
			index.FieldTitle:      cfg.Fields.Title,
			index.FieldAnchor:     cfg.Fields.Anchor,
		},
		BlockSize:   cfg.BlockSize,
		LoadTimeout: cfg.LoadTimeout,
	}
}

// Load reads the dictionaries of all fields concurrently and opens their
// shards. Loading is abandoned once opts.LoadTimeout elapses.
func Load(ctx context.Context, blobs blobstore.Store, stats index.CorpusStats, opts Options) (*Bundle, error) {
	logger := slog.Default().With("component", "corpus-loader")
	start := time.Now()
	stores := make([]*postings.Store, len(index.Fields))

	err := resilience.WithTimeout(ctx, opts.LoadTimeout, "index load", func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		for i, field := range index.Fields {
			g.Go(func() error {
				s, err := loadField(gctx, blobs, field, opts)
				if err != nil {
					return err
				}
				stores[i] = s
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		for _, s := range stores {
			if s != nil {
				s.Close()
			}
		}
		return nil, fmt.Errorf("loading index: %w", err)
	}

	logger.Info("index loaded",
		"fields", len(stores),
		"total_docs", stats.TotalDocs,
		"avg_doc_length", stats.AvgDocLength,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return NewBundle(stats, stores...), nil
}

func loadField(ctx context.Context, blobs blobstore.Store, field index.Field, opts Options) (*postings.Store, error) {
	dir, ok := opts.Dirs[field]
	if !ok || dir == "" {
		dir = string(field)
	}
	data, err := blobstore.ReadAll(ctx, blobs, path.Join(dir, IndexFile))
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", field, err)
	}
	dict, err := index.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", field, err)
	}
	return postings.Open(ctx, blobs, field, KindOf(field), dict, postings.Options{
		Dir:       dir,
		BlockSize: opts.BlockSize,
		Recorder:  opts.Recorder,
	})
}

// NewBlobStore returns the blob store selected by index.source.
func NewBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	switch cfg.Index.Source {
	case "minio":
		return blobstore.NewMinioStore(ctx, cfg.Minio)
	case "local":
		return blobstore.NewLocalStore(cfg.Index.DataDir), nil
	default:
		return nil, fmt.Errorf("unknown index source %q", cfg.Index.Source)
	}
}
