package metadata

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/blobstore"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/postgres"
)

type titleRecord struct {
	ID    uint32 `json:"id"`
	Title string `json:"title"`
}

type pageRankRecord struct {
	ID   uint32  `json:"id"`
	Rank float64 `json:"rank"`
}

type pageViewsRecord struct {
	ID    uint32 `json:"id"`
	Views int64  `json:"views"`
}

// FileLoader reads newline-delimited JSON files from a blob store. An empty
// path skips that kind of metadata.
type FileLoader struct {
	Blobs         blobstore.Store
	TitlesPath    string
	PageRankPath  string
	PageViewsPath string
}

func (l *FileLoader) Load(ctx context.Context, b *Builder) error {
	if err := readJSONLines(ctx, l.Blobs, l.TitlesPath, func(r titleRecord) {
		b.AddTitle(r.ID, r.Title)
	}); err != nil {
		return err
	}
	if err := readJSONLines(ctx, l.Blobs, l.PageRankPath, func(r pageRankRecord) {
		b.AddPageRank(r.ID, r.Rank)
	}); err != nil {
		return err
	}
	return readJSONLines(ctx, l.Blobs, l.PageViewsPath, func(r pageViewsRecord) {
		b.AddPageViews(r.ID, r.Views)
	})
}

func readJSONLines[T any](ctx context.Context, blobs blobstore.Store, name string, add func(T)) error {
	if name == "" {
		return nil
	}
	data, err := blobstore.ReadAll(ctx, blobs, name)
	if err != nil {
		return fmt.Errorf("loading metadata: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	for line := 1; ; line++ {
		var rec T
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("metadata %s record %d: %w", name, line, err)
		}
		add(rec)
		if line%100000 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

const (
	selectTitles    = `SELECT doc_id, title FROM doc_titles`
	selectPageRank  = `SELECT doc_id, rank FROM doc_pagerank ORDER BY doc_id`
	selectPageViews = `SELECT doc_id, views FROM doc_pageviews`
)

// PostgresLoader reads the doc_titles, doc_pagerank and doc_pageviews tables.
// PageRank rows are read in doc_id order so the anchor document is stable
// across restarts.
type PostgresLoader struct {
	Client *postgres.Client
}

func (l *PostgresLoader) Load(ctx context.Context, b *Builder) error {
	if _, err := l.Client.Each(ctx, selectTitles, func(rows *sql.Rows) error {
		var r titleRecord
		if err := rows.Scan(&r.ID, &r.Title); err != nil {
			return err
		}
		b.AddTitle(r.ID, r.Title)
		return nil
	}); err != nil {
		return fmt.Errorf("loading titles: %w", err)
	}
	if _, err := l.Client.Each(ctx, selectPageRank, func(rows *sql.Rows) error {
		var r pageRankRecord
		if err := rows.Scan(&r.ID, &r.Rank); err != nil {
			return err
		}
		b.AddPageRank(r.ID, r.Rank)
		return nil
	}); err != nil {
		return fmt.Errorf("loading pagerank: %w", err)
	}
	if _, err := l.Client.Each(ctx, selectPageViews, func(rows *sql.Rows) error {
		var r pageViewsRecord
		if err := rows.Scan(&r.ID, &r.Views); err != nil {
			return err
		}
		b.AddPageViews(r.ID, r.Views)
		return nil
	}); err != nil {
		return fmt.Errorf("loading pageviews: %w", err)
	}
	return nil
}
