// Package blobstore abstracts read-only access to immutable index blobs:
// field metadata files and fixed-size posting shards. Blobs are read with
// positional ReadAt calls only, so a single handle may serve any number of
// concurrent readers.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
var ErrNotFound = os.ErrNotExist

// Store opens named blobs.
type Store interface {
	Open(ctx context.Context, name string) (Blob, error)
}

// Blob is a read-only handle to a blob.
type Blob interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// ReadAll reads the whole blob into memory.
func ReadAll(ctx context.Context, store Store, name string) ([]byte, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("opening blob %s: %w", name, err)
	}
	defer blob.Close()
	data := make([]byte, blob.Size())
	if _, err := blob.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading blob %s: %w", name, err)
	}
	return data, nil
}
