package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreReadAt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "title"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "title", "0_000.bin"), []byte("0123456789"), 0o644))

	store := NewLocalStore(dir)
	blob, err := store.Open(context.Background(), "title/0_000.bin")
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, int64(10), blob.Size())
	buf := make([]byte, 4)
	n, err := blob.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "3456", string(buf))

	n, err = blob.ReadAt(buf, 8)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestLocalStoreMissing(t *testing.T) {
	_, err := NewLocalStore(t.TempDir()).Open(context.Background(), "nope.bin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	data := []byte("posting bytes")
	store.Put("text/index.json", data)
	data[0] = 'X'

	got, err := ReadAll(context.Background(), store, "text/index.json")
	require.NoError(t, err)
	assert.Equal(t, "posting bytes", string(got))

	_, err = store.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
