package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore serves blobs from a directory on the local file system.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	path := filepath.Join(s.root, filepath.FromSlash(name))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &fileBlob{file: f, size: info.Size()}, nil
}

// fileBlob relies on os.File.ReadAt (pread), which does not move the shared
// file offset.
type fileBlob struct {
	file *os.File
	size int64
}

func (b *fileBlob) ReadAt(p []byte, off int64) (int, error) {
	return b.file.ReadAt(p, off)
}

func (b *fileBlob) Size() int64 {
	return b.size
}

func (b *fileBlob) Close() error {
	return b.file.Close()
}
