package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps blobs in memory. It backs tests and small fixtures.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Put stores a copy of data under name.
func (s *MemoryStore) Put(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = bytes.Clone(data)
}

func (s *MemoryStore) Open(_ context.Context, name string) (Blob, error) {
	s.mu.RLock()
	data, ok := s.blobs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", name, ErrNotFound)
	}
	return &memoryBlob{Reader: bytes.NewReader(data)}, nil
}

type memoryBlob struct {
	*bytes.Reader
}

func (b *memoryBlob) Close() error {
	return nil
}
