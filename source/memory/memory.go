// Package memory provides an in-memory source store.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/input-output-hk/blobxfer/storeapi"
)

// Store holds source objects in memory. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates an empty store.
func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

// Put stores a copy of data under container/path.
func (s *Store) Put(container, path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key(container, path)] = bytes.Clone(data)
}

// Open implements storeapi.Source.
//
//nolint:ireturn // storeapi.Source contract
func (s *Store) Open(
	ctx context.Context,
	container, path string,
	opts storeapi.OpenOptions,
) (storeapi.ChunkStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.objects[key(container, path)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("open %s/%s: %w", container, path, storeapi.ErrObjectNotFound)
	}

	return storeapi.NewReaderStream(io.NopCloser(bytes.NewReader(data)), int64(len(data)), opts), nil
}

func key(container, path string) string {
	return container + "\x00" + path
}
