// Package file provides a source over a go-billy filesystem. The container
// names a directory below the filesystem root.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/input-output-hk/blobxfer/storeapi"
)

// Store is a storeapi.Source reading local or in-memory files.
type Store struct {
	fs billy.Filesystem
}

// New creates a Store over fs.
func New(fs billy.Filesystem) *Store {
	return &Store{fs: fs}
}

// NewOS creates a Store rooted at dir on the local filesystem.
func NewOS(dir string) *Store {
	return New(osfs.New(dir))
}

// NewMemory creates a Store over an empty in-memory filesystem.
func NewMemory() *Store {
	return New(memfs.New())
}

// Filesystem returns the underlying filesystem.
//
//nolint:ireturn // billy.Filesystem is the abstraction
func (s *Store) Filesystem() billy.Filesystem {
	return s.fs
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

	name := s.fs.Join(container, strings.TrimPrefix(path, "/"))
	info, err := s.fs.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("file open %s: %w", name, mapError(err))
	}
	if info.IsDir() {
		return nil, fmt.Errorf("file open %s: is a directory: %w", name, storeapi.ErrObjectNotFound)
	}

	f, err := s.fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("file open %s: %w", name, mapError(err))
	}
	return storeapi.NewReaderStream(f, info.Size(), opts), nil
}

func mapError(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", storeapi.ErrObjectNotFound, err)
	}
	return err
}

var _ storeapi.Source = (*Store)(nil)
