// Package storeapi defines the store interfaces the transfer core depends on.
//
// A Source produces a lazy, finite, non-restartable sequence of chunks. A
// Destination only creates new objects and composes existing ones; it never
// updates or deletes. Backends translate their native errors into the sentinel
// errors of this package so the core can classify failures without knowing the
// backend.
package storeapi

import (
	"context"
	"errors"
)

// Sentinel errors returned (wrapped) by store backends.
var (
	// ErrRateLimited indicates the store throttled the request. It is the only retryable class.
	ErrRateLimited = errors.New("store: rate limited")

	// ErrObjectNotFound indicates a source object or compose input does not exist.
	ErrObjectNotFound = errors.New("store: object not found")

	// ErrAlreadyExists indicates a create-only write hit an existing object.
	ErrAlreadyExists = errors.New("store: object already exists")

	// ErrTooManyInputs indicates a compose call exceeded the store's input limit.
	ErrTooManyInputs = errors.New("store: too many compose inputs")

	// ErrNoInputs indicates a compose call without inputs.
	ErrNoInputs = errors.New("store: compose requires at least one input")
)

// BufferPool hands out chunk buffers. Get returns a zero-length slice whose
// capacity is at least the pool's chunk size.
type BufferPool interface {
	Get() []byte
	Put(buf []byte)
}

// ChunkStream is a pull-based iterator over the source object.
type ChunkStream interface {
	// Next returns the next chunk, or io.EOF once the stream is exhausted.
	// The returned slice is owned by the caller.
	Next(ctx context.Context) ([]byte, error)

	// Size returns the total object size, or -1 if unknown.
	Size() int64

	// Close releases the underlying reader.
	Close() error
}

// OpenOptions tunes how a source stream is produced.
type OpenOptions struct {
	// ChunkSize is the maximum chunk length
	ChunkSize int

	// Buffers supplies chunk buffers; nil allocates per chunk
	Buffers BufferPool
}

// Source opens chunk streams over objects of one store.
type Source interface {
	Open(ctx context.Context, container, path string, opts OpenOptions) (ChunkStream, error)
}

// ObjectInfo describes an object created by a Destination.
type ObjectInfo struct {
	Name        string
	Size        int64
	ContentType string
}

// CreateOptions configures a create-only write.
type CreateOptions struct {
	ContentType string
}

// ComposeOptions configures a compose call.
type ComposeOptions struct {
	ContentType string
}

// Destination is a create-only store with server-side compose.
type Destination interface {
	// Create writes data to a new object. It must fail with ErrAlreadyExists
	// rather than overwrite an existing object.
	Create(ctx context.Context, bucket, name string, data []byte, opts CreateOptions) (*ObjectInfo, error)

	// Compose concatenates sources, in order, into a new object named name.
	Compose(ctx context.Context, bucket, name string, sources []string, opts ComposeOptions) (*ObjectInfo, error)

	// MaxComposeInputs returns the largest number of sources Compose accepts.
	MaxComposeInputs() int
}
