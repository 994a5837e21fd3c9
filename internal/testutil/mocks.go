package testutil

import (
	"context"

	"github.com/input-output-hk/blobxfer/storeapi"
)

// MockDestination is a mock implementation of storeapi.Destination.
// It allows customization of each operation through function fields.
type MockDestination struct {
	CreateFunc           func(ctx context.Context, bucket, name string, data []byte, opts storeapi.CreateOptions) (*storeapi.ObjectInfo, error)
	ComposeFunc          func(ctx context.Context, bucket, name string, sources []string, opts storeapi.ComposeOptions) (*storeapi.ObjectInfo, error)
	MaxComposeInputsFunc func() int
}

// Create mocks the create-only write.
func (m *MockDestination) Create(
	ctx context.Context,
	bucket, name string,
	data []byte,
	opts storeapi.CreateOptions,
) (*storeapi.ObjectInfo, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, bucket, name, data, opts)
	}
	return &storeapi.ObjectInfo{Name: name, Size: int64(len(data)), ContentType: opts.ContentType}, nil
}

// Compose mocks the compose call.
func (m *MockDestination) Compose(
	ctx context.Context,
	bucket, name string,
	sources []string,
	opts storeapi.ComposeOptions,
) (*storeapi.ObjectInfo, error) {
	if m.ComposeFunc != nil {
		return m.ComposeFunc(ctx, bucket, name, sources, opts)
	}
	return &storeapi.ObjectInfo{Name: name, ContentType: opts.ContentType}, nil
}

// MaxComposeInputs mocks the compose input limit. It defaults to 32.
func (m *MockDestination) MaxComposeInputs() int {
	if m.MaxComposeInputsFunc != nil {
		return m.MaxComposeInputsFunc()
	}
	return 32
}

// MockSource is a mock implementation of storeapi.Source.
type MockSource struct {
	OpenFunc func(ctx context.Context, container, path string, opts storeapi.OpenOptions) (storeapi.ChunkStream, error)
}

// Open mocks opening a chunk stream.
//
//nolint:ireturn // mirrors storeapi.Source
func (m *MockSource) Open(
	ctx context.Context,
	container, path string,
	opts storeapi.OpenOptions,
) (storeapi.ChunkStream, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, container, path, opts)
	}
	return nil, storeapi.ErrObjectNotFound
}

// MockChunkStream is a mock implementation of storeapi.ChunkStream.
type MockChunkStream struct {
	NextFunc  func(ctx context.Context) ([]byte, error)
	SizeFunc  func() int64
	CloseFunc func() error
}

// Next mocks pulling the next chunk.
func (m *MockChunkStream) Next(ctx context.Context) ([]byte, error) {
	return m.NextFunc(ctx)
}

// Size mocks the total size. It defaults to -1.
func (m *MockChunkStream) Size() int64 {
	if m.SizeFunc != nil {
		return m.SizeFunc()
	}
	return -1
}

// Close mocks releasing the stream.
func (m *MockChunkStream) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
