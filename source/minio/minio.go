// Package minio provides a source that streams objects from an S3-compatible
// endpoint with minio-go.
package minio

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/input-output-hk/blobxfer/internal/minioclient"
	"github.com/input-output-hk/blobxfer/storeapi"
)

// API is the narrow object access used by Store.
type API interface {
	// Stat returns the object size.
	Stat(ctx context.Context, bucket, name string) (int64, error)

	// Get returns a streaming reader over the whole object.
	Get(ctx context.Context, bucket, name string) (io.ReadCloser, error)
}

type clientAPI struct {
	client *minio.Client
}

func (a clientAPI) Stat(ctx context.Context, bucket, name string) (int64, error) {
	info, err := a.client.StatObject(ctx, bucket, name, minio.StatObjectOptions{})
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

func (a clientAPI) Get(ctx context.Context, bucket, name string) (io.ReadCloser, error) {
	return a.client.GetObject(ctx, bucket, name, minio.GetObjectOptions{})
}

// Store is a storeapi.Source over an S3-compatible endpoint.
type Store struct {
	api API
}

// New connects to the endpoint described by cfg.
func New(cfg minioclient.Config) (*Store, error) {
	client, err := minioclient.New(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithClient(client), nil
}

// NewWithClient wraps an existing minio-go client.
func NewWithClient(client *minio.Client) *Store {
	return &Store{api: clientAPI{client: client}}
}

// NewWithAPI creates a Store over a custom API. Used by tests.
func NewWithAPI(api API) *Store {
	return &Store{api: api}
}

// Open implements storeapi.Source. The object is stat'ed first so a missing
// object fails here rather than on the first read.
//
//nolint:ireturn // storeapi.Source contract
func (s *Store) Open(
	ctx context.Context,
	bucket, name string,
	opts storeapi.OpenOptions,
) (storeapi.ChunkStream, error) {
	size, err := s.api.Stat(ctx, bucket, name)
	if err != nil {
		return nil, fmt.Errorf("minio open %s/%s: %w", bucket, name, minioclient.MapError(err))
	}

	body, err := s.api.Get(ctx, bucket, name)
	if err != nil {
		return nil, fmt.Errorf("minio open %s/%s: %w", bucket, name, minioclient.MapError(err))
	}
	return storeapi.NewReaderStream(body, size, opts), nil
}

var _ storeapi.Source = (*Store)(nil)
