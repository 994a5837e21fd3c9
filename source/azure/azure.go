// Package azure provides a source that streams blobs from Azure Blob Storage.
//
// A blob is downloaded with a single DownloadStream call. The body is wrapped
// in the SDK retry reader, which resumes from the last byte read after a
// dropped connection, and cut into fixed-size chunks.
package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	xferrors "github.com/input-output-hk/blobxfer/errors"
	"github.com/input-output-hk/blobxfer/storeapi"
)

// DefaultReadRetries is the number of body re-opens allowed per blob.
const DefaultReadRetries = 3

// API is the subset of *azblob.Client used by Store.
type API interface {
	DownloadStream(
		ctx context.Context,
		containerName, blobName string,
		o *azblob.DownloadStreamOptions,
	) (azblob.DownloadStreamResponse, error)
}

var _ API = (*azblob.Client)(nil)

// Store is a storeapi.Source over one storage account.
type Store struct {
	api         API
	readRetries int
}

// Option configures a Store.
type Option func(*Store)

// WithReadRetries sets how often a broken download body is re-opened.
// Zero disables the retry reader.
func WithReadRetries(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.readRetries = n
		}
	}
}

// NewFromConnectionString creates a Store from a storage account connection
// string, the format of the AzureWebJobsStorage setting.
func NewFromConnectionString(connectionString string, opts ...Option) (*Store, error) {
	const op = "azure.NewFromConnectionString"
	if connectionString == "" {
		return nil, xferrors.Configuration(op, "connection string is required")
	}

	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, xferrors.New(xferrors.KindConfiguration, op, err).
			WithMessage("invalid connection string")
	}
	return NewWithAPI(client, opts...), nil
}

// NewWithAPI creates a Store over an existing client or mock.
func NewWithAPI(api API, opts ...Option) *Store {
	s := &Store{api: api, readRetries: DefaultReadRetries}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open implements storeapi.Source.
//
//nolint:ireturn // storeapi.Source contract
func (s *Store) Open(
	ctx context.Context,
	container, blobName string,
	opts storeapi.OpenOptions,
) (storeapi.ChunkStream, error) {
	resp, err := s.api.DownloadStream(ctx, container, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("azure open %s/%s: %w", container, blobName, mapError(err))
	}

	size := int64(-1)
	if resp.ContentLength != nil {
		size = *resp.ContentLength
	}

	body := resp.Body
	if s.readRetries > 0 {
		body = resp.NewRetryReader(ctx, &blob.RetryReaderOptions{MaxRetries: int32(s.readRetries)})
	}
	return storeapi.NewReaderStream(body, size, opts), nil
}

var _ storeapi.Source = (*Store)(nil)
