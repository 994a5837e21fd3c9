// Package minio provides an S3-compatible destination backed by minio-go.
//
// Fragments are written with PutObject and an If-None-Match precondition, and
// folded with ComposeObject. S3 compose is a multipart copy, so every input
// except the last must be at least 5 MiB; use a chunk size of 5 MiB or more.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"

	"github.com/input-output-hk/blobxfer/internal/minioclient"
	"github.com/input-output-hk/blobxfer/storeapi"
)

// DefaultMaxComposeInputs is the S3 multipart part limit.
const DefaultMaxComposeInputs = 10000

// MinComposePartSize is the smallest non-final compose input S3 accepts.
const MinComposePartSize = 5 * 1024 * 1024

// API is the subset of *minio.Client used by Store.
type API interface {
	PutObject(
		ctx context.Context,
		bucketName, objectName string,
		reader io.Reader,
		objectSize int64,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)

	ComposeObject(
		ctx context.Context,
		dst minio.CopyDestOptions,
		srcs ...minio.CopySrcOptions,
	) (minio.UploadInfo, error)

	StatObject(
		ctx context.Context,
		bucketName, objectName string,
		opts minio.StatObjectOptions,
	) (minio.ObjectInfo, error)
}

var _ API = (*minio.Client)(nil)

// Store is a storeapi.Destination over an S3-compatible endpoint.
type Store struct {
	api       API
	maxInputs int
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxComposeInputs lowers the compose input limit.
func WithMaxComposeInputs(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxInputs = n
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New connects to the endpoint described by cfg.
func New(cfg minioclient.Config, opts ...Option) (*Store, error) {
	client, err := minioclient.New(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithAPI(client, opts...), nil
}

// NewWithAPI creates a Store over an existing client or mock.
func NewWithAPI(api API, opts ...Option) *Store {
	s := &Store{api: api, maxInputs: DefaultMaxComposeInputs}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create implements storeapi.Destination.
func (s *Store) Create(
	ctx context.Context,
	bucket, name string,
	data []byte,
	opts storeapi.CreateOptions,
) (*storeapi.ObjectInfo, error) {
	putOpts := minio.PutObjectOptions{ContentType: opts.ContentType}
	putOpts.SetMatchETagExcept("*")

	info, err := s.api.PutObject(ctx, bucket, name, bytes.NewReader(data), int64(len(data)), putOpts)
	if err != nil {
		return nil, fmt.Errorf("minio create %s/%s: %w", bucket, name, minioclient.MapError(err))
	}
	if s.logger != nil {
		s.logger.DebugContext(ctx, "object created", "bucket", bucket, "object", name, "bytes", info.Size)
	}
	return &storeapi.ObjectInfo{Name: name, Size: info.Size, ContentType: opts.ContentType}, nil
}

// Compose implements storeapi.Destination. ComposeObject carries no
// create-only precondition, so the target is checked with StatObject first.
func (s *Store) Compose(
	ctx context.Context,
	bucket, name string,
	sources []string,
	opts storeapi.ComposeOptions,
) (*storeapi.ObjectInfo, error) {
	switch {
	case len(sources) == 0:
		return nil, fmt.Errorf("minio compose %s/%s: %w", bucket, name, storeapi.ErrNoInputs)
	case len(sources) > s.maxInputs:
		return nil, fmt.Errorf("minio compose %s/%s with %d inputs: %w",
			bucket, name, len(sources), storeapi.ErrTooManyInputs)
	}

	_, err := s.api.StatObject(ctx, bucket, name, minio.StatObjectOptions{})
	switch {
	case err == nil:
		return nil, fmt.Errorf("minio compose %s/%s: %w", bucket, name, storeapi.ErrAlreadyExists)
	case !minioclient.IsNotFound(err):
		return nil, fmt.Errorf("minio compose %s/%s: %w", bucket, name, minioclient.MapError(err))
	}

	srcs := make([]minio.CopySrcOptions, len(sources))
	for i, src := range sources {
		srcs[i] = minio.CopySrcOptions{Bucket: bucket, Object: src}
	}
	dst := minio.CopyDestOptions{Bucket: bucket, Object: name}
	if opts.ContentType != "" {
		dst.ReplaceMetadata = true
		dst.UserMetadata = map[string]string{"Content-Type": opts.ContentType}
	}

	info, err := s.api.ComposeObject(ctx, dst, srcs...)
	if err != nil {
		return nil, fmt.Errorf("minio compose %s/%s: %w", bucket, name, minioclient.MapError(err))
	}
	if s.logger != nil {
		s.logger.DebugContext(ctx, "objects composed", "bucket", bucket, "object", name, "inputs", len(sources))
	}
	return &storeapi.ObjectInfo{Name: name, Size: info.Size, ContentType: opts.ContentType}, nil
}

// MaxComposeInputs implements storeapi.Destination.
func (s *Store) MaxComposeInputs() int {
	return s.maxInputs
}

var _ storeapi.Destination = (*Store)(nil)
