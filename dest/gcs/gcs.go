// Package gcs provides a Google Cloud Storage destination.
//
// Every object is written create-only with a DoesNotExist precondition, so a
// name collision fails instead of overwriting. SDK retries are disabled; HTTP
// 429 responses surface as storeapi.ErrRateLimited and are retried by the
// transfer policy.
package gcs

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	xferrors "github.com/input-output-hk/blobxfer/errors"
	"github.com/input-output-hk/blobxfer/storeapi"
)

// MaxComposeInputs is the GCS limit on sources per compose request.
const MaxComposeInputs = 32

// Store is a storeapi.Destination backed by GCS. It is safe for concurrent use.
type Store struct {
	api    API
	logger *slog.Logger
}

type config struct {
	credentialsJSON []byte
	projectID       string
	endpoint        string
	clientOpts      []option.ClientOption
	logger          *slog.Logger
}

// Option configures a Store.
type Option func(*config)

// WithCredentialsJSON authenticates with a service account key.
// Without it, application default credentials are used.
func WithCredentialsJSON(data []byte) Option {
	return func(c *config) {
		c.credentialsJSON = data
	}
}

// WithProjectID sets the project billed for quota.
func WithProjectID(projectID string) Option {
	return func(c *config) {
		c.projectID = projectID
	}
}

// WithEndpoint overrides the storage endpoint, e.g. for an emulator.
func WithEndpoint(endpoint string) Option {
	return func(c *config) {
		c.endpoint = endpoint
	}
}

// WithClientOptions appends raw SDK client options.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *config) {
		c.clientOpts = append(c.clientOpts, opts...)
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// New creates a GCS destination.
func New(ctx context.Context, opts ...Option) (*Store, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	var clientOpts []option.ClientOption
	if len(cfg.credentialsJSON) > 0 {
		clientOpts = append(clientOpts, option.WithCredentialsJSON(cfg.credentialsJSON))
	}
	if cfg.projectID != "" {
		clientOpts = append(clientOpts, option.WithQuotaProject(cfg.projectID))
	}
	if cfg.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.endpoint))
	}
	clientOpts = append(clientOpts, cfg.clientOpts...)

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, xferrors.New(xferrors.KindConfiguration, "gcs.New", err).
			WithMessage("failed to create storage client")
	}

	return &Store{api: &sdkAPI{client: client}, logger: cfg.logger}, nil
}

// NewWithAPI creates a Store over a custom API implementation.
// This is primarily used for testing.
func NewWithAPI(api API) *Store {
	return &Store{api: api}
}

// Create implements storeapi.Destination.
func (s *Store) Create(
	ctx context.Context,
	bucket, name string,
	data []byte,
	opts storeapi.CreateOptions,
) (*storeapi.ObjectInfo, error) {
	attrs, err := s.api.Write(ctx, bucket, name, data, opts.ContentType)
	if err != nil {
		return nil, fmt.Errorf("gcs create %s/%s: %w", bucket, name, mapError(err))
	}
	if s.logger != nil {
		s.logger.DebugContext(ctx, "object created", "bucket", bucket, "object", name, "bytes", len(data))
	}
	return info(name, int64(len(data)), opts.ContentType, attrs), nil
}

// Compose implements storeapi.Destination.
func (s *Store) Compose(
	ctx context.Context,
	bucket, name string,
	sources []string,
	opts storeapi.ComposeOptions,
) (*storeapi.ObjectInfo, error) {
	switch {
	case len(sources) == 0:
		return nil, fmt.Errorf("gcs compose %s/%s: %w", bucket, name, storeapi.ErrNoInputs)
	case len(sources) > MaxComposeInputs:
		return nil, fmt.Errorf("gcs compose %s/%s with %d inputs: %w",
			bucket, name, len(sources), storeapi.ErrTooManyInputs)
	}

	attrs, err := s.api.Compose(ctx, bucket, name, sources, opts.ContentType)
	if err != nil {
		return nil, fmt.Errorf("gcs compose %s/%s: %w", bucket, name, mapError(err))
	}
	if s.logger != nil {
		s.logger.DebugContext(ctx, "objects composed", "bucket", bucket, "object", name, "inputs", len(sources))
	}
	return info(name, 0, opts.ContentType, attrs), nil
}

// MaxComposeInputs implements storeapi.Destination.
func (s *Store) MaxComposeInputs() int {
	return MaxComposeInputs
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.api.Close()
}

func info(name string, size int64, contentType string, attrs *storage.ObjectAttrs) *storeapi.ObjectInfo {
	oi := &storeapi.ObjectInfo{Name: name, Size: size, ContentType: contentType}
	if attrs != nil {
		oi.Size = attrs.Size
		if attrs.ContentType != "" {
			oi.ContentType = attrs.ContentType
		}
	}
	return oi
}

var _ storeapi.Destination = (*Store)(nil)
