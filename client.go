package blobxfer

import (
	"context"
	"sync"

	xferrors "github.com/input-output-hk/blobxfer/errors"
	"github.com/input-output-hk/blobxfer/internal/transfer"
	"github.com/input-output-hk/blobxfer/storeapi"
	"github.com/input-output-hk/blobxfer/xfertypes"
)

// Client transfers objects from one source store to one destination store.
// It is safe for concurrent use; every transfer runs with its own state.
type Client struct {
	// source produces chunk streams over source objects
	source storeapi.Source

	// dest receives fragments and composes
	dest storeapi.Destination

	// mu protects concurrent access to client configuration
	mu sync.RWMutex

	// config holds the transfer defaults applied to every call
	config xfertypes.ClientConfig
}

// New creates a client over already-authenticated source and destination stores.
//
// Example:
//
//	client, err := blobxfer.New(src, dst,
//	    blobxfer.WithBatchThreshold(32),
//	    blobxfer.WithLogger(logger),
//	)
func New(source storeapi.Source, dest storeapi.Destination, opts ...xfertypes.Option) (*Client, error) {
	const op = "client initialization"

	if source == nil {
		return nil, xferrors.Configuration(op, "source store is required")
	}
	if dest == nil {
		return nil, xferrors.Configuration(op, "destination store is required")
	}

	cfg := xfertypes.DefaultClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := validateConfig(op, cfg, dest); err != nil {
		return nil, err
	}

	return &Client{
		source: source,
		dest:   dest,
		config: *cfg,
	}, nil
}

// Config returns a copy of the client's transfer defaults.
func (c *Client) Config() xfertypes.ClientConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// SetProgressTracker replaces the default progress tracker.
func (c *Client) SetProgressTracker(p xfertypes.ProgressTracker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.Progress = p
}

// Transfer copies src into dst. Options override the client defaults for this call only.
func (c *Client) Transfer(
	ctx context.Context,
	src xfertypes.SourceDescriptor,
	dst xfertypes.DestinationDescriptor,
	opts ...xfertypes.Option,
) (*xfertypes.Result, error) {
	cfg := c.Config()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validateConfig("transfer", &cfg, c.dest); err != nil {
		return nil, err
	}

	return transfer.New(c.source, c.dest, &cfg).Run(ctx, src, dst)
}

func validateConfig(op string, cfg *xfertypes.ClientConfig, dest storeapi.Destination) error {
	switch {
	case cfg.ChunkSize <= 0:
		return xferrors.Configuration(op, "chunk size must be positive")
	case cfg.Concurrency <= 0:
		return xferrors.Configuration(op, "concurrency must be positive")
	case cfg.BatchThreshold < 2:
		return xferrors.Configuration(op, "batch threshold must be at least 2")
	case cfg.BatchThreshold > dest.MaxComposeInputs():
		return xferrors.Configuration(op, "batch threshold exceeds the destination compose limit")
	case cfg.Retry.MaxAttempts <= 0:
		return xferrors.Configuration(op, "retry attempts must be positive")
	case cfg.Retry.MinDelay < 0, cfg.Retry.MaxDelay < 0, cfg.Retry.Multiplier < 0:
		return xferrors.Configuration(op, "retry delays must not be negative")
	case cfg.Retry.MaxDelay > 0 && cfg.Retry.MinDelay > cfg.Retry.MaxDelay:
		return xferrors.Configuration(op, "retry min delay exceeds max delay")
	}
	return nil
}
