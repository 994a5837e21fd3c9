// Package upload writes source chunks as immutable fragment objects.
//
// Each chunk becomes exactly one create-only object. Rate-limited writes are
// retried with the configured backoff policy; every other failure is returned
// immediately.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	xferrors "github.com/input-output-hk/blobxfer/errors"
	"github.com/input-output-hk/blobxfer/internal/retry"
	"github.com/input-output-hk/blobxfer/metrics"
	"github.com/input-output-hk/blobxfer/storeapi"
	"github.com/input-output-hk/blobxfer/xfertypes"
)

// Uploader writes chunks to one destination bucket.
type Uploader struct {
	dest    storeapi.Destination
	bucket  string
	policy  retry.Policy
	logger  *slog.Logger
	metrics metrics.Metrics
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithPolicy sets the retry policy. The policy is copied.
func WithPolicy(p *retry.Policy) Option {
	return func(u *Uploader) {
		if p != nil {
			u.policy = *p
		}
	}
}

// WithLogger sets the logger used for retry warnings. A nil logger disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Uploader) {
		u.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(u *Uploader) {
		if m != nil {
			u.metrics = m
		}
	}
}

// New creates an Uploader for bucket.
func New(dest storeapi.Destination, bucket string, opts ...Option) *Uploader {
	u := &Uploader{
		dest:    dest,
		bucket:  bucket,
		policy:  *retry.Default(),
		metrics: metrics.Noop{},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload writes data as a new fragment named name. index is the chunk's
// position in the source stream and becomes the fragment's creation index.
func (u *Uploader) Upload(ctx context.Context, index int, name string, data []byte) (*xfertypes.Fragment, error) {
	const op = "upload"

	policy := u.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		u.metrics.IncUploadRetries()
		if u.logger != nil {
			u.logger.WarnContext(ctx, "fragment upload rate limited, retrying",
				"chunk", index,
				"fragment", name,
				"attempt", attempt,
				"delay", delay,
				"error", err)
		}
	}

	var info *storeapi.ObjectInfo
	attempts, err := policy.Do(ctx, func(ctx context.Context, _ int) error {
		var err error
		info, err = u.dest.Create(ctx, u.bucket, name, data, storeapi.CreateOptions{})
		return err
	})
	if err != nil {
		return nil, xferrors.New(retry.Classify(err, xferrors.KindUploadFailed), op, err).
			WithBucket(u.bucket).
			WithChunk(index).
			WithFragment(name).
			WithAttempts(attempts)
	}

	if info != nil && info.Size != int64(len(data)) {
		return nil, xferrors.New(xferrors.KindUploadFailed, op,
			fmt.Errorf("store reported %d bytes, wrote %d", info.Size, len(data))).
			WithBucket(u.bucket).
			WithChunk(index).
			WithFragment(name)
	}

	u.metrics.IncFragmentsUploaded()
	u.metrics.AddBytesTransferred(len(data))
	if u.logger != nil {
		u.logger.DebugContext(ctx, "fragment uploaded",
			"chunk", index,
			"fragment", name,
			"bytes", len(data),
			"attempts", attempts)
	}

	return &xfertypes.Fragment{
		Name:   name,
		Size:   int64(len(data)),
		Index:  index,
		Chunks: 1,
	}, nil
}
