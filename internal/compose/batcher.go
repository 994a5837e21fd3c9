// Package compose folds uploaded fragments into larger objects.
//
// A Batcher holds the ordered fragments of one transfer. Whenever the batch
// reaches the threshold it is composed into a single intermediate fragment
// which then seeds the next batch, so the batch never outgrows the store's
// compose input limit. Finalize composes whatever remains into the
// destination object.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	xferrors "github.com/input-output-hk/blobxfer/errors"
	"github.com/input-output-hk/blobxfer/internal/naming"
	"github.com/input-output-hk/blobxfer/internal/retry"
	"github.com/input-output-hk/blobxfer/metrics"
	"github.com/input-output-hk/blobxfer/storeapi"
	"github.com/input-output-hk/blobxfer/xfertypes"
)

// MinThreshold is the smallest batch that still makes progress when folded.
const MinThreshold = 2

// Batcher accumulates fragments for one transfer run.
// It is not safe for concurrent use.
type Batcher struct {
	dest      storeapi.Destination
	bucket    string
	scheme    *naming.Scheme
	threshold int
	policy    retry.Policy
	logger    *slog.Logger
	metrics   metrics.Metrics

	batch         []xfertypes.Fragment
	composes      int
	intermediates int
}

// Option configures a Batcher.
type Option func(*Batcher)

// WithThreshold sets the number of fragments that triggers an intermediate compose.
func WithThreshold(n int) Option {
	return func(b *Batcher) {
		b.threshold = n
	}
}

// WithPolicy sets the retry policy for compose calls. The policy is copied.
func WithPolicy(p *retry.Policy) Option {
	return func(b *Batcher) {
		if p != nil {
			b.policy = *p
		}
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Batcher) {
		b.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(b *Batcher) {
		if m != nil {
			b.metrics = m
		}
	}
}

// New creates a Batcher writing intermediates named by scheme into bucket.
// The threshold must lie in [MinThreshold, dest.MaxComposeInputs()].
func New(dest storeapi.Destination, bucket string, scheme *naming.Scheme, opts ...Option) (*Batcher, error) {
	b := &Batcher{
		dest:      dest,
		bucket:    bucket,
		scheme:    scheme,
		threshold: xfertypes.DefaultBatchThreshold,
		policy:    *retry.Default(),
		metrics:   metrics.Noop{},
	}
	for _, opt := range opts {
		opt(b)
	}

	if maxInputs := dest.MaxComposeInputs(); b.threshold < MinThreshold || b.threshold > maxInputs {
		return nil, xferrors.Configuration("compose.New",
			fmt.Sprintf("batch threshold %d outside [%d, %d]", b.threshold, MinThreshold, maxInputs)).
			WithBucket(bucket)
	}

	b.batch = make([]xfertypes.Fragment, 0, b.threshold)
	return b, nil
}

// Threshold returns the configured batch threshold.
func (b *Batcher) Threshold() int {
	return b.threshold
}

// Len returns the number of fragments awaiting compose.
func (b *Batcher) Len() int {
	return len(b.batch)
}

// Composes returns the number of successful compose calls, including the final one.
func (b *Batcher) Composes() int {
	return b.composes
}

// Intermediates returns the number of intermediate fragments created.
func (b *Batcher) Intermediates() int {
	return b.intermediates
}

// Add appends f to the batch. When the batch reaches the threshold it is
// composed into one intermediate fragment, which replaces the batch and is
// returned. Otherwise Add returns nil.
func (b *Batcher) Add(ctx context.Context, f xfertypes.Fragment) (*xfertypes.Fragment, error) {
	b.batch = append(b.batch, f)
	if len(b.batch) < b.threshold {
		return nil, nil
	}

	collapsed, err := b.compose(ctx, "compose", b.scheme.ComposeName(), b.batch, storeapi.ComposeOptions{})
	if err != nil {
		return nil, err
	}
	b.intermediates++
	b.metrics.IncComposes(metrics.ComposeIntermediate)

	b.batch = b.batch[:0]
	b.batch = append(b.batch, *collapsed)
	return collapsed, nil
}

// Compose concatenates fragments, in order, into a new object named name.
func (b *Batcher) Compose(ctx context.Context, name string, fragments []xfertypes.Fragment) (*xfertypes.Fragment, error) {
	return b.compose(ctx, "compose", name, fragments, storeapi.ComposeOptions{})
}

// Finalize composes the remaining fragments into the destination object name.
// An empty batch creates an empty destination object instead.
func (b *Batcher) Finalize(ctx context.Context, name, contentType string) (*xfertypes.Fragment, error) {
	const op = "finalize"

	if len(b.batch) == 0 {
		return b.createEmpty(ctx, op, name, contentType)
	}

	final, err := b.compose(ctx, op, name, b.batch, storeapi.ComposeOptions{ContentType: contentType})
	if err != nil {
		return nil, err
	}
	b.metrics.IncComposes(metrics.ComposeFinal)
	b.batch = b.batch[:0]
	return final, nil
}

func (b *Batcher) compose(
	ctx context.Context,
	op, name string,
	fragments []xfertypes.Fragment,
	opts storeapi.ComposeOptions,
) (*xfertypes.Fragment, error) {
	fail := func(kind xferrors.Kind, err error) *xferrors.TransferError {
		e := xferrors.New(kind, op, err).WithBucket(b.bucket).WithFragment(name)
		if len(fragments) > 0 {
			e.WithChunk(fragments[len(fragments)-1].Index)
		}
		return e
	}

	switch {
	case len(fragments) == 0:
		return nil, fail(xferrors.KindComposeFailed, storeapi.ErrNoInputs)
	case len(fragments) > b.threshold, len(fragments) > b.dest.MaxComposeInputs():
		return nil, fail(xferrors.KindComposeFailed,
			fmt.Errorf("%d inputs, threshold %d: %w", len(fragments), b.threshold, storeapi.ErrTooManyInputs))
	}

	sources := make([]string, len(fragments))
	merged := xfertypes.Fragment{Name: name, Index: fragments[len(fragments)-1].Index}
	for i, f := range fragments {
		sources[i] = f.Name
		merged.Size += f.Size
		merged.Chunks += f.Chunks
	}

	policy := b.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		b.metrics.IncUploadRetries()
		if b.logger != nil {
			b.logger.WarnContext(ctx, "compose rate limited, retrying",
				"fragment", name,
				"inputs", len(sources),
				"attempt", attempt,
				"delay", delay,
				"error", err)
		}
	}

	var info *storeapi.ObjectInfo
	attempts, err := policy.Do(ctx, func(ctx context.Context, _ int) error {
		var err error
		info, err = b.dest.Compose(ctx, b.bucket, name, sources, opts)
		return err
	})
	if err != nil {
		return nil, fail(retry.Classify(err, xferrors.KindComposeFailed), err).WithAttempts(attempts)
	}
	if info != nil && info.Size > 0 {
		merged.Size = info.Size
	}

	b.composes++
	if b.logger != nil {
		b.logger.DebugContext(ctx, "fragments composed",
			"fragment", name,
			"inputs", len(sources),
			"bytes", merged.Size,
			"chunks", merged.Chunks)
	}
	return &merged, nil
}

func (b *Batcher) createEmpty(ctx context.Context, op, name, contentType string) (*xfertypes.Fragment, error) {
	attempts, err := b.policy.Do(ctx, func(ctx context.Context, _ int) error {
		_, err := b.dest.Create(ctx, b.bucket, name, nil, storeapi.CreateOptions{ContentType: contentType})
		return err
	})
	if err != nil {
		return nil, xferrors.New(retry.Classify(err, xferrors.KindUploadFailed), op, err).
			WithBucket(b.bucket).
			WithFragment(name).
			WithAttempts(attempts)
	}

	if b.logger != nil {
		b.logger.InfoContext(ctx, "source was empty, created empty object", "object", name)
	}
	return &xfertypes.Fragment{Name: name, Index: -1}, nil
}
