// Package transfer drives a source stream through fragment upload and
// progressive compose into one destination object.
//
// A run moves through Idle, Streaming, Finalizing and Complete. Any
// unretried error moves it to Failed. The destination object only appears on
// the final compose, so readers never observe a partial object. Fragments
// already created by a failed run stay in the destination bucket.
//
// With Concurrency > 1 chunk uploads overlap with reading, but fragments are
// still handed to the batcher strictly in stream order.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"

	xferrors "github.com/input-output-hk/blobxfer/errors"
	"github.com/input-output-hk/blobxfer/internal/compose"
	"github.com/input-output-hk/blobxfer/internal/naming"
	"github.com/input-output-hk/blobxfer/internal/pool"
	"github.com/input-output-hk/blobxfer/internal/retry"
	"github.com/input-output-hk/blobxfer/internal/upload"
	"github.com/input-output-hk/blobxfer/metrics"
	"github.com/input-output-hk/blobxfer/storeapi"
	"github.com/input-output-hk/blobxfer/xfertypes"
)

// MessageFormat is the status message of a completed transfer.
const MessageFormat = "Data uploaded to %s in bucket %s."

// Orchestrator runs a single transfer. It must not be reused.
type Orchestrator struct {
	source  storeapi.Source
	dest    storeapi.Destination
	cfg     *xfertypes.ClientConfig
	metrics metrics.Metrics
	logger  *slog.Logger

	state atomic.Int32
}

// New creates an orchestrator. A nil cfg uses the default configuration.
func New(source storeapi.Source, dest storeapi.Destination, cfg *xfertypes.ClientConfig) *Orchestrator {
	if cfg == nil {
		cfg = xfertypes.DefaultClientConfig()
	}
	var m metrics.Metrics = metrics.Noop{}
	if cfg.Metrics != nil {
		m = cfg.Metrics
	}
	return &Orchestrator{
		source:  source,
		dest:    dest,
		cfg:     cfg,
		metrics: m,
		logger:  cfg.Logger,
	}
}

// State returns the current state of the run.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// run holds the per-run collaborators built in Idle.
type run struct {
	src      xfertypes.SourceDescriptor
	dst      xfertypes.DestinationDescriptor
	scheme   *naming.Scheme
	uploader *upload.Uploader
	batcher  *compose.Batcher
	buffers  *pool.ChunkPool

	contentType string
	chunks      int
	bytes       int64
	total       int64
}

// Run copies the source object into the destination object.
func (o *Orchestrator) Run(
	ctx context.Context,
	src xfertypes.SourceDescriptor,
	dst xfertypes.DestinationDescriptor,
) (*xfertypes.Result, error) {
	startTime := time.Now()

	if s := o.State(); s != StateIdle {
		return nil, xferrors.Configuration("transfer.Run", fmt.Sprintf("orchestrator already used (state %s)", s))
	}

	r, err := o.prepare(src, dst)
	if err != nil {
		return nil, err
	}

	if o.logger != nil {
		o.logger.InfoContext(ctx, "transfer started",
			"source", src.String(),
			"bucket", dst.Bucket,
			"object", r.scheme.Path,
			"prefix", r.scheme.Prefix())
	}

	result, err := o.execute(ctx, r)
	if err != nil {
		err = o.fail(ctx, r, err)
		o.metrics.ObserveTransfer(metrics.StatusFailed, time.Since(startTime))
		return nil, err
	}

	result.Duration = time.Since(startTime)
	o.metrics.ObserveTransfer(metrics.StatusSucceeded, result.Duration)
	if o.cfg.Progress != nil {
		o.cfg.Progress.Complete()
	}
	if o.logger != nil {
		o.logger.InfoContext(ctx, "transfer completed",
			"bucket", result.Bucket,
			"object", result.Path,
			"bytes", result.Size,
			"chunks", result.Chunks,
			"composes", result.Composes,
			"duration", result.Duration)
	}
	return result, nil
}

// prepare validates the descriptors and builds the run's collaborators. It performs no I/O.
func (o *Orchestrator) prepare(src xfertypes.SourceDescriptor, dst xfertypes.DestinationDescriptor) (*run, error) {
	const op = "transfer.prepare"

	switch {
	case o.source == nil:
		return nil, xferrors.Configuration(op, "source store is required")
	case o.dest == nil:
		return nil, xferrors.Configuration(op, "destination store is required")
	case src.Container == "":
		return nil, xferrors.Configuration(op, "source container is required").WithObject(src.Path)
	case src.Path == "":
		return nil, xferrors.Configuration(op, "source path is required").WithBucket(src.Container)
	case dst.Bucket == "":
		return nil, xferrors.Configuration(op, "destination bucket is required").WithObject(dst.Path)
	case o.cfg.ChunkSize <= 0:
		return nil, xferrors.Configuration(op, fmt.Sprintf("chunk size must be positive, got %d", o.cfg.ChunkSize))
	case o.cfg.Concurrency <= 0:
		return nil, xferrors.Configuration(op, fmt.Sprintf("concurrency must be positive, got %d", o.cfg.Concurrency))
	case o.cfg.Retry.MaxAttempts <= 0:
		return nil, xferrors.Configuration(op, fmt.Sprintf("retry attempts must be positive, got %d", o.cfg.Retry.MaxAttempts))
	}

	var namingOpts []naming.Option
	if o.cfg.NewID != nil {
		namingOpts = append(namingOpts, naming.WithIDGenerator(o.cfg.NewID))
	}
	scheme, err := naming.Parse(dst.Path, namingOpts...)
	if err != nil {
		return nil, err
	}

	policy := retry.FromConfig(o.cfg.Retry)
	policy.Sleep = o.cfg.Sleep

	batcher, err := compose.New(o.dest, dst.Bucket, scheme,
		compose.WithThreshold(o.cfg.BatchThreshold),
		compose.WithPolicy(policy),
		compose.WithLogger(o.logger),
		compose.WithMetrics(o.metrics))
	if err != nil {
		return nil, err
	}

	return &run{
		src:    src,
		dst:    dst,
		scheme: scheme,
		uploader: upload.New(o.dest, dst.Bucket,
			upload.WithPolicy(policy),
			upload.WithLogger(o.logger),
			upload.WithMetrics(o.metrics)),
		batcher:     batcher,
		buffers:     pool.NewChunkPool(o.cfg.ChunkSize),
		contentType: o.cfg.ContentType,
		total:       -1,
	}, nil
}

func (o *Orchestrator) execute(ctx context.Context, r *run) (*xfertypes.Result, error) {
	o.transition(ctx, StateStreaming)

	stream, err := o.source.Open(ctx, r.src.Container, r.src.Path, storeapi.OpenOptions{
		ChunkSize: o.cfg.ChunkSize,
		Buffers:   r.buffers,
	})
	if err != nil {
		return nil, o.sourceError(ctx, "open", r, -1, err)
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil && o.logger != nil {
			o.logger.WarnContext(ctx, "failed to close source stream", "source", r.src.String(), "error", cerr)
		}
	}()
	r.total = stream.Size()

	if o.cfg.Concurrency > 1 {
		err = o.streamConcurrent(ctx, r, stream)
	} else {
		err = o.streamSequential(ctx, r, stream)
	}
	if err != nil {
		return nil, err
	}

	o.transition(ctx, StateFinalizing)

	contentType := r.contentType
	if contentType == "" {
		contentType = xfertypes.DefaultContentType
	}
	final, err := r.batcher.Finalize(ctx, r.scheme.Path, contentType)
	if err != nil {
		return nil, err
	}

	o.transition(ctx, StateComplete)

	return &xfertypes.Result{
		Bucket:      r.dst.Bucket,
		Path:        r.scheme.Path,
		Message:     fmt.Sprintf(MessageFormat, r.scheme.Path, r.dst.Bucket),
		Size:        final.Size,
		Chunks:      r.chunks,
		Fragments:   r.chunks + r.batcher.Intermediates(),
		Composes:    r.batcher.Composes(),
		ContentType: contentType,
	}, nil
}

// streamSequential reads, uploads and batches one chunk at a time.
func (o *Orchestrator) streamSequential(ctx context.Context, r *run, stream storeapi.ChunkStream) error {
	for index := 0; ; index++ {
		chunk, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return o.sourceError(ctx, "read", r, index, err)
		}
		o.observeFirst(r, index, chunk)

		frag, err := r.uploader.Upload(ctx, index, r.scheme.FragmentName(), chunk)
		r.buffers.Put(chunk)
		if err != nil {
			return err
		}
		if err := o.accept(ctx, r, *frag); err != nil {
			return err
		}
	}
}

// accept hands a fragment to the batcher. Calls must follow stream order.
func (o *Orchestrator) accept(ctx context.Context, r *run, frag xfertypes.Fragment) error {
	collapsed, err := r.batcher.Add(ctx, frag)
	if err != nil {
		return err
	}
	r.chunks++
	r.bytes += frag.Size
	if collapsed != nil && o.logger != nil {
		o.logger.DebugContext(ctx, "batch collapsed",
			"fragment", collapsed.Name,
			"chunk", collapsed.Index,
			"chunks", collapsed.Chunks)
	}
	if o.cfg.Progress != nil {
		o.cfg.Progress.Update(r.bytes, r.total)
	}
	return nil
}

// observeFirst detects the content type from the first chunk.
func (o *Orchestrator) observeFirst(r *run, index int, chunk []byte) {
	if index != 0 || r.contentType != "" || !o.cfg.DetectContentType {
		return
	}
	r.contentType = mimetype.Detect(chunk).String()
}

func (o *Orchestrator) sourceError(ctx context.Context, op string, r *run, index int, err error) error {
	kind := xferrors.KindSourceRead
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		kind = xferrors.KindCanceled
	}
	return xferrors.New(kind, op, err).
		WithBucket(r.src.Container).
		WithObject(r.src.Path).
		WithChunk(index)
}

// fail moves the run to Failed and annotates err with the destination path.
func (o *Orchestrator) fail(ctx context.Context, r *run, err error) error {
	var te *xferrors.TransferError
	if !errors.As(err, &te) {
		kind := xferrors.KindUploadFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			kind = xferrors.KindCanceled
		}
		te = xferrors.New(kind, "transfer", err).WithBucket(r.dst.Bucket)
		err = te
	}
	if te.Object == "" {
		te.WithObject(r.scheme.Path)
	}

	o.transition(ctx, StateFailed)
	if o.cfg.Progress != nil {
		o.cfg.Progress.Error(err)
	}
	if o.logger != nil {
		o.logger.ErrorContext(ctx, "transfer failed",
			"bucket", r.dst.Bucket,
			"object", r.scheme.Path,
			"chunks", r.chunks,
			"error", err)
	}
	return err
}

func (o *Orchestrator) transition(ctx context.Context, to State) {
	from := State(o.state.Load())
	if !canTransition(from, to) {
		panic(fmt.Sprintf("transfer: invalid state transition %s -> %s", from, to))
	}
	o.state.Store(int32(to))
	if o.logger != nil {
		o.logger.DebugContext(ctx, "transfer state changed", "from", from.String(), "to", to.String())
	}
}
