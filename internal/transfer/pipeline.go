package transfer

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/blobxfer/storeapi"
	"github.com/input-output-hk/blobxfer/xfertypes"
)

// streamConcurrent overlaps reading with up to Concurrency chunk uploads.
//
// The reader dispatches each chunk to a bounded upload group. Finished
// fragments reach a single collector which buffers out-of-order completions
// and hands fragments to the batcher strictly by chunk index, so composes
// never overlap.
func (o *Orchestrator) streamConcurrent(ctx context.Context, r *run, stream storeapi.ChunkStream) error {
	g, gctx := errgroup.WithContext(ctx)
	results := make(chan xfertypes.Fragment, o.cfg.Concurrency)

	g.Go(func() error {
		defer close(results)
		return o.produce(gctx, r, stream, results)
	})
	g.Go(func() error {
		return o.collect(gctx, r, results)
	})

	return g.Wait()
}

// produce reads chunks and uploads them with bounded concurrency.
func (o *Orchestrator) produce(
	ctx context.Context,
	r *run,
	stream storeapi.ChunkStream,
	results chan<- xfertypes.Fragment,
) error {
	uploads, uctx := errgroup.WithContext(ctx)
	uploads.SetLimit(o.cfg.Concurrency)

	readErr := func() error {
		for index := 0; ; index++ {
			chunk, err := stream.Next(uctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return o.sourceError(uctx, "read", r, index, err)
			}
			o.observeFirst(r, index, chunk)

			name := r.scheme.FragmentName()
			// Blocks while Concurrency uploads are in flight
			uploads.Go(func() error {
				frag, err := r.uploader.Upload(uctx, index, name, chunk)
				r.buffers.Put(chunk)
				if err != nil {
					return err
				}
				select {
				case results <- *frag:
					return nil
				case <-uctx.Done():
					return uctx.Err()
				}
			})
		}
	}()

	// An upload failure cancels uctx, which surfaces in the reader as a
	// cancellation. Report the upload error instead.
	if err := uploads.Wait(); err != nil {
		return err
	}
	return readErr
}

// collect reorders fragments by chunk index and feeds the batcher.
func (o *Orchestrator) collect(ctx context.Context, r *run, results <-chan xfertypes.Fragment) error {
	pending := make(map[int]xfertypes.Fragment)
	next := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frag, ok := <-results:
			if !ok {
				return nil
			}
			pending[frag.Index] = frag
			for {
				f, ready := pending[next]
				if !ready {
					break
				}
				delete(pending, next)
				if err := o.accept(ctx, r, f); err != nil {
					return err
				}
				next++
			}
		}
	}
}
