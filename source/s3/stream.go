package s3

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/blobxfer/storeapi"
	"github.com/input-output-hk/blobxfer/xfertypes"
)

// rangeStream fetches one byte range per Next call.
type rangeStream struct {
	api       API
	bucket    string
	key       string
	etag      string
	size      int64
	chunkSize int64
	buffers   storeapi.BufferPool

	mu     sync.Mutex
	offset int64
	closed bool
}

func newRangeStream(api API, bucket, key string, size int64, etag string, opts storeapi.OpenOptions) *rangeStream {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = xfertypes.DefaultChunkSize
	}
	return &rangeStream{
		api:       api,
		bucket:    bucket,
		key:       key,
		etag:      etag,
		size:      size,
		chunkSize: int64(chunkSize),
		buffers:   opts.Buffers,
	}
}

func (s *rangeStream) Next(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.offset >= s.size {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := min(s.offset+s.chunkSize, s.size) - 1
	rng := fmt.Sprintf("bytes=%d-%d", s.offset, end)

	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(rng),
	}
	if s.etag != "" {
		input.IfMatch = aws.String(s.etag)
	}
	out, err := s.api.GetObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("s3 get %s/%s %s: %w", s.bucket, s.key, rng, mapError(err))
	}
	defer func() { _ = out.Body.Close() }()

	n := int(end - s.offset + 1)
	buf := s.get(n)
	if _, err := io.ReadFull(out.Body, buf); err != nil {
		s.put(buf)
		return nil, fmt.Errorf("s3 read %s/%s %s: %w", s.bucket, s.key, rng, err)
	}

	s.offset = end + 1
	return buf, nil
}

func (s *rangeStream) Size() int64 {
	return s.size
}

func (s *rangeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *rangeStream) get(n int) []byte {
	if s.buffers != nil {
		if buf := s.buffers.Get(); cap(buf) >= n {
			return buf[:n]
		}
	}
	return make([]byte, n)
}

func (s *rangeStream) put(buf []byte) {
	if s.buffers != nil {
		s.buffers.Put(buf)
	}
}
