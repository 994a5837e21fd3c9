package storeapi

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/input-output-hk/blobxfer/xfertypes"
)

// readerStream cuts an io.Reader into fixed-size chunks. Only the last chunk may be shorter.
type readerStream struct {
	rc        io.ReadCloser
	chunkSize int
	size      int64
	buffers   BufferPool

	mu   sync.Mutex
	done bool
}

// NewReaderStream adapts a streamed body into a ChunkStream.
// size is the total object size if known, -1 otherwise.
//
//nolint:ireturn // callers only need the iterator contract
func NewReaderStream(rc io.ReadCloser, size int64, opts OpenOptions) ChunkStream {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = xfertypes.DefaultChunkSize
	}
	return &readerStream{
		rc:        rc,
		chunkSize: chunkSize,
		size:      size,
		buffers:   opts.Buffers,
	}
}

func (s *readerStream) Next(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := s.get()
	n, err := io.ReadFull(s.rc, buf[:s.chunkSize])
	switch {
	case err == nil:
		return buf[:n], nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.done = true
		return buf[:n], nil
	case errors.Is(err, io.EOF):
		s.done = true
		s.put(buf)
		return nil, io.EOF
	default:
		s.put(buf)
		return nil, err
	}
}

func (s *readerStream) Size() int64 {
	return s.size
}

func (s *readerStream) Close() error {
	return s.rc.Close()
}

func (s *readerStream) get() []byte {
	if s.buffers != nil {
		if buf := s.buffers.Get(); cap(buf) >= s.chunkSize {
			return buf[:s.chunkSize]
		}
	}
	return make([]byte, s.chunkSize)
}

func (s *readerStream) put(buf []byte) {
	if s.buffers != nil {
		s.buffers.Put(buf)
	}
}
