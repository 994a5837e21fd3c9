// Package pool provides reusable chunk buffers.
//
// A transfer holds at most Concurrency chunk buffers at once. Reusing them
// across chunks keeps the allocation rate flat for multi-gigabyte objects.
package pool

import (
	"sync"
	"sync/atomic"
)

// ChunkPool manages reusable buffers of one fixed capacity.
type ChunkPool struct {
	size int
	pool sync.Pool

	// allocated counts buffers created by New, for tests and diagnostics
	allocated atomic.Int64
}

// NewChunkPool creates a pool of buffers with capacity size.
func NewChunkPool(size int) *ChunkPool {
	p := &ChunkPool{size: size}
	p.pool.New = func() interface{} {
		p.allocated.Add(1)
		buf := make([]byte, size)
		return &buf
	}
	return p
}

// Size returns the capacity of buffers handed out by the pool.
func (p *ChunkPool) Size() int {
	return p.size
}

// Get returns a zero-length buffer with capacity Size().
// The caller is responsible for calling Put to return the buffer to the pool.
func (p *ChunkPool) Get() []byte {
	bufPtr := p.pool.Get().(*[]byte)
	// Reset length to 0 but keep capacity
	*bufPtr = (*bufPtr)[:0]
	return *bufPtr
}

// Put returns a buffer to the pool. Buffers of a different capacity are dropped.
// The buffer must not be used after calling Put.
func (p *ChunkPool) Put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	buf = buf[:0]
	p.pool.Put(&buf)
}

// Allocated returns how many buffers the pool has allocated so far.
func (p *ChunkPool) Allocated() int64 {
	return p.allocated.Load()
}
