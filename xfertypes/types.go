// Package xfertypes provides shared type definitions for the transfer module.
package xfertypes

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/input-output-hk/blobxfer/metrics"
)

// Source store identifiers accepted in SourceDescriptor.Store.
const (
	StoreAzure  = "azure"
	StoreS3     = "s3"
	StoreMinio  = "minio"
	StoreFile   = "file"
	StoreMemory = "memory"
)

// Defaults for the tunable transfer parameters.
const (
	// DefaultBatchThreshold is the maximum number of inputs of a GCS compose call.
	DefaultBatchThreshold = 32

	// DefaultChunkSize matches the Azure SDK download chunk size.
	DefaultChunkSize = 4 * 1024 * 1024

	// DefaultConcurrency uploads one chunk at a time.
	DefaultConcurrency = 1

	// DefaultContentType is used when content type detection is disabled or inconclusive.
	DefaultContentType = "application/octet-stream"
)

// SourceDescriptor identifies the object to read.
type SourceDescriptor struct {
	// Store is the source backend (azure, s3, minio, file, memory)
	Store string

	// Container is the source container or bucket
	Container string

	// Path is the object path inside the container
	Path string
}

// String returns a loggable representation of the descriptor.
func (d SourceDescriptor) String() string {
	return fmt.Sprintf("%s://%s/%s", d.Store, d.Container, d.Path)
}

// DestinationDescriptor identifies the object to create.
// Credentials are held by the destination handle, never by the descriptor.
type DestinationDescriptor struct {
	// ProjectID is the destination project or account
	ProjectID string

	// Bucket is the destination bucket
	Bucket string

	// Path is the logical destination object path
	Path string
}

// Fragment is a handle to an immutable object created during a transfer.
type Fragment struct {
	// Name is the object name in the destination bucket
	Name string

	// Size is the object size in bytes
	Size int64

	// Index is the creation order index: the chunk index for uploaded chunks,
	// the index of the last covered chunk for collapsed fragments
	Index int

	// Chunks is the number of source chunks folded into this fragment
	Chunks int
}

// Result describes a completed transfer.
type Result struct {
	// Bucket is the destination bucket
	Bucket string

	// Path is the destination object path
	Path string

	// Message is the human-readable status message
	Message string

	// Size is the destination object size in bytes
	Size int64

	// Chunks is the number of chunks read from the source
	Chunks int

	// Fragments is the number of fragment objects created (uploads plus intermediate composes)
	Fragments int

	// Composes is the number of compose calls, including the final one
	Composes int

	// ContentType is the content type set on the destination object
	ContentType string

	// Duration is the wall time of the transfer
	Duration time.Duration
}

// ProgressTracker defines the interface for tracking transfer progress.
type ProgressTracker interface {
	// Update is called after every uploaded fragment. totalBytes is -1 when unknown.
	Update(bytesTransferred, totalBytes int64)

	// Complete is called when the transfer completes successfully
	Complete()

	// Error is called when the transfer fails
	Error(err error)
}

// RetryConfig holds the backoff parameters for rate-limited store calls.
// The delay before retry n (n >= 1) is Multiplier * 2^(n-1), clamped to [MinDelay, MaxDelay].
type RetryConfig struct {
	MaxAttempts int
	Multiplier  time.Duration
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig returns 10 attempts, base 2s, multiplier 1s, cap 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 10,
		Multiplier:  time.Second,
		MinDelay:    2 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// ClientConfig holds the configuration of a transfer client.
type ClientConfig struct {
	// BatchThreshold is the number of fragments folded per intermediate compose
	BatchThreshold int

	// ChunkSize is the chunk size requested from the source stream
	ChunkSize int

	// Concurrency is the number of chunk uploads allowed in flight
	Concurrency int

	// Retry configures backoff on rate-limited uploads and composes
	Retry RetryConfig

	// ContentType overrides content type detection when non-empty
	ContentType string

	// DetectContentType enables detection from the first chunk
	DetectContentType bool

	// Logger receives structured transfer logs; nil disables logging
	Logger *slog.Logger

	// Progress receives progress updates; may be nil
	Progress ProgressTracker

	// Metrics receives transfer counters; nil disables metrics
	Metrics metrics.Metrics

	// Sleep overrides the backoff sleep; used by tests
	Sleep func(time.Duration) <-chan time.Time

	// NewID overrides the fragment id generator; used by tests
	NewID func() string
}

// Option is a functional option for configuring a client.
type Option func(*ClientConfig)

// DefaultClientConfig returns the configuration used when no options are given.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		BatchThreshold:    DefaultBatchThreshold,
		ChunkSize:         DefaultChunkSize,
		Concurrency:       DefaultConcurrency,
		Retry:             DefaultRetryConfig(),
		DetectContentType: true,
	}
}
