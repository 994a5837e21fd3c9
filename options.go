package blobxfer

import (
	"log/slog"
	"time"

	"github.com/input-output-hk/blobxfer/metrics"
	"github.com/input-output-hk/blobxfer/xfertypes"
)

// WithBatchThreshold sets the number of fragments folded per intermediate compose.
// Default is 32, the GCS compose input limit. Must lie in [2, destination limit].
func WithBatchThreshold(n int) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.BatchThreshold = n
	}
}

// WithChunkSize sets the size of the chunks read from the source.
// Default is 4MB.
func WithChunkSize(size int) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		if size > 0 {
			c.ChunkSize = size
		}
	}
}

// WithConcurrency sets the number of chunk uploads allowed in flight.
// Default is 1 (sequential).
func WithConcurrency(concurrency int) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithRetry replaces the backoff used for rate-limited uploads and composes.
func WithRetry(cfg xfertypes.RetryConfig) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.Retry = cfg
	}
}

// WithMaxAttempts sets the total number of attempts for a rate-limited call.
// Default is 10.
func WithMaxAttempts(n int) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.Retry.MaxAttempts = n
	}
}

// WithBackoff sets the exponential backoff parameters.
// Defaults are multiplier 1s, min 2s, max 30s.
func WithBackoff(multiplier, minDelay, maxDelay time.Duration) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.Retry.Multiplier = multiplier
		c.Retry.MinDelay = minDelay
		c.Retry.MaxDelay = maxDelay
	}
}

// WithContentType sets the content type of destination objects and disables detection.
func WithContentType(contentType string) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.ContentType = contentType
	}
}

// WithContentTypeDetection enables or disables content type detection from the first chunk.
// Default is enabled.
func WithContentTypeDetection(enabled bool) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.DetectContentType = enabled
	}
}

// WithLogger sets the structured logger. Default is no logging.
func WithLogger(logger *slog.Logger) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.Logger = logger
	}
}

// WithProgress sets the progress tracker notified after every fragment.
func WithProgress(p xfertypes.ProgressTracker) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.Progress = p
	}
}

// WithMetrics sets the metrics sink. Default is no metrics.
func WithMetrics(m metrics.Metrics) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.Metrics = m
	}
}

// WithIDGenerator replaces the random fragment name suffix. The generator must
// return unique values and be safe for concurrent use.
func WithIDGenerator(fn func() string) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.NewID = fn
	}
}

// WithSleep replaces the backoff timer. Intended for tests.
func WithSleep(fn func(time.Duration) <-chan time.Time) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.Sleep = fn
	}
}
