// Package errors provides the error taxonomy for blob transfers.
//
// Every failure that aborts a transfer is reported as a *TransferError carrying
// the failure Kind and enough context (chunk index, fragment name, bucket and
// object) to diagnose it. Use the IsXxx helpers or errors.As to inspect them.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a transfer failure.
type Kind string

const (
	// KindSourceRead indicates the source stream could not be opened or read.
	KindSourceRead Kind = "SourceReadError"

	// KindRateLimitExhausted indicates destination throttling persisted past the retry budget.
	KindRateLimitExhausted Kind = "RateLimitExhausted"

	// KindComposeFailed indicates an invalid compose input count or a missing fragment.
	KindComposeFailed Kind = "ComposeFailed"

	// KindConfiguration indicates a malformed descriptor, path or option.
	// It is always raised before any store I/O.
	KindConfiguration Kind = "ConfigurationError"

	// KindUploadFailed indicates a fragment upload failed with a non-retryable error.
	KindUploadFailed Kind = "UploadFailed"

	// KindCanceled indicates the caller abandoned the transfer.
	KindCanceled Kind = "Canceled"
)

// TransferError represents a failed transfer step with context about where it failed.
type TransferError struct {
	// Kind is the failure class
	Kind Kind

	// Op is the operation that failed (e.g., "upload", "compose", "finalize")
	Op string

	// Bucket is the destination bucket or source container (if applicable)
	Bucket string

	// Object is the logical object path (if applicable)
	Object string

	// Chunk is the zero-based chunk index, or -1 when not tied to a chunk
	Chunk int

	// Fragment is the fragment or intermediate object name (if applicable)
	Fragment string

	// Attempts is the number of attempts made before giving up (0 if not retried)
	Attempts int

	// Err is the underlying error
	Err error
}

// Error implements the error interface.
func (e *TransferError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Op, e.Kind)
	if e.Bucket != "" && e.Object != "" {
		fmt.Fprintf(&b, " %s/%s", e.Bucket, e.Object)
	} else if e.Object != "" {
		fmt.Fprintf(&b, " object %s", e.Object)
	} else if e.Bucket != "" {
		fmt.Fprintf(&b, " bucket %s", e.Bucket)
	}
	if e.Chunk >= 0 {
		fmt.Fprintf(&b, " chunk %d", e.Chunk)
	}
	if e.Fragment != "" {
		fmt.Fprintf(&b, " fragment %s", e.Fragment)
	}
	if e.Attempts > 0 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chaining support.
func (e *TransferError) Unwrap() error {
	return e.Err
}

// Code returns the platform error code for the failure kind.
func (e *TransferError) Code() ErrorCode {
	return codeForKind(e.Kind)
}

// WithBucket adds bucket context to an existing error.
func (e *TransferError) WithBucket(bucket string) *TransferError {
	e.Bucket = bucket
	return e
}

// WithObject adds object path context to an existing error.
func (e *TransferError) WithObject(object string) *TransferError {
	e.Object = object
	return e
}

// WithChunk adds chunk index context to an existing error.
func (e *TransferError) WithChunk(index int) *TransferError {
	e.Chunk = index
	return e
}

// WithFragment adds fragment name context to an existing error.
func (e *TransferError) WithFragment(name string) *TransferError {
	e.Fragment = name
	return e
}

// WithAttempts records how many attempts were made.
func (e *TransferError) WithAttempts(n int) *TransferError {
	e.Attempts = n
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *TransferError) WithMessage(message string) *TransferError {
	if e.Err == nil {
		e.Err = errors.New(message)
		return e
	}
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// New creates a TransferError of the given kind for op.
func New(kind Kind, op string, err error) *TransferError {
	return &TransferError{
		Kind:  kind,
		Op:    op,
		Chunk: -1,
		Err:   err,
	}
}

// Configuration creates a configuration error with a plain message.
func Configuration(op, message string) *TransferError {
	return New(KindConfiguration, op, errors.New(message))
}

// KindOf returns the Kind of the first TransferError in err's chain, or "" if none.
func KindOf(err error) Kind {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// IsKind reports whether err carries a TransferError of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsSourceRead reports whether err is a source read failure.
func IsSourceRead(err error) bool {
	return IsKind(err, KindSourceRead)
}

// IsRateLimitExhausted reports whether err is a rate limit that outlived the retry budget.
func IsRateLimitExhausted(err error) bool {
	return IsKind(err, KindRateLimitExhausted)
}

// IsComposeFailed reports whether err is a compose failure.
func IsComposeFailed(err error) bool {
	return IsKind(err, KindComposeFailed)
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return IsKind(err, KindConfiguration)
}

// IsUploadFailed reports whether err is a non-retryable upload failure.
func IsUploadFailed(err error) bool {
	return IsKind(err, KindUploadFailed)
}

// IsCanceled reports whether the transfer was abandoned by its caller.
func IsCanceled(err error) bool {
	return IsKind(err, KindCanceled)
}
