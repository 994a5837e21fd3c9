// Package retry provides an explicit backoff policy for store calls.
//
// The policy retries only errors accepted by its Retryable predicate. Delays
// grow exponentially: the wait after failed attempt n (n >= 1) is
// Multiplier * 2^(n-1), clamped to [MinDelay, MaxDelay]. With the defaults
// (10 attempts, multiplier 1s, min 2s, max 30s) the waits are
// 2s, 2s, 4s, 8s, 16s, 30s, 30s, 30s, 30s.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	xferrors "github.com/input-output-hk/blobxfer/errors"
	"github.com/input-output-hk/blobxfer/storeapi"
	"github.com/input-output-hk/blobxfer/xfertypes"
)

// Op is a retryable operation. attempt is 1-based.
type Op func(ctx context.Context, attempt int) error

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	// Attempts is the number of attempts made
	Attempts int

	// Err is the error of the last attempt
	Err error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry budget exhausted after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the last attempt's error.
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// AttemptsOf returns the attempt count recorded in err, or 0.
func AttemptsOf(err error) int {
	var ex *ExhaustedError
	if errors.As(err, &ex) {
		return ex.Attempts
	}
	return 0
}

// Classify maps an error returned by Do to a transfer failure kind.
// Errors that were neither retried to exhaustion nor caused by ctx map to fallback.
func Classify(err error, fallback xferrors.Kind) xferrors.Kind {
	var ex *ExhaustedError
	switch {
	case errors.As(err, &ex):
		return xferrors.KindRateLimitExhausted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return xferrors.KindCanceled
	default:
		return fallback
	}
}

// Policy describes when and how long to wait before retrying an operation.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int

	// Multiplier scales the exponential term
	Multiplier time.Duration

	// MinDelay is the lower bound of every wait
	MinDelay time.Duration

	// MaxDelay caps every wait
	MaxDelay time.Duration

	// Retryable reports whether err should be retried; nil retries rate limits only
	Retryable func(err error) bool

	// Sleep returns a channel that fires after d; nil uses time.After
	Sleep func(d time.Duration) <-chan time.Time

	// OnRetry is called before each wait with the failed attempt number, the wait and the error
	OnRetry func(attempt int, delay time.Duration, err error)
}

// FromConfig builds a policy from a RetryConfig.
func FromConfig(cfg xfertypes.RetryConfig) *Policy {
	return &Policy{
		MaxAttempts: cfg.MaxAttempts,
		Multiplier:  cfg.Multiplier,
		MinDelay:    cfg.MinDelay,
		MaxDelay:    cfg.MaxDelay,
	}
}

// Default returns the policy used for fragment uploads and composes.
func Default() *Policy {
	return FromConfig(xfertypes.DefaultRetryConfig())
}

// IsRateLimited is the default retry predicate.
func IsRateLimited(err error) bool {
	return errors.Is(err, storeapi.ErrRateLimited)
}

// Delay returns the wait after failed attempt n.
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	f := math.Pow(2, float64(attempt-1)) * float64(p.Multiplier)
	var d time.Duration
	switch {
	case p.MaxDelay > 0 && f > float64(p.MaxDelay):
		d = p.MaxDelay
	case f > math.MaxInt64:
		d = time.Duration(math.MaxInt64)
	default:
		d = time.Duration(f)
	}
	if d < p.MinDelay {
		d = p.MinDelay
	}
	return d
}

// Do runs op until it succeeds, fails with a non-retryable error, the attempt
// budget runs out or ctx is done. It returns the number of attempts made.
// A spent budget is reported as *ExhaustedError wrapping the last error.
func (p *Policy) Do(ctx context.Context, op Op) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRateLimited
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		err := op(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if !retryable(err) {
			return attempt, err
		}
		if attempt >= maxAttempts {
			return attempt, &ExhaustedError{Attempts: attempt, Err: err}
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if err := p.wait(ctx, delay); err != nil {
			return attempt, err
		}
	}
}

// Wrap returns op bound to the policy, for callers that compose operations.
func (p *Policy) Wrap(op Op) func(ctx context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		return p.Do(ctx, op)
	}
}

func (p *Policy) wait(ctx context.Context, d time.Duration) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.After
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-sleep(d):
		return nil
	}
}
