package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xferrors "github.com/input-output-hk/blobxfer/errors"
	"github.com/input-output-hk/blobxfer/storeapi"
)

// instant records requested waits and fires immediately.
type instant struct {
	delays []time.Duration
}

func (s *instant) sleep(d time.Duration) <-chan time.Time {
	s.delays = append(s.delays, d)
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func testPolicy(s *instant) *Policy {
	p := Default()
	p.Sleep = s.sleep
	return p
}

func failTimes(k int, err error) Op {
	return func(_ context.Context, attempt int) error {
		if attempt <= k {
			return err
		}
		return nil
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := Default()

	want := []time.Duration{
		2 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i, w := range want {
		assert.Equal(t, w, p.Delay(i+1), "attempt %d", i+1)
	}

	// Very large attempt numbers stay capped
	assert.Equal(t, 30*time.Second, p.Delay(200))
	assert.Equal(t, 2*time.Second, p.Delay(0))
}

func TestPolicy_Do_RetryBound(t *testing.T) {
	rateLimited := fmt.Errorf("upload: %w", storeapi.ErrRateLimited)

	tests := []struct {
		name         string
		failures     int
		wantAttempts int
		wantErr      bool
	}{
		{name: "first try", failures: 0, wantAttempts: 1},
		{name: "one failure", failures: 1, wantAttempts: 2},
		{name: "five failures", failures: 5, wantAttempts: 6},
		{name: "nine failures", failures: 9, wantAttempts: 10},
		{name: "ten failures exhaust budget", failures: 10, wantAttempts: 10, wantErr: true},
		{name: "persistent failures", failures: 100, wantAttempts: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &instant{}
			attempts, err := testPolicy(s).Do(context.Background(), failTimes(tt.failures, rateLimited))

			assert.Equal(t, tt.wantAttempts, attempts)
			if tt.wantErr {
				require.Error(t, err)
				var ex *ExhaustedError
				require.ErrorAs(t, err, &ex)
				assert.Equal(t, 10, ex.Attempts)
				assert.Equal(t, 10, AttemptsOf(err))
				assert.ErrorIs(t, err, storeapi.ErrRateLimited)
				assert.Len(t, s.delays, 9)
				return
			}
			require.NoError(t, err)
			assert.Len(t, s.delays, tt.failures)
		})
	}
}

func TestPolicy_Do_NonRetryable(t *testing.T) {
	boom := errors.New("permission denied")
	s := &instant{}

	attempts, err := testPolicy(s).Do(context.Background(), failTimes(3, boom))
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, AttemptsOf(err))
	assert.Empty(t, s.delays)
}

func TestPolicy_Do_CustomPredicate(t *testing.T) {
	transient := errors.New("transient")
	s := &instant{}
	p := testPolicy(s)
	p.Retryable = func(err error) bool { return errors.Is(err, transient) }

	attempts, err := p.Do(context.Background(), failTimes(2, transient))
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestPolicy_Do_OnRetry(t *testing.T) {
	s := &instant{}
	p := testPolicy(s)

	var seen []int
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		seen = append(seen, attempt)
		assert.Equal(t, p.Delay(attempt), delay)
		assert.ErrorIs(t, err, storeapi.ErrRateLimited)
	}

	_, err := p.Do(context.Background(), failTimes(3, storeapi.ErrRateLimited))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 4 * time.Second}, s.delays)
}

func TestPolicy_Do_CanceledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := Default()
	p.Sleep = func(time.Duration) <-chan time.Time {
		cancel()
		// never fires
		return make(chan time.Time)
	}

	attempts, err := p.Do(ctx, failTimes(5, storeapi.ErrRateLimited))
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicy_Do_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	attempts, err := Default().Do(ctx, func(context.Context, int) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.Zero(t, attempts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicy_Wrap(t *testing.T) {
	s := &instant{}
	run := testPolicy(s).Wrap(failTimes(1, storeapi.ErrRateLimited))

	attempts, err := run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want xferrors.Kind
	}{
		{name: "exhausted", err: &ExhaustedError{Attempts: 10, Err: storeapi.ErrRateLimited}, want: xferrors.KindRateLimitExhausted},
		{name: "canceled", err: context.Canceled, want: xferrors.KindCanceled},
		{name: "deadline", err: fmt.Errorf("put: %w", context.DeadlineExceeded), want: xferrors.KindCanceled},
		{name: "other", err: errors.New("forbidden"), want: xferrors.KindUploadFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err, xferrors.KindUploadFailed))
		})
	}
}
