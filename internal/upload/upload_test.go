package upload

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/blobxfer/dest/memory"
	xferrors "github.com/input-output-hk/blobxfer/errors"
	"github.com/input-output-hk/blobxfer/internal/retry"
	"github.com/input-output-hk/blobxfer/internal/testutil"
	"github.com/input-output-hk/blobxfer/storeapi"
)

func newTestUploader(dest storeapi.Destination, sleeper *testutil.Sleeper, opts ...Option) *Uploader {
	p := retry.Default()
	p.Sleep = sleeper.Sleep
	return New(dest, "bucket", append([]Option{WithPolicy(p)}, opts...)...)
}

func TestUploader_Upload(t *testing.T) {
	store := memory.New()
	u := newTestUploader(store, &testutil.Sleeper{})

	frag, err := u.Upload(context.Background(), 3, "data/chunks/report/report_1", []byte("chunk-data"))
	require.NoError(t, err)

	assert.Equal(t, "data/chunks/report/report_1", frag.Name)
	assert.Equal(t, int64(10), frag.Size)
	assert.Equal(t, 3, frag.Index)
	assert.Equal(t, 1, frag.Chunks)

	data, ok := store.Object("bucket", frag.Name)
	require.True(t, ok)
	assert.Equal(t, "chunk-data", string(data))
}

func TestUploader_RetryBound(t *testing.T) {
	tests := []struct {
		name         string
		failures     int
		wantAttempts int
		wantKind     xferrors.Kind
	}{
		{name: "no throttling", failures: 0, wantAttempts: 1},
		{name: "three rate limits", failures: 3, wantAttempts: 4},
		{name: "nine rate limits", failures: 9, wantAttempts: 10},
		{name: "ten rate limits", failures: 10, wantAttempts: 10, wantKind: xferrors.KindRateLimitExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			store.FailNext(memory.OpCreate, tt.failures, storeapi.ErrRateLimited)
			sleeper := &testutil.Sleeper{}
			u := newTestUploader(store, sleeper)

			frag, err := u.Upload(context.Background(), 7, "frag", []byte("x"))

			creates := store.Calls()
			assert.Len(t, creates, tt.wantAttempts)

			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Nil(t, frag)
				assert.True(t, xferrors.IsKind(err, tt.wantKind))

				var te *xferrors.TransferError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, 7, te.Chunk)
				assert.Equal(t, "frag", te.Fragment)
				assert.Equal(t, "bucket", te.Bucket)
				assert.Equal(t, 10, te.Attempts)
				assert.ErrorIs(t, err, storeapi.ErrRateLimited)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "frag", frag.Name)
			assert.Len(t, sleeper.Delays(), tt.failures)
		})
	}
}

func TestUploader_NonRetryableError(t *testing.T) {
	denied := errors.New("403 forbidden")
	store := memory.New()
	store.FailNext(memory.OpCreate, 5, denied)
	sleeper := &testutil.Sleeper{}

	_, err := newTestUploader(store, sleeper).Upload(context.Background(), 0, "frag", []byte("x"))
	require.Error(t, err)
	assert.True(t, xferrors.IsUploadFailed(err))
	assert.ErrorIs(t, err, denied)
	assert.Len(t, store.Calls(), 1)
	assert.Empty(t, sleeper.Delays())
}

func TestUploader_NeverOverwrites(t *testing.T) {
	store := memory.New()
	u := newTestUploader(store, &testutil.Sleeper{})

	_, err := u.Upload(context.Background(), 0, "frag", []byte("first"))
	require.NoError(t, err)

	_, err = u.Upload(context.Background(), 1, "frag", []byte("second"))
	require.Error(t, err)
	assert.True(t, xferrors.IsUploadFailed(err))
	assert.ErrorIs(t, err, storeapi.ErrAlreadyExists)

	data, _ := store.Object("bucket", "frag")
	assert.Equal(t, "first", string(data))
}

func TestUploader_SizeMismatch(t *testing.T) {
	dest := &testutil.MockDestination{
		CreateFunc: func(_ context.Context, _, name string, _ []byte, _ storeapi.CreateOptions) (*storeapi.ObjectInfo, error) {
			return &storeapi.ObjectInfo{Name: name, Size: 1}, nil
		},
	}

	_, err := newTestUploader(dest, &testutil.Sleeper{}).Upload(context.Background(), 2, "frag", []byte("abc"))
	require.Error(t, err)
	assert.True(t, xferrors.IsUploadFailed(err))
}

func TestUploader_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := memory.New()
	store.FailNext(memory.OpCreate, 5, storeapi.ErrRateLimited)

	p := retry.Default()
	p.Sleep = func(time.Duration) <-chan time.Time {
		cancel()
		return make(chan time.Time)
	}

	_, err := New(store, "bucket", WithPolicy(p)).Upload(ctx, 0, "frag", []byte("x"))
	require.Error(t, err)
	assert.True(t, xferrors.IsCanceled(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUploader_LogsRetries(t *testing.T) {
	store := memory.New()
	store.FailNext(memory.OpCreate, 2, storeapi.ErrRateLimited)
	logger, logs := testutil.NewLogger()

	_, err := newTestUploader(store, &testutil.Sleeper{}, WithLogger(logger)).
		Upload(context.Background(), 4, "frag", []byte("x"))
	require.NoError(t, err)

	warnings := logs.Messages(slog.LevelWarn)
	assert.Len(t, warnings, 2)

	for _, e := range logs.Entries() {
		if e.Level == slog.LevelWarn {
			assert.Equal(t, int64(4), e.Attrs["chunk"])
			assert.Equal(t, "frag", e.Attrs["fragment"])
		}
	}
}
