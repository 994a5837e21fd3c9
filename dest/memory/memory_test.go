package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/blobxfer/storeapi"
)

func TestStore_CreateOnly(t *testing.T) {
	ctx := context.Background()
	s := New()

	info, err := s.Create(ctx, "b", "a/1", []byte("hello"), storeapi.CreateOptions{ContentType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, "text/plain", s.ContentType("b", "a/1"))

	_, err = s.Create(ctx, "b", "a/1", []byte("world"), storeapi.CreateOptions{})
	assert.ErrorIs(t, err, storeapi.ErrAlreadyExists)

	data, ok := s.Object("b", "a/1")
	require.True(t, ok)
	assert.Equal(t, "hello", string(data))

	// Same name in another bucket is a different object
	_, err = s.Create(ctx, "other", "a/1", nil, storeapi.CreateOptions{})
	require.NoError(t, err)
}

func TestStore_Compose(t *testing.T) {
	ctx := context.Background()
	s := New(WithMaxComposeInputs(3))

	for _, name := range []string{"p1", "p2", "p3", "p4"} {
		_, err := s.Create(ctx, "b", name, []byte(name), storeapi.CreateOptions{})
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		target  string
		inputs  []string
		want    string
		wantErr error
	}{
		{name: "ordered concat", target: "out1", inputs: []string{"p3", "p1", "p2"}, want: "p3p1p2"},
		{name: "single input", target: "out2", inputs: []string{"p4"}, want: "p4"},
		{name: "no inputs", target: "out3", wantErr: storeapi.ErrNoInputs},
		{name: "too many", target: "out4", inputs: []string{"p1", "p2", "p3", "p4"}, wantErr: storeapi.ErrTooManyInputs},
		{name: "missing input", target: "out5", inputs: []string{"p1", "nope"}, wantErr: storeapi.ErrObjectNotFound},
		{name: "existing target", target: "p1", inputs: []string{"p2"}, wantErr: storeapi.ErrAlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := s.Compose(ctx, "b", tt.target, tt.inputs, storeapi.ComposeOptions{})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), info.Size)

			data, ok := s.Object("b", tt.target)
			require.True(t, ok)
			assert.Equal(t, tt.want, string(data))
		})
	}

	assert.Equal(t, 4, s.MaxInputsSeen())
	assert.Len(t, s.CallsOf(OpCompose), 2)
}

func TestStore_FailNext(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.FailNext(OpCreate, 2, storeapi.ErrRateLimited)

	for i := 0; i < 2; i++ {
		_, err := s.Create(ctx, "b", "x", []byte("x"), storeapi.CreateOptions{})
		assert.ErrorIs(t, err, storeapi.ErrRateLimited)
	}
	_, err := s.Create(ctx, "b", "x", []byte("x"), storeapi.CreateOptions{})
	require.NoError(t, err)

	calls := s.Calls()
	require.Len(t, calls, 3)
	assert.Error(t, calls[0].Err)
	assert.NoError(t, calls[2].Err)
}

func TestStore_Hook(t *testing.T) {
	boom := errors.New("boom")
	s := New(WithHook(func(c Call) error {
		if c.Op == OpCompose {
			return boom
		}
		return nil
	}))

	_, err := s.Create(context.Background(), "b", "x", []byte("x"), storeapi.CreateOptions{})
	require.NoError(t, err)

	_, err = s.Compose(context.Background(), "b", "y", []string{"x"}, storeapi.ComposeOptions{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"x"}, s.Names("b"))
}

func TestStore_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Create(ctx, "b", "x", nil, storeapi.CreateOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
