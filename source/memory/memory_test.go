package memory

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/blobxfer/storeapi"
)

func TestStore_Open(t *testing.T) {
	s := New()
	data := []byte("0123456789")
	s.Put("container", "dir/blob.bin", data)

	// Later mutation of the caller's slice does not leak into the store
	data[0] = 'X'

	stream, err := s.Open(context.Background(), "container", "dir/blob.bin", storeapi.OpenOptions{ChunkSize: 4})
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, int64(10), stream.Size())

	var got []byte
	for {
		chunk, err := stream.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, chunk...)
	}
	assert.Equal(t, "0123456789", string(got))
}

func TestStore_OpenMissing(t *testing.T) {
	_, err := New().Open(context.Background(), "container", "nope", storeapi.OpenOptions{})
	assert.ErrorIs(t, err, storeapi.ErrObjectNotFound)
}
