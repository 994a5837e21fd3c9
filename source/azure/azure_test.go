package azure

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xferrors "github.com/input-output-hk/blobxfer/errors"
	"github.com/input-output-hk/blobxfer/internal/pool"
	"github.com/input-output-hk/blobxfer/internal/testutil"
	"github.com/input-output-hk/blobxfer/storeapi"
)

type mockAPI struct {
	DownloadStreamFunc func(ctx context.Context, container, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
}

func (m *mockAPI) DownloadStream(
	ctx context.Context,
	container, blobName string,
	o *azblob.DownloadStreamOptions,
) (azblob.DownloadStreamResponse, error) {
	return m.DownloadStreamFunc(ctx, container, blobName, o)
}

func serve(body io.ReadCloser, size *int64) *mockAPI {
	return &mockAPI{
		DownloadStreamFunc: func(context.Context, string, string, *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error) {
			return azblob.DownloadStreamResponse{
				DownloadResponse: blob.DownloadResponse{Body: body, ContentLength: size},
			}, nil
		},
	}
}

func storageError(code bloberror.Code, status int) error {
	return &azcore.ResponseError{ErrorCode: string(code), StatusCode: status}
}

type brokenBody struct {
	data []byte
	err  error
}

func (b *brokenBody) Read(p []byte) (int, error) {
	if len(b.data) == 0 {
		return 0, b.err
	}
	n := copy(p, b.data)
	b.data = b.data[n:]
	return n, nil
}

func (b *brokenBody) Close() error { return nil }

func drain(t *testing.T, stream storeapi.ChunkStream) ([][]byte, error) {
	t.Helper()
	var chunks [][]byte
	for {
		chunk, err := stream.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, bytes.Clone(chunk))
	}
}

func TestStore_Open(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		chunkSize  int
		knownSize  bool
		wantChunks int
	}{
		{name: "multiple chunks", size: 10_000, chunkSize: 4096, knownSize: true, wantChunks: 3},
		{name: "exact multiple", size: 8192, chunkSize: 4096, knownSize: true, wantChunks: 2},
		{name: "unknown length", size: 5000, chunkSize: 1000, wantChunks: 5},
		{name: "empty blob", size: 0, chunkSize: 1000, knownSize: true, wantChunks: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := testutil.GenerateRandomData(tt.size)
			var size *int64
			if tt.knownSize {
				n := int64(tt.size)
				size = &n
			}
			s := NewWithAPI(serve(io.NopCloser(bytes.NewReader(data)), size))

			stream, err := s.Open(context.Background(), "exports", "2024/report.csv", storeapi.OpenOptions{
				ChunkSize: tt.chunkSize,
				Buffers:   pool.NewChunkPool(tt.chunkSize),
			})
			require.NoError(t, err)
			defer func() { _ = stream.Close() }()

			if tt.knownSize {
				assert.Equal(t, int64(tt.size), stream.Size())
			} else {
				assert.Equal(t, int64(-1), stream.Size())
			}

			chunks, err := drain(t, stream)
			require.NoError(t, err)
			assert.Len(t, chunks, tt.wantChunks)
			assert.Equal(t, data, bytes.Join(chunks, nil))
		})
	}
}

func TestStore_OpenErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "blob not found", err: storageError(bloberror.BlobNotFound, http.StatusNotFound), want: storeapi.ErrObjectNotFound},
		{name: "container not found", err: storageError(bloberror.ContainerNotFound, http.StatusNotFound), want: storeapi.ErrObjectNotFound},
		{name: "server busy", err: storageError(bloberror.ServerBusy, http.StatusServiceUnavailable), want: storeapi.ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewWithAPI(&mockAPI{
				DownloadStreamFunc: func(context.Context, string, string, *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error) {
					return azblob.DownloadStreamResponse{}, tt.err
				},
			})
			_, err := s.Open(context.Background(), "c", "b", storeapi.OpenOptions{})
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "c/b")
		})
	}

	t.Run("auth failure stays unmapped", func(t *testing.T) {
		authErr := storageError(bloberror.AuthenticationFailed, http.StatusForbidden)
		s := NewWithAPI(&mockAPI{
			DownloadStreamFunc: func(context.Context, string, string, *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error) {
				return azblob.DownloadStreamResponse{}, authErr
			},
		})
		_, err := s.Open(context.Background(), "c", "b", storeapi.OpenOptions{})
		assert.ErrorIs(t, err, authErr)
		assert.NotErrorIs(t, err, storeapi.ErrObjectNotFound)
	})
}

func TestStore_BodyFailure(t *testing.T) {
	reset := errors.New("connection reset by peer")
	body := &brokenBody{data: testutil.GenerateRandomData(2500), err: reset}
	size := int64(5000)

	s := NewWithAPI(serve(body, &size), WithReadRetries(0))
	stream, err := s.Open(context.Background(), "c", "b", storeapi.OpenOptions{ChunkSize: 1000})
	require.NoError(t, err)

	chunks, err := drain(t, stream)
	assert.Len(t, chunks, 2)
	assert.ErrorIs(t, err, reset)
}

func TestNewFromConnectionString(t *testing.T) {
	_, err := NewFromConnectionString("")
	require.Error(t, err)
	assert.True(t, xferrors.IsConfiguration(err))

	_, err = NewFromConnectionString("not a connection string")
	require.Error(t, err)
	assert.True(t, xferrors.IsConfiguration(err))

	s, err := NewFromConnectionString(
		"DefaultEndpointsProtocol=https;AccountName=devstore;AccountKey=a2V5;EndpointSuffix=core.windows.net")
	require.NoError(t, err)
	assert.Equal(t, DefaultReadRetries, s.readRetries)
}
