package gcs

import (
	"context"

	"cloud.google.com/go/storage"
)

// API is the narrow set of GCS calls used by Store. It exists so tests can
// replace the SDK client.
type API interface {
	// Write creates name with data. It must fail if name already exists.
	Write(ctx context.Context, bucket, name string, data []byte, contentType string) (*storage.ObjectAttrs, error)

	// Compose concatenates sources into name. It must fail if name already exists.
	Compose(ctx context.Context, bucket, name string, sources []string, contentType string) (*storage.ObjectAttrs, error)

	// Close releases the underlying client.
	Close() error
}

// sdkAPI implements API on top of *storage.Client.
type sdkAPI struct {
	client *storage.Client
}

// object returns a create-only handle with SDK retries disabled. Store owns
// the retry policy, so a throttled call must surface instead of being retried.
func (a *sdkAPI) object(bucket, name string) *storage.ObjectHandle {
	return a.client.Bucket(bucket).Object(name).
		If(storage.Conditions{DoesNotExist: true}).
		Retryer(storage.WithPolicy(storage.RetryNever))
}

func (a *sdkAPI) Write(
	ctx context.Context,
	bucket, name string,
	data []byte,
	contentType string,
) (*storage.ObjectAttrs, error) {
	w := a.object(bucket, name).NewWriter(ctx)
	w.ContentType = contentType
	// single-request upload; data is already in memory
	w.ChunkSize = 0

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return w.Attrs(), nil
}

func (a *sdkAPI) Compose(
	ctx context.Context,
	bucket, name string,
	sources []string,
	contentType string,
) (*storage.ObjectAttrs, error) {
	b := a.client.Bucket(bucket)
	srcs := make([]*storage.ObjectHandle, len(sources))
	for i, s := range sources {
		srcs[i] = b.Object(s)
	}

	c := a.object(bucket, name).ComposerFrom(srcs...)
	c.ContentType = contentType
	return c.Run(ctx)
}

func (a *sdkAPI) Close() error {
	return a.client.Close()
}

var _ API = (*sdkAPI)(nil)
