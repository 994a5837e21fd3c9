// Package minioclient builds minio-go clients and maps their errors onto the
// storeapi sentinels. It is shared by the MinIO source and destination.
package minioclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	xferrors "github.com/input-output-hk/blobxfer/errors"
	"github.com/input-output-hk/blobxfer/storeapi"
)

// Config holds the connection settings of an S3-compatible endpoint.
type Config struct {
	// Endpoint is host[:port] without scheme
	Endpoint string

	// AccessKey and SecretKey are static credentials; both empty means anonymous
	AccessKey string
	SecretKey string

	// Secure selects https
	Secure bool

	// Region is the bucket region, optional for MinIO
	Region string
}

// New creates a minio-go client.
func New(cfg Config) (*minio.Client, error) {
	const op = "minioclient.New"
	if cfg.Endpoint == "" {
		return nil, xferrors.Configuration(op, "endpoint is required")
	}
	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		return nil, xferrors.Configuration(op, "access key and secret key must be set together")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, xferrors.New(xferrors.KindConfiguration, op, err).WithMessage("failed to create client")
	}
	return client, nil
}

// MapError translates minio-go errors into storeapi sentinels.
// Unrecognised errors are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return err
	}
	switch resp.Code {
	case "SlowDown", "SlowDownRead", "SlowDownWrite", "TooManyRequests", "RequestLimitExceeded":
		return fmt.Errorf("%w: %w", storeapi.ErrRateLimited, err)
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return fmt.Errorf("%w: %w", storeapi.ErrObjectNotFound, err)
	case "PreconditionFailed":
		return fmt.Errorf("%w: %w", storeapi.ErrAlreadyExists, err)
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %w", storeapi.ErrRateLimited, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", storeapi.ErrObjectNotFound, err)
	case http.StatusPreconditionFailed:
		return fmt.Errorf("%w: %w", storeapi.ErrAlreadyExists, err)
	}
	return err
}

// IsNotFound reports whether err is a missing bucket or object.
func IsNotFound(err error) bool {
	return errors.Is(MapError(err), storeapi.ErrObjectNotFound)
}
