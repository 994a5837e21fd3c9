package gcs

import (
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/input-output-hk/blobxfer/storeapi"
)

// mapError translates GCS errors into storeapi sentinels. The SDK error
// stays in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", storeapi.ErrRateLimited, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", storeapi.ErrObjectNotFound, err)
		case http.StatusPreconditionFailed:
			return fmt.Errorf("%w: %w", storeapi.ErrAlreadyExists, err)
		}
	}

	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%w: %w", storeapi.ErrObjectNotFound, err)
	}
	return err
}
