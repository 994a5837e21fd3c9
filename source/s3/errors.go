package s3

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"github.com/input-output-hk/blobxfer/storeapi"
)

// mapError translates S3 API error codes into storeapi sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.ErrorCode() {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return fmt.Errorf("%w: %w", storeapi.ErrObjectNotFound, err)
	case "SlowDown", "Throttling", "ThrottlingException", "TooManyRequests",
		"TooManyRequestsException", "RequestLimitExceeded":
		return fmt.Errorf("%w: %w", storeapi.ErrRateLimited, err)
	}
	return err
}
