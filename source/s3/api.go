package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// API defines the S3 operations used by Store.
// This interface allows for mocking in tests.
type API interface {
	// HeadObject retrieves object metadata
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)

	// GetObject retrieves an object or a byte range of it
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ API = (*s3.Client)(nil)
