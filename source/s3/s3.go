// Package s3 provides a source that reads S3 objects with ranged GetObject
// requests, one request per chunk.
//
// The object size and ETag are read once with HeadObject. Every range request
// is conditioned on that ETag, so an object replaced mid-transfer fails the
// read instead of mixing two versions.
package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	xferrors "github.com/input-output-hk/blobxfer/errors"
	"github.com/input-output-hk/blobxfer/storeapi"
)

// Store is a storeapi.Source backed by S3.
type Store struct {
	api API
}

type clientConfig struct {
	region    string
	endpoint  string
	accessKey string
	secretKey string
	awsConfig *aws.Config
}

// Option configures the S3 client built by New.
type Option func(*clientConfig)

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(c *clientConfig) {
		c.region = region
	}
}

// WithEndpoint points the client at an S3-compatible endpoint with path-style addressing.
func WithEndpoint(endpoint string) Option {
	return func(c *clientConfig) {
		c.endpoint = endpoint
	}
}

// WithStaticCredentials uses a fixed access key pair instead of the default chain.
func WithStaticCredentials(accessKey, secretKey string) Option {
	return func(c *clientConfig) {
		c.accessKey = accessKey
		c.secretKey = secretKey
	}
}

// WithAWSConfig uses cfg instead of loading the default configuration.
func WithAWSConfig(cfg aws.Config) Option {
	return func(c *clientConfig) {
		c.awsConfig = &cfg
	}
}

// New creates an S3 source using the default AWS credential chain unless
// overridden by options.
func New(ctx context.Context, opts ...Option) (*Store, error) {
	cc := &clientConfig{}
	for _, opt := range opts {
		opt(cc)
	}

	var cfg aws.Config
	if cc.awsConfig != nil {
		cfg = *cc.awsConfig
	} else {
		var loadOpts []func(*config.LoadOptions) error
		if cc.accessKey != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cc.accessKey, cc.secretKey, "")))
		}
		loaded, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, xferrors.New(xferrors.KindConfiguration, "s3.New", err).
				WithMessage("failed to load AWS configuration")
		}
		cfg = loaded
	}

	if cc.region != "" {
		cfg.Region = cc.region
	} else if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	var s3Opts []func(*s3.Options)
	if cc.endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
			o.BaseEndpoint = aws.String(cc.endpoint)
		})
	}

	return NewWithClient(s3.NewFromConfig(cfg, s3Opts...)), nil
}

// NewWithClient creates a Store over an existing client or mock.
func NewWithClient(api API) *Store {
	return &Store{api: api}
}

// Open implements storeapi.Source.
//
//nolint:ireturn // storeapi.Source contract
func (s *Store) Open(
	ctx context.Context,
	bucket, key string,
	opts storeapi.OpenOptions,
) (storeapi.ChunkStream, error) {
	head, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 open %s/%s: %w", bucket, key, mapError(err))
	}

	return newRangeStream(s.api, bucket, key, aws.ToInt64(head.ContentLength), aws.ToString(head.ETag), opts), nil
}

var _ storeapi.Source = (*Store)(nil)
