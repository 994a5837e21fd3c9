package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
)

// AWS error codes handled explicitly.
const (
	resourceNotFoundException = "ResourceNotFoundException"
	accessDeniedException     = "AccessDeniedException"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used by AWSProvider.
type SecretsManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

var _ SecretsManagerAPI = (*secretsmanager.Client)(nil)

// AWSProvider reads secrets from AWS Secrets Manager. Keys are secret names
// below an optional prefix, e.g. "blobxfer/" + "GCP_CREDS".
type AWSProvider struct {
	api    SecretsManagerAPI
	prefix string
	logger *slog.Logger
}

// AWSOption configures an AWSProvider.
type AWSOption func(*awsConfig)

type awsConfig struct {
	region string
	prefix string
	logger *slog.Logger
}

// WithRegion sets the Secrets Manager region.
func WithRegion(region string) AWSOption {
	return func(c *awsConfig) {
		c.region = region
	}
}

// WithSecretPrefix prepends prefix to every secret name.
func WithSecretPrefix(prefix string) AWSOption {
	return func(c *awsConfig) {
		c.prefix = prefix
	}
}

// WithLogger sets the logger. Secret values are never logged.
func WithLogger(logger *slog.Logger) AWSOption {
	return func(c *awsConfig) {
		c.logger = logger
	}
}

// NewAWS creates a provider using the default AWS credential chain.
func NewAWS(ctx context.Context, opts ...AWSOption) (*AWSProvider, error) {
	c := &awsConfig{}
	for _, opt := range opts {
		opt(c)
	}

	var loadOpts []func(*config.LoadOptions) error
	if c.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(c.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSProvider{
		api:    secretsmanager.NewFromConfig(cfg),
		prefix: c.prefix,
		logger: c.logger,
	}, nil
}

// NewAWSWithAPI creates a provider over a custom client. Used by tests.
func NewAWSWithAPI(api SecretsManagerAPI, opts ...AWSOption) *AWSProvider {
	c := &awsConfig{}
	for _, opt := range opts {
		opt(c)
	}
	return &AWSProvider{api: api, prefix: c.prefix, logger: c.logger}
}

// Name implements Provider.
func (p *AWSProvider) Name() string {
	return "aws-secretsmanager"
}

// Lookup implements Provider.
func (p *AWSProvider) Lookup(ctx context.Context, key string) (*Secret, error) {
	name := p.prefix + key
	if p.logger != nil {
		p.logger.DebugContext(ctx, "retrieving secret", "secret_name", name)
	}

	out, err := p.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(name)})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case resourceNotFoundException:
				return nil, fmt.Errorf("secret %s: %w", name, ErrNotFound)
			case accessDeniedException:
				return nil, fmt.Errorf("secret %s: %w", name, ErrAccessDenied)
			}
			return nil, fmt.Errorf("secret %s: %s: %s", name, apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return nil, fmt.Errorf("secret %s: %w", name, err)
	}

	switch {
	case out.SecretString != nil && *out.SecretString != "":
		return NewSecret([]byte(*out.SecretString)), nil
	case len(out.SecretBinary) > 0:
		return NewSecret(out.SecretBinary), nil
	default:
		return nil, fmt.Errorf("secret %s: %w", name, ErrEmpty)
	}
}
