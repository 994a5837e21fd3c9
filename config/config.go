// Package config loads the blobxfer runtime configuration.
//
// Values come from three layers, later layers winning: built-in defaults, an
// optional YAML file, and BLOBXFER_* environment variables. Secrets are never
// part of the configuration; it only names the keys the credentials resolver
// looks up.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	xferrors "github.com/input-output-hk/blobxfer/errors"
	"github.com/input-output-hk/blobxfer/xfertypes"
)

// Supported destination stores.
const (
	DestGCS    = "gcs"
	DestMinio  = "minio"
	DestMemory = "memory"
)

// S3 compose rejects non-final inputs smaller than 5 MiB.
const minioMinChunkSize = 5 * 1024 * 1024

// Supported credential providers.
const (
	ProviderEnv = "env"
	ProviderAWS = "aws"
)

// Config is the complete runtime configuration.
type Config struct {
	Source      SourceConfig      `yaml:"source"`
	Destination DestinationConfig `yaml:"destination"`
	Transfer    TransferConfig    `yaml:"transfer"`
	Retry       RetryConfig       `yaml:"retry"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`

	// Parallel is the number of requests transferred at once by the CLI
	Parallel int `yaml:"parallel"`
}

// SourceConfig selects and configures the source store.
type SourceConfig struct {
	// Store is one of azure, s3, minio, file
	Store string `yaml:"store"`

	// Endpoint is the S3 or MinIO endpoint; empty uses AWS defaults for s3
	Endpoint string `yaml:"endpoint"`

	// Region is the S3 region
	Region string `yaml:"region"`

	// Secure selects https for MinIO
	Secure bool `yaml:"secure"`

	// Root is the base directory of the file store
	Root string `yaml:"root"`
}

// DestinationConfig selects and configures the destination store.
type DestinationConfig struct {
	// Store is one of gcs, minio, memory
	Store string `yaml:"store"`

	// Endpoint overrides the GCS endpoint or names the MinIO endpoint
	Endpoint string `yaml:"endpoint"`

	// Secure selects https for MinIO
	Secure bool `yaml:"secure"`
}

// TransferConfig holds the transfer tunables.
type TransferConfig struct {
	BatchThreshold    int    `yaml:"batch_threshold"`
	ChunkSize         int    `yaml:"chunk_size"`
	Concurrency       int    `yaml:"concurrency"`
	ContentType       string `yaml:"content_type"`
	DetectContentType bool   `yaml:"detect_content_type"`
}

// RetryConfig holds the backoff for rate-limited calls.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Multiplier  time.Duration `yaml:"multiplier"`
	MinDelay    time.Duration `yaml:"min_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// CredentialsConfig configures where secrets are resolved.
type CredentialsConfig struct {
	// Providers are queried in order; values are env and aws
	Providers []string `yaml:"providers"`

	// EnvPrefix is prepended to keys looked up in the environment
	EnvPrefix string `yaml:"env_prefix"`

	// AWSRegion and AWSSecretPrefix configure the Secrets Manager provider
	AWSRegion       string `yaml:"aws_region"`
	AWSSecretPrefix string `yaml:"aws_secret_prefix"`

	// SourceKey names the source connection secret
	SourceKey string `yaml:"source_key"`

	// DestinationKey names the destination credentials secret
	DestinationKey string `yaml:"destination_key"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error
	Level string `yaml:"level"`

	// Format is text or json
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address of /metrics; empty disables the endpoint
	Addr string `yaml:"addr"`

	// Namespace prefixes every metric name
	Namespace string `yaml:"namespace"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	retry := xfertypes.DefaultRetryConfig()
	return &Config{
		Source:      SourceConfig{Store: xfertypes.StoreAzure},
		Destination: DestinationConfig{Store: DestGCS},
		Transfer: TransferConfig{
			BatchThreshold:    xfertypes.DefaultBatchThreshold,
			ChunkSize:         xfertypes.DefaultChunkSize,
			Concurrency:       xfertypes.DefaultConcurrency,
			DetectContentType: true,
		},
		Retry: RetryConfig{
			MaxAttempts: retry.MaxAttempts,
			Multiplier:  retry.Multiplier,
			MinDelay:    retry.MinDelay,
			MaxDelay:    retry.MaxDelay,
		},
		Credentials: CredentialsConfig{
			Providers:      []string{ProviderEnv},
			SourceKey:      "AzureWebJobsStorage",
			DestinationKey: "GCP_CREDS",
		},
		Log:      LogConfig{Level: "info", Format: "text"},
		Metrics:  MetricsConfig{Namespace: "blobxfer"},
		Parallel: 4,
	}
}

// RetryPolicy converts the retry section.
func (c *Config) RetryPolicy() xfertypes.RetryConfig {
	return xfertypes.RetryConfig{
		MaxAttempts: c.Retry.MaxAttempts,
		Multiplier:  c.Retry.Multiplier,
		MinDelay:    c.Retry.MinDelay,
		MaxDelay:    c.Retry.MaxDelay,
	}
}

// SlogLevel parses the log level. Unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch c.Source.Store {
	case xfertypes.StoreAzure, xfertypes.StoreS3, xfertypes.StoreFile:
	case xfertypes.StoreMinio:
		if c.Source.Endpoint == "" {
			add("source.endpoint is required for minio")
		}
	default:
		add("source.store %q is not one of azure, s3, minio, file", c.Source.Store)
	}

	switch c.Destination.Store {
	case DestGCS, DestMemory:
	case DestMinio:
		if c.Destination.Endpoint == "" {
			add("destination.endpoint is required for minio")
		}
	default:
		add("destination.store %q is not one of gcs, minio, memory", c.Destination.Store)
	}

	t := c.Transfer
	if t.BatchThreshold < 2 {
		add("transfer.batch_threshold must be at least 2, got %d", t.BatchThreshold)
	}
	if c.Destination.Store == DestGCS && t.BatchThreshold > 32 {
		add("transfer.batch_threshold must not exceed 32 for gcs, got %d", t.BatchThreshold)
	}
	if t.ChunkSize <= 0 {
		add("transfer.chunk_size must be positive, got %d", t.ChunkSize)
	}
	if c.Destination.Store == DestMinio && t.ChunkSize > 0 && t.ChunkSize < minioMinChunkSize {
		add("transfer.chunk_size must be at least %d for minio compose, got %d", minioMinChunkSize, t.ChunkSize)
	}
	if t.Concurrency <= 0 {
		add("transfer.concurrency must be positive, got %d", t.Concurrency)
	}

	r := c.Retry
	if r.MaxAttempts <= 0 {
		add("retry.max_attempts must be positive, got %d", r.MaxAttempts)
	}
	if r.Multiplier < 0 || r.MinDelay < 0 || r.MaxDelay < 0 {
		add("retry delays must not be negative")
	}
	if r.MaxDelay > 0 && r.MinDelay > r.MaxDelay {
		add("retry.min_delay %s exceeds retry.max_delay %s", r.MinDelay, r.MaxDelay)
	}

	if len(c.Credentials.Providers) == 0 {
		add("credentials.providers must not be empty")
	}
	for _, p := range c.Credentials.Providers {
		if p != ProviderEnv && p != ProviderAWS {
			add("credentials provider %q is not one of env, aws", p)
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		add("log.format %q is not one of text, json", c.Log.Format)
	}

	if c.Parallel <= 0 {
		add("parallel must be positive, got %d", c.Parallel)
	}

	if len(problems) > 0 {
		return xferrors.Configuration("config.Validate", strings.Join(problems, "; "))
	}
	return nil
}
