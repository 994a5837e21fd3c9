package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xferrors "github.com/input-output-hk/blobxfer/errors"
)

func env(values map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := values[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "azure", cfg.Source.Store)
	assert.Equal(t, DestGCS, cfg.Destination.Store)
	assert.Equal(t, 32, cfg.Transfer.BatchThreshold)
	assert.Equal(t, 4*1024*1024, cfg.Transfer.ChunkSize)
	assert.Equal(t, 10, cfg.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, "AzureWebJobsStorage", cfg.Credentials.SourceKey)
	assert.Equal(t, "GCP_CREDS", cfg.Credentials.DestinationKey)

	rp := cfg.RetryPolicy()
	assert.Equal(t, 2*time.Second, rp.MinDelay)
	assert.Equal(t, time.Second, rp.Multiplier)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		env      map[string]string
		validate func(t *testing.T, cfg *Config, err error)
	}{
		{
			name: "defaults only",
			validate: func(t *testing.T, cfg *Config, err error) {
				require.NoError(t, err)
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "yaml file",
			file: `
source:
  store: s3
  region: eu-west-1
destination:
  store: minio
  endpoint: localhost:9000
transfer:
  batch_threshold: 16
  chunk_size: 8388608
  concurrency: 4
retry:
  max_attempts: 5
  min_delay: 500ms
  max_delay: 10s
credentials:
  providers: [env, aws]
  aws_secret_prefix: blobxfer/
log:
  level: debug
  format: json
parallel: 2
`,
			validate: func(t *testing.T, cfg *Config, err error) {
				require.NoError(t, err)
				assert.Equal(t, "s3", cfg.Source.Store)
				assert.Equal(t, "eu-west-1", cfg.Source.Region)
				assert.Equal(t, DestMinio, cfg.Destination.Store)
				assert.Equal(t, 16, cfg.Transfer.BatchThreshold)
				assert.Equal(t, 8388608, cfg.Transfer.ChunkSize)
				assert.Equal(t, 4, cfg.Transfer.Concurrency)
				assert.True(t, cfg.Transfer.DetectContentType)
				assert.Equal(t, 5, cfg.Retry.MaxAttempts)
				assert.Equal(t, 500*time.Millisecond, cfg.Retry.MinDelay)
				assert.Equal(t, time.Second, cfg.Retry.Multiplier)
				assert.Equal(t, []string{"env", "aws"}, cfg.Credentials.Providers)
				assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
				assert.Equal(t, 2, cfg.Parallel)
			},
		},
		{
			name: "environment overrides file",
			file: "transfer:\n  concurrency: 2\n",
			env: map[string]string{
				"BLOBXFER_CONCURRENCY":          "8",
				"BLOBXFER_RETRY_MAX_DELAY":      "1m",
				"BLOBXFER_DETECT_CONTENT_TYPE":  "false",
				"BLOBXFER_CREDENTIAL_PROVIDERS": "aws, env",
				"BLOBXFER_DEST_STORE":           "memory",
			},
			validate: func(t *testing.T, cfg *Config, err error) {
				require.NoError(t, err)
				assert.Equal(t, 8, cfg.Transfer.Concurrency)
				assert.Equal(t, time.Minute, cfg.Retry.MaxDelay)
				assert.False(t, cfg.Transfer.DetectContentType)
				assert.Equal(t, []string{"aws", "env"}, cfg.Credentials.Providers)
				assert.Equal(t, DestMemory, cfg.Destination.Store)
			},
		},
		{
			name: "unknown field",
			file: "transfer:\n  chunk_sise: 10\n",
			validate: func(t *testing.T, cfg *Config, err error) {
				require.Error(t, err)
				assert.True(t, xferrors.IsConfiguration(err))
			},
		},
		{
			name: "malformed env value",
			env:  map[string]string{"BLOBXFER_CHUNK_SIZE": "big", "BLOBXFER_RETRY_MIN_DELAY": "soon"},
			validate: func(t *testing.T, cfg *Config, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "BLOBXFER_CHUNK_SIZE")
				assert.Contains(t, err.Error(), "BLOBXFER_RETRY_MIN_DELAY")
			},
		},
		{
			name: "empty file keeps defaults",
			file: "",
			validate: func(t *testing.T, cfg *Config, err error) {
				require.NoError(t, err)
				assert.Equal(t, 32, cfg.Transfer.BatchThreshold)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := memfs.New()
			path := ""
			if tt.file != "" || tt.name == "empty file keeps defaults" {
				path = "blobxfer.yaml"
				require.NoError(t, util.WriteFile(fs, path, []byte(tt.file), 0o644))
			}
			cfg, err := Load(fs, path, env(tt.env))
			tt.validate(t, cfg, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(memfs.New(), "nope.yaml", nil)
	require.Error(t, err)
	assert.True(t, xferrors.IsConfiguration(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantMsg string
	}{
		{name: "unknown source", mutate: func(c *Config) { c.Source.Store = "ftp" }, wantMsg: "source.store"},
		{name: "minio source without endpoint", mutate: func(c *Config) { c.Source.Store = "minio" }, wantMsg: "source.endpoint"},
		{name: "unknown destination", mutate: func(c *Config) { c.Destination.Store = "s3" }, wantMsg: "destination.store"},
		{name: "minio destination without endpoint", mutate: func(c *Config) { c.Destination.Store = DestMinio }, wantMsg: "destination.endpoint"},
		{name: "threshold too small", mutate: func(c *Config) { c.Transfer.BatchThreshold = 1 }, wantMsg: "batch_threshold"},
		{name: "threshold above gcs limit", mutate: func(c *Config) { c.Transfer.BatchThreshold = 33 }, wantMsg: "exceed 32"},
		{name: "chunk size", mutate: func(c *Config) { c.Transfer.ChunkSize = 0 }, wantMsg: "chunk_size"},
		{name: "concurrency", mutate: func(c *Config) { c.Transfer.Concurrency = -1 }, wantMsg: "concurrency"},
		{name: "attempts", mutate: func(c *Config) { c.Retry.MaxAttempts = 0 }, wantMsg: "max_attempts"},
		{name: "inverted delays", mutate: func(c *Config) { c.Retry.MinDelay = time.Minute }, wantMsg: "exceeds"},
		{name: "no providers", mutate: func(c *Config) { c.Credentials.Providers = nil }, wantMsg: "providers"},
		{name: "unknown provider", mutate: func(c *Config) { c.Credentials.Providers = []string{"vault"} }, wantMsg: "vault"},
		{name: "log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantMsg: "log.format"},
		{name: "parallel", mutate: func(c *Config) { c.Parallel = 0 }, wantMsg: "parallel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, xferrors.IsConfiguration(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	t.Run("threshold above 32 allowed for minio", func(t *testing.T) {
		cfg := Default()
		cfg.Destination = DestinationConfig{Store: DestMinio, Endpoint: "localhost:9000"}
		cfg.Transfer.BatchThreshold = 100
		cfg.Transfer.ChunkSize = 8 * 1024 * 1024
		assert.NoError(t, cfg.Validate())
	})

	t.Run("minio needs 5 MiB chunks", func(t *testing.T) {
		cfg := Default()
		cfg.Destination = DestinationConfig{Store: DestMinio, Endpoint: "localhost:9000"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 5242880")
	})
}

func TestSlogLevel_Fallback(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
