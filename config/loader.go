package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"gopkg.in/yaml.v3"

	xferrors "github.com/input-output-hk/blobxfer/errors"
)

// EnvPrefix prefixes every configuration environment variable.
const EnvPrefix = "BLOBXFER_"

// LookupFunc returns the value of an environment variable.
type LookupFunc func(key string) (string, bool)

// LoadFile reads path from the local filesystem and applies the process
// environment. An empty path loads defaults plus environment only.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Load(nil, "", os.LookupEnv)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, xferrors.New(xferrors.KindConfiguration, "config.LoadFile", err)
	}
	return Load(osfs.New(filepath.Dir(abs)), filepath.Base(abs), os.LookupEnv)
}

// Load builds a Config from defaults, the YAML file at path on fsys (skipped
// when fsys is nil or path is empty) and the variables returned by lookup.
// The result is validated.
func Load(fsys billy.Filesystem, path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if fsys != nil && path != "" {
		if err := decodeFile(fsys, path, cfg); err != nil {
			return nil, err
		}
	}
	if lookup != nil {
		if err := applyEnv(cfg, lookup); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(fsys billy.Filesystem, path string, cfg *Config) error {
	const op = "config.Load"

	f, err := fsys.Open(path)
	if err != nil {
		return xferrors.New(xferrors.KindConfiguration, op, err).WithObject(path)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return xferrors.New(xferrors.KindConfiguration, op, err).WithObject(path)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return xferrors.New(xferrors.KindConfiguration, op, err).
			WithObject(path).
			WithMessage("invalid configuration file")
	}
	return nil
}

// applyEnv overlays BLOBXFER_* variables.
func applyEnv(cfg *Config, lookup LookupFunc) error {
	var problems []string

	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s%s: %v", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s%s: %v", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s%s: %v", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("SOURCE_STORE", &cfg.Source.Store)
	str("SOURCE_ENDPOINT", &cfg.Source.Endpoint)
	str("SOURCE_REGION", &cfg.Source.Region)
	str("SOURCE_ROOT", &cfg.Source.Root)
	str("DEST_STORE", &cfg.Destination.Store)
	str("DEST_ENDPOINT", &cfg.Destination.Endpoint)

	num("BATCH_THRESHOLD", &cfg.Transfer.BatchThreshold)
	num("CHUNK_SIZE", &cfg.Transfer.ChunkSize)
	num("CONCURRENCY", &cfg.Transfer.Concurrency)
	str("CONTENT_TYPE", &cfg.Transfer.ContentType)
	boolean("DETECT_CONTENT_TYPE", &cfg.Transfer.DetectContentType)

	num("RETRY_MAX_ATTEMPTS", &cfg.Retry.MaxAttempts)
	duration("RETRY_MULTIPLIER", &cfg.Retry.Multiplier)
	duration("RETRY_MIN_DELAY", &cfg.Retry.MinDelay)
	duration("RETRY_MAX_DELAY", &cfg.Retry.MaxDelay)

	if v, ok := lookup(EnvPrefix + "CREDENTIAL_PROVIDERS"); ok && v != "" {
		cfg.Credentials.Providers = splitList(v)
	}
	str("CREDENTIAL_ENV_PREFIX", &cfg.Credentials.EnvPrefix)
	str("AWS_SECRET_PREFIX", &cfg.Credentials.AWSSecretPrefix)
	str("AWS_REGION", &cfg.Credentials.AWSRegion)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("METRICS_ADDR", &cfg.Metrics.Addr)
	num("PARALLEL", &cfg.Parallel)

	if len(problems) > 0 {
		return xferrors.Configuration("config.Load", strings.Join(problems, "; "))
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
