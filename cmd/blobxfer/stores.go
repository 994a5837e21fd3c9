package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/input-output-hk/blobxfer/config"
	"github.com/input-output-hk/blobxfer/credentials"
	"github.com/input-output-hk/blobxfer/dest/gcs"
	"github.com/input-output-hk/blobxfer/dest/memory"
	destminio "github.com/input-output-hk/blobxfer/dest/minio"
	xferrors "github.com/input-output-hk/blobxfer/errors"
	"github.com/input-output-hk/blobxfer/internal/minioclient"
	"github.com/input-output-hk/blobxfer/source/azure"
	"github.com/input-output-hk/blobxfer/source/file"
	sourceminio "github.com/input-output-hk/blobxfer/source/minio"
	"github.com/input-output-hk/blobxfer/source/s3"
	"github.com/input-output-hk/blobxfer/storeapi"
	"github.com/input-output-hk/blobxfer/xfertypes"
)

// stores builds the source and destination handles named by the configuration.
type stores struct {
	cfg      *config.Config
	resolver *credentials.Resolver
	logger   *slog.Logger
	dryRun   bool
}

func newResolver(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*credentials.Resolver, error) {
	providers := make([]credentials.Provider, 0, len(cfg.Credentials.Providers))
	for _, name := range cfg.Credentials.Providers {
		switch name {
		case config.ProviderEnv:
			providers = append(providers, credentials.NewEnv(credentials.WithPrefix(cfg.Credentials.EnvPrefix)))
		case config.ProviderAWS:
			p, err := credentials.NewAWS(ctx,
				credentials.WithRegion(cfg.Credentials.AWSRegion),
				credentials.WithSecretPrefix(cfg.Credentials.AWSSecretPrefix),
				credentials.WithLogger(logger))
			if err != nil {
				return nil, xferrors.New(xferrors.KindConfiguration, "credentials", err)
			}
			providers = append(providers, p)
		default:
			return nil, xferrors.Configuration("credentials", fmt.Sprintf("unknown provider %q", name))
		}
	}
	return credentials.NewResolver(logger, providers...), nil
}

// secret resolves key. A missing optional key returns nil without error.
func (s *stores) secret(ctx context.Context, key string, required bool) (*credentials.Secret, error) {
	secret, err := s.resolver.Resolve(ctx, key)
	if err == nil {
		return secret, nil
	}
	if !required && errors.Is(err, credentials.ErrNotFound) {
		return nil, nil
	}
	return nil, xferrors.New(xferrors.KindConfiguration, "credentials", err).WithMessage("failed to resolve " + key)
}

// keyPair splits an "ACCESS:SECRET" credential. A nil secret yields empty keys.
func keyPair(secret *credentials.Secret) (string, string, error) {
	if secret == nil {
		return "", "", nil
	}
	defer secret.Zero()
	access, key, ok := strings.Cut(secret.Reveal(), ":")
	if !ok || access == "" || key == "" {
		return "", "", xferrors.Configuration("credentials", "key pair must have the form ACCESS:SECRET")
	}
	return access, key, nil
}

func (s *stores) source(ctx context.Context) (storeapi.Source, error) {
	src := s.cfg.Source
	key := s.cfg.Credentials.SourceKey

	switch src.Store {
	case xfertypes.StoreAzure:
		secret, err := s.secret(ctx, key, true)
		if err != nil {
			return nil, err
		}
		defer secret.Zero()
		store, err := azure.NewFromConnectionString(secret.Reveal())
		if err != nil {
			return nil, err
		}
		return store, nil

	case xfertypes.StoreS3:
		var opts []s3.Option
		if src.Region != "" {
			opts = append(opts, s3.WithRegion(src.Region))
		}
		if src.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(src.Endpoint))
		}
		secret, err := s.secret(ctx, key, false)
		if err != nil {
			return nil, err
		}
		if secret != nil {
			access, secretKey, err := keyPair(secret)
			if err != nil {
				return nil, err
			}
			opts = append(opts, s3.WithStaticCredentials(access, secretKey))
		}
		store, err := s3.New(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil

	case xfertypes.StoreMinio:
		cfg, err := s.minioConfig(ctx, key, src.Endpoint, src.Secure, src.Region)
		if err != nil {
			return nil, err
		}
		store, err := sourceminio.New(cfg)
		if err != nil {
			return nil, err
		}
		return store, nil

	case xfertypes.StoreFile:
		root := src.Root
		if root == "" {
			root = "."
		}
		if _, err := os.Stat(root); err != nil {
			return nil, xferrors.New(xferrors.KindConfiguration, "source", err).WithMessage("invalid file root")
		}
		return file.NewOS(root), nil

	default:
		return nil, xferrors.Configuration("source", fmt.Sprintf("unsupported store %q", src.Store))
	}
}

// destination returns the store for projectID and a function releasing it.
func (s *stores) destination(ctx context.Context, projectID string) (storeapi.Destination, func() error, error) {
	noop := func() error { return nil }
	dst := s.cfg.Destination

	if s.dryRun || dst.Store == config.DestMemory {
		return memory.New(), noop, nil
	}

	switch dst.Store {
	case config.DestGCS:
		secret, err := s.secret(ctx, s.cfg.Credentials.DestinationKey, true)
		if err != nil {
			return nil, nil, err
		}
		defer secret.Zero()

		opts := []gcs.Option{
			gcs.WithCredentialsJSON(secret.Bytes()),
			gcs.WithProjectID(projectID),
			gcs.WithLogger(s.logger),
		}
		if dst.Endpoint != "" {
			opts = append(opts, gcs.WithEndpoint(dst.Endpoint))
		}
		store, err := gcs.New(ctx, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	case config.DestMinio:
		cfg, err := s.minioConfig(ctx, s.cfg.Credentials.DestinationKey, dst.Endpoint, dst.Secure, "")
		if err != nil {
			return nil, nil, err
		}
		store, err := destminio.New(cfg, destminio.WithLogger(s.logger))
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	default:
		return nil, nil, xferrors.Configuration("destination", fmt.Sprintf("unsupported store %q", dst.Store))
	}
}

func (s *stores) minioConfig(ctx context.Context, key, endpoint string, secure bool, region string) (minioclient.Config, error) {
	secret, err := s.secret(ctx, key, false)
	if err != nil {
		return minioclient.Config{}, err
	}
	access, secretKey, err := keyPair(secret)
	if err != nil {
		return minioclient.Config{}, err
	}
	return minioclient.Config{
		Endpoint:  endpoint,
		AccessKey: access,
		SecretKey: secretKey,
		Secure:    secure,
		Region:    region,
	}, nil
}
