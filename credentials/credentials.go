// Package credentials resolves the secrets a transfer needs (the Azure
// connection string and the GCP service account key) from an ordered chain
// of providers.
//
// Secret values are never logged: Secret implements slog.LogValuer and
// fmt.Stringer with a redacted form.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Well-known keys, matching the Azure Functions app settings.
const (
	// AzureConnectionKey holds the source storage account connection string
	AzureConnectionKey = "AzureWebJobsStorage"

	// GCPCredentialsKey holds the destination service account key JSON
	GCPCredentialsKey = "GCP_CREDS"
)

var (
	// ErrNotFound is returned when a provider has no value for a key.
	ErrNotFound = errors.New("credentials: not found")

	// ErrEmpty is returned when a key exists but its value is empty.
	ErrEmpty = errors.New("credentials: empty value")

	// ErrAccessDenied is returned when a provider refuses access to a key.
	ErrAccessDenied = errors.New("credentials: access denied")
)

const redacted = "[REDACTED]"

// Secret holds a sensitive value.
type Secret struct {
	value []byte
}

// NewSecret copies value into a Secret.
func NewSecret(value []byte) *Secret {
	return &Secret{value: append([]byte(nil), value...)}
}

// Bytes returns a copy of the value.
func (s *Secret) Bytes() []byte {
	return append([]byte(nil), s.value...)
}

// Reveal returns the value as a string.
func (s *Secret) Reveal() string {
	return string(s.value)
}

// Zero overwrites the value in place.
func (s *Secret) Zero() {
	clear(s.value)
	s.value = nil
}

// String implements fmt.Stringer without exposing the value.
func (s *Secret) String() string {
	return redacted
}

// LogValue implements slog.LogValuer without exposing the value.
func (s *Secret) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// Provider looks up secrets by key.
type Provider interface {
	// Name identifies the provider in logs and errors
	Name() string

	// Lookup returns the secret for key, or an error wrapping ErrNotFound
	Lookup(ctx context.Context, key string) (*Secret, error)
}

// Resolver queries providers in order and returns the first value found.
type Resolver struct {
	providers []Provider
	logger    *slog.Logger
}

// NewResolver creates a resolver over providers. A nil logger disables logging.
func NewResolver(logger *slog.Logger, providers ...Provider) *Resolver {
	return &Resolver{providers: providers, logger: logger}
}

// Resolve returns the first value any provider holds for key. Providers that
// report ErrNotFound are skipped; any other error stops the search.
func (r *Resolver) Resolve(ctx context.Context, key string) (*Secret, error) {
	if key == "" {
		return nil, fmt.Errorf("credentials: key cannot be empty")
	}

	for _, p := range r.providers {
		secret, err := p.Lookup(ctx, key)
		switch {
		case err == nil:
			if r.logger != nil {
				r.logger.DebugContext(ctx, "credential resolved", "key", key, "provider", p.Name())
			}
			return secret, nil
		case errors.Is(err, ErrNotFound):
			continue
		default:
			if r.logger != nil {
				r.logger.ErrorContext(ctx, "credential lookup failed", "key", key, "provider", p.Name(), "error", err)
			}
			return nil, fmt.Errorf("credentials: %s lookup of %s: %w", p.Name(), key, err)
		}
	}

	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return nil, fmt.Errorf("credentials: %s not found in [%s]: %w", key, strings.Join(names, ", "), ErrNotFound)
}

// ResolveAll resolves every key. It fails on the first missing key.
func (r *Resolver) ResolveAll(ctx context.Context, keys ...string) (map[string]*Secret, error) {
	out := make(map[string]*Secret, len(keys))
	for _, key := range keys {
		secret, err := r.Resolve(ctx, key)
		if err != nil {
			return nil, err
		}
		out[key] = secret
	}
	return out, nil
}
