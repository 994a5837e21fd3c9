package credentials

import (
	"context"
	"fmt"
	"os"
)

// EnvProvider reads secrets from environment variables.
type EnvProvider struct {
	prefix string
	lookup func(string) (string, bool)
}

// EnvOption configures an EnvProvider.
type EnvOption func(*EnvProvider)

// WithPrefix prepends prefix to every key before lookup.
func WithPrefix(prefix string) EnvOption {
	return func(p *EnvProvider) {
		p.prefix = prefix
	}
}

// WithLookupFunc replaces os.LookupEnv. Used by tests.
func WithLookupFunc(fn func(string) (string, bool)) EnvOption {
	return func(p *EnvProvider) {
		p.lookup = fn
	}
}

// NewEnv creates an environment provider.
func NewEnv(opts ...EnvOption) *EnvProvider {
	p := &EnvProvider{lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *EnvProvider) Name() string {
	return "env"
}

// Lookup implements Provider.
func (p *EnvProvider) Lookup(_ context.Context, key string) (*Secret, error) {
	name := p.prefix + key
	v, ok := p.lookup(name)
	if !ok {
		return nil, fmt.Errorf("env %s: %w", name, ErrNotFound)
	}
	if v == "" {
		return nil, fmt.Errorf("env %s: %w", name, ErrEmpty)
	}
	return NewSecret([]byte(v)), nil
}
