package credentials

import (
	"context"
	"fmt"
	"sync"
)

// MemoryProvider holds secrets in memory. It is intended for tests and dry runs.
type MemoryProvider struct {
	mu      sync.RWMutex
	secrets map[string][]byte
}

// NewMemory creates a provider preloaded with values.
func NewMemory(values map[string]string) *MemoryProvider {
	p := &MemoryProvider{secrets: make(map[string][]byte, len(values))}
	for k, v := range values {
		p.secrets[k] = []byte(v)
	}
	return p
}

// Name implements Provider.
func (p *MemoryProvider) Name() string {
	return "memory"
}

// Set stores value under key.
func (p *MemoryProvider) Set(key string, value []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.secrets[key] = append([]byte(nil), value...)
}

// Lookup implements Provider.
func (p *MemoryProvider) Lookup(_ context.Context, key string) (*Secret, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.secrets[key]
	if !ok {
		return nil, fmt.Errorf("memory %s: %w", key, ErrNotFound)
	}
	return NewSecret(v), nil
}
