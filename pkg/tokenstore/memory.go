package tokenstore

import (
	"context"
	"sync"
	"time"
)

// defaultSkew is how far before actual expiry a token reads as expired,
// so callers re-mint before a credential dies mid-request.
const defaultSkew = 30 * time.Second

// MemoryStore is an in-memory token store.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]*Token
	skew   time.Duration
}

// NewMemoryStore creates a new in-memory token store with the default
// early-refresh skew.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithSkew(defaultSkew)
}

// NewMemoryStoreWithSkew creates a store that treats tokens expiring
// within skew as already expired.
func NewMemoryStoreWithSkew(skew time.Duration) *MemoryStore {
	return &MemoryStore{tokens: make(map[string]*Token), skew: skew}
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[key] = &Token{
		Key:       key,
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tok, ok := m.tokens[key]
	if !ok {
		return nil, ErrTokenNotFound
	}
	if tok.ExpiresWithin(m.skew) {
		return nil, ErrTokenExpired
	}
	return tok, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, key)
	return nil
}
