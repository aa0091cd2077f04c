package auth

import (
	"sync"

	"github.com/healthpal-ng/healthpal/internal/session"
)

// MemoryStore keeps the token pair in process memory only.
// Used with --no-keyring and on hosts without a credential manager.
type MemoryStore struct {
	mu     sync.Mutex
	tokens session.Tokens
}

// NewMemoryStore creates an empty in-memory token store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) GetTokens() (session.Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens, nil
}

func (m *MemoryStore) SetTokens(tokens session.Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = tokens
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = session.Tokens{}
	return nil
}
