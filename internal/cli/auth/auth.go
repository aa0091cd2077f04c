package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/healthpal-ng/healthpal/internal/session"
)

const (
	service = "healthpal"

	// AccessTokenKey and RefreshTokenKey are the fixed storage keys of the token pair
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"

	// TokenLifetime is how long a stored token stays readable
	TokenLifetime = 7 * 24 * time.Hour
)

// envelope is the stored form of a token, carrying its storage expiry
type envelope struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// KeyringStore persists the session token pair in the OS keychain/credential manager.
// Tokens are namespaced per API host so several backends can be used side by side.
type KeyringStore struct {
	host string
	now  func() time.Time
}

// NewKeyringStore creates a token store for the given API host
func NewKeyringStore(host string) *KeyringStore {
	return &KeyringStore{
		host: host,
		now:  time.Now,
	}
}

// getKeyringKey returns the keyring account name for a token key
func (s *KeyringStore) getKeyringKey(key string) string {
	if s.host == "" {
		return key
	}
	return fmt.Sprintf("%s-%s", key, s.host)
}

// GetTokens loads the token pair. Missing or expired entries read as empty.
func (s *KeyringStore) GetTokens() (session.Tokens, error) {
	access, err := s.load(AccessTokenKey)
	if err != nil {
		return session.Tokens{}, err
	}
	refresh, err := s.load(RefreshTokenKey)
	if err != nil {
		return session.Tokens{}, err
	}
	return session.Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

// SetTokens saves both tokens. If either write fails nothing is left behind.
func (s *KeyringStore) SetTokens(tokens session.Tokens) error {
	if !tokens.Complete() {
		return errors.New("refusing to save incomplete token pair")
	}

	if err := s.save(AccessTokenKey, tokens.AccessToken); err != nil {
		_ = s.Clear()
		return err
	}
	if err := s.save(RefreshTokenKey, tokens.RefreshToken); err != nil {
		_ = s.Clear()
		return err
	}
	return nil
}

// Clear removes both tokens
func (s *KeyringStore) Clear() error {
	if err := s.delete(AccessTokenKey); err != nil {
		return err
	}
	return s.delete(RefreshTokenKey)
}

func (s *KeyringStore) save(key, value string) error {
	data, err := json.Marshal(envelope{
		Value:     value,
		ExpiresAt: s.now().Add(TokenLifetime).UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	if err := keyring.Set(service, s.getKeyringKey(key), string(data)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *KeyringStore) load(key string) (string, error) {
	raw, err := keyring.Get(service, s.getKeyringKey(key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		// Unreadable entries are dropped rather than trusted
		_ = s.delete(key)
		return "", nil
	}

	if !env.ExpiresAt.IsZero() && !s.now().Before(env.ExpiresAt) {
		_ = s.delete(key)
		return "", nil
	}

	return env.Value, nil
}

func (s *KeyringStore) delete(key string) error {
	if err := keyring.Delete(service, s.getKeyringKey(key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
