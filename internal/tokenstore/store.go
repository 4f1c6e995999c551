// Package tokenstore persists the platform access credential.
//
// One JSON file holds one credential. Reads apply a five-minute expiry
// buffer so a token is never handed out that could lapse mid-upload;
// malformed or expiring state is deleted and reported as absence.
package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExpiryBuffer is subtracted from the credential lifetime on read. A token
// inside the buffer is treated as already expired.
const ExpiryBuffer = 5 * time.Minute

// Credential is a bearer access token with an absolute expiry.
type Credential struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Valid reports whether the credential survives the expiry buffer at the
// given instant.
func (c Credential) Valid(now time.Time) bool {
	return strings.TrimSpace(c.AccessToken) != "" && c.ExpiresAt.After(now.Add(ExpiryBuffer))
}

// storedCredential is the persisted wire form: epoch milliseconds keep the
// file compatible with what the platform's web clients write.
type storedCredential struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// Store reads and writes the credential file.
type Store struct {
	path string
	now  func() time.Time
}

// Option customises Store construction.
type Option func(*Store)

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a Store rooted at the provided file path.
func New(path string, opts ...Option) *Store {
	store := &Store{path: path, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Get returns the persisted credential, or nil when it is absent, malformed,
// or within the expiry buffer. Malformed and expiring state is deleted first;
// Get never fails.
func (s *Store) Get() *Credential {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}

	var stored storedCredential
	if err := json.Unmarshal(data, &stored); err != nil {
		_ = s.Remove()
		return nil
	}

	credential := Credential{
		AccessToken: stored.AccessToken,
		ExpiresAt:   time.UnixMilli(stored.ExpiresAt),
	}
	if !credential.Valid(s.now()) {
		_ = s.Remove()
		return nil
	}
	return &credential
}

// Set overwrites the persisted credential unconditionally.
func (s *Store) Set(credential Credential) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure credential directory: %w", err)
	}

	stored := storedCredential{
		AccessToken: credential.AccessToken,
		ExpiresAt:   credential.ExpiresAt.UnixMilli(),
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	return nil
}

// Remove deletes the persisted credential. Removing an absent credential is
// not an error.
func (s *Store) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}
