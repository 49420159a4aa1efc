package marketapi

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// Credentials are the two secrets needed to sign private calls.
type Credentials struct {
	PublicKey  string `yaml:"public_key" toml:"public_key" json:"-"`
	PrivateKey string `yaml:"private_key" toml:"private_key" json:"-"`
}

// Complete reports whether both values are present.
func (c Credentials) Complete() bool {
	return c.PublicKey != "" && c.PrivateKey != ""
}

func (c Credentials) validate() error {
	var missing []string
	if c.PublicKey == "" {
		missing = append(missing, "public key")
	}
	if c.PrivateKey == "" {
		missing = append(missing, "private key")
	}
	if len(missing) > 0 {
		return &ConfigError{Reason: ErrMissingCredentials.Error(), Missing: missing}
	}
	return nil
}

// CredentialSource reads credentials from the process configuration.
// It is called again on every reload, so it must not cache.
type CredentialSource func() (Credentials, error)

// EnvSource reads credentials from two environment variables.
func EnvSource(publicVar, privateVar string) CredentialSource {
	return func() (Credentials, error) {
		return Credentials{
			PublicKey:  os.Getenv(publicVar),
			PrivateKey: os.Getenv(privateVar),
		}, nil
	}
}

// StaticSource always returns the same credentials.
func StaticSource(c Credentials) CredentialSource {
	return func() (Credentials, error) { return c, nil }
}

// CredentialStore holds the current credential snapshot.
//
// Readers get an immutable snapshot through an atomic pointer, so signing never takes a lock.
// Reload and Set are the only writers; a request that already loaded its snapshot keeps signing
// with it even if a reload lands meanwhile.
type CredentialStore struct {
	source  CredentialSource
	current atomic.Pointer[Credentials]
	mu      sync.Mutex // serialises writers
}

// NewCredentialStore creates a store backed by src. Nothing is read until the first Load.
func NewCredentialStore(src CredentialSource) *CredentialStore {
	return &CredentialStore{source: src}
}

// Load returns the current credentials. An absent or incomplete snapshot triggers a re-read of
// the source, so keys configured after start are picked up. Missing values yield a *ConfigError.
func (s *CredentialStore) Load() (Credentials, error) {
	if c := s.current.Load(); c != nil && c.Complete() {
		return *c, nil
	}
	if err := s.Reload(); err != nil {
		return Credentials{}, err
	}
	c := s.current.Load()
	if err := c.validate(); err != nil {
		return Credentials{}, err
	}
	return *c, nil
}

// Reload re-reads the source and swaps in the result, complete or not.
func (s *CredentialStore) Reload() error {
	if s.source == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.current.Load() == nil {
			s.current.Store(&Credentials{})
		}
		return nil
	}

	c, err := s.source()
	if err != nil {
		return fmt.Errorf("marketapi: read credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(&c)
	return nil
}

// Set replaces the snapshot explicitly.
func (s *CredentialStore) Set(c Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(&c)
}
