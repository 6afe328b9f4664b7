package llm

import (
	"strings"
	"sync"

	"github.com/lingualens/lingualens/internal/explain"
)

// Source hands out clients built from the currently stored credentials.
// The credential may be configured at boot from the environment or stored
// later through the API; either way callers always get a client reflecting
// the latest state.
type Source struct {
	mu  sync.RWMutex
	cfg Config
}

func NewSource(cfg Config) *Source {
	return &Source{cfg: cfg}
}

// StoreCredentials replaces the API key and, when non-empty, the base URL.
func (s *Source) StoreCredentials(apiKey string, baseURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.APIKey = strings.TrimSpace(apiKey)
	if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
		s.cfg.BaseURL = trimmed
	}
}

// Configured reports whether an API key is present.
func (s *Source) Configured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.APIKey != ""
}

// Client returns a client for the current credentials, or a
// MissingCredential failure when no key is configured.
func (s *Source) Client() (*Client, error) {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	if cfg.APIKey == "" {
		return nil, explain.NewError(explain.FailMissingCredential, "no API key is configured")
	}
	client, err := NewClient(&cfg)
	if err != nil {
		return nil, explain.WrapError(explain.FailMissingCredential, "invalid client configuration", err)
	}
	return client, nil
}
