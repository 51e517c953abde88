// Package tokenstore persists the Railway API token.
//
// The token is an opaque string. An empty token means railpulse is
// unconfigured; Load never treats a missing token as an error.
package tokenstore

import (
	"errors"
	"strings"
	"sync"
)

// ErrEmptyToken is returned by Save when given a blank token.
var ErrEmptyToken = errors.New("token must not be empty")

// Store loads and saves the API token.
type Store interface {
	// Load returns the stored token, or "" if none is stored.
	Load() (string, error)

	// Save replaces the stored token.
	Save(token string) error
}

// StaticStore holds a token in memory. It backs tokens supplied directly via
// config or the SDK.
type StaticStore struct {
	mu    sync.RWMutex
	token string
}

// NewStaticStore returns a StaticStore holding token.
func NewStaticStore(token string) *StaticStore {
	return &StaticStore{token: strings.TrimSpace(token)}
}

func (s *StaticStore) Load() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *StaticStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}
