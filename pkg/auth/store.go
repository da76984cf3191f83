// Package auth provides the client-side auth token store.
//
// The store holds the current bearer token and notifies registered
// listeners whenever it changes, so long-lived components (the realtime
// stream, the interactive CLI) can react to sign-in and sign-out. It
// implements transport.TokenSource.
//
// Persistence is pluggable through the Backend interface and deliberately
// format-free; the store only ever hands a Backend the opaque token string.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Backend persists the token across process restarts.
// Implementations decide where and how the token is stored.
type Backend interface {
	// Load returns the previously saved token, or "" when none exists.
	Load() (string, error)

	// Save persists the token. An empty token means "cleared".
	Save(token string) error
}

// Store holds the current auth token and fans out change notifications.
// It is safe for concurrent use. The zero value is usable.
type Store struct {
	mu        sync.RWMutex
	token     string
	backend   Backend
	listeners map[int]func(token string)
	nextID    int
}

// NewStore creates an empty in-memory token store.
func NewStore() *Store {
	return &Store{}
}

// NewStoreWithBackend creates a store that loads its initial token from
// backend and writes every change back to it. Backend errors on load are
// ignored; the store starts empty.
func NewStoreWithBackend(backend Backend) *Store {
	s := &Store{backend: backend}
	if token, err := backend.Load(); err == nil {
		s.token = token
	}
	return s
}

// Token returns the current token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Save stores a new token and notifies listeners.
func (s *Store) Save(token string) {
	s.update(token)
}

// Clear removes the current token and notifies listeners.
func (s *Store) Clear() {
	s.update("")
}

// Valid reports whether a token is present and, if it is a JWT with an
// exp claim, not yet expired. The signature is not verified; validity
// here only gates whether a request is worth sending.
func (s *Store) Valid() bool {
	token := s.Token()
	if token == "" {
		return false
	}

	exp, ok := tokenExpiry(token)
	if !ok {
		// Not a parseable JWT; assume the server will judge it
		return true
	}
	return time.Now().Before(exp)
}

// OnChange registers a listener invoked with the new token on every change.
// When fireImmediately is true the listener is also invoked right away with
// the current token. The returned function removes the listener.
func (s *Store) OnChange(fn func(token string), fireImmediately bool) func() {
	s.mu.Lock()
	if s.listeners == nil {
		s.listeners = make(map[int]func(token string))
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	current := s.token
	s.mu.Unlock()

	if fireImmediately {
		fn(current)
	}

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// update sets the token, persists it, and notifies listeners outside the lock.
func (s *Store) update(token string) {
	s.mu.Lock()
	if s.token == token {
		s.mu.Unlock()
		return
	}
	s.token = token
	backend := s.backend
	listeners := make([]func(string), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	if backend != nil {
		// Persistence errors must not block the in-memory state change
		_ = backend.Save(token)
	}
	for _, fn := range listeners {
		fn(token)
	}
}

// tokenExpiry extracts the exp claim from a JWT without verification.
func tokenExpiry(token string) (time.Time, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return time.Time{}, false
	}

	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil || claims.Exp == 0 {
		return time.Time{}, false
	}

	return time.Unix(claims.Exp, 0), true
}
