package store

import (
	"crypto/subtle"

	"github.com/ayonizm/folio/internal/model"
)

// authMarker is the literal truthy value of the session flag. A session
// is authenticated if and only if the flag is present and equals this
// marker exactly.
const authMarker = "true"

// Login checks a password against the configured admin secret and sets
// the session flag on success. A mismatch never sets the flag and is
// retryable without lockout.
func (s *Store) Login(password string) bool {
	if s.adminPassword == "" {
		s.logger.Printf("Login rejected: no admin password configured")
		return false
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) != 1 {
		return false
	}
	if err := s.cache.Put(model.KeyAuth, authMarker); err != nil {
		s.logger.Printf("Error persisting auth flag: %v", err)
		return false
	}
	return true
}

// Logout clears the session flag.
func (s *Store) Logout() {
	if err := s.cache.Delete(model.KeyAuth); err != nil {
		s.logger.Printf("Error clearing auth flag: %v", err)
	}
}

// IsAuthenticated reports whether the session flag holds the marker.
func (s *Store) IsAuthenticated() bool {
	value, ok, err := s.cache.Get(model.KeyAuth)
	if err != nil {
		s.logger.Printf("Error reading auth flag: %v", err)
		return false
	}
	return ok && value == authMarker
}
