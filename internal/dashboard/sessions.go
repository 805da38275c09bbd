package dashboard

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

const sessionTTL = 24 * time.Hour

// sessionStore holds opaque admin session tokens in memory. Sessions
// do not survive a restart; the admin just logs in again.
type sessionStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

func newSessionStore() *sessionStore {
	return &sessionStore{tokens: make(map[string]time.Time)}
}

func (ss *sessionStore) create() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("failed to read random bytes: " + err.Error())
	}
	token := hex.EncodeToString(buf)

	ss.mu.Lock()
	ss.tokens[token] = time.Now().Add(sessionTTL)
	ss.mu.Unlock()
	return token
}

func (ss *sessionStore) valid(token string) bool {
	if token == "" {
		return false
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	expiry, ok := ss.tokens[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(ss.tokens, token)
		return false
	}
	return true
}

func (ss *sessionStore) revoke(token string) {
	ss.mu.Lock()
	delete(ss.tokens, token)
	ss.mu.Unlock()
}
