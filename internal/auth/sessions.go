package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"caja/internal/cache"
)

// Sessions maps opaque tokens to principals. Idle sessions expire after the TTL.
type Sessions struct {
	store *cache.LRUCache[Principal]
}

func NewSessions(maxSessions int, ttl time.Duration) *Sessions {
	return &Sessions{store: cache.NewLRUCache[Principal](maxSessions, ttl)}
}

// Create starts a session and returns its token.
func (s *Sessions) Create(p Principal) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	s.store.Set(token, p)
	return token, nil
}

// Lookup returns the session principal and refreshes its expiry.
func (s *Sessions) Lookup(token string) (Principal, bool) {
	if token == "" {
		return Principal{}, false
	}
	return s.store.Touch(token)
}

func (s *Sessions) Destroy(token string) {
	s.store.Delete(token)
}

// Cleaner exposes expiry sweeping to a cache.Manager.
func (s *Sessions) Cleaner() cache.Cleaner {
	return s.store
}
