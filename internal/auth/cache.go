package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// TokenCache remembers resolved access tokens for a short time so every
// request does not hit Discord. Tokens are stored hashed.
type TokenCache struct {
	mu   sync.RWMutex
	ttl  time.Duration
	now  func() time.Time
	data map[string]cacheEntry
}

type cacheEntry struct {
	identity  Identity
	expiresAt time.Time
}

// NewTokenCache creates a cache whose entries live for ttl
func NewTokenCache(ttl time.Duration) *TokenCache {
	return &TokenCache{
		ttl:  ttl,
		now:  time.Now,
		data: make(map[string]cacheEntry),
	}
}

// Get retrieves a live identity for token
func (c *TokenCache) Get(token string) (Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.data[hashToken(token)]
	if !ok || !c.now().Before(e.expiresAt) {
		return Identity{}, false
	}
	return e.identity, true
}

// Set stores identity for token
func (c *TokenCache) Set(token string, identity Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	// Drop expired entries
	for k, e := range c.data {
		if !now.Before(e.expiresAt) {
			delete(c.data, k)
		}
	}
	c.data[hashToken(token)] = cacheEntry{identity: identity, expiresAt: now.Add(c.ttl)}
}


func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
