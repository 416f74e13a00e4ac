// Package httpserver provides the launcher's remote-control HTTP API.
//
// Requests carry an HS256-signed JWT as bearer token. The token's subject names the
// caller for per-user rate limiting; tokens without an expiration are rejected.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// userContextKey is the type for the authenticated user context key
type userContextKey struct{}

// WithUser creates a context that carries the authenticated token subject
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the authenticated user from the context
func UserFromContext(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(userContextKey{}).(string)
	return user, ok
}

// TokenCacheEntry represents a verified token
type TokenCacheEntry struct {
	Token       string
	Username    string // Subject of the JWT (for rate limiting)
	Expiration  time.Time
	expiryTimer *time.Timer
}

// TokenCache remembers verified tokens until they expire
type TokenCache struct {
	mu      sync.RWMutex
	entries map[string]*TokenCacheEntry // key is the token string
}

// NewTokenCache creates a new token cache
func NewTokenCache() *TokenCache {
	return &TokenCache{
		entries: make(map[string]*TokenCacheEntry),
	}
}

// Add stores a verified token and schedules its removal at expiration
func (tc *TokenCache) Add(token, username string, expiration time.Time) *TokenCacheEntry {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if entry, exists := tc.entries[token]; exists {
		return entry
	}

	entry := &TokenCacheEntry{
		Token:      token,
		Username:   username,
		Expiration: expiration,
	}
	entry.expiryTimer = time.AfterFunc(time.Until(expiration), func() {
		tc.Remove(token)
	})
	tc.entries[token] = entry
	return entry
}

// Get retrieves a token cache entry if it exists and is not expired
func (tc *TokenCache) Get(token string) (*TokenCacheEntry, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	entry, exists := tc.entries[token]
	if !exists || time.Now().After(entry.Expiration) {
		return nil, false
	}
	return entry, true
}

// Remove removes a token from the cache and cancels its expiry timer
func (tc *TokenCache) Remove(token string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	entry, exists := tc.entries[token]
	if !exists {
		return
	}
	if entry.expiryTimer != nil {
		entry.expiryTimer.Stop()
	}
	delete(tc.entries, token)
}

// Clear removes every token
func (tc *TokenCache) Clear() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	for token, entry := range tc.entries {
		if entry.expiryTimer != nil {
			entry.expiryTimer.Stop()
		}
		delete(tc.entries, token)
	}
}

// Size returns the number of cached tokens
func (tc *TokenCache) Size() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return len(tc.entries)
}

// Authenticator verifies bearer tokens against the launcher's signing key
type Authenticator struct {
	key   []byte
	cache *TokenCache
}

// NewAuthenticator creates an Authenticator for HS256 tokens signed with key
func NewAuthenticator(key []byte) *Authenticator {
	return &Authenticator{key: key, cache: NewTokenCache()}
}

// Authenticate verifies token and returns its subject
func (a *Authenticator) Authenticate(token string) (string, error) {
	if token == "" {
		return "", errors.New("empty token provided")
	}
	if entry, ok := a.cache.Get(token); ok {
		return entry.Username, nil
	}

	username, expiration, err := a.parseJWTClaims(token)
	if err != nil {
		return "", err
	}
	a.cache.Add(token, username, expiration)
	return username, nil
}

// Close forgets every cached token
func (a *Authenticator) Close() {
	a.cache.Clear()
}

// parseJWTClaims verifies the signature of token and extracts subject and expiration
func (a *Authenticator) parseJWTClaims(token string) (username string, expiration time.Time, err error) {
	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid token: %w", err)
	}

	if claims.Subject == "" {
		return "", time.Time{}, fmt.Errorf("JWT missing sub claim")
	}
	return claims.Subject, claims.ExpiresAt.Time, nil
}

// GenerateToken creates an HS256 token for subject that is valid for ttl
func GenerateToken(subject string, key []byte, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "toxikk-launcher",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
