// Package ratelimit throttles the remote-control API and workshop downloads.
// API requests use a global plus per-user token bucket; downloads share a byte-rate bucket.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/time/rate"
)

// Error represents a rate limiting error
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	var rateLimitErr *Error
	return errors.As(err, &rateLimitErr)
}

// Limiter provides rate limiting with both global and per-user limits
type Limiter struct {
	globalLimiter *rate.Limiter
	userLimiters  map[string]*rate.Limiter
	mu            sync.RWMutex
	perUserRate   float64
	perUserBurst  int
}

// NewLimiter creates a new rate limiter with specified rates
// globalRate: requests per second for all requests (0 = unlimited)
// perUserRate: requests per second per user (0 = unlimited)
func NewLimiter(globalRate, perUserRate float64) *Limiter {
	var globalLimiter *rate.Limiter
	if globalRate > 0 {
		globalLimiter = rate.NewLimiter(rate.Limit(globalRate), burstFor(globalRate))
	}

	perUserBurst := 1
	if perUserRate > 0 {
		perUserBurst = burstFor(perUserRate)
	}

	return &Limiter{
		globalLimiter: globalLimiter,
		userLimiters:  make(map[string]*rate.Limiter),
		perUserRate:   perUserRate,
		perUserBurst:  perUserBurst,
	}
}

// burstFor allows short bursts of twice the rate
func burstFor(r float64) int {
	return max(1, int(r*2))
}

// getUserLimiter gets or creates a rate limiter for a specific user
func (l *Limiter) getUserLimiter(username string) *rate.Limiter {
	if l.perUserRate <= 0 {
		return nil
	}

	l.mu.RLock()
	limiter, exists := l.userLimiters[username]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.userLimiters[username]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(l.perUserRate), l.perUserBurst)
	l.userLimiters[username] = limiter
	return limiter
}

// Allow checks if a request from the given username should be allowed
// Returns an error if rate limit is exceeded
func (l *Limiter) Allow(username string) error {
	if username == "" {
		username = "anonymous"
	}

	if l.globalLimiter != nil && !l.globalLimiter.Allow() {
		return &Error{Message: "global rate limit exceeded"}
	}

	if userLimiter := l.getUserLimiter(username); userLimiter != nil && !userLimiter.Allow() {
		return &Error{Message: fmt.Sprintf("rate limit exceeded for user %s", username)}
	}

	return nil
}

// Wait blocks until a request from the given username is allowed or context is cancelled
func (l *Limiter) Wait(ctx context.Context, username string) error {
	if username == "" {
		username = "anonymous"
	}

	if l.globalLimiter != nil {
		if err := l.globalLimiter.Wait(ctx); err != nil {
			return &Error{Message: fmt.Sprintf("global rate limit wait cancelled: %v", err)}
		}
	}

	if userLimiter := l.getUserLimiter(username); userLimiter != nil {
		if err := userLimiter.Wait(ctx); err != nil {
			return &Error{Message: fmt.Sprintf("rate limit wait cancelled for user %s: %v", username, err)}
		}
	}

	return nil
}

// Reset clears all per-user rate limiters
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.userLimiters = make(map[string]*rate.Limiter)
}

// Stats returns statistics about the rate limiter
type Stats struct {
	GlobalRate   float64
	PerUserRate  float64
	UserCount    int
	GlobalTokens float64
	GlobalBurst  int
	PerUserBurst int
}

// GetStats returns current statistics about the rate limiter
func (l *Limiter) GetStats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := Stats{
		PerUserRate:  l.perUserRate,
		PerUserBurst: l.perUserBurst,
		UserCount:    len(l.userLimiters),
	}

	if l.globalLimiter != nil {
		stats.GlobalRate = float64(l.globalLimiter.Limit())
		stats.GlobalBurst = l.globalLimiter.Burst()
		stats.GlobalTokens = l.globalLimiter.Tokens()
	}

	return stats
}

// ByteLimiter throttles the combined throughput of concurrent downloads
type ByteLimiter struct {
	limiter *rate.Limiter
}

// NewByteLimiter creates a limiter for bytesPerSecond (0 = unlimited)
func NewByteLimiter(bytesPerSecond float64) *ByteLimiter {
	if bytesPerSecond <= 0 {
		return &ByteLimiter{}
	}
	return &ByteLimiter{limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), max(int(bytesPerSecond), readChunk))}
}

// Rate returns the configured limit in bytes per second, 0 when unlimited
func (b *ByteLimiter) Rate() float64 {
	if b == nil || b.limiter == nil {
		return 0
	}
	return float64(b.limiter.Limit())
}

// readChunk bounds a single throttled read so it never exceeds the bucket size
const readChunk = 32 * 1024

// Reader wraps r so that reads wait for byte tokens. A nil or unlimited ByteLimiter returns r.
func (b *ByteLimiter) Reader(ctx context.Context, r io.Reader) io.Reader {
	if b == nil || b.limiter == nil {
		return r
	}
	return &throttledReader{ctx: ctx, r: r, limiter: b.limiter}
}

type throttledReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

func (t *throttledReader) Read(p []byte) (int, error) {
	if len(p) > readChunk {
		p = p[:readChunk]
	}
	n, err := t.r.Read(p)
	if n > 0 {
		if werr := t.limiter.WaitN(t.ctx, n); werr != nil {
			return n, &Error{Message: fmt.Sprintf("download throttle cancelled: %v", werr)}
		}
	}
	return n, err
}

// Manager holds the limiters of the launcher's network surfaces
type Manager struct {
	apiLimiter *Limiter
	downloads  *ByteLimiter
}

// NewManager creates a new rate limiter manager
func NewManager(apiGlobalRate, apiPerUserRate, downloadBytesPerSecond float64) *Manager {
	return &Manager{
		apiLimiter: NewLimiter(apiGlobalRate, apiPerUserRate),
		downloads:  NewByteLimiter(downloadBytesPerSecond),
	}
}

// AllowAPI checks if an API request from the given username should be allowed
func (m *Manager) AllowAPI(username string) error {
	return m.apiLimiter.Allow(username)
}

// WaitAPI blocks until an API request from the given username is allowed
func (m *Manager) WaitAPI(ctx context.Context, username string) error {
	return m.apiLimiter.Wait(ctx, username)
}

// Downloads returns the shared download throttle
func (m *Manager) Downloads() *ByteLimiter {
	return m.downloads
}

// GetAPIStats returns statistics for the API rate limiter
func (m *Manager) GetAPIStats() Stats {
	return m.apiLimiter.GetStats()
}

// ResetAll resets all per-user rate limiters
func (m *Manager) ResetAll() {
	m.apiLimiter.Reset()
}
