package ratelimit

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestNewLimiter(t *testing.T) {
	tests := []struct {
		name          string
		globalRate    float64
		perUserRate   float64
		expectGlobal  bool
		expectPerUser bool
	}{
		{
			name:          "unlimited",
			globalRate:    0,
			perUserRate:   0,
			expectGlobal:  false,
			expectPerUser: false,
		},
		{
			name:          "global only",
			globalRate:    10,
			perUserRate:   0,
			expectGlobal:  true,
			expectPerUser: false,
		},
		{
			name:          "per-user only",
			globalRate:    0,
			perUserRate:   5,
			expectGlobal:  false,
			expectPerUser: true,
		},
		{
			name:          "both limits",
			globalRate:    20,
			perUserRate:   5,
			expectGlobal:  true,
			expectPerUser: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewLimiter(tt.globalRate, tt.perUserRate)

			if tt.expectGlobal && limiter.globalLimiter == nil {
				t.Error("expected global limiter, got nil")
			}
			if !tt.expectGlobal && limiter.globalLimiter != nil {
				t.Error("expected no global limiter, got one")
			}

			if tt.expectPerUser && limiter.perUserRate <= 0 {
				t.Error("expected per-user rate, got 0")
			}
			if !tt.expectPerUser && limiter.perUserRate > 0 {
				t.Error("expected no per-user rate, got one")
			}
		})
	}
}

func TestLimiterAllow(t *testing.T) {
	tests := []struct {
		name        string
		globalRate  float64
		perUserRate float64
		requests    []string // usernames for sequential requests
		expectError []bool   // whether each request should error
	}{
		{
			name:        "unlimited allows all",
			globalRate:  0,
			perUserRate: 0,
			requests:    []string{"user1", "user1", "user2", "user2"},
			expectError: []bool{false, false, false, false},
		},
		{
			name:        "global limit blocks after burst",
			globalRate:  1, // 1 req/sec with burst of 2
			perUserRate: 0,
			requests:    []string{"user1", "user1", "user1"}, // 3 requests should hit limit
			expectError: []bool{false, false, true},
		},
		{
			name:        "per-user limit blocks user",
			globalRate:  0,
			perUserRate: 1, // 1 req/sec per user with burst of 2
			requests:    []string{"user1", "user1", "user1", "user2", "user2"},
			expectError: []bool{false, false, true, false, false}, // user1 blocked, user2 ok
		},
		{
			name:        "anonymous user",
			globalRate:  0,
			perUserRate: 1,
			requests:    []string{"", "", ""}, // empty username = anonymous
			expectError: []bool{false, false, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewLimiter(tt.globalRate, tt.perUserRate)

			for i, username := range tt.requests {
				err := limiter.Allow(username)
				gotError := err != nil

				if gotError != tt.expectError[i] {
					t.Errorf("request %d (user=%s): expected error=%v, got error=%v (%v)",
						i, username, tt.expectError[i], gotError, err)
				}
			}
		})
	}
}

func TestLimiterWait(t *testing.T) {
	limiter := NewLimiter(10, 5) // 10 global, 5 per user

	ctx := context.Background()

	// First request should succeed immediately
	err := limiter.Wait(ctx, "testuser")
	if err != nil {
		t.Errorf("first Wait failed: %v", err)
	}

	// Test context cancellation
	cancelCtx, cancel := context.WithCancel(ctx)
	cancel() // Cancel immediately

	err = limiter.Wait(cancelCtx, "testuser")
	if err == nil {
		t.Error("expected error from cancelled context, got nil")
	}
}

func TestLimiterWaitWithDeadline(t *testing.T) {
	// Very low rate to ensure blocking
	limiter := NewLimiter(0.1, 0.1) // 0.1 req/sec = 10 seconds between requests

	// Consume the burst
	_ = limiter.Allow("testuser")
	_ = limiter.Allow("testuser")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// This should timeout
	err := limiter.Wait(ctx, "testuser")
	if err == nil {
		t.Error("expected timeout error, got nil")
	}
}

func TestLimiterReset(t *testing.T) {
	limiter := NewLimiter(0, 1) // per-user only

	// Create limiters for multiple users
	_ = limiter.Allow("user1")
	_ = limiter.Allow("user2")
	_ = limiter.Allow("user3")

	stats := limiter.GetStats()
	if stats.UserCount != 3 {
		t.Errorf("expected 3 users, got %d", stats.UserCount)
	}

	limiter.Reset()

	stats = limiter.GetStats()
	if stats.UserCount != 0 {
		t.Errorf("expected 0 users after reset, got %d", stats.UserCount)
	}
}

func TestLimiterGetStats(t *testing.T) {
	globalRate := 10.0
	perUserRate := 5.0
	limiter := NewLimiter(globalRate, perUserRate)

	// Create a few user limiters
	_ = limiter.Allow("user1")
	_ = limiter.Allow("user2")

	stats := limiter.GetStats()

	if stats.GlobalRate != globalRate {
		t.Errorf("expected global rate %f, got %f", globalRate, stats.GlobalRate)
	}

	if stats.PerUserRate != perUserRate {
		t.Errorf("expected per-user rate %f, got %f", perUserRate, stats.PerUserRate)
	}

	if stats.UserCount != 2 {
		t.Errorf("expected 2 users, got %d", stats.UserCount)
	}

	if stats.GlobalBurst != 20 { // 2x rate
		t.Errorf("expected global burst 20, got %d", stats.GlobalBurst)
	}

	if stats.PerUserBurst != 10 { // 2x rate
		t.Errorf("expected per-user burst 10, got %d", stats.PerUserBurst)
	}
}

func TestManager(t *testing.T) {
	manager := NewManager(10, 5, 0)

	if err := manager.AllowAPI("admin"); err != nil {
		t.Errorf("AllowAPI failed: %v", err)
	}
	if err := manager.WaitAPI(context.Background(), "admin"); err != nil {
		t.Errorf("WaitAPI failed: %v", err)
	}

	stats := manager.GetAPIStats()
	if stats.GlobalRate != 10 {
		t.Errorf("expected API global rate 10, got %f", stats.GlobalRate)
	}
	if stats.UserCount != 1 {
		t.Errorf("expected 1 API user, got %d", stats.UserCount)
	}

	manager.ResetAll()
	if stats := manager.GetAPIStats(); stats.UserCount != 0 {
		t.Errorf("expected 0 API users after reset, got %d", stats.UserCount)
	}

	if manager.Downloads().Rate() != 0 {
		t.Errorf("expected unlimited downloads, got %f", manager.Downloads().Rate())
	}
}

func TestByteLimiterUnlimitedPassesThrough(t *testing.T) {
	src := strings.NewReader("payload")
	if r := NewByteLimiter(0).Reader(context.Background(), src); r != io.Reader(src) {
		t.Error("expected the unlimited reader to be returned unchanged")
	}

	var nilLimiter *ByteLimiter
	if r := nilLimiter.Reader(context.Background(), src); r != io.Reader(src) {
		t.Error("expected a nil limiter to return the reader unchanged")
	}
}

func TestByteLimiterReader(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 3*readChunk)
	limiter := NewByteLimiter(1 << 30)

	got, err := io.ReadAll(limiter.Reader(context.Background(), bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("read %d bytes, want %d", len(got), len(data))
	}
}

func TestByteLimiterCancelled(t *testing.T) {
	limiter := NewByteLimiter(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := limiter.Reader(ctx, bytes.NewReader(bytes.Repeat([]byte("x"), readChunk)))
	_, err := io.ReadAll(r)
	if !IsRateLimitError(err) {
		t.Errorf("expected a rate limit error, got %v", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	limiter := NewLimiter(100, 50)

	const numGoroutines = 10
	const numRequests = 100

	done := make(chan bool)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			username := "user1"
			if id%2 == 0 {
				username = "user2"
			}

			for j := 0; j < numRequests; j++ {
				_ = limiter.Allow(username)
			}
			done <- true
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	stats := limiter.GetStats()
	if stats.UserCount != 2 {
		t.Errorf("expected 2 users after concurrent access, got %d", stats.UserCount)
	}
}
