package http

import (
	"sync"
	"time"
)

// RateLimiter tracks failed login attempts per IP+identifier combination
// using a fixed window followed by a lockout.
type RateLimiter struct {
	mu              sync.RWMutex
	attempts        map[string]*attemptRecord
	maxAttempts     int
	windowDuration  time.Duration
	lockoutDuration time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	stopCleanup chan struct{}
	stopOnce    sync.Once
	done        chan struct{}
}

type attemptRecord struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// RateLimitConfig contains configuration for the rate limiter.
type RateLimitConfig struct {
	MaxAttempts     int           // Maximum failures before lockout (default: 5)
	WindowDuration  time.Duration // Time window for counting failures (default: 15m)
	LockoutDuration time.Duration // How long to lock out after max failures (default: 30m)
	CleanupInterval time.Duration // How often to drop expired records (default: 5m)
	Now             func() time.Time
}

// DefaultRateLimitConfig returns sensible defaults for rate limiting.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:     5,
		WindowDuration:  15 * time.Minute,
		LockoutDuration: 30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewRateLimiter creates a rate limiter and starts its cleanup goroutine.
// Call Stop to release it.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	def := DefaultRateLimitConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = def.WindowDuration
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	rl := &RateLimiter{
		attempts:        make(map[string]*attemptRecord),
		maxAttempts:     cfg.MaxAttempts,
		windowDuration:  cfg.WindowDuration,
		lockoutDuration: cfg.LockoutDuration,
		cleanupInterval: cfg.CleanupInterval,
		now:             cfg.Now,
		stopCleanup:     make(chan struct{}),
		done:            make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop stops the background cleanup goroutine and waits for it to exit.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
	<-rl.done
}

func makeKey(ip, identifier string) string {
	return ip + ":" + identifier
}

// Allow reports whether a login attempt may proceed. When it may not,
// retryAfter is the time left until the lockout ends.
func (rl *RateLimiter) Allow(ip, identifier string) (bool, time.Duration) {
	key := makeKey(ip, identifier)
	now := rl.now()

	rl.mu.RLock()
	defer rl.mu.RUnlock()

	record, exists := rl.attempts[key]
	if !exists {
		return true, 0
	}

	if !record.lockedUntil.IsZero() {
		if now.Before(record.lockedUntil) {
			return false, record.lockedUntil.Sub(now)
		}
		return true, 0
	}

	if now.Sub(record.firstAttempt) > rl.windowDuration {
		return true, 0
	}

	return record.count < rl.maxAttempts, 0
}

// RecordFailure counts a failed attempt. It reports whether the attempt
// triggered a lockout and for how long.
func (rl *RateLimiter) RecordFailure(ip, identifier string) (bool, time.Duration) {
	key := makeKey(ip, identifier)
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, exists := rl.attempts[key]
	if !exists {
		record = &attemptRecord{firstAttempt: now}
		rl.attempts[key] = record
	}

	lockoutOver := !record.lockedUntil.IsZero() && !now.Before(record.lockedUntil)
	if lockoutOver || now.Sub(record.firstAttempt) > rl.windowDuration {
		record.count = 0
		record.firstAttempt = now
		record.lockedUntil = time.Time{}
	}

	record.count++

	if record.count >= rl.maxAttempts {
		record.lockedUntil = now.Add(rl.lockoutDuration)
		return true, rl.lockoutDuration
	}

	return false, 0
}

// RecordSuccess clears the failure record after a successful login.
func (rl *RateLimiter) RecordSuccess(ip, identifier string) {
	key := makeKey(ip, identifier)

	rl.mu.Lock()
	delete(rl.attempts, key)
	rl.mu.Unlock()
}

func (rl *RateLimiter) cleanupLoop() {
	defer close(rl.done)

	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup removes records whose window and lockout have both expired.
func (rl *RateLimiter) cleanup() {
	now := rl.now()
	expiry := rl.windowDuration + rl.lockoutDuration

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, record := range rl.attempts {
		windowExpired := now.Sub(record.firstAttempt) > expiry
		lockoutExpired := record.lockedUntil.IsZero() || now.After(record.lockedUntil)

		if windowExpired && lockoutExpired {
			delete(rl.attempts, key)
		}
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.attempts)
}
