// Package ratelimit provides per-client token bucket rate limiting for the HTTP API.
package ratelimit

import (
	"sync"
	"time"
)

// tokenBucket holds up to capacity tokens and refills at refillRate tokens per second.
type tokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64
	tokens     float64
	lastRefill time.Time
	lastUsed   time.Time
}

func newTokenBucket(capacity int, refillRate float64) *tokenBucket {
	now := time.Now()
	return &tokenBucket{
		capacity:   float64(capacity),
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: now,
		lastUsed:   now,
	}
}

// refill must be called with mu held.
func (tb *tokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(tb.capacity, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now
}

// take consumes a token if one is available and reports the bucket state afterwards.
func (tb *tokenBucket) take(now time.Time) (allowed bool, remaining int, full time.Time, next time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(now)
	tb.lastUsed = now
	if tb.tokens >= 1 {
		tb.tokens--
		allowed = true
	}

	remaining = int(tb.tokens)
	full = now.Add(tb.secondsUntil(tb.capacity))
	next = now.Add(tb.secondsUntil(1))
	return allowed, remaining, full, next
}

// secondsUntil returns how long until the bucket holds target tokens.
func (tb *tokenBucket) secondsUntil(target float64) time.Duration {
	if tb.tokens >= target || tb.refillRate <= 0 {
		return 0
	}
	return time.Duration((target - tb.tokens) / tb.refillRate * float64(time.Second))
}

func (tb *tokenBucket) idleSince(cutoff time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lastUsed.Before(cutoff)
}

// Info describes the rate limit state after a request.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter tracks one bucket per client, route and method.
type Limiter struct {
	config  *Config
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	stop    chan struct{}
	once    sync.Once
}

// NewLimiter creates a limiter and starts its cleanup goroutine. A nil config
// enables a lenient global default.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
		}
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = time.Hour
	}

	l := &Limiter{
		config:  config,
		buckets: make(map[string]*tokenBucket),
		stop:    make(chan struct{}),
	}
	if config.Enabled && config.CleanupInterval > 0 {
		go l.cleanupLoop(config.CleanupInterval)
	}
	return l
}

// Allow reports whether the client may call the endpoint now, consuming a token if so.
func (l *Limiter) Allow(clientID, endpoint, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{}
	}

	ec := MatchEndpoint(endpoint, method, l.config.EndpointConfigs)
	if ec == nil {
		ec = &EndpointConfig{Path: endpoint, Method: method, Limit: l.config.DefaultLimit, Window: l.config.DefaultWindow}
	}
	if ec.Limit <= 0 || ec.Window <= 0 {
		return true, Info{Allowed: true}
	}

	// Prefix routes share one bucket per client.
	bucket := l.bucket(clientID+":"+method+":"+ec.Path, ec)
	now := time.Now()
	allowed, remaining, full, next := bucket.take(now)

	info := Info{
		Allowed:   allowed,
		Limit:     ec.Limit,
		Remaining: remaining,
		ResetTime: full,
	}
	if !allowed {
		info.RetryAfter = next.Sub(now)
	}
	return allowed, info
}

func (l *Limiter) bucket(key string, ec *EndpointConfig) *tokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[key]; ok {
		return b
	}
	capacity := ec.Burst
	if capacity <= 0 {
		capacity = ec.Limit
	}
	b := newTokenBucket(capacity, float64(ec.Limit)/ec.Window.Seconds())
	l.buckets[key] = b
	return b
}

func (l *Limiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now().Add(-l.config.IdleTTL))
		case <-l.stop:
			return
		}
	}
}

// cleanup drops buckets not used since cutoff.
func (l *Limiter) cleanup(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.idleSince(cutoff) {
			delete(l.buckets, key)
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}
