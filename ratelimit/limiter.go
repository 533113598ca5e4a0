package ratelimit

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-sms/core"
)

type bucket struct {
	tokens     int
	maxTokens  int
	refillRate float64 // tokens per second
	lastRefill time.Time
}

func newBucket(limit core.ProviderLimit, now time.Time) *bucket {
	maxTokens := limit.MaxRequests
	if maxTokens < 1 {
		maxTokens = 1
	}
	windowSeconds := limit.WindowSeconds
	if windowSeconds < 1 {
		windowSeconds = 1
	}
	return &bucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: float64(maxTokens) / float64(windowSeconds),
		lastRefill: now,
	}
}

// refill credits tokens accrued since lastRefill, truncating fractional
// accrual. lastRefill advances only when at least one whole token was added,
// so zero-credit checks never erase partial progress toward the next token.
func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	added := int(math.Floor(elapsed * b.refillRate))
	if added <= 0 {
		return
	}
	b.tokens += added
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now
}

func (b *bucket) retryAfter() time.Duration {
	if b.refillRate <= 0 {
		return time.Second
	}
	return time.Duration(math.Ceil(1/b.refillRate)) * time.Second
}

// Limiter is a token bucket limiter over caller-chosen string keys. The limit
// for a new bucket comes from the per-provider override matching the key
// prefix before the first ':', else the global limit. Checking never fails:
// exceeding a limit is a typed decision, not an error.
type Limiter struct {
	config core.RateLimitConfig
	Now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewLimiter(config core.RateLimitConfig) *Limiter {
	return &Limiter{
		config: config,
		Now: func() time.Time {
			return time.Now().UTC()
		},
		buckets: map[string]*bucket{},
	}
}

// Check consumes one token for key. A disabled limiter allows everything and
// creates no bucket state.
func (l *Limiter) Check(key string) core.RateLimitDecision {
	if l == nil || !l.config.Enabled {
		return core.Allowed
	}
	key = strings.TrimSpace(key)

	// Override selection stays outside the lock.
	limit := l.config.Limit(providerFromKey(key))
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.buckets[key]
	if !ok {
		entry = newBucket(limit, now)
		l.buckets[key] = entry
	}
	entry.refill(now)
	if entry.tokens > 0 {
		entry.tokens--
		return core.Allowed
	}
	return core.Limited(entry.retryAfter())
}

// Sweep removes buckets whose lastRefill is older than threshold and reports
// how many were removed. It shares the check mutex, so sweeps serialize with
// in-flight checks.
func (l *Limiter) Sweep(threshold time.Duration) int {
	if l == nil {
		return 0
	}
	if threshold <= 0 {
		threshold = DefaultIdleThreshold
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, entry := range l.buckets {
		if now.Sub(entry.lastRefill) > threshold {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked buckets.
func (l *Limiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Config returns the limiter configuration the limiter was built with.
func (l *Limiter) Config() core.RateLimitConfig {
	if l == nil {
		return core.RateLimitConfig{}
	}
	return l.config
}

func (l *Limiter) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func providerFromKey(key string) string {
	provider, _, _ := strings.Cut(key, ":")
	return provider
}

var _ core.RateLimiter = (*Limiter)(nil)
