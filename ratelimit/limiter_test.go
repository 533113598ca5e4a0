package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-sms/core"
)

func frozenClock(at time.Time) (func() time.Time, func(time.Duration)) {
	current := at
	return func() time.Time { return current },
		func(delta time.Duration) { current = current.Add(delta) }
}

func TestLimiter_ExhaustionThenRefill(t *testing.T) {
	clock, advance := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := NewLimiter(core.RateLimitConfig{Enabled: true, MaxRequests: 5, WindowSeconds: 60})
	limiter.Now = clock

	for i := 0; i < 5; i++ {
		if decision := limiter.Check("plivo:15550100"); !decision.Allowed {
			t.Fatalf("expected check %d allowed", i+1)
		}
	}

	decision := limiter.Check("plivo:15550100")
	if decision.Allowed {
		t.Fatalf("expected sixth check limited")
	}
	// refill rate is 5/60 tokens per second, so one token takes 12s.
	if decision.RetryAfter != 12*time.Second {
		t.Fatalf("expected 12s retry hint, got %s", decision.RetryAfter)
	}

	advance(12 * time.Second)
	if decision := limiter.Check("plivo:15550100"); !decision.Allowed {
		t.Fatalf("expected one refilled token after 12s")
	}
	if decision := limiter.Check("plivo:15550100"); decision.Allowed {
		t.Fatalf("expected exactly one refilled token")
	}
}

func TestLimiter_ZeroCreditChecksKeepAccrual(t *testing.T) {
	clock, advance := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := NewLimiter(core.RateLimitConfig{Enabled: true, MaxRequests: 10, WindowSeconds: 60})
	limiter.Now = clock

	for i := 0; i < 10; i++ {
		if decision := limiter.Check("plivo:a"); !decision.Allowed {
			t.Fatalf("expected drain check %d allowed", i+1)
		}
	}

	// One token takes 6s at 10/60. A check at 5s credits nothing and must not
	// reset the accrual window.
	advance(5 * time.Second)
	if decision := limiter.Check("plivo:a"); decision.Allowed {
		t.Fatalf("expected zero-credit check limited")
	}
	advance(1 * time.Second)
	if decision := limiter.Check("plivo:a"); !decision.Allowed {
		t.Fatalf("expected token 6s after drain despite intermediate check")
	}
}

func TestLimiter_DisabledCreatesNoState(t *testing.T) {
	limiter := NewLimiter(core.RateLimitConfig{Enabled: false})

	for i := 0; i < 1000; i++ {
		if decision := limiter.Check("plivo:15550100"); !decision.Allowed {
			t.Fatalf("expected disabled limiter to allow check %d", i+1)
		}
	}
	if limiter.Len() != 0 {
		t.Fatalf("expected no bucket state, got %d buckets", limiter.Len())
	}
}

func TestLimiter_PerProviderOverride(t *testing.T) {
	clock, _ := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := NewLimiter(core.RateLimitConfig{
		Enabled:       true,
		MaxRequests:   5,
		WindowSeconds: 60,
		PerProvider: map[string]core.ProviderLimit{
			"twilio": {MaxRequests: 10, WindowSeconds: 60},
		},
	})
	limiter.Now = clock

	for i := 0; i < 10; i++ {
		if decision := limiter.Check("twilio:15550100"); !decision.Allowed {
			t.Fatalf("expected twilio check %d allowed under override", i+1)
		}
	}
	if decision := limiter.Check("twilio:15550100"); decision.Allowed {
		t.Fatalf("expected eleventh twilio check limited")
	}

	for i := 0; i < 5; i++ {
		if decision := limiter.Check("plivo:15550100"); !decision.Allowed {
			t.Fatalf("expected plivo check %d allowed under global limit", i+1)
		}
	}
	if decision := limiter.Check("plivo:15550100"); decision.Allowed {
		t.Fatalf("expected sixth plivo check limited")
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	clock, _ := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := NewLimiter(core.RateLimitConfig{Enabled: true, MaxRequests: 2, WindowSeconds: 60})
	limiter.Now = clock

	limiter.Check("plivo:a")
	limiter.Check("plivo:a")
	if decision := limiter.Check("plivo:a"); decision.Allowed {
		t.Fatalf("expected plivo:a exhausted")
	}
	if decision := limiter.Check("plivo:b"); !decision.Allowed {
		t.Fatalf("expected plivo:b unaffected by plivo:a exhaustion")
	}
}

func TestLimiter_RetryAfterRoundsUpToWholeSeconds(t *testing.T) {
	clock, _ := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := NewLimiter(core.RateLimitConfig{Enabled: true, MaxRequests: 7, WindowSeconds: 10})
	limiter.Now = clock

	for i := 0; i < 7; i++ {
		limiter.Check("plivo:a")
	}
	decision := limiter.Check("plivo:a")
	if decision.Allowed {
		t.Fatalf("expected exhausted bucket")
	}
	// 7/10 tokens per second puts one token at ~1.43s; the hint rounds up.
	if decision.RetryAfter != 2*time.Second {
		t.Fatalf("expected 2s retry hint, got %s", decision.RetryAfter)
	}
}

func TestLimiter_ConcurrentChecksNeverOverspend(t *testing.T) {
	clock, _ := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := NewLimiter(core.RateLimitConfig{Enabled: true, MaxRequests: 50, WindowSeconds: 60})
	limiter.Now = clock

	const workers = 10
	const checksPerWorker = 20

	var mu sync.Mutex
	allowed := 0

	var wg sync.WaitGroup
	wg.Add(workers)
	for worker := 0; worker < workers; worker++ {
		go func() {
			defer wg.Done()
			for i := 0; i < checksPerWorker; i++ {
				if limiter.Check("plivo:shared").Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Fatalf("expected exactly 50 allowed checks, got %d", allowed)
	}
}
