package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-sms/core"
)

func TestLimiter_SweepRemovesIdleBuckets(t *testing.T) {
	clock, advance := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := NewLimiter(core.RateLimitConfig{Enabled: true, MaxRequests: 5, WindowSeconds: 60})
	limiter.Now = clock

	limiter.Check("plivo:idle")
	advance(2 * time.Hour)
	limiter.Check("plivo:fresh")

	removed := limiter.Sweep(time.Hour)
	if removed != 1 {
		t.Fatalf("expected one idle bucket removed, got %d", removed)
	}
	if limiter.Len() != 1 {
		t.Fatalf("expected fresh bucket retained, got %d buckets", limiter.Len())
	}
	if decision := limiter.Check("plivo:fresh"); !decision.Allowed {
		t.Fatalf("expected fresh bucket still usable after sweep")
	}
}

func TestLimiter_SweepKeepsActiveBuckets(t *testing.T) {
	clock, advance := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := NewLimiter(core.RateLimitConfig{Enabled: true, MaxRequests: 5, WindowSeconds: 60})
	limiter.Now = clock

	limiter.Check("plivo:a")
	limiter.Check("twilio:b")
	advance(30 * time.Minute)

	if removed := limiter.Sweep(time.Hour); removed != 0 {
		t.Fatalf("expected no removals inside the idle threshold, got %d", removed)
	}
	if limiter.Len() != 2 {
		t.Fatalf("expected both buckets retained, got %d", limiter.Len())
	}
}

func TestSweeper_RunOncePersistsSnapshot(t *testing.T) {
	clock, advance := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := NewLimiter(core.RateLimitConfig{Enabled: true, MaxRequests: 5, WindowSeconds: 60})
	limiter.Now = clock

	limiter.Check("plivo:idle")
	advance(2 * time.Hour)
	limiter.Check("plivo:fresh")

	store := NewMemoryStateStore()
	sweeper := NewSweeper(limiter)
	sweeper.Store = store

	sweeper.RunOnce(context.Background())

	states, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("expected surviving bucket persisted, got %d states", len(states))
	}
	if states[0].Key != "plivo:fresh" {
		t.Fatalf("expected fresh bucket in snapshot, got %q", states[0].Key)
	}
}

func TestSweeper_RunStopsOnContextCancel(t *testing.T) {
	limiter := NewLimiter(core.RateLimitConfig{Enabled: true, MaxRequests: 5, WindowSeconds: 60})
	sweeper := NewSweeper(limiter)
	sweeper.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sweeper.Run(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected sweeper to stop after cancel")
	}
}
