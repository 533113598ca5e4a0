package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-sms/ratelimit"
)

type stubStateStore struct {
	mu        sync.Mutex
	states    []ratelimit.BucketState
	loadCalls int
	saveCalls int
	loadErr   error
	saveErr   error
}

func (s *stubStateStore) Load(context.Context) ([]ratelimit.BucketState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadCalls++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return cloneBucketStates(s.states), nil
}

func (s *stubStateStore) Save(_ context.Context, states []ratelimit.BucketState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.states = cloneBucketStates(states)
	return nil
}

func newTestCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}

func sampleStates() []ratelimit.BucketState {
	return []ratelimit.BucketState{
		{Key: "plivo:203.0.113.7", Tokens: 42, MaxTokens: 100, RefillRate: 100.0 / 60.0, LastRefill: time.Now().UTC()},
	}
}

func TestCachedRateLimitStateStore_Load_MissFetchThenHit(t *testing.T) {
	base := &stubStateStore{states: sampleStates()}
	store, err := NewCachedRateLimitStateStore(base, newTestCacheService(t))
	if err != nil {
		t.Fatalf("new cached state store: %v", err)
	}

	states, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if len(states) != 1 || states[0].Key != "plivo:203.0.113.7" {
		t.Fatalf("unexpected snapshot %v", states)
	}
	if base.loadCalls != 1 {
		t.Fatalf("expected first load to fetch base store once, got %d", base.loadCalls)
	}

	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if base.loadCalls != 1 {
		t.Fatalf("expected second load to be cache hit, base load calls=%d", base.loadCalls)
	}
}

func TestCachedRateLimitStateStore_Save_InvalidatesSnapshot(t *testing.T) {
	base := &stubStateStore{states: sampleStates()}
	store, err := NewCachedRateLimitStateStore(base, newTestCacheService(t))
	if err != nil {
		t.Fatalf("new cached state store: %v", err)
	}

	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	next := sampleStates()
	next[0].Tokens = 7
	if err := store.Save(context.Background(), next); err != nil {
		t.Fatalf("save: %v", err)
	}
	if base.saveCalls != 1 {
		t.Fatalf("expected save to reach base store, got %d calls", base.saveCalls)
	}

	states, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load after save: %v", err)
	}
	if base.loadCalls != 2 {
		t.Fatalf("expected save to invalidate cache, base load calls=%d", base.loadCalls)
	}
	if states[0].Tokens != 7 {
		t.Fatalf("expected fresh snapshot after save, got %v", states)
	}
}

func TestCachedRateLimitStateStore_PropagatesBaseErrors(t *testing.T) {
	baseErr := errors.New("load failed")
	store, err := NewCachedRateLimitStateStore(&stubStateStore{loadErr: baseErr}, newTestCacheService(t))
	if err != nil {
		t.Fatalf("new cached state store: %v", err)
	}
	if _, err := store.Load(context.Background()); !errors.Is(err, baseErr) {
		t.Fatalf("expected base error propagation, got %v", err)
	}
}

func TestRateLimitStateCacheKey_IsStable(t *testing.T) {
	if RateLimitStateCacheKey() != "go-sms::ratelimit_state::v1::snapshot" {
		t.Fatalf("unexpected cache key contract %q", RateLimitStateCacheKey())
	}
}
