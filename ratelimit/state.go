package ratelimit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// BucketState is a point-in-time view of one bucket, used to persist limiter
// fairness across restarts.
type BucketState struct {
	Key        string
	Tokens     int
	MaxTokens  int
	RefillRate float64
	LastRefill time.Time
}

// StateStore persists bucket snapshots. Implementations replace the full
// snapshot on save; bucket cardinality is bounded by the sweep.
type StateStore interface {
	Load(ctx context.Context) ([]BucketState, error)
	Save(ctx context.Context, states []BucketState) error
}

// Snapshot returns every tracked bucket, sorted by key.
func (l *Limiter) Snapshot() []BucketState {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	states := make([]BucketState, 0, len(l.buckets))
	for key, entry := range l.buckets {
		states = append(states, BucketState{
			Key:        key,
			Tokens:     entry.tokens,
			MaxTokens:  entry.maxTokens,
			RefillRate: entry.refillRate,
			LastRefill: entry.lastRefill,
		})
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Key < states[j].Key })
	return states
}

// Restore seeds buckets from persisted states. Bucket sizing follows the
// CURRENT configuration, not the stored one, so limit changes between runs
// take effect immediately; stored token counts are clamped into the new
// range and lastRefill is kept so downtime still accrues refill credit.
func (l *Limiter) Restore(states []BucketState) {
	if l == nil || !l.config.Enabled || len(states) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, state := range states {
		if state.Key == "" || state.LastRefill.IsZero() {
			continue
		}
		entry := newBucket(l.config.Limit(providerFromKey(state.Key)), state.LastRefill)
		tokens := state.Tokens
		if tokens < 0 {
			tokens = 0
		}
		if tokens > entry.maxTokens {
			tokens = entry.maxTokens
		}
		entry.tokens = tokens
		l.buckets[state.Key] = entry
	}
}

// MemoryStateStore is the in-process StateStore default.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states []BucketState
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{}
}

func (s *MemoryStateStore) Load(context.Context) ([]BucketState, error) {
	if s == nil {
		return nil, fmt.Errorf("ratelimit: state store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]BucketState, len(s.states))
	copy(out, s.states)
	return out, nil
}

func (s *MemoryStateStore) Save(_ context.Context, states []BucketState) error {
	if s == nil {
		return fmt.Errorf("ratelimit: state store is nil")
	}
	copied := make([]BucketState, len(states))
	copy(copied, states)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = copied
	return nil
}

var _ StateStore = (*MemoryStateStore)(nil)
