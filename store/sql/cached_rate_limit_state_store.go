package sqlstore

import (
	"context"
	"fmt"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-sms/ratelimit"
)

const rateLimitStateCacheKey = "go-sms::ratelimit_state::v1::snapshot"

// CachedRateLimitStateStore is a read-through cache in front of the SQL
// snapshot store. Saves invalidate the cached snapshot so the next restore
// reads fresh rows.
type CachedRateLimitStateStore struct {
	base  ratelimit.StateStore
	cache repositorycache.CacheService
}

func NewCachedRateLimitStateStore(
	base ratelimit.StateStore,
	cacheService repositorycache.CacheService,
) (*CachedRateLimitStateStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base rate-limit state store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: rate-limit cache service is required")
	}
	return &CachedRateLimitStateStore{base: base, cache: cacheService}, nil
}

// RateLimitStateCacheKey returns the deterministic cache key for the bucket
// snapshot read.
func RateLimitStateCacheKey() string {
	return rateLimitStateCacheKey
}

func (s *CachedRateLimitStateStore) Load(ctx context.Context) ([]ratelimit.BucketState, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached rate-limit state store is not configured")
	}
	states, err := repositorycache.GetOrFetch(ctx, s.cache, rateLimitStateCacheKey, func(ctx context.Context) ([]ratelimit.BucketState, error) {
		fetched, fetchErr := s.base.Load(ctx)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return cloneBucketStates(fetched), nil
	})
	if err != nil {
		return nil, err
	}
	return cloneBucketStates(states), nil
}

func (s *CachedRateLimitStateStore) Save(ctx context.Context, states []ratelimit.BucketState) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached rate-limit state store is not configured")
	}
	if err := s.base.Save(ctx, states); err != nil {
		return err
	}
	return s.cache.Delete(ctx, rateLimitStateCacheKey)
}

func cloneBucketStates(states []ratelimit.BucketState) []ratelimit.BucketState {
	if states == nil {
		return nil
	}
	cloned := make([]ratelimit.BucketState, len(states))
	copy(cloned, states)
	return cloned
}

var _ ratelimit.StateStore = (*CachedRateLimitStateStore)(nil)
