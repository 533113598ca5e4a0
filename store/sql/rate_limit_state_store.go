// Package sqlstore holds the bun-backed persistence for limiter bucket
// snapshots and the webhook delivery ledger.
package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-sms/ratelimit"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RateLimitStateStore persists limiter bucket snapshots so a restart keeps
// accrued fairness. Save replaces the full snapshot; rows absent from the
// snapshot were swept and are deleted.
type RateLimitStateStore struct {
	db   *bun.DB
	repo repository.Repository[*rateLimitBucketRecord]
}

func NewRateLimitStateStore(db *bun.DB) (*RateLimitStateStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*rateLimitBucketRecord](db, rateLimitBucketHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid rate-limit bucket repository wiring: %w", err)
		}
	}
	return &RateLimitStateStore{db: db, repo: repo}, nil
}

func (s *RateLimitStateStore) Load(ctx context.Context) ([]ratelimit.BucketState, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: rate-limit state store is not configured")
	}
	records := []*rateLimitBucketRecord{}
	if err := s.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.bucket_key ASC").
		Scan(ctx); err != nil {
		return nil, err
	}

	states := make([]ratelimit.BucketState, 0, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}
		states = append(states, ratelimit.BucketState{
			Key:        record.BucketKey,
			Tokens:     record.Tokens,
			MaxTokens:  record.MaxTokens,
			RefillRate: record.RefillRate,
			LastRefill: record.LastRefill.UTC(),
		})
	}
	return states, nil
}

func (s *RateLimitStateStore) Save(ctx context.Context, states []ratelimit.BucketState) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: rate-limit state store is not configured")
	}
	now := time.Now().UTC()

	keep := make([]string, 0, len(states))
	for _, state := range states {
		if key := strings.TrimSpace(state.Key); key != "" {
			keep = append(keep, key)
		}
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		prune := tx.NewDelete().Model((*rateLimitBucketRecord)(nil))
		if len(keep) > 0 {
			prune = prune.Where("bucket_key NOT IN (?)", bun.In(keep))
		} else {
			prune = prune.Where("1 = 1")
		}
		if _, err := prune.Exec(ctx); err != nil {
			return err
		}

		for _, state := range states {
			key := strings.TrimSpace(state.Key)
			if key == "" || state.LastRefill.IsZero() {
				continue
			}
			record := &rateLimitBucketRecord{
				ID:         uuid.NewString(),
				BucketKey:  key,
				Tokens:     state.Tokens,
				MaxTokens:  state.MaxTokens,
				RefillRate: state.RefillRate,
				LastRefill: state.LastRefill.UTC(),
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if _, err := tx.NewInsert().
				Model(record).
				On("CONFLICT (bucket_key) DO UPDATE").
				Set("tokens = EXCLUDED.tokens").
				Set("max_tokens = EXCLUDED.max_tokens").
				Set("refill_rate = EXCLUDED.refill_rate").
				Set("last_refill = EXCLUDED.last_refill").
				Set("updated_at = EXCLUDED.updated_at").
				Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

var _ ratelimit.StateStore = (*RateLimitStateStore)(nil)
