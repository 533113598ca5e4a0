package ratelimit

import (
	"context"
	"time"

	"github.com/goliatone/go-sms/core"
)

const (
	DefaultSweepInterval = 5 * time.Minute
	DefaultIdleThreshold = time.Hour
)

// Sweeper periodically drops idle buckets and, when a StateStore is attached,
// persists the surviving snapshot. The owner starts it with Run and stops it
// by cancelling the context; construction never spawns goroutines.
type Sweeper struct {
	Limiter   *Limiter
	Interval  time.Duration
	Threshold time.Duration
	Store     StateStore
	Observer  core.Observer
}

func NewSweeper(limiter *Limiter) *Sweeper {
	return &Sweeper{
		Limiter:   limiter,
		Interval:  DefaultSweepInterval,
		Threshold: DefaultIdleThreshold,
	}
}

// Run blocks, sweeping once per interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	if s == nil || s.Limiter == nil {
		return nil
	}
	for {
		if err := waitWithContext(ctx, s.interval()); err != nil {
			return err
		}
		s.RunOnce(ctx)
	}
}

// RunOnce performs a single sweep pass.
func (s *Sweeper) RunOnce(ctx context.Context) {
	if s == nil || s.Limiter == nil {
		return
	}
	startedAt := s.Limiter.now()
	removed := s.Limiter.Sweep(s.threshold())
	s.Observer.ObserveOperation(ctx, startedAt, "sweep_buckets", nil, map[string]any{
		"removed":   removed,
		"remaining": s.Limiter.Len(),
	})

	if s.Store == nil {
		return
	}
	if err := s.Store.Save(ctx, s.Limiter.Snapshot()); err != nil {
		s.Observer.LogError(ctx, "bucket snapshot save failed", map[string]any{
			"error": err.Error(),
		})
	}
}

func (s *Sweeper) interval() time.Duration {
	if s != nil && s.Interval > 0 {
		return s.Interval
	}
	return DefaultSweepInterval
}

func (s *Sweeper) threshold() time.Duration {
	if s != nil && s.Threshold > 0 {
		return s.Threshold
	}
	return DefaultIdleThreshold
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
