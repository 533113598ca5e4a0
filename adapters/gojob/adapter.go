// Package gojob bridges the job queue contracts in core to the go-job queue
// and worker runtime, and hosts the rate limit sweep job definition.
package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-sms/core"
	"github.com/goliatone/go-sms/ratelimit"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

const (
	JobIDBucketSweep   = "sms.ratelimit.sweep"
	JobIDStateSnapshot = "sms.ratelimit.snapshot"
)

// NewBucketSweepMessage builds the queue payload for a single sweep pass.
// The idempotency key folds in the schedule tick so retries of the same tick
// dedup while distinct ticks do not.
func NewBucketSweepMessage(tick time.Time, idleThreshold time.Duration) *core.JobExecutionMessage {
	return &core.JobExecutionMessage{
		JobID: JobIDBucketSweep,
		Parameters: map[string]any{
			"idle_threshold": idleThreshold.String(),
		},
		IdempotencyKey: fmt.Sprintf("%s:%d", JobIDBucketSweep, tick.Unix()),
		DedupPolicy:    "ignore",
	}
}

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts core.JobNackOptions, attempt int) core.JobNackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// ToExecutionMessage maps a core runtime message to go-job.
func ToExecutionMessage(msg *core.JobExecutionMessage) *job.ExecutionMessage {
	if msg == nil {
		return nil
	}
	return &job.ExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy(strings.TrimSpace(msg.DedupPolicy)),
	}
}

// FromExecutionMessage maps a go-job message into the core contract.
func FromExecutionMessage(msg *job.ExecutionMessage) *core.JobExecutionMessage {
	if msg == nil {
		return nil
	}
	return &core.JobExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    strings.TrimSpace(string(msg.DedupPolicy)),
	}
}

// ToNackOptions maps core nack options to go-job.
func ToNackOptions(opts core.JobNackOptions) queue.NackOptions {
	disposition := queue.NackDispositionFailed
	switch {
	case opts.DeadLetter:
		disposition = queue.NackDispositionDeadLetter
	case opts.Requeue:
		disposition = queue.NackDispositionRetry
	}
	return queue.NackOptions{
		Disposition: disposition,
		Delay:       opts.Delay,
		Reason:      opts.Reason,
	}
}

// FromNackOptions maps go-job nack options to core.
func FromNackOptions(opts queue.NackOptions) core.JobNackOptions {
	return core.JobNackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Disposition == queue.NackDispositionRetry || opts.Disposition == "",
		DeadLetter: opts.Disposition == queue.NackDispositionDeadLetter,
		Reason:     opts.Reason,
	}
}

type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer) *EnqueuerAdapter {
	return &EnqueuerAdapter{enqueuer: enqueuer}
}

func (a *EnqueuerAdapter) Enqueue(ctx context.Context, msg *core.JobExecutionMessage) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	_, err := a.enqueuer.Enqueue(ctx, ToExecutionMessage(msg))
	return err
}

type DeliveryAdapter struct {
	delivery queue.Delivery
	policy   RetryPolicy
}

func NewDeliveryAdapter(delivery queue.Delivery, policy RetryPolicy) *DeliveryAdapter {
	return &DeliveryAdapter{delivery: delivery, policy: policy}
}

func (d *DeliveryAdapter) Message() *core.JobExecutionMessage {
	if d == nil || d.delivery == nil {
		return nil
	}
	return FromExecutionMessage(d.delivery.Message())
}

func (d *DeliveryAdapter) Ack(ctx context.Context) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.delivery.Ack(ctx)
}

func (d *DeliveryAdapter) Nack(ctx context.Context, opts core.JobNackOptions) error {
	return d.NackForAttempt(ctx, opts, 0)
}

func (d *DeliveryAdapter) NackForAttempt(ctx context.Context, opts core.JobNackOptions, attempt int) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	normalized := d.policy.NormalizeAttempt(opts, attempt)
	return d.delivery.Nack(ctx, ToNackOptions(normalized))
}

type DequeuerAdapter struct {
	dequeuer queue.Dequeuer
	policy   RetryPolicy
}

func NewDequeuerAdapter(dequeuer queue.Dequeuer, policy RetryPolicy) *DequeuerAdapter {
	return &DequeuerAdapter{dequeuer: dequeuer, policy: policy}
}

func (a *DequeuerAdapter) Dequeue(ctx context.Context) (core.JobDelivery, error) {
	if a == nil || a.dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := a.dequeuer.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	return NewDeliveryAdapter(delivery, a.policy), nil
}

// SweepWorker consumes sweep messages and runs a single sweep pass per
// message. Messages for other job IDs are nacked back to the queue so a
// shared queue can fan out to other workers.
type SweepWorker struct {
	Dequeuer core.JobDequeuer
	Sweeper  *ratelimit.Sweeper
	Hook     core.JobWorkerHook
}

func NewSweepWorker(dequeuer core.JobDequeuer, sweeper *ratelimit.Sweeper) *SweepWorker {
	return &SweepWorker{Dequeuer: dequeuer, Sweeper: sweeper}
}

// Run blocks, processing sweep deliveries until the context is cancelled or
// the dequeuer fails.
func (w *SweepWorker) Run(ctx context.Context) error {
	if w == nil || w.Dequeuer == nil || w.Sweeper == nil {
		return fmt.Errorf("gojob: sweep worker requires a dequeuer and a sweeper")
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delivery, err := w.Dequeuer.Dequeue(ctx)
		if err != nil {
			return err
		}
		w.process(ctx, delivery)
	}
}

func (w *SweepWorker) process(ctx context.Context, delivery core.JobDelivery) {
	if delivery == nil {
		return
	}
	msg := delivery.Message()
	startedAt := time.Now()
	w.emitStart(ctx, msg, startedAt)

	if msg == nil || msg.JobID != JobIDBucketSweep {
		_ = delivery.Nack(ctx, core.JobNackOptions{
			Requeue: true,
			Reason:  "not a sweep message",
		})
		return
	}

	w.Sweeper.RunOnce(ctx)
	if err := delivery.Ack(ctx); err != nil {
		w.emitFailure(ctx, msg, startedAt, err)
		return
	}
	w.emitSuccess(ctx, msg, startedAt)
}

func (w *SweepWorker) emitStart(ctx context.Context, msg *core.JobExecutionMessage, startedAt time.Time) {
	if w.Hook == nil {
		return
	}
	w.Hook.OnStart(ctx, core.JobWorkerEvent{Message: msg, StartedAt: startedAt})
}

func (w *SweepWorker) emitSuccess(ctx context.Context, msg *core.JobExecutionMessage, startedAt time.Time) {
	if w.Hook == nil {
		return
	}
	w.Hook.OnSuccess(ctx, core.JobWorkerEvent{
		Message:   msg,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	})
}

func (w *SweepWorker) emitFailure(ctx context.Context, msg *core.JobExecutionMessage, startedAt time.Time, err error) {
	if w.Hook == nil {
		return
	}
	w.Hook.OnFailure(ctx, core.JobWorkerEvent{
		Message:   msg,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Err:       err,
	})
}

type WorkerHookAdapter struct {
	hook core.JobWorkerHook
}

func NewWorkerHookAdapter(hook core.JobWorkerHook) *WorkerHookAdapter {
	return &WorkerHookAdapter{hook: hook}
}

func (a *WorkerHookAdapter) OnStart(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnStart(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnSuccess(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnSuccess(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnFailure(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnFailure(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnRetry(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnRetry(ctx, mapWorkerEvent(event))
}

func mapWorkerEvent(event worker.Event) core.JobWorkerEvent {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	return core.JobWorkerEvent{
		Message:   FromExecutionMessage(message),
		Attempt:   event.Attempt,
		Delay:     event.Delay,
		Err:       event.Err,
		StartedAt: event.StartedAt,
		Duration:  event.Duration,
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var (
	_ core.JobEnqueuer = (*EnqueuerAdapter)(nil)
	_ core.JobDelivery = (*DeliveryAdapter)(nil)
	_ core.JobDequeuer = (*DequeuerAdapter)(nil)
	_ worker.Hook      = (*WorkerHookAdapter)(nil)
)
