package command

import (
	"context"
	"time"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-sms/core"
)

// WebhookService is the slice of the facade the webhook command needs.
type WebhookService interface {
	ProcessWebhook(ctx context.Context, provider string, headers core.Headers, body []byte) core.WebhookResponse
}

type SendService interface {
	Send(ctx context.Context, provider string, req core.SendRequest) (core.SendResponse, error)
}

type RateLimitService interface {
	CheckRateLimit(ctx context.Context, provider string, identifier string) core.RateLimitDecision
	SweepBuckets(ctx context.Context, idleThreshold time.Duration) error
}

type ProcessWebhookCommand struct {
	service WebhookService
}

func NewProcessWebhookCommand(service WebhookService) *ProcessWebhookCommand {
	return &ProcessWebhookCommand{service: service}
}

// Execute never fails on webhook content: the pipeline maps every payload to
// a response, and the response is the command result.
func (c *ProcessWebhookCommand) Execute(ctx context.Context, msg ProcessWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook service is required")
	}
	out := c.service.ProcessWebhook(ctx, msg.Provider, msg.Headers, msg.Body)
	storeResult(ctx, out)
	return nil
}

type SendMessageCommand struct {
	service SendService
}

func NewSendMessageCommand(service SendService) *SendMessageCommand {
	return &SendMessageCommand{service: service}
}

func (c *SendMessageCommand) Execute(ctx context.Context, msg SendMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: send service is required")
	}
	out, err := c.service.Send(ctx, msg.Provider, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CheckRateLimitCommand struct {
	service RateLimitService
}

func NewCheckRateLimitCommand(service RateLimitService) *CheckRateLimitCommand {
	return &CheckRateLimitCommand{service: service}
}

func (c *CheckRateLimitCommand) Execute(ctx context.Context, msg CheckRateLimitMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: rate limit service is required")
	}
	decision := c.service.CheckRateLimit(ctx, msg.Provider, msg.Identifier)
	storeResult(ctx, decision)
	return nil
}

type SweepBucketsCommand struct {
	service RateLimitService
}

func NewSweepBucketsCommand(service RateLimitService) *SweepBucketsCommand {
	return &SweepBucketsCommand{service: service}
}

func (c *SweepBucketsCommand) Execute(ctx context.Context, msg SweepBucketsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: rate limit service is required")
	}
	return c.service.SweepBuckets(ctx, msg.IdleThreshold)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
