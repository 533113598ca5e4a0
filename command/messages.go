package command

import (
	"strings"
	"time"

	"github.com/goliatone/go-sms/core"
)

const (
	TypeProcessWebhook = "sms.command.webhook.process"
	TypeSendMessage    = "sms.command.message.send"
	TypeCheckRateLimit = "sms.command.ratelimit.check"
	TypeSweepBuckets   = "sms.command.ratelimit.sweep"
)

// ProcessWebhookMessage dispatches one raw provider callback through the
// webhook pipeline. The body is carried verbatim; signature verification
// happens inside the pipeline, not here.
type ProcessWebhookMessage struct {
	Provider string
	Headers  core.Headers
	Body     []byte
}

func (ProcessWebhookMessage) Type() string { return TypeProcessWebhook }

func (m ProcessWebhookMessage) Validate() error {
	if strings.TrimSpace(m.Provider) == "" {
		return commandValidationError("provider", "provider is required")
	}
	return nil
}

// SendMessage requests an outbound message through a registered send client.
type SendMessage struct {
	Provider string
	Request  core.SendRequest
}

func (SendMessage) Type() string { return TypeSendMessage }

func (m SendMessage) Validate() error {
	if strings.TrimSpace(m.Provider) == "" {
		return commandValidationError("provider", "provider is required")
	}
	if strings.TrimSpace(m.Request.To) == "" {
		return commandValidationError("to", "destination number is required")
	}
	if m.Request.Text == "" {
		return commandValidationError("text", "message text is required")
	}
	return nil
}

// CheckRateLimitMessage consumes one token from the bucket identified by
// provider plus an optional caller identifier such as a client IP.
type CheckRateLimitMessage struct {
	Provider   string
	Identifier string
}

func (CheckRateLimitMessage) Type() string { return TypeCheckRateLimit }

func (m CheckRateLimitMessage) Validate() error {
	if strings.TrimSpace(m.Provider) == "" {
		return commandValidationError("provider", "provider is required")
	}
	return nil
}

// SweepBucketsMessage triggers one maintenance pass over the limiter,
// dropping buckets idle longer than the threshold. A zero threshold uses the
// sweeper default.
type SweepBucketsMessage struct {
	IdleThreshold time.Duration
}

func (SweepBucketsMessage) Type() string { return TypeSweepBuckets }

func (m SweepBucketsMessage) Validate() error {
	if m.IdleThreshold < 0 {
		return commandValidationError("idle_threshold", "idle threshold must not be negative")
	}
	return nil
}
