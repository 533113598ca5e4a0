package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// InboundHandler is the contract every provider webhook handler implements.
// Verification and parsing are synchronous, deterministic transformations over
// the supplied bytes; neither performs I/O.
type InboundHandler interface {
	// Provider returns the stable lowercase key the handler registers under.
	Provider() string
	// Verify checks the webhook signature or shared secret. Handlers with no
	// verification scheme embed NopVerification so the always-ok policy is
	// explicit.
	Verify(ctx context.Context, headers Headers, body []byte) error
	// ParseInbound converts a vendor payload into the normalized message.
	ParseInbound(ctx context.Context, headers Headers, body []byte) (InboundMessage, error)
}

// NopVerification is the explicit no-verification policy. Handlers embed it
// when the vendor offers no signature scheme.
type NopVerification struct{}

func (NopVerification) Verify(context.Context, Headers, []byte) error { return nil }

// SendClient submits outbound messages to one vendor.
type SendClient interface {
	Provider() string
	Send(ctx context.Context, req SendRequest) (SendResponse, error)
}

// WebhookProcessor is the dispatch pipeline contract the facade delegates to.
type WebhookProcessor interface {
	Process(ctx context.Context, provider string, headers Headers, body []byte) WebhookResponse
}

// RateLimitDecision is the outcome of a limiter check. Exceeding a limit is a
// regular outcome, never an error.
type RateLimitDecision struct {
	Allowed    bool
	RetryAfter time.Duration
}

var Allowed = RateLimitDecision{Allowed: true}

func Limited(retryAfter time.Duration) RateLimitDecision {
	return RateLimitDecision{RetryAfter: retryAfter}
}

type RateLimiter interface {
	Check(key string) RateLimitDecision
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// SecretProvider resolves credential material that may be stored encrypted in
// configuration.
type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
