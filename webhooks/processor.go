package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-sms/core"
)

const (
	DeliveryStatusProcessed = "processed"
	DeliveryStatusRejected  = "rejected"
	DeliveryStatusInvalid   = "invalid"
	DeliveryStatusUnknown   = "unknown_provider"
	DeliveryStatusFailed    = "failed"
)

// Delivery is one dispatch outcome for the audit ledger. Payload bodies are
// never part of the record.
type Delivery struct {
	Provider   string
	MessageID  string
	Status     string
	HTTPStatus int
	Detail     string
	ReceivedAt time.Time

	// Attempts counts how many times this delivery id was seen. The ledger
	// maintains it; the processor always records with zero.
	Attempts int
}

// DeliveryLedger records dispatch outcomes. Recording is best-effort
// bookkeeping; a ledger failure never changes the webhook response.
type DeliveryLedger interface {
	Record(ctx context.Context, delivery Delivery) error
}

// Processor is the webhook dispatch pipeline. The response mapping is total:
// every input produces a response, never an error.
type Processor struct {
	Registry *core.Registry
	Ledger   DeliveryLedger
	Observer core.Observer
	Now      func() time.Time
}

func NewProcessor(registry *core.Registry) *Processor {
	return &Processor{
		Registry: registry,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Process resolves the handler for provider, verifies the payload, and parses
// it into a normalized message. Stages short-circuit in that order.
func (p *Processor) Process(ctx context.Context, provider string, headers core.Headers, body []byte) core.WebhookResponse {
	if p == nil {
		return core.ErrorResponse(http.StatusInternalServerError, "SMS error: unexpected: webhook processor is not configured")
	}
	startedAt := p.now()
	key := core.NormalizeProviderKey(provider)

	handler, ok := p.Registry.Lookup(key)
	if !ok {
		return p.finish(ctx, startedAt, key, "",
			core.ErrorResponse(http.StatusNotFound, "unknown provider"),
			fmt.Errorf("%w: %q", core.ErrProviderNotFound, key))
	}

	if err := handler.Verify(ctx, headers, body); err != nil {
		return p.finish(ctx, startedAt, key, "",
			core.ErrorResponse(http.StatusUnauthorized, "verification failed: "+err.Error()),
			&core.VerificationError{Reason: err.Error(), Cause: err})
	}

	message, err := handler.ParseInbound(ctx, headers, body)
	if err != nil {
		return p.finish(ctx, startedAt, key, "",
			core.ErrorResponse(http.StatusBadRequest, "parse error: "+err.Error()),
			&core.ParseError{Reason: err.Error(), Cause: err})
	}
	if message.Provider == "" {
		message.Provider = key
	}

	return p.finish(ctx, startedAt, key, message.ID, core.SuccessResponse(message), nil)
}

func (p *Processor) finish(
	ctx context.Context,
	startedAt time.Time,
	provider string,
	messageID string,
	response core.WebhookResponse,
	cause error,
) core.WebhookResponse {
	fields := map[string]any{
		"provider": provider,
		"status":   response.Status,
	}
	if messageID != "" {
		fields["delivery_id"] = messageID
	}
	p.Observer.ObserveOperation(ctx, startedAt, "process_webhook", cause, fields)
	p.recordDelivery(ctx, provider, messageID, response, cause)
	return response
}

func (p *Processor) recordDelivery(
	ctx context.Context,
	provider string,
	messageID string,
	response core.WebhookResponse,
	cause error,
) {
	if p.Ledger == nil {
		return
	}
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		messageID = core.FallbackID()
	}
	detail := ""
	if cause != nil {
		detail = clampDetail(cause.Error())
	}
	delivery := Delivery{
		Provider:   provider,
		MessageID:  messageID,
		Status:     deliveryStatus(response.Status),
		HTTPStatus: response.Status,
		Detail:     detail,
		ReceivedAt: p.now(),
	}
	if err := p.Ledger.Record(ctx, delivery); err != nil {
		p.Observer.LogError(ctx, "delivery record failed", map[string]any{
			"provider":    provider,
			"delivery_id": messageID,
			"error":       err.Error(),
		})
	}
}

func deliveryStatus(status int) string {
	switch status {
	case http.StatusOK:
		return DeliveryStatusProcessed
	case http.StatusUnauthorized:
		return DeliveryStatusRejected
	case http.StatusBadRequest:
		return DeliveryStatusInvalid
	case http.StatusNotFound:
		return DeliveryStatusUnknown
	default:
		return DeliveryStatusFailed
	}
}

func clampDetail(detail string) string {
	const maxDetail = 500
	detail = strings.TrimSpace(detail)
	if len(detail) <= maxDetail {
		return detail
	}
	return detail[:maxDetail]
}

func (p *Processor) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

var _ core.WebhookProcessor = (*Processor)(nil)
