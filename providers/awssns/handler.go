// Package awssns implements the Amazon SNS webhook handler and send client
// for SMS delivery reports and outbound publishing.
package awssns

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-sms/core"
)

const ProviderID = "aws-sns"

const (
	notificationType             = "Notification"
	subscriptionConfirmationType = "SubscriptionConfirmation"
)

// snsEnvelope is the outer SNS notification document.
type snsEnvelope struct {
	Type             string `json:"Type"`
	MessageID        string `json:"MessageId"`
	TopicArn         string `json:"TopicArn"`
	Message          string `json:"Message"`
	Timestamp        string `json:"Timestamp"`
	SignatureVersion string `json:"SignatureVersion"`
	Signature        string `json:"Signature"`
	SigningCertURL   string `json:"SigningCertURL"`
}

// deliveryReport is the SMS delivery status document SNS nests inside a
// Notification's Message field.
type deliveryReport struct {
	Notification struct {
		MessageID string `json:"messageId"`
		Timestamp string `json:"timestamp"`
	} `json:"notification"`
	Delivery struct {
		Destination string   `json:"destination"`
		PriceInUSD  *float64 `json:"priceInUSD"`
		SMSType     string   `json:"smsType"`
	} `json:"delivery"`
	Status                 string `json:"status"`
	MessageID              string `json:"messageId"`
	DestinationPhoneNumber string `json:"destinationPhoneNumber"`
}

// Handler parses SNS delivery reports and subscription confirmations into
// normalized messages. SNS certificate-chain signature validation is out of
// scope here, so verification is the explicit no-op policy.
type Handler struct {
	core.NopVerification
}

func NewHandler() *Handler { return &Handler{} }

func (*Handler) Provider() string { return ProviderID }

func (*Handler) ParseInbound(_ context.Context, _ core.Headers, body []byte) (core.InboundMessage, error) {
	envelope := snsEnvelope{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return core.InboundMessage{}, core.WrapSMSError(core.SMSErrorKindProvider, err, fmt.Sprintf("Invalid notification format: %v", err))
	}

	if envelope.Type == notificationType {
		report := deliveryReport{}
		if err := json.Unmarshal([]byte(envelope.Message), &report); err == nil && report.Status != "" {
			return core.InboundMessage{
				ID:        report.MessageID,
				From:      "AWS-SNS",
				To:        report.DestinationPhoneNumber,
				Text:      "Delivery Status: " + report.Status,
				Timestamp: parseTimestamp(envelope.Timestamp),
				Provider:  ProviderID,
				Raw:       marshalEnvelope(envelope),
			}, nil
		}
	}

	if envelope.Type == subscriptionConfirmationType {
		return core.InboundMessage{
			ID:        envelope.MessageID,
			From:      "AWS-SNS",
			To:        "SYSTEM",
			Text:      "Subscription confirmation required",
			Timestamp: parseTimestamp(envelope.Timestamp),
			Provider:  ProviderID,
			Raw:       marshalEnvelope(envelope),
		}, nil
	}

	return core.InboundMessage{}, core.NewProviderError("Unsupported notification type: " + envelope.Type)
}

func parseTimestamp(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &ts
}

func marshalEnvelope(envelope snsEnvelope) json.RawMessage {
	raw, err := json.Marshal(envelope)
	if err != nil {
		return nil
	}
	return raw
}
