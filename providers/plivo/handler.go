// Package plivo implements the Plivo webhook handler and send client.
package plivo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-sms/core"
)

const ProviderID = "plivo"

// Handler parses Plivo inbound SMS webhooks. Plivo posts
// application/x-www-form-urlencoded bodies and offers no signature scheme we
// can check from the body alone, so verification is the explicit no-op policy.
type Handler struct {
	core.NopVerification
}

func NewHandler() *Handler { return &Handler{} }

func (*Handler) Provider() string { return ProviderID }

func (*Handler) ParseInbound(_ context.Context, _ core.Headers, body []byte) (core.InboundMessage, error) {
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return core.InboundMessage{}, core.WrapSMSError(core.SMSErrorKindInvalid, err, fmt.Sprintf("form decode: %v", err))
	}

	from := strings.TrimSpace(form.Get("From"))
	to := strings.TrimSpace(form.Get("To"))
	text := form.Get("Text")
	if from == "" || to == "" {
		return core.InboundMessage{}, core.NewInvalidError("form decode: missing From or To field")
	}

	message := core.InboundMessage{
		ID:        strings.TrimSpace(form.Get("MessageUUID")),
		From:      from,
		To:        to,
		Text:      text,
		Provider:  ProviderID,
		Timestamp: parseInboundTime(form.Get("Time")),
		Raw:       marshalForm(form),
	}
	return message, nil
}

// parseInboundTime is best effort: Plivo timestamps are ISO 8601-like and a
// missing or unparseable value is not an error.
func parseInboundTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts
		}
	}
	return nil
}

func marshalForm(form url.Values) json.RawMessage {
	flat := make(map[string]string, len(form))
	for key := range form {
		flat[key] = form.Get(key)
	}
	raw, err := json.Marshal(flat)
	if err != nil {
		return nil
	}
	return raw
}
