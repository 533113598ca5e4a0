// Package twilio implements the Twilio webhook handler and send client.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-sms/core"
	"github.com/goliatone/go-sms/webhooks"
)

const ProviderID = "twilio"

const SignatureHeader = "X-Twilio-Signature"

// Handler parses Twilio inbound SMS webhooks. When an auth token is
// configured the raw body HMAC in X-Twilio-Signature is checked before
// parsing; an absent token is the explicit no-verify policy.
type Handler struct {
	verifier webhooks.Verifier
}

func NewHandler(cfg core.TwilioConfig) *Handler {
	h := &Handler{}
	if cfg.VerifySignatures && strings.TrimSpace(cfg.AuthToken) != "" {
		h.verifier = webhooks.HeaderHMACVerifier{
			Header:   SignatureHeader,
			Secret:   cfg.AuthToken,
			Encoding: "base64",
		}
	}
	return h
}

func (*Handler) Provider() string { return ProviderID }

func (h *Handler) Verify(ctx context.Context, headers core.Headers, body []byte) error {
	if h == nil || h.verifier == nil {
		return nil
	}
	return h.verifier.Verify(ctx, headers, body)
}

func (*Handler) ParseInbound(_ context.Context, _ core.Headers, body []byte) (core.InboundMessage, error) {
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return core.InboundMessage{}, core.WrapSMSError(core.SMSErrorKindInvalid, err, fmt.Sprintf("form decode: %v", err))
	}

	from := strings.TrimSpace(form.Get("From"))
	to := strings.TrimSpace(form.Get("To"))
	if from == "" || to == "" {
		return core.InboundMessage{}, core.NewInvalidError("form decode: missing From or To field")
	}

	message := core.InboundMessage{
		ID:       strings.TrimSpace(form.Get("MessageSid")),
		From:     from,
		To:       to,
		Text:     form.Get("Body"),
		Provider: ProviderID,
		Raw:      marshalForm(form),
	}
	return message, nil
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
