package core

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Header is a single (name, value) pair. Webhook payload verification can be
// signature-sensitive to header order and duplicates, so headers are carried
// as an ordered slice rather than a map.
type Header struct {
	Name  string
	Value string
}

type Headers []Header

func NewHeaders(pairs ...string) Headers {
	if len(pairs)%2 != 0 {
		pairs = pairs[:len(pairs)-1]
	}
	headers := make(Headers, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		headers = append(headers, Header{Name: pairs[i], Value: pairs[i+1]})
	}
	return headers
}

// Get returns the first value whose name matches case-insensitively.
func (h Headers) Get(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, header := range h {
		if strings.EqualFold(strings.TrimSpace(header.Name), name) {
			return header.Value, true
		}
	}
	return "", false
}

// Values returns every value recorded under name, preserving order.
func (h Headers) Values(name string) []string {
	name = strings.TrimSpace(name)
	var values []string
	for _, header := range h {
		if strings.EqualFold(strings.TrimSpace(header.Name), name) {
			values = append(values, header.Value)
		}
	}
	return values
}

func (h Headers) Add(name, value string) Headers {
	return append(h, Header{Name: name, Value: value})
}

func (h Headers) Clone() Headers {
	if len(h) == 0 {
		return Headers{}
	}
	return append(Headers(nil), h...)
}

// SendRequest is an outbound message submission. Values are immutable.
type SendRequest struct {
	To   string `json:"to"`
	From string `json:"from"`
	Text string `json:"text"`
}

// SendResponse reports a vendor-acknowledged outbound send. Raw keeps the
// vendor payload verbatim for audit; the core never interprets it.
type SendResponse struct {
	ID       string          `json:"id"`
	Provider string          `json:"provider"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// InboundMessage is the normalized shape every provider webhook is parsed
// into. A nil Timestamp means the vendor payload carried no parseable time.
type InboundMessage struct {
	ID        string          `json:"id,omitempty"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Text      string          `json:"text"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
	Provider  string          `json:"provider"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// FallbackID returns a random message identifier for vendors that do not
// assign one.
func FallbackID() string {
	return uuid.NewString()
}

// ProviderStatus is a read model describing what a registered provider can
// do: receive webhooks, send messages, or both.
type ProviderStatus struct {
	Key      string `json:"key"`
	Inbound  bool   `json:"inbound"`
	Outbound bool   `json:"outbound"`
}

const JSONContentType = "application/json"

// WebhookResponse is the only type the dispatch pipeline returns. Status is an
// HTTP-like code; Body is already rendered.
type WebhookResponse struct {
	Status      int
	Body        string
	ContentType string
}

func SuccessResponse(message InboundMessage) WebhookResponse {
	body, err := json.Marshal(message)
	if err != nil {
		return ErrorResponse(http.StatusInternalServerError, "SMS error: "+err.Error())
	}
	return WebhookResponse{
		Status:      http.StatusOK,
		Body:        string(body),
		ContentType: JSONContentType,
	}
}

// ErrorResponse renders the stable error body shape {"error": "<message>"}.
// The message is JSON-escaped; the surrounding shape, including the space
// after the colon, is part of the public contract.
func ErrorResponse(status int, message string) WebhookResponse {
	quoted, err := json.Marshal(message)
	if err != nil {
		quoted = []byte(`"internal error"`)
	}
	return WebhookResponse{
		Status:      status,
		Body:        `{"error": ` + string(quoted) + `}`,
		ContentType: JSONContentType,
	}
}
