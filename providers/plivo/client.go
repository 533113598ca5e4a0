package plivo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-sms/auth"
	"github.com/goliatone/go-sms/core"
	"github.com/goliatone/go-sms/transport"
)

const DefaultBaseURL = "https://api.plivo.com"

// Client sends outbound messages through the Plivo REST API using basic auth
// with the account auth ID and token.
type Client struct {
	authID    string
	baseURL   string
	transport *transport.Client
}

type sendPayload struct {
	Src  string `json:"src"`
	Dst  string `json:"dst"`
	Text string `json:"text"`
}

type sendResult struct {
	Message     string   `json:"message"`
	MessageUUID []string `json:"message_uuid"`
	APIID       string   `json:"api_id"`
}

func NewClient(cfg core.PlivoConfig, httpClient transport.HTTPDoer) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		authID:  strings.TrimSpace(cfg.AuthID),
		baseURL: strings.TrimRight(baseURL, "/"),
		transport: transport.NewClient(httpClient, auth.BasicAuthSigner{
			Username: strings.TrimSpace(cfg.AuthID),
			Password: cfg.AuthToken,
		}),
	}
}

func (*Client) Provider() string { return ProviderID }

func (c *Client) Send(ctx context.Context, req core.SendRequest) (core.SendResponse, error) {
	if c == nil || c.transport == nil {
		return core.SendResponse{}, core.NewUnexpectedError("plivo client is not configured")
	}
	if c.authID == "" {
		return core.SendResponse{}, core.NewAuthError("plivo auth ID is required")
	}
	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Text) == "" {
		return core.SendResponse{}, core.NewInvalidError("to and text are required")
	}

	body, err := json.Marshal(sendPayload{Src: req.From, Dst: req.To, Text: req.Text})
	if err != nil {
		return core.SendResponse{}, core.WrapSMSError(core.SMSErrorKindUnexpected, err, fmt.Sprintf("encode send payload: %v", err))
	}

	res, err := c.transport.Do(ctx, transport.Request{
		Method:      http.MethodPost,
		URL:         fmt.Sprintf("%s/v1/Account/%s/Message/", c.baseURL, c.authID),
		ContentType: core.JSONContentType,
		Body:        body,
	})
	if err != nil {
		return core.SendResponse{}, core.WrapSMSError(core.SMSErrorKindHTTP, err, err.Error())
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return core.SendResponse{}, core.NewProviderError(fmt.Sprintf("HTTP %d: %s", res.StatusCode, res.Body))
	}

	raw := rawResponseJSON(res.Body)

	id := ""
	result := sendResult{}
	if err := json.Unmarshal(res.Body, &result); err == nil && len(result.MessageUUID) > 0 {
		id = result.MessageUUID[0]
	}
	if id == "" {
		id = core.FallbackID()
	}

	return core.SendResponse{ID: id, Provider: ProviderID, Raw: raw}, nil
}

// rawResponseJSON preserves the vendor response verbatim when it is valid
// JSON, otherwise wraps the text so Raw stays marshalable.
func rawResponseJSON(body []byte) json.RawMessage {
	if json.Valid(body) && len(body) > 0 {
		return json.RawMessage(body)
	}
	wrapped, err := json.Marshal(map[string]string{"raw": string(body)})
	if err != nil {
		return nil
	}
	return wrapped
}
