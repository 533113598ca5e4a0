package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-sms/auth"
	"github.com/goliatone/go-sms/core"
	"github.com/goliatone/go-sms/transport"
)

const DefaultBaseURL = "https://api.twilio.com"

// Client sends outbound messages through the Twilio Messages API using basic
// auth with the account SID and token.
type Client struct {
	accountSID string
	baseURL    string
	transport  *transport.Client
}

type sendResult struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

func NewClient(cfg core.TwilioConfig, httpClient transport.HTTPDoer) *Client {
	return &Client{
		accountSID: strings.TrimSpace(cfg.AccountSID),
		baseURL:    DefaultBaseURL,
		transport: transport.NewClient(httpClient, auth.BasicAuthSigner{
			Username: strings.TrimSpace(cfg.AccountSID),
			Password: cfg.AuthToken,
		}),
	}
}

// WithBaseURL overrides the API host, for tests and mock servers.
func (c *Client) WithBaseURL(baseURL string) *Client {
	if c != nil && strings.TrimSpace(baseURL) != "" {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
	return c
}

func (*Client) Provider() string { return ProviderID }

func (c *Client) Send(ctx context.Context, req core.SendRequest) (core.SendResponse, error) {
	if c == nil || c.transport == nil {
		return core.SendResponse{}, core.NewUnexpectedError("twilio client is not configured")
	}
	if c.accountSID == "" {
		return core.SendResponse{}, core.NewAuthError("twilio account SID is required")
	}
	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Text) == "" {
		return core.SendResponse{}, core.NewInvalidError("to and text are required")
	}

	form := url.Values{}
	form.Set("From", req.From)
	form.Set("To", req.To)
	form.Set("Body", req.Text)

	res, err := c.transport.Do(ctx, transport.Request{
		Method:      http.MethodPost,
		URL:         fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID),
		ContentType: "application/x-www-form-urlencoded",
		Body:        []byte(form.Encode()),
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
	if err := json.Unmarshal(res.Body, &result); err == nil {
		id = strings.TrimSpace(result.SID)
	}
	if id == "" {
		id = core.FallbackID()
	}

	return core.SendResponse{ID: id, Provider: ProviderID, Raw: raw}, nil
}

func rawResponseJSON(body []byte) json.RawMessage {
	if len(body) > 0 && json.Valid(body) {
		return json.RawMessage(body)
	}
	wrapped, err := json.Marshal(map[string]string{"raw": string(body)})
	if err != nil {
		return nil
	}
	return wrapped
}
