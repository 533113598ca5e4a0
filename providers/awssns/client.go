package awssns

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-sms/auth"
	"github.com/goliatone/go-sms/core"
	"github.com/goliatone/go-sms/transport"
)

const publishAPIVersion = "2010-03-31"

// Client publishes outbound messages through the SNS query API, signed with
// SigV4. Messages default to the Transactional SMS type; a non-E.164 From
// value is forwarded as the SNS sender ID.
type Client struct {
	region    string
	endpoint  string
	transport *transport.Client
}

type publishResponse struct {
	XMLName       xml.Name `xml:"PublishResponse"`
	PublishResult struct {
		MessageID string `xml:"MessageId"`
	} `xml:"PublishResult"`
}

type errorResponse struct {
	XMLName xml.Name `xml:"ErrorResponse"`
	Error   struct {
		Type    string `xml:"Type"`
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	} `xml:"Error"`
}

func NewClient(cfg core.AWSSNSConfig, httpClient transport.HTTPDoer) *Client {
	region := strings.TrimSpace(cfg.Region)
	return &Client{
		region:   region,
		endpoint: fmt.Sprintf("https://sns.%s.amazonaws.com/", region),
		transport: transport.NewClient(httpClient, auth.AWSSigV4Signer{
			AccessKeyID:     strings.TrimSpace(cfg.AccessKeyID),
			SecretAccessKey: strings.TrimSpace(cfg.SecretAccessKey),
			Region:          region,
			Service:         "sns",
		}),
	}
}

// WithEndpoint overrides the SNS endpoint, for tests and mock servers.
func (c *Client) WithEndpoint(endpoint string) *Client {
	if c != nil && strings.TrimSpace(endpoint) != "" {
		c.endpoint = strings.TrimSpace(endpoint)
	}
	return c
}

func (*Client) Provider() string { return ProviderID }

func (c *Client) Send(ctx context.Context, req core.SendRequest) (core.SendResponse, error) {
	if c == nil || c.transport == nil {
		return core.SendResponse{}, core.NewUnexpectedError("aws-sns client is not configured")
	}
	if c.region == "" {
		return core.SendResponse{}, core.NewInvalidError("aws region is required")
	}
	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Text) == "" {
		return core.SendResponse{}, core.NewInvalidError("to and text are required")
	}

	res, err := c.transport.Do(ctx, transport.Request{
		Method:      http.MethodPost,
		URL:         c.endpoint,
		ContentType: "application/x-www-form-urlencoded; charset=utf-8",
		Body:        []byte(publishForm(req).Encode()),
	})
	if err != nil {
		return core.SendResponse{}, core.WrapSMSError(core.SMSErrorKindHTTP, err, err.Error())
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return core.SendResponse{}, mapServiceError(res.StatusCode, res.Body)
	}

	result := publishResponse{}
	if err := xml.Unmarshal(res.Body, &result); err != nil {
		return core.SendResponse{}, core.WrapSMSError(core.SMSErrorKindProvider, err, fmt.Sprintf("decode publish response: %v", err))
	}
	id := strings.TrimSpace(result.PublishResult.MessageID)
	if id == "" {
		id = core.FallbackID()
	}

	raw, err := json.Marshal(map[string]any{
		"MessageId": id,
		"Region":    c.region,
		"ResponseMetadata": map[string]any{
			"HTTPStatusCode": res.StatusCode,
		},
	})
	if err != nil {
		raw = nil
	}

	return core.SendResponse{ID: id, Provider: ProviderID, Raw: raw}, nil
}

func publishForm(req core.SendRequest) url.Values {
	form := url.Values{}
	form.Set("Action", "Publish")
	form.Set("Version", publishAPIVersion)
	form.Set("PhoneNumber", req.To)
	form.Set("Message", req.Text)

	entry := 1
	setAttribute := func(name, value string) {
		prefix := "MessageAttributes.entry." + strconv.Itoa(entry)
		form.Set(prefix+".Name", name)
		form.Set(prefix+".Value.DataType", "String")
		form.Set(prefix+".Value.StringValue", value)
		entry++
	}

	// Transactional routing gives the higher delivery priority tier.
	setAttribute("AWS.SNS.SMS.SMSType", "Transactional")
	if from := strings.TrimSpace(req.From); from != "" && !strings.HasPrefix(from, "+") {
		setAttribute("AWS.SNS.SMS.SenderID", from)
	}
	return form
}

func mapServiceError(status int, body []byte) error {
	failure := errorResponse{}
	if err := xml.Unmarshal(body, &failure); err != nil || failure.Error.Code == "" {
		return core.NewProviderError(fmt.Sprintf("HTTP %d: %s", status, body))
	}
	switch failure.Error.Code {
	case "AuthorizationError":
		return core.NewAuthError("AWS authorization failed")
	case "InvalidParameter", "InvalidParameterValue", "ParameterValueInvalid":
		message := strings.TrimSpace(failure.Error.Message)
		if message == "" {
			message = "Invalid parameter"
		}
		return core.NewInvalidError(message)
	default:
		return core.NewProviderError(fmt.Sprintf("AWS SNS error: %s: %s", failure.Error.Code, failure.Error.Message))
	}
}
