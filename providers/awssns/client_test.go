package awssns

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/goliatone/go-sms/core"
)

type stubDoer struct {
	lastRequest *http.Request
	lastBody    []byte
	status      int
	body        string
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	s.lastRequest = req
	if req.Body != nil {
		body, _ := io.ReadAll(req.Body)
		s.lastBody = body
	}
	status := s.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(s.body)),
	}, nil
}

const publishOKBody = `<PublishResponse xmlns="https://sns.amazonaws.com/doc/2010-03-31/">
	<PublishResult><MessageId>sns-msg-1</MessageId></PublishResult>
	<ResponseMetadata><RequestId>req-1</RequestId></ResponseMetadata>
</PublishResponse>`

func testConfig() core.AWSSNSConfig {
	return core.AWSSNSConfig{
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		Region:          "us-east-1",
	}
}

func TestClient_Send_PublishesMessage(t *testing.T) {
	doer := &stubDoer{body: publishOKBody}
	client := NewClient(testConfig(), doer)

	res, err := client.Send(context.Background(), core.SendRequest{To: "+1234567890", Text: "hello"})
	if err != nil {
		t.Fatalf("expected send to succeed, got %v", err)
	}
	if res.ID != "sns-msg-1" {
		t.Fatalf("expected SNS message id, got %q", res.ID)
	}
	if res.Provider != ProviderID {
		t.Fatalf("expected provider %q, got %q", ProviderID, res.Provider)
	}

	sent := doer.lastRequest
	if sent.URL.String() != "https://sns.us-east-1.amazonaws.com/" {
		t.Fatalf("unexpected endpoint %s", sent.URL)
	}
	if !strings.HasPrefix(sent.Header.Get("Authorization"), "AWS4-HMAC-SHA256 ") {
		t.Fatalf("expected SigV4 authorization header, got %q", sent.Header.Get("Authorization"))
	}

	form, err := url.ParseQuery(string(doer.lastBody))
	if err != nil {
		t.Fatalf("expected form payload, got %v", err)
	}
	if form.Get("Action") != "Publish" || form.Get("PhoneNumber") != "+1234567890" || form.Get("Message") != "hello" {
		t.Fatalf("unexpected publish form %v", form)
	}
	if form.Get("MessageAttributes.entry.1.Value.StringValue") != "Transactional" {
		t.Fatalf("expected transactional SMS type attribute, got %v", form)
	}
}

func TestClient_Send_ForwardsAlphanumericSenderID(t *testing.T) {
	doer := &stubDoer{body: publishOKBody}
	client := NewClient(testConfig(), doer)

	if _, err := client.Send(context.Background(), core.SendRequest{From: "ACME", To: "+1555", Text: "hi"}); err != nil {
		t.Fatalf("expected send to succeed, got %v", err)
	}
	form, _ := url.ParseQuery(string(doer.lastBody))
	if form.Get("MessageAttributes.entry.2.Name") != "AWS.SNS.SMS.SenderID" {
		t.Fatalf("expected sender ID attribute, got %v", form)
	}
	if form.Get("MessageAttributes.entry.2.Value.StringValue") != "ACME" {
		t.Fatalf("expected sender ID value, got %v", form)
	}
}

func TestClient_Send_PhoneNumberFromIsNotASenderID(t *testing.T) {
	doer := &stubDoer{body: publishOKBody}
	client := NewClient(testConfig(), doer)

	if _, err := client.Send(context.Background(), core.SendRequest{From: "+15550001111", To: "+1555", Text: "hi"}); err != nil {
		t.Fatalf("expected send to succeed, got %v", err)
	}
	form, _ := url.ParseQuery(string(doer.lastBody))
	if form.Get("MessageAttributes.entry.2.Name") != "" {
		t.Fatalf("expected no sender ID attribute for E.164 From, got %v", form)
	}
}

func TestClient_Send_MapsAuthorizationError(t *testing.T) {
	doer := &stubDoer{
		status: http.StatusForbidden,
		body: `<ErrorResponse xmlns="https://sns.amazonaws.com/doc/2010-03-31/">
			<Error><Type>Sender</Type><Code>AuthorizationError</Code><Message>denied</Message></Error>
		</ErrorResponse>`,
	}
	client := NewClient(testConfig(), doer)

	_, err := client.Send(context.Background(), core.SendRequest{To: "+1555", Text: "hi"})
	if err == nil {
		t.Fatalf("expected authorization failure to surface")
	}
	smsErr, ok := err.(*core.SMSError)
	if !ok {
		t.Fatalf("expected *core.SMSError, got %T", err)
	}
	if smsErr.Kind != core.SMSErrorKindAuth {
		t.Fatalf("expected auth kind, got %s", smsErr.Kind)
	}
}

func TestClient_Send_MapsInvalidParameter(t *testing.T) {
	doer := &stubDoer{
		status: http.StatusBadRequest,
		body: `<ErrorResponse xmlns="https://sns.amazonaws.com/doc/2010-03-31/">
			<Error><Type>Sender</Type><Code>InvalidParameter</Code><Message>Invalid parameter: PhoneNumber</Message></Error>
		</ErrorResponse>`,
	}
	client := NewClient(testConfig(), doer)

	_, err := client.Send(context.Background(), core.SendRequest{To: "bogus", Text: "hi"})
	smsErr, ok := err.(*core.SMSError)
	if !ok {
		t.Fatalf("expected *core.SMSError, got %T", err)
	}
	if smsErr.Kind != core.SMSErrorKindInvalid {
		t.Fatalf("expected invalid kind, got %s", smsErr.Kind)
	}
	if !strings.Contains(smsErr.Message, "PhoneNumber") {
		t.Fatalf("expected vendor message, got %q", smsErr.Message)
	}
}

func TestClient_Send_RequiresRegion(t *testing.T) {
	client := NewClient(core.AWSSNSConfig{AccessKeyID: "k", SecretAccessKey: "s"}, &stubDoer{})
	if _, err := client.Send(context.Background(), core.SendRequest{To: "+1555", Text: "hi"}); err == nil {
		t.Fatalf("expected missing region to fail")
	}
}
