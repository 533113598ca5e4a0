package nethttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-sms/core"
)

type stubProcessor struct {
	lastProvider string
	lastHeaders  core.Headers
	lastBody     []byte
	response     core.WebhookResponse
}

func (s *stubProcessor) Process(_ context.Context, provider string, headers core.Headers, body []byte) core.WebhookResponse {
	s.lastProvider = provider
	s.lastHeaders = headers
	s.lastBody = append([]byte(nil), body...)
	return s.response
}

type stubLimiter struct {
	lastKey  string
	decision core.RateLimitDecision
}

func (s *stubLimiter) Check(key string) core.RateLimitDecision {
	s.lastKey = key
	return s.decision
}

func TestWebhookHandler_DispatchesToProcessor(t *testing.T) {
	processor := &stubProcessor{
		response: core.SuccessResponse(core.InboundMessage{
			From:     "+15550001111",
			To:       "+15550002222",
			Text:     "hi",
			Provider: "plivo",
		}),
	}
	handler := NewWebhookHandler(processor)

	req := httptest.NewRequest(http.MethodPost, "/webhook/Plivo", strings.NewReader("From=%2B15550001111"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != core.JSONContentType {
		t.Fatalf("expected json content type, got %q", got)
	}
	if processor.lastProvider != "plivo" {
		t.Fatalf("expected normalized provider key, got %q", processor.lastProvider)
	}
	if value, ok := processor.lastHeaders.Get("content-type"); !ok || value != "application/x-www-form-urlencoded" {
		t.Fatalf("expected request headers to pass through, got %#v", processor.lastHeaders)
	}
	if string(processor.lastBody) != "From=%2B15550001111" {
		t.Fatalf("unexpected body: %q", processor.lastBody)
	}
}

func TestWebhookHandler_RejectsNonPost(t *testing.T) {
	handler := NewWebhookHandler(&stubProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/webhook/plivo", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if rec.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("expected Allow header, got %q", rec.Header().Get("Allow"))
	}
}

func TestWebhookHandler_UnroutablePathIs404(t *testing.T) {
	handler := NewWebhookHandler(&stubProcessor{})

	for _, path := range []string{"/webhook/", "/other/plivo", "/webhook/plivo/extra"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("path %q: expected 404, got %d", path, rec.Code)
		}
		if rec.Body.String() != `{"error": "unknown provider"}` {
			t.Fatalf("path %q: unexpected body %q", path, rec.Body.String())
		}
	}
}

func TestWebhookHandler_RateLimitGate(t *testing.T) {
	limiter := &stubLimiter{decision: core.Limited(2 * time.Second)}
	handler := NewWebhookHandler(&stubProcessor{})
	handler.Limiter = limiter

	req := httptest.NewRequest(http.MethodPost, "/webhook/plivo", strings.NewReader("x"))
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("expected Retry-After 2, got %q", rec.Header().Get("Retry-After"))
	}
	if limiter.lastKey != "plivo:203.0.113.9" {
		t.Fatalf("expected forwarded client in bucket key, got %q", limiter.lastKey)
	}
	if rec.Body.String() != `{"error": "rate limit exceeded"}` {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestWebhookHandler_FallsBackToRemoteAddr(t *testing.T) {
	limiter := &stubLimiter{decision: core.Allowed}
	handler := NewWebhookHandler(&stubProcessor{response: core.ErrorResponse(http.StatusNotFound, "unknown provider")})
	handler.Limiter = limiter

	req := httptest.NewRequest(http.MethodPost, "/webhook/plivo", strings.NewReader("x"))
	req.RemoteAddr = "198.51.100.7:4411"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if limiter.lastKey != "plivo:198.51.100.7" {
		t.Fatalf("expected remote addr bucket key, got %q", limiter.lastKey)
	}
}

func TestWebhookHandler_CapsBodySize(t *testing.T) {
	processor := &stubProcessor{}
	handler := NewWebhookHandler(processor)
	handler.MaxBodyBytes = 8

	req := httptest.NewRequest(http.MethodPost, "/webhook/plivo", strings.NewReader("0123456789"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	if processor.lastProvider != "" {
		t.Fatalf("expected oversized body to skip dispatch")
	}
}

func TestProviderFromPath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/webhook/plivo", "plivo"},
		{"/webhook/AWS-SNS", "aws-sns"},
		{"/webhook/twilio/", "twilio"},
		{"/webhook/", ""},
		{"/webhook/a/b", ""},
		{"/elsewhere/plivo", ""},
	}
	for _, tc := range cases {
		if got := ProviderFromPath(tc.path, DefaultPathPrefix); got != tc.want {
			t.Fatalf("path %q: expected %q, got %q", tc.path, tc.want, got)
		}
	}
}
