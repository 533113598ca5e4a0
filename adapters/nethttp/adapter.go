// Package nethttp is the reference HTTP binding for the webhook pipeline. It
// converts *http.Request into the transport-neutral dispatch inputs and
// renders the pipeline response, with an optional rate limit gate in front.
package nethttp

import (
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-sms/core"
	"github.com/goliatone/go-sms/ratelimit"
)

const (
	DefaultPathPrefix   = "/webhook/"
	DefaultMaxBodyBytes = 1 << 20
)

// WebhookHandler serves POST {prefix}{provider}. Every outcome is a rendered
// JSON response; the handler never panics on payload content.
type WebhookHandler struct {
	Processor    core.WebhookProcessor
	Limiter      core.RateLimiter
	Observer     core.Observer
	PathPrefix   string
	MaxBodyBytes int64
}

func NewWebhookHandler(processor core.WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{
		Processor:    processor,
		PathPrefix:   DefaultPathPrefix,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Processor == nil {
		WriteResponse(w, core.ErrorResponse(http.StatusInternalServerError, "SMS error: unexpected: webhook handler is not configured"))
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		WriteResponse(w, core.ErrorResponse(http.StatusMethodNotAllowed, "method not allowed"))
		return
	}

	provider := ProviderFromPath(r.URL.Path, h.pathPrefix())
	if provider == "" {
		WriteResponse(w, core.ErrorResponse(http.StatusNotFound, "unknown provider"))
		return
	}

	headers := HeadersFromRequest(r)

	if h.Limiter != nil {
		identifier := clientIdentifier(r, headers)
		decision := h.Limiter.Check(ratelimit.Key(provider, identifier))
		if !decision.Allowed {
			writeRateLimited(w, decision)
			return
		}
	}

	body, err := readBody(r, h.maxBodyBytes())
	if err != nil {
		h.Observer.LogError(r.Context(), "webhook body rejected", map[string]any{
			"provider": provider,
			"error":    err.Error(),
		})
		WriteResponse(w, core.ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large"))
		return
	}

	WriteResponse(w, h.Processor.Process(r.Context(), provider, headers, body))
}

// ProviderFromPath extracts the provider key as the first path segment after
// prefix. Trailing segments are rejected rather than ignored.
func ProviderFromPath(path string, prefix string) string {
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return core.NormalizeProviderKey(rest)
}

// HeadersFromRequest flattens the request header map into the ordered pair
// form the pipeline consumes. Values under one name keep their wire order.
func HeadersFromRequest(r *http.Request) core.Headers {
	if r == nil {
		return core.Headers{}
	}
	headers := make(core.Headers, 0, len(r.Header))
	for name, values := range r.Header {
		for _, value := range values {
			headers = headers.Add(name, value)
		}
	}
	return headers
}

// WriteResponse renders a pipeline response onto the http surface.
func WriteResponse(w http.ResponseWriter, response core.WebhookResponse) {
	contentType := response.ContentType
	if contentType == "" {
		contentType = core.JSONContentType
	}
	w.Header().Set("Content-Type", contentType)
	status := response.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, response.Body)
}

func writeRateLimited(w http.ResponseWriter, decision core.RateLimitDecision) {
	if decision.RetryAfter > 0 {
		seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	WriteResponse(w, core.ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded"))
}

func clientIdentifier(r *http.Request, headers core.Headers) string {
	identifier := ratelimit.ClientIP(headers)
	if identifier != ratelimit.UnknownClientIP {
		return identifier
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return ratelimit.UnknownClientIP
	}
	return host
}

func readBody(r *http.Request, maxBytes int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > maxBytes {
		return nil, errBodyTooLarge
	}
	return body, nil
}

var errBodyTooLarge = errors.New("nethttp: request body exceeds limit")

func (h *WebhookHandler) pathPrefix() string {
	if h != nil && strings.TrimSpace(h.PathPrefix) != "" {
		return h.PathPrefix
	}
	return DefaultPathPrefix
}

func (h *WebhookHandler) maxBodyBytes() int64 {
	if h != nil && h.MaxBodyBytes > 0 {
		return h.MaxBodyBytes
	}
	return DefaultMaxBodyBytes
}

var _ http.Handler = (*WebhookHandler)(nil)
