// Package auth provides request signing strategies for outbound vendor
// calls. Signers mutate an *http.Request in place; inbound webhook
// verification lives in the webhooks package.
package auth

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	KindBasic      = "basic"
	KindHeaderHMAC = "header_hmac"
	KindAWSSigV4   = "aws_sigv4"
)

// RequestSigner attaches authentication material to an outgoing request.
type RequestSigner interface {
	Kind() string
	Sign(ctx context.Context, req *http.Request) error
}

// BasicAuthSigner sets an HTTP basic Authorization header. Plivo and Twilio
// both authenticate sends this way (account id + auth token).
type BasicAuthSigner struct {
	Username string
	Password string
}

func (BasicAuthSigner) Kind() string { return KindBasic }

func (s BasicAuthSigner) Sign(_ context.Context, req *http.Request) error {
	if req == nil {
		return fmt.Errorf("auth: http request is required")
	}
	username := strings.TrimSpace(s.Username)
	if username == "" {
		return fmt.Errorf("auth: basic auth username is required")
	}
	req.SetBasicAuth(username, s.Password)
	return nil
}

// HeaderHMACSigner writes a SHA-256 HMAC of the request body into a header,
// hex or base64 encoded, with an optional value prefix. It is the outbound
// mirror of the webhooks package header-HMAC verifier.
type HeaderHMACSigner struct {
	Header   string
	Secret   string
	Prefix   string
	Encoding string // hex | base64
}

func (HeaderHMACSigner) Kind() string { return KindHeaderHMAC }

func (s HeaderHMACSigner) Sign(_ context.Context, req *http.Request) error {
	if req == nil {
		return fmt.Errorf("auth: http request is required")
	}
	header := strings.TrimSpace(s.Header)
	if header == "" {
		return fmt.Errorf("auth: signature header name is required")
	}
	secret := strings.TrimSpace(s.Secret)
	if secret == "" {
		return fmt.Errorf("auth: signature secret is required")
	}
	body, err := readRequestBody(req)
	if err != nil {
		return err
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	sum := mac.Sum(nil)

	signature := hex.EncodeToString(sum)
	if strings.EqualFold(strings.TrimSpace(s.Encoding), "base64") {
		signature = base64.StdEncoding.EncodeToString(sum)
	}
	req.Header.Set(header, strings.TrimSpace(s.Prefix)+signature)
	return nil
}

// readRequestBody returns the request body bytes and leaves the request
// replayable. GetBody is preferred; otherwise the body is drained and
// restored.
func readRequestBody(req *http.Request) ([]byte, error) {
	if req.Body == nil && req.GetBody == nil {
		return nil, nil
	}
	if req.GetBody != nil {
		reader, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("auth: reread request body: %w", err)
		}
		defer reader.Close()
		body, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("auth: read request body: %w", err)
		}
		return body, nil
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("auth: read request body: %w", err)
	}
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func hmacSHA256(key []byte, value string) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(value))
	return mac.Sum(nil)
}

func sha256Hex(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func hexEncode(value []byte) string {
	return hex.EncodeToString(value)
}

var (
	_ RequestSigner = BasicAuthSigner{}
	_ RequestSigner = HeaderHMACSigner{}
)
