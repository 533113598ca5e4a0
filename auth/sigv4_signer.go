package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// AWSSigV4Signer signs requests with the AWS Signature Version 4 header
// scheme. The SNS send client uses it for the Publish query API.
type AWSSigV4Signer struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
	Service         string
	Now             func() time.Time
}

func (AWSSigV4Signer) Kind() string { return KindAWSSigV4 }

func (s AWSSigV4Signer) Sign(_ context.Context, req *http.Request) error {
	if req == nil {
		return fmt.Errorf("auth: http request is required")
	}
	accessKeyID := strings.TrimSpace(s.AccessKeyID)
	secretAccessKey := strings.TrimSpace(s.SecretAccessKey)
	region := strings.TrimSpace(s.Region)
	service := strings.TrimSpace(strings.ToLower(s.Service))
	if accessKeyID == "" || secretAccessKey == "" || region == "" || service == "" {
		return fmt.Errorf("auth: aws sigv4 requires access key, secret, region, and service")
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")

	body, err := readRequestBody(req)
	if err != nil {
		return err
	}
	payloadHash := sha256Hex(body)

	req.Header.Del("Authorization")
	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)
	if token := strings.TrimSpace(s.SessionToken); token != "" {
		req.Header.Set("X-Amz-Security-Token", token)
	}

	canonicalHeaders, signedHeaders := canonicalHeaderBlock(req.Header, req.URL.Host)
	canonicalRequest := strings.Join([]string{
		strings.ToUpper(strings.TrimSpace(req.Method)),
		canonicalURI(req.URL),
		canonicalQueryString(req.URL.Query()),
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	credentialScope := dateStamp + "/" + region + "/" + service + "/aws4_request"
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		credentialScope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	kDate := hmacSHA256([]byte("AWS4"+secretAccessKey), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)
	kSigning := hmacSHA256(kService, "aws4_request")
	signature := hexEncode(hmacSHA256(kSigning, stringToSign))

	req.Header.Set("Authorization", fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		accessKeyID,
		credentialScope,
		signedHeaders,
		signature,
	))
	return nil
}

func canonicalURI(requestURL *url.URL) string {
	if requestURL == nil {
		return "/"
	}
	path := requestURL.EscapedPath()
	if path == "" {
		path = "/"
	}
	return path
}

func canonicalHeaderBlock(headers http.Header, host string) (string, string) {
	normalized := map[string]string{
		"host": strings.ToLower(strings.TrimSpace(host)),
	}
	for key, values := range headers {
		lower := strings.ToLower(strings.TrimSpace(key))
		if lower == "" || lower == "authorization" {
			continue
		}
		cleaned := make([]string, 0, len(values))
		for _, value := range values {
			trimmed := strings.TrimSpace(value)
			if trimmed == "" {
				continue
			}
			cleaned = append(cleaned, strings.Join(strings.Fields(trimmed), " "))
		}
		if len(cleaned) == 0 {
			continue
		}
		normalized[lower] = strings.Join(cleaned, ",")
	}

	keys := make([]string, 0, len(normalized))
	for key := range normalized {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		b.WriteString(key)
		b.WriteString(":")
		b.WriteString(normalized[key])
		b.WriteByte('\n')
	}
	return b.String(), strings.Join(keys, ";")
}

func canonicalQueryString(query url.Values) string {
	if len(query) == 0 {
		return ""
	}
	type entry struct {
		key   string
		value string
	}
	entries := make([]entry, 0, len(query))
	for key, list := range query {
		encodedKey := awsQueryEscape(key)
		if len(list) == 0 {
			entries = append(entries, entry{key: encodedKey})
			continue
		}
		for _, value := range list {
			entries = append(entries, entry{key: encodedKey, value: awsQueryEscape(value)})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].key == entries[j].key {
			return entries[i].value < entries[j].value
		}
		return entries[i].key < entries[j].key
	})

	pairs := make([]string, 0, len(entries))
	for _, e := range entries {
		pairs = append(pairs, e.key+"="+e.value)
	}
	return strings.Join(pairs, "&")
}

func awsQueryEscape(value string) string {
	escaped := url.QueryEscape(value)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	escaped = strings.ReplaceAll(escaped, "*", "%2A")
	escaped = strings.ReplaceAll(escaped, "%7E", "~")
	return escaped
}

var _ RequestSigner = AWSSigV4Signer{}
