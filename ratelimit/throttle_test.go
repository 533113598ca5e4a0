package ratelimit

import (
	"testing"
	"time"

	"github.com/goliatone/go-sms/core"
)

func TestThrottledError_ToServiceError(t *testing.T) {
	err := ThrottledError{
		Provider:   "twilio",
		BucketKey:  "twilio:15550100",
		RetryAfter: 12 * time.Second,
	}

	mapped := err.ToServiceError()
	if mapped == nil {
		t.Fatalf("expected mapped error")
	}
	if mapped.TextCode != core.SMSErrorRateLimited {
		t.Fatalf("expected %q text code, got %q", core.SMSErrorRateLimited, mapped.TextCode)
	}
	if mapped.Code != 429 {
		t.Fatalf("expected status code 429, got %d", mapped.Code)
	}
	if mapped.Metadata["retry_after_ms"] != int64(12000) {
		t.Fatalf("expected retry_after_ms metadata, got %#v", mapped.Metadata)
	}
}
