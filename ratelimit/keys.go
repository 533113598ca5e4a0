package ratelimit

import (
	"strings"

	"github.com/goliatone/go-sms/core"
)

// UnknownClientIP is the bucket identifier used when no client address can be
// derived from the request.
const UnknownClientIP = "unknown"

// Key builds the canonical "provider:identifier" bucket key. The provider
// prefix is what per-provider overrides match on.
func Key(provider, identifier string) string {
	provider = core.NormalizeProviderKey(provider)
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return provider
	}
	return provider + ":" + identifier
}

// ClientIP extracts the originating client address from proxy headers,
// checking x-forwarded-for (first segment), x-real-ip, then cf-connecting-ip.
func ClientIP(headers core.Headers) string {
	if value, ok := headers.Get("x-forwarded-for"); ok {
		first, _, _ := strings.Cut(value, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	for _, name := range []string{"x-real-ip", "cf-connecting-ip"} {
		if value, ok := headers.Get(name); ok {
			if value = strings.TrimSpace(value); value != "" {
				return value
			}
		}
	}
	return UnknownClientIP
}
