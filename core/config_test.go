package core

import (
	"strings"
	"testing"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ServiceName != "sms" {
		t.Fatalf("expected sms service name, got %q", cfg.ServiceName)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 3000 {
		t.Fatalf("expected default listen address, got %#v", cfg.Server)
	}
	if cfg.Server.TimeoutSeconds != 30 {
		t.Fatalf("expected 30s server timeout, got %d", cfg.Server.TimeoutSeconds)
	}
	if !cfg.Security.VerifySignatures {
		t.Fatalf("expected signature verification on by default")
	}
	if cfg.Security.MaxBodyBytes != 1<<20 {
		t.Fatalf("expected 1MiB body cap, got %d", cfg.Security.MaxBodyBytes)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Fatalf("expected info/json logging defaults, got %#v", cfg.Logging)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.MaxRequests != 100 || cfg.RateLimit.WindowSeconds != 60 {
		t.Fatalf("expected 100 req / 60s default limit, got %#v", cfg.RateLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate: %v", err)
	}
}

func TestConfig_ValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServiceName = "   "
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "service_name") {
		t.Fatalf("expected service_name error, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "server.port") {
		t.Fatalf("expected port range error, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Security.MaxBodyBytes = 0
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "max_body_bytes") {
		t.Fatalf("expected body cap error, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.RateLimit.WindowSeconds = 0
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "window_seconds") {
		t.Fatalf("expected window error, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.RateLimit.PerProvider = map[string]ProviderLimit{
		"twilio": {MaxRequests: 10, WindowSeconds: 0},
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "per_provider") {
		t.Fatalf("expected per provider error, got %v", err)
	}
}

func TestRateLimitConfig_DisabledSkipsValidation(t *testing.T) {
	cfg := RateLimitConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected disabled limiter config to validate: %v", err)
	}
}

func TestRateLimitConfig_LimitPrefersProviderOverride(t *testing.T) {
	cfg := RateLimitConfig{
		Enabled:       true,
		MaxRequests:   100,
		WindowSeconds: 60,
		PerProvider: map[string]ProviderLimit{
			"twilio": {MaxRequests: 10, WindowSeconds: 60},
		},
	}

	override := cfg.Limit(" TWILIO ")
	if override.MaxRequests != 10 || override.WindowSeconds != 60 {
		t.Fatalf("expected twilio override, got %#v", override)
	}

	fallback := cfg.Limit("plivo")
	if fallback.MaxRequests != 100 || fallback.WindowSeconds != 60 {
		t.Fatalf("expected global fallback, got %#v", fallback)
	}
}
