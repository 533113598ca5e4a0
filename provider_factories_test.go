package sms

import (
	"context"
	"testing"

	"github.com/goliatone/go-sms/core"
	"github.com/goliatone/go-sms/security"
)

func TestBuildProviders_BuildsConfiguredProviders(t *testing.T) {
	cfg := core.Config{
		Providers: core.ProvidersConfig{
			Plivo:  &core.PlivoConfig{AuthID: "MA_TEST", AuthToken: "plivo-token"},
			Twilio: &core.TwilioConfig{AccountSID: "AC_TEST", AuthToken: "twilio-token"},
			AWSSNS: &core.AWSSNSConfig{AccessKeyID: "AKIA_TEST", SecretAccessKey: "aws-secret", Region: "us-east-1"},
		},
	}

	set, err := BuildProviders(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("BuildProviders failed: %v", err)
	}
	if len(set.Handlers) != 3 {
		t.Fatalf("expected 3 handlers, got %d", len(set.Handlers))
	}
	if len(set.Clients) != 3 {
		t.Fatalf("expected 3 clients, got %d", len(set.Clients))
	}
}

func TestBuildProviders_SkipsUnconfiguredProviders(t *testing.T) {
	set, err := BuildProviders(context.Background(), core.Config{}, nil, nil)
	if err != nil {
		t.Fatalf("BuildProviders failed: %v", err)
	}
	if len(set.Handlers) != 0 || len(set.Clients) != 0 {
		t.Fatalf("expected empty set, got %d handlers %d clients", len(set.Handlers), len(set.Clients))
	}
}

func TestBuildProviders_InboundOnlyWithoutCredentials(t *testing.T) {
	cfg := core.Config{
		Providers: core.ProvidersConfig{
			Plivo: &core.PlivoConfig{},
		},
	}

	set, err := BuildProviders(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("BuildProviders failed: %v", err)
	}
	if len(set.Handlers) != 1 {
		t.Fatalf("expected inbound handler, got %d", len(set.Handlers))
	}
	if len(set.Clients) != 0 {
		t.Fatalf("expected no send client without credentials, got %d", len(set.Clients))
	}
}

func TestBuildProviders_ResolvesSealedSecrets(t *testing.T) {
	secrets, err := security.NewAppKeySecretProviderFromString("factory-test-app-key")
	if err != nil {
		t.Fatalf("secret provider: %v", err)
	}
	sealed, err := secrets.Encrypt(context.Background(), []byte("twilio-token"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	cfg := core.Config{
		Providers: core.ProvidersConfig{
			Twilio: &core.TwilioConfig{AccountSID: "AC_TEST", AuthToken: string(sealed)},
		},
	}

	set, err := BuildProviders(context.Background(), cfg, secrets, nil)
	if err != nil {
		t.Fatalf("BuildProviders failed: %v", err)
	}
	if len(set.Clients) != 1 {
		t.Fatalf("expected send client after secret resolution, got %d", len(set.Clients))
	}
}

func TestBuildProviders_SealedSecretWithoutProviderFails(t *testing.T) {
	secrets, err := security.NewAppKeySecretProviderFromString("factory-test-app-key")
	if err != nil {
		t.Fatalf("secret provider: %v", err)
	}
	sealed, err := secrets.Encrypt(context.Background(), []byte("plivo-token"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	cfg := core.Config{
		Providers: core.ProvidersConfig{
			Plivo: &core.PlivoConfig{AuthID: "MA_TEST", AuthToken: string(sealed)},
		},
	}

	if _, err := BuildProviders(context.Background(), cfg, nil, nil); err == nil {
		t.Fatal("expected error for sealed secret without a secret provider")
	}
}

func TestResolveSecret_PassesPlaintextThrough(t *testing.T) {
	value, err := resolveSecret(context.Background(), nil, "plain-token")
	if err != nil {
		t.Fatalf("resolveSecret failed: %v", err)
	}
	if value != "plain-token" {
		t.Fatalf("expected passthrough, got %q", value)
	}
}
