package sms

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-sms/core"
	"github.com/goliatone/go-sms/providers/awssns"
	"github.com/goliatone/go-sms/providers/plivo"
	"github.com/goliatone/go-sms/providers/twilio"
	"github.com/goliatone/go-sms/security"
	"github.com/goliatone/go-sms/transport"
)

// ProviderSet is the output of config-driven provider construction: the
// webhook handlers to register and the send clients keyed by provider.
type ProviderSet struct {
	Handlers []core.InboundHandler
	Clients  []core.SendClient
}

// BuildProviders constructs handlers and send clients for every provider
// present in cfg. Credential fields may arrive as sealed secret envelopes;
// they are resolved through secrets before any client sees them. A provider
// with inbound-only configuration still gets a handler; the send client is
// built only when its credentials are complete.
func BuildProviders(
	ctx context.Context,
	cfg core.Config,
	secrets core.SecretProvider,
	httpClient transport.HTTPDoer,
) (ProviderSet, error) {
	set := ProviderSet{}

	if pc := cfg.Providers.Plivo; pc != nil {
		resolved := *pc
		var err error
		if resolved.AuthToken, err = resolveSecret(ctx, secrets, pc.AuthToken); err != nil {
			return ProviderSet{}, fmt.Errorf("sms: resolve plivo auth token: %w", err)
		}
		set.Handlers = append(set.Handlers, plivo.NewHandler())
		if strings.TrimSpace(resolved.AuthID) != "" && strings.TrimSpace(resolved.AuthToken) != "" {
			set.Clients = append(set.Clients, plivo.NewClient(resolved, httpClient))
		}
	}

	if tc := cfg.Providers.Twilio; tc != nil {
		resolved := *tc
		var err error
		if resolved.AuthToken, err = resolveSecret(ctx, secrets, tc.AuthToken); err != nil {
			return ProviderSet{}, fmt.Errorf("sms: resolve twilio auth token: %w", err)
		}
		set.Handlers = append(set.Handlers, twilio.NewHandler(resolved))
		if strings.TrimSpace(resolved.AccountSID) != "" && strings.TrimSpace(resolved.AuthToken) != "" {
			set.Clients = append(set.Clients, twilio.NewClient(resolved, httpClient))
		}
	}

	if ac := cfg.Providers.AWSSNS; ac != nil {
		resolved := *ac
		var err error
		if resolved.SecretAccessKey, err = resolveSecret(ctx, secrets, ac.SecretAccessKey); err != nil {
			return ProviderSet{}, fmt.Errorf("sms: resolve aws secret access key: %w", err)
		}
		set.Handlers = append(set.Handlers, awssns.NewHandler())
		if strings.TrimSpace(resolved.AccessKeyID) != "" &&
			strings.TrimSpace(resolved.SecretAccessKey) != "" &&
			strings.TrimSpace(resolved.Region) != "" {
			set.Clients = append(set.Clients, awssns.NewClient(resolved, httpClient))
		}
	}

	return set, nil
}

// resolveSecret decrypts value when it is a sealed envelope and passes
// plaintext through untouched. Plaintext config stays valid so deployments
// adopt sealed credentials incrementally.
func resolveSecret(ctx context.Context, secrets core.SecretProvider, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if !security.IsEnvelope([]byte(value)) {
		return value, nil
	}
	if secrets == nil {
		return "", fmt.Errorf("sealed secret present but no secret provider configured")
	}
	plaintext, err := secrets.Decrypt(ctx, []byte(value))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
