package security

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-sms/core"
)

type SecretProviderFailurePolicy string

const (
	SecretProviderFailurePolicyStrict   SecretProviderFailurePolicy = "strict_fail"
	SecretProviderFailurePolicyFallback SecretProviderFailurePolicy = "fallback_allowed"
)

// SecretProviderDiagnostic is emitted when the primary provider fails, so
// operators can see silent fallbacks.
type SecretProviderDiagnostic struct {
	Operation string
	Policy    SecretProviderFailurePolicy
	Outcome   string
	Error     string
}

type SecretProviderDiagnosticHook func(event SecretProviderDiagnostic)

type FailoverOption func(*FailoverSecretProvider)

// FailoverSecretProvider tries a primary provider and, under the fallback
// policy, retries against a secondary one. The strict policy surfaces the
// primary failure unchanged.
type FailoverSecretProvider struct {
	primary        core.SecretProvider
	fallback       core.SecretProvider
	policy         SecretProviderFailurePolicy
	diagnosticHook SecretProviderDiagnosticHook
}

func NewFailoverSecretProvider(primary core.SecretProvider, opts ...FailoverOption) (*FailoverSecretProvider, error) {
	if primary == nil {
		return nil, fmt.Errorf("security: primary secret provider is required")
	}
	provider := &FailoverSecretProvider{
		primary: primary,
		policy:  SecretProviderFailurePolicyStrict,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(provider)
	}
	provider.policy = normalizeFailurePolicy(provider.policy)
	if provider.policy == SecretProviderFailurePolicyFallback && provider.fallback == nil {
		return nil, fmt.Errorf("security: fallback policy requires a configured fallback secret provider")
	}
	return provider, nil
}

func WithFallbackSecretProvider(provider core.SecretProvider) FailoverOption {
	return func(f *FailoverSecretProvider) {
		f.fallback = provider
	}
}

func WithSecretProviderFailurePolicy(policy SecretProviderFailurePolicy) FailoverOption {
	return func(f *FailoverSecretProvider) {
		f.policy = normalizeFailurePolicy(policy)
	}
}

func WithSecretProviderDiagnostics(hook SecretProviderDiagnosticHook) FailoverOption {
	return func(f *FailoverSecretProvider) {
		f.diagnosticHook = hook
	}
}

func (p *FailoverSecretProvider) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("security: secret provider is nil")
	}
	ciphertext, err := p.primary.Encrypt(ctx, plaintext)
	if err == nil {
		return ciphertext, nil
	}
	p.emit("encrypt", "primary_failed", err)
	if p.policy == SecretProviderFailurePolicyStrict || p.fallback == nil {
		return nil, fmt.Errorf("security: primary encrypt failed with %s policy: %w", p.policy, err)
	}
	ciphertext, fallbackErr := p.fallback.Encrypt(ctx, plaintext)
	if fallbackErr != nil {
		p.emit("encrypt", "fallback_failed", fallbackErr)
		return nil, fmt.Errorf("security: primary encrypt failed: %v; fallback encrypt failed: %w", err, fallbackErr)
	}
	p.emit("encrypt", "fallback_succeeded", err)
	return ciphertext, nil
}

func (p *FailoverSecretProvider) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("security: secret provider is nil")
	}
	plaintext, err := p.primary.Decrypt(ctx, ciphertext)
	if err == nil {
		return plaintext, nil
	}
	p.emit("decrypt", "primary_failed", err)
	if p.policy == SecretProviderFailurePolicyStrict || p.fallback == nil {
		return nil, fmt.Errorf("security: primary decrypt failed with %s policy: %w", p.policy, err)
	}
	plaintext, fallbackErr := p.fallback.Decrypt(ctx, ciphertext)
	if fallbackErr != nil {
		p.emit("decrypt", "fallback_failed", fallbackErr)
		return nil, fmt.Errorf("security: primary decrypt failed: %v; fallback decrypt failed: %w", err, fallbackErr)
	}
	p.emit("decrypt", "fallback_succeeded", err)
	return plaintext, nil
}

func (p *FailoverSecretProvider) emit(operation string, outcome string, err error) {
	if p == nil || p.diagnosticHook == nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	p.diagnosticHook(SecretProviderDiagnostic{
		Operation: operation,
		Policy:    p.policy,
		Outcome:   outcome,
		Error:     msg,
	})
}

func normalizeFailurePolicy(policy SecretProviderFailurePolicy) SecretProviderFailurePolicy {
	switch SecretProviderFailurePolicy(strings.ToLower(strings.TrimSpace(string(policy)))) {
	case SecretProviderFailurePolicyFallback:
		return SecretProviderFailurePolicyFallback
	default:
		return SecretProviderFailurePolicyStrict
	}
}

var _ core.SecretProvider = (*FailoverSecretProvider)(nil)
