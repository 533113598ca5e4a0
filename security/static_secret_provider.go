package security

import (
	"context"
	"fmt"

	"github.com/goliatone/go-sms/core"
)

// StaticSecretProvider is the explicit plaintext policy: config values pass
// through untouched. It is the default when no app key is configured.
type StaticSecretProvider struct{}

func NewStaticSecretProvider() StaticSecretProvider { return StaticSecretProvider{} }

func (StaticSecretProvider) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("security: plaintext is required")
	}
	return append([]byte(nil), plaintext...), nil
}

func (StaticSecretProvider) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("security: ciphertext is required")
	}
	if IsEnvelope(ciphertext) {
		return nil, fmt.Errorf("security: sealed envelope requires an app key provider")
	}
	return append([]byte(nil), ciphertext...), nil
}

var _ core.SecretProvider = StaticSecretProvider{}
