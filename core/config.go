package core

import (
	"fmt"
	"strings"
)

type ServerConfig struct {
	Host           string `koanf:"host" mapstructure:"host"`
	Port           int    `koanf:"port" mapstructure:"port"`
	TimeoutSeconds int    `koanf:"timeout_seconds" mapstructure:"timeout_seconds"`
}

type PlivoConfig struct {
	AuthID           string `koanf:"auth_id" mapstructure:"auth_id"`
	AuthToken        string `koanf:"auth_token" mapstructure:"auth_token"`
	BaseURL          string `koanf:"base_url" mapstructure:"base_url"`
	VerifySignatures bool   `koanf:"verify_signatures" mapstructure:"verify_signatures"`
}

type TwilioConfig struct {
	AccountSID       string `koanf:"account_sid" mapstructure:"account_sid"`
	AuthToken        string `koanf:"auth_token" mapstructure:"auth_token"`
	VerifySignatures bool   `koanf:"verify_signatures" mapstructure:"verify_signatures"`
}

type AWSSNSConfig struct {
	AccessKeyID     string `koanf:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key" mapstructure:"secret_access_key"`
	Region          string `koanf:"region" mapstructure:"region"`
}

type ProvidersConfig struct {
	Plivo  *PlivoConfig  `koanf:"plivo" mapstructure:"plivo"`
	Twilio *TwilioConfig `koanf:"twilio" mapstructure:"twilio"`
	AWSSNS *AWSSNSConfig `koanf:"aws_sns" mapstructure:"aws_sns"`
}

type SecurityConfig struct {
	VerifySignatures      bool `koanf:"verify_signatures" mapstructure:"verify_signatures"`
	MaxBodyBytes          int  `koanf:"max_body_bytes" mapstructure:"max_body_bytes"`
	RequestTimeoutSeconds int  `koanf:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" mapstructure:"level"`
	Format string `koanf:"format" mapstructure:"format"`
}

// ProviderLimit overrides the global bucket size for one provider.
type ProviderLimit struct {
	MaxRequests   int `koanf:"max_requests" mapstructure:"max_requests"`
	WindowSeconds int `koanf:"window_seconds" mapstructure:"window_seconds"`
}

// RateLimitConfig is constructed once at startup and read-only afterwards.
type RateLimitConfig struct {
	Enabled       bool                     `koanf:"enabled" mapstructure:"enabled"`
	MaxRequests   int                      `koanf:"max_requests" mapstructure:"max_requests"`
	WindowSeconds int                      `koanf:"window_seconds" mapstructure:"window_seconds"`
	PerProvider   map[string]ProviderLimit `koanf:"per_provider" mapstructure:"per_provider"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	Server      ServerConfig    `koanf:"server" mapstructure:"server"`
	Providers   ProvidersConfig `koanf:"providers" mapstructure:"providers"`
	Security    SecurityConfig  `koanf:"security" mapstructure:"security"`
	Logging     LoggingConfig   `koanf:"logging" mapstructure:"logging"`
	RateLimit   RateLimitConfig `koanf:"rate_limit" mapstructure:"rate_limit"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "sms",
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           3000,
			TimeoutSeconds: 30,
		},
		Security: SecurityConfig{
			VerifySignatures:      true,
			MaxBodyBytes:          1 << 20,
			RequestTimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			MaxRequests:   100,
			WindowSeconds: 60,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("core: server.port %d is out of range", c.Server.Port)
	}
	if c.Security.MaxBodyBytes <= 0 {
		return fmt.Errorf("core: security.max_body_bytes must be positive")
	}
	return c.RateLimit.Validate()
}

func (c RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxRequests <= 0 {
		return fmt.Errorf("core: rate_limit.max_requests must be positive")
	}
	if c.WindowSeconds <= 0 {
		return fmt.Errorf("core: rate_limit.window_seconds must be positive")
	}
	for provider, limit := range c.PerProvider {
		if limit.MaxRequests <= 0 || limit.WindowSeconds <= 0 {
			return fmt.Errorf("core: rate_limit.per_provider[%s] must have positive max_requests and window_seconds", provider)
		}
	}
	return nil
}

// Limit reports the bucket parameters for a provider, falling back to the
// global limit when no override exists.
func (c RateLimitConfig) Limit(provider string) ProviderLimit {
	key := NormalizeProviderKey(provider)
	if key != "" {
		if limit, ok := c.PerProvider[key]; ok {
			return limit
		}
	}
	return ProviderLimit{MaxRequests: c.MaxRequests, WindowSeconds: c.WindowSeconds}
}
