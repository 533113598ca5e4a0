package core

import (
	"context"
	"fmt"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

// DefaultErrorMapper wraps any error into the module's goerrors envelope with
// a category, HTTP code, and text code.
func DefaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return smsErrorMapper(err)
}

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// NewStaticRawConfigLoader serves a fixed raw config map, mostly for tests
// and embedding hosts that already resolved their configuration tree.
func NewStaticRawConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || cfg.ServiceName != "" {
		layer["service_name"] = cfg.ServiceName
	}

	server := map[string]any{}
	if includeZero || cfg.Server.Host != "" {
		server["host"] = cfg.Server.Host
	}
	if includeZero || cfg.Server.Port != 0 {
		server["port"] = cfg.Server.Port
	}
	if includeZero || cfg.Server.TimeoutSeconds != 0 {
		server["timeout_seconds"] = cfg.Server.TimeoutSeconds
	}
	if len(server) > 0 {
		layer["server"] = server
	}

	security := map[string]any{}
	if includeZero || cfg.Security.VerifySignatures {
		security["verify_signatures"] = cfg.Security.VerifySignatures
	}
	if includeZero || cfg.Security.MaxBodyBytes != 0 {
		security["max_body_bytes"] = cfg.Security.MaxBodyBytes
	}
	if includeZero || cfg.Security.RequestTimeoutSeconds != 0 {
		security["request_timeout_seconds"] = cfg.Security.RequestTimeoutSeconds
	}
	if len(security) > 0 {
		layer["security"] = security
	}

	logging := map[string]any{}
	if includeZero || cfg.Logging.Level != "" {
		logging["level"] = cfg.Logging.Level
	}
	if includeZero || cfg.Logging.Format != "" {
		logging["format"] = cfg.Logging.Format
	}
	if len(logging) > 0 {
		layer["logging"] = logging
	}

	rateLimit := map[string]any{}
	if includeZero || cfg.RateLimit.Enabled {
		rateLimit["enabled"] = cfg.RateLimit.Enabled
	}
	if includeZero || cfg.RateLimit.MaxRequests != 0 {
		rateLimit["max_requests"] = cfg.RateLimit.MaxRequests
	}
	if includeZero || cfg.RateLimit.WindowSeconds != 0 {
		rateLimit["window_seconds"] = cfg.RateLimit.WindowSeconds
	}
	if len(cfg.RateLimit.PerProvider) > 0 {
		overrides := make(map[string]any, len(cfg.RateLimit.PerProvider))
		for provider, limit := range cfg.RateLimit.PerProvider {
			overrides[provider] = map[string]any{
				"max_requests":   limit.MaxRequests,
				"window_seconds": limit.WindowSeconds,
			}
		}
		rateLimit["per_provider"] = overrides
	}
	if len(rateLimit) > 0 {
		layer["rate_limit"] = rateLimit
	}

	if providers := providersToLayerMap(cfg.Providers); len(providers) > 0 {
		layer["providers"] = providers
	}
	return layer
}

func providersToLayerMap(cfg ProvidersConfig) map[string]any {
	providers := map[string]any{}
	if cfg.Plivo != nil {
		providers["plivo"] = map[string]any{
			"auth_id":           cfg.Plivo.AuthID,
			"auth_token":        cfg.Plivo.AuthToken,
			"base_url":          cfg.Plivo.BaseURL,
			"verify_signatures": cfg.Plivo.VerifySignatures,
		}
	}
	if cfg.Twilio != nil {
		providers["twilio"] = map[string]any{
			"account_sid":       cfg.Twilio.AccountSID,
			"auth_token":        cfg.Twilio.AuthToken,
			"verify_signatures": cfg.Twilio.VerifySignatures,
		}
	}
	if cfg.AWSSNS != nil {
		providers["aws_sns"] = map[string]any{
			"access_key_id":     cfg.AWSSNS.AccessKeyID,
			"secret_access_key": cfg.AWSSNS.SecretAccessKey,
			"region":            cfg.AWSSNS.Region,
		}
	}
	return providers
}
