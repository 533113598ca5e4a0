// Package sms normalizes SMS provider webhooks into one canonical message
// shape and sends outbound messages through the same provider set. The
// Service facade wires the provider registry, the webhook dispatch pipeline,
// and the keyed token bucket limiter from configuration.
package sms

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-sms/adapters/gologger"
	"github.com/goliatone/go-sms/core"
	"github.com/goliatone/go-sms/ratelimit"
	"github.com/goliatone/go-sms/security"
	sqlstore "github.com/goliatone/go-sms/store/sql"
	"github.com/goliatone/go-sms/transport"
	"github.com/goliatone/go-sms/webhooks"
)

// Aliases so embedding hosts work against the root package alone.
type (
	Config          = core.Config
	Headers         = core.Headers
	InboundMessage  = core.InboundMessage
	SendRequest     = core.SendRequest
	SendResponse    = core.SendResponse
	WebhookResponse = core.WebhookResponse
	ProviderStatus  = core.ProviderStatus
	InboundHandler  = core.InboundHandler
	SendClient      = core.SendClient
	SecretProvider  = core.SecretProvider
	Logger          = core.Logger
	MetricsRecorder = core.MetricsRecorder
)

var DefaultConfig = core.DefaultConfig

// Service is the assembled module: registry, pipeline, limiter, and the
// optional persistence hooks behind them.
type Service struct {
	config    core.Config
	registry  *core.Registry
	clients   map[string]core.SendClient
	processor *webhooks.Processor
	limiter   *ratelimit.Limiter
	sweeper   *ratelimit.Sweeper
	observer  core.Observer
	ledger    webhooks.DeliveryLedger
	secrets   core.SecretProvider
	logger    core.Logger
	clock     func() time.Time
}

type serviceBuilder struct {
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	metricsRecorder core.MetricsRecorder
	configProvider  core.ConfigProvider
	optionsResolver core.OptionsResolver
	runtimeConfig   core.Config
	secrets         core.SecretProvider
	httpClient      transport.HTTPDoer
	ledger          webhooks.DeliveryLedger
	stateStore      ratelimit.StateStore
	extraHandlers   []core.InboundHandler
	extraClients    []core.SendClient
	clock           func() time.Time
	skipRestore     bool
}

type Option func(*serviceBuilder)

func WithLogger(logger core.Logger) Option {
	return func(b *serviceBuilder) { b.logger = logger }
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *serviceBuilder) { b.loggerProvider = provider }
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(b *serviceBuilder) { b.metricsRecorder = recorder }
}

func WithConfig(cfg core.Config) Option {
	return func(b *serviceBuilder) { b.runtimeConfig = cfg }
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *serviceBuilder) { b.configProvider = provider }
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *serviceBuilder) { b.optionsResolver = resolver }
}

func WithSecretProvider(provider core.SecretProvider) Option {
	return func(b *serviceBuilder) { b.secrets = provider }
}

// WithHTTPClient swaps the transport used by every send client, mostly for
// tests and hosts with an instrumented client.
func WithHTTPClient(client transport.HTTPDoer) Option {
	return func(b *serviceBuilder) { b.httpClient = client }
}

func WithDeliveryLedger(ledger webhooks.DeliveryLedger) Option {
	return func(b *serviceBuilder) { b.ledger = ledger }
}

func WithRateLimitStateStore(store ratelimit.StateStore) Option {
	return func(b *serviceBuilder) { b.stateStore = store }
}

// WithStores wires both persistence hooks from one SQL store factory.
func WithStores(factory *sqlstore.StoreFactory) Option {
	return func(b *serviceBuilder) {
		if factory == nil {
			return
		}
		if ledger := factory.WebhookDeliveryStore(); ledger != nil {
			b.ledger = ledger
		}
		if store := factory.RateLimitStateStore(); store != nil {
			b.stateStore = store
		}
	}
}

// WithHandlers registers additional inbound handlers beyond the config-built
// set. Later registrations win on key collisions.
func WithHandlers(handlers ...core.InboundHandler) Option {
	return func(b *serviceBuilder) { b.extraHandlers = append(b.extraHandlers, handlers...) }
}

func WithSendClients(clients ...core.SendClient) Option {
	return func(b *serviceBuilder) { b.extraClients = append(b.extraClients, clients...) }
}

func WithClock(clock func() time.Time) Option {
	return func(b *serviceBuilder) { b.clock = clock }
}

// WithoutStateRestore skips loading the persisted limiter snapshot during
// construction.
func WithoutStateRestore() Option {
	return func(b *serviceBuilder) { b.skipRestore = true }
}

// New assembles a Service: resolve configuration through the provider and
// resolver layers, build providers from it, seed the limiter, and wire the
// pipeline.
func New(ctx context.Context, options ...Option) (*Service, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	builder := serviceBuilder{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	_, logger := gologger.ResolveService("sms", builder.loggerProvider, builder.logger)

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = core.NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = core.NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = core.GoOptionsResolver{}
	}
	if builder.secrets == nil {
		builder.secrets = security.NewStaticSecretProvider()
	}
	if builder.clock == nil {
		builder.clock = func() time.Time { return time.Now().UTC() }
	}

	defaults := core.DefaultConfig()
	loaded, err := builder.configProvider.Load(ctx, defaults)
	if err != nil {
		return nil, buildError(err)
	}
	cfg, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, buildError(err)
	}

	providerSet, err := BuildProviders(ctx, cfg, builder.secrets, builder.httpClient)
	if err != nil {
		return nil, buildError(err)
	}

	registry := core.NewRegistry().
		Register(providerSet.Handlers...).
		Register(builder.extraHandlers...)

	clients := map[string]core.SendClient{}
	for _, client := range append(providerSet.Clients, builder.extraClients...) {
		if client == nil {
			continue
		}
		key := core.NormalizeProviderKey(client.Provider())
		if key == "" {
			continue
		}
		clients[key] = client
	}

	observer := core.NewObserver(logger, builder.metricsRecorder)

	limiter := ratelimit.NewLimiter(cfg.RateLimit)
	limiter.Now = builder.clock
	if builder.stateStore != nil && !builder.skipRestore {
		states, loadErr := builder.stateStore.Load(ctx)
		if loadErr != nil {
			observer.LogError(ctx, "bucket snapshot load failed", map[string]any{
				"error": loadErr.Error(),
			})
		} else {
			limiter.Restore(states)
		}
	}

	sweeper := ratelimit.NewSweeper(limiter)
	sweeper.Store = builder.stateStore
	sweeper.Observer = observer

	processor := webhooks.NewProcessor(registry)
	processor.Ledger = builder.ledger
	processor.Observer = observer
	processor.Now = builder.clock

	return &Service{
		config:    cfg,
		registry:  registry,
		clients:   clients,
		processor: processor,
		limiter:   limiter,
		sweeper:   sweeper,
		observer:  observer,
		ledger:    builder.ledger,
		secrets:   builder.secrets,
		logger:    logger,
		clock:     builder.clock,
	}, nil
}

// Config returns the resolved configuration snapshot.
func (s *Service) Config() core.Config {
	if s == nil {
		return core.Config{}
	}
	return s.config
}

// Registry returns the live handler registry snapshot.
func (s *Service) Registry() *core.Registry {
	if s == nil {
		return nil
	}
	return s.registry
}

// Sweeper returns the configured sweep runner so hosts can drive periodic
// maintenance themselves.
func (s *Service) Sweeper() *ratelimit.Sweeper {
	if s == nil {
		return nil
	}
	return s.sweeper
}

// SaveRateLimitState persists the current limiter snapshot through the sweep
// runner's store.
func (s *Service) SaveRateLimitState(ctx context.Context) error {
	if s == nil || s.sweeper == nil || s.sweeper.Store == nil {
		return fmt.Errorf("sms: no rate limit state store configured")
	}
	return s.sweeper.Store.Save(ctx, s.limiter.Snapshot())
}

func (s *Service) now() time.Time {
	if s != nil && s.clock != nil {
		return s.clock()
	}
	return time.Now().UTC()
}

func buildError(err error) error {
	if mapped := core.DefaultErrorMapper(err); mapped != nil {
		return mapped
	}
	return goerrors.New("sms: service construction failed", goerrors.CategoryInternal)
}

var _ CommandQueryService = (*Service)(nil)
