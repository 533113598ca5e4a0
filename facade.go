package sms

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	goerrors "github.com/goliatone/go-errors"
	smscommand "github.com/goliatone/go-sms/command"
	"github.com/goliatone/go-sms/core"
	smsquery "github.com/goliatone/go-sms/query"
	"github.com/goliatone/go-sms/ratelimit"
	"github.com/goliatone/go-sms/webhooks"
)

// ProcessWebhook dispatches one raw provider callback and always returns a
// rendered response.
func (s *Service) ProcessWebhook(ctx context.Context, provider string, headers core.Headers, body []byte) core.WebhookResponse {
	if s == nil || s.processor == nil {
		return core.ErrorResponse(http.StatusInternalServerError, "SMS error: unexpected: service is not configured")
	}
	return s.processor.Process(ctx, provider, headers, body)
}

// Send submits an outbound message through the client registered for
// provider.
func (s *Service) Send(ctx context.Context, provider string, req core.SendRequest) (core.SendResponse, error) {
	if s == nil {
		return core.SendResponse{}, goerrors.New("sms: service is not configured", goerrors.CategoryInternal).
			WithTextCode(core.SMSErrorInternal)
	}
	key := core.NormalizeProviderKey(provider)
	client, ok := s.clients[key]
	if !ok {
		return core.SendResponse{}, goerrors.New(
			fmt.Sprintf("sms: no send client registered for provider %q", key),
			goerrors.CategoryNotFound,
		).WithTextCode(core.SMSErrorProviderNotFound)
	}

	startedAt := s.now()
	resp, err := client.Send(ctx, req)
	s.observer.ObserveOperation(ctx, startedAt, "send_message", err, map[string]any{
		"provider": key,
		"to":       req.To,
	})
	if err != nil {
		return core.SendResponse{}, err
	}
	if resp.Provider == "" {
		resp.Provider = key
	}
	return resp, nil
}

// CheckRateLimit consumes one token from the bucket for provider plus an
// optional caller identifier. A service without a limiter allows everything.
func (s *Service) CheckRateLimit(_ context.Context, provider string, identifier string) core.RateLimitDecision {
	if s == nil || s.limiter == nil {
		return core.Allowed
	}
	return s.limiter.Check(ratelimit.Key(provider, identifier))
}

// SweepBuckets runs one maintenance pass over the limiter. A zero threshold
// uses the sweeper default.
func (s *Service) SweepBuckets(ctx context.Context, idleThreshold time.Duration) error {
	if s == nil || s.sweeper == nil {
		return goerrors.New("sms: rate limit sweeper is not configured", goerrors.CategoryInternal).
			WithTextCode(core.SMSErrorInternal)
	}
	sweeper := *s.sweeper
	if idleThreshold > 0 {
		sweeper.Threshold = idleThreshold
	}
	sweeper.RunOnce(ctx)
	return nil
}

// GetProvider reports the capabilities registered for one provider key.
func (s *Service) GetProvider(_ context.Context, provider string) (core.ProviderStatus, error) {
	if s == nil {
		return core.ProviderStatus{}, goerrors.New("sms: service is not configured", goerrors.CategoryInternal).
			WithTextCode(core.SMSErrorInternal)
	}
	key := core.NormalizeProviderKey(provider)
	_, inbound := s.registry.Lookup(key)
	_, outbound := s.clients[key]
	if !inbound && !outbound {
		return core.ProviderStatus{}, goerrors.New(
			fmt.Sprintf("sms: provider %q is not registered", key),
			goerrors.CategoryNotFound,
		).WithTextCode(core.SMSErrorProviderNotFound)
	}
	return core.ProviderStatus{Key: key, Inbound: inbound, Outbound: outbound}, nil
}

// ListProviders returns the status of every registered provider, sorted by
// key.
func (s *Service) ListProviders(_ context.Context) ([]core.ProviderStatus, error) {
	if s == nil {
		return nil, goerrors.New("sms: service is not configured", goerrors.CategoryInternal).
			WithTextCode(core.SMSErrorInternal)
	}
	seen := map[string]bool{}
	var statuses []core.ProviderStatus
	for _, key := range s.registry.Providers() {
		seen[key] = true
		_, outbound := s.clients[key]
		statuses = append(statuses, core.ProviderStatus{Key: key, Inbound: true, Outbound: outbound})
	}
	for key := range s.clients {
		if !seen[key] {
			statuses = append(statuses, core.ProviderStatus{Key: key, Outbound: true})
		}
	}
	sortProviderStatuses(statuses)
	return statuses, nil
}

// GetDelivery reads one ledger entry by provider and message id.
func (s *Service) GetDelivery(ctx context.Context, provider string, messageID string) (webhooks.Delivery, error) {
	reader, err := s.deliveryLedgerReader()
	if err != nil {
		return webhooks.Delivery{}, err
	}
	return reader.Get(ctx, core.NormalizeProviderKey(provider), messageID)
}

// ListDeliveries reads the most recent ledger entries for a provider.
func (s *Service) ListDeliveries(ctx context.Context, provider string, limit int) ([]webhooks.Delivery, error) {
	reader, err := s.deliveryLedgerReader()
	if err != nil {
		return nil, err
	}
	return reader.List(ctx, core.NormalizeProviderKey(provider), limit)
}

// DeliveryLedgerReader is the read side of a delivery ledger. The SQL store
// satisfies it alongside webhooks.DeliveryLedger.
type DeliveryLedgerReader interface {
	Get(ctx context.Context, provider string, messageID string) (webhooks.Delivery, error)
	List(ctx context.Context, provider string, limit int) ([]webhooks.Delivery, error)
}

func (s *Service) deliveryLedgerReader() (DeliveryLedgerReader, error) {
	if s != nil {
		if reader, ok := s.ledger.(DeliveryLedgerReader); ok {
			return reader, nil
		}
	}
	return nil, goerrors.New("sms: delivery ledger does not support reads", goerrors.CategoryInternal).
		WithTextCode(core.SMSErrorInternal)
}

func sortProviderStatuses(statuses []core.ProviderStatus) {
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Key < statuses[j].Key })
}

// CommandQueryService is everything the CQRS surface needs from the facade.
type CommandQueryService interface {
	smscommand.WebhookService
	smscommand.SendService
	smscommand.RateLimitService
	smsquery.ProviderReader
	smsquery.DeliveryReader
}

type Commands struct {
	ProcessWebhook *smscommand.ProcessWebhookCommand
	SendMessage    *smscommand.SendMessageCommand
	CheckRateLimit *smscommand.CheckRateLimitCommand
	SweepBuckets   *smscommand.SweepBucketsCommand
}

type Queries struct {
	GetProvider    *smsquery.GetProviderQuery
	ListProviders  *smsquery.ListProvidersQuery
	GetDelivery    *smsquery.GetDeliveryQuery
	ListDeliveries *smsquery.ListDeliveriesQuery
}

// Facade bundles the command and query handlers around one service instance.
type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("sms: command/query service is required")
	}
	facade := &Facade{service: service}
	facade.commands = Commands{
		ProcessWebhook: smscommand.NewProcessWebhookCommand(service),
		SendMessage:    smscommand.NewSendMessageCommand(service),
		CheckRateLimit: smscommand.NewCheckRateLimitCommand(service),
		SweepBuckets:   smscommand.NewSweepBucketsCommand(service),
	}
	facade.queries = Queries{
		GetProvider:    smsquery.NewGetProviderQuery(service),
		ListProviders:  smsquery.NewListProvidersQuery(service),
		GetDelivery:    smsquery.NewGetDeliveryQuery(service),
		ListDeliveries: smsquery.NewListDeliveriesQuery(service),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
