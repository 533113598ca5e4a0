package query

import (
	"context"

	"github.com/goliatone/go-sms/core"
	"github.com/goliatone/go-sms/webhooks"
)

// ProviderReader reports what providers are registered and what each one can
// do. The facade backs it with the handler registry and send client set.
type ProviderReader interface {
	GetProvider(ctx context.Context, provider string) (core.ProviderStatus, error)
	ListProviders(ctx context.Context) ([]core.ProviderStatus, error)
}

// DeliveryReader reads the webhook delivery ledger.
type DeliveryReader interface {
	GetDelivery(ctx context.Context, provider string, messageID string) (webhooks.Delivery, error)
	ListDeliveries(ctx context.Context, provider string, limit int) ([]webhooks.Delivery, error)
}

type GetProviderQuery struct {
	reader ProviderReader
}

func NewGetProviderQuery(reader ProviderReader) *GetProviderQuery {
	return &GetProviderQuery{reader: reader}
}

func (q *GetProviderQuery) Query(ctx context.Context, msg GetProviderMessage) (core.ProviderStatus, error) {
	if q == nil || q.reader == nil {
		return core.ProviderStatus{}, queryDependencyError("query: provider reader is required")
	}
	return q.reader.GetProvider(ctx, msg.Provider)
}

type ListProvidersQuery struct {
	reader ProviderReader
}

func NewListProvidersQuery(reader ProviderReader) *ListProvidersQuery {
	return &ListProvidersQuery{reader: reader}
}

func (q *ListProvidersQuery) Query(ctx context.Context, msg ListProvidersMessage) ([]core.ProviderStatus, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: provider reader is required")
	}
	_ = msg
	return q.reader.ListProviders(ctx)
}

type GetDeliveryQuery struct {
	reader DeliveryReader
}

func NewGetDeliveryQuery(reader DeliveryReader) *GetDeliveryQuery {
	return &GetDeliveryQuery{reader: reader}
}

func (q *GetDeliveryQuery) Query(ctx context.Context, msg GetDeliveryMessage) (webhooks.Delivery, error) {
	if q == nil || q.reader == nil {
		return webhooks.Delivery{}, queryDependencyError("query: delivery reader is required")
	}
	return q.reader.GetDelivery(ctx, msg.Provider, msg.MessageID)
}

type ListDeliveriesQuery struct {
	reader DeliveryReader
}

func NewListDeliveriesQuery(reader DeliveryReader) *ListDeliveriesQuery {
	return &ListDeliveriesQuery{reader: reader}
}

func (q *ListDeliveriesQuery) Query(ctx context.Context, msg ListDeliveriesMessage) ([]webhooks.Delivery, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: delivery reader is required")
	}
	return q.reader.ListDeliveries(ctx, msg.Provider, msg.Limit)
}
