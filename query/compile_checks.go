package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-sms/core"
	"github.com/goliatone/go-sms/webhooks"
)

var (
	_ gocmd.Querier[GetProviderMessage, core.ProviderStatus]     = (*GetProviderQuery)(nil)
	_ gocmd.Querier[ListProvidersMessage, []core.ProviderStatus] = (*ListProvidersQuery)(nil)
	_ gocmd.Querier[GetDeliveryMessage, webhooks.Delivery]       = (*GetDeliveryQuery)(nil)
	_ gocmd.Querier[ListDeliveriesMessage, []webhooks.Delivery]  = (*ListDeliveriesQuery)(nil)
)
