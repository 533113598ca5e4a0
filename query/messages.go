package query

import (
	"strings"
)

const (
	TypeGetProvider    = "sms.query.provider.get"
	TypeListProviders  = "sms.query.provider.list"
	TypeGetDelivery    = "sms.query.delivery.get"
	TypeListDeliveries = "sms.query.delivery.list"
)

type GetProviderMessage struct {
	Provider string
}

func (GetProviderMessage) Type() string { return TypeGetProvider }

func (m GetProviderMessage) Validate() error {
	if strings.TrimSpace(m.Provider) == "" {
		return queryValidationError("provider", "provider is required")
	}
	return nil
}

type ListProvidersMessage struct{}

func (ListProvidersMessage) Type() string { return TypeListProviders }

type GetDeliveryMessage struct {
	Provider  string
	MessageID string
}

func (GetDeliveryMessage) Type() string { return TypeGetDelivery }

func (m GetDeliveryMessage) Validate() error {
	if strings.TrimSpace(m.Provider) == "" {
		return queryValidationError("provider", "provider is required")
	}
	if strings.TrimSpace(m.MessageID) == "" {
		return queryValidationError("message_id", "message id is required")
	}
	return nil
}

// ListDeliveriesMessage pages the most recent deliveries for a provider.
// A zero limit uses the reader default.
type ListDeliveriesMessage struct {
	Provider string
	Limit    int
}

func (ListDeliveriesMessage) Type() string { return TypeListDeliveries }

func (m ListDeliveriesMessage) Validate() error {
	if strings.TrimSpace(m.Provider) == "" {
		return queryValidationError("provider", "provider is required")
	}
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must not be negative")
	}
	return nil
}
