package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type rateLimitBucketRecord struct {
	bun.BaseModel `bun:"table:sms_rate_limit_buckets,alias:rlb"`

	ID         string    `bun:"id,pk"`
	BucketKey  string    `bun:"bucket_key,notnull,unique"`
	Tokens     int       `bun:"tokens,notnull"`
	MaxTokens  int       `bun:"max_tokens,notnull"`
	RefillRate float64   `bun:"refill_rate,notnull"`
	LastRefill time.Time `bun:"last_refill,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type webhookDeliveryRecord struct {
	bun.BaseModel `bun:"table:sms_webhook_deliveries,alias:wd"`

	ID         string    `bun:"id,pk"`
	Provider   string    `bun:"provider,notnull,unique:ux_sms_webhook_deliveries_provider_message"`
	MessageID  string    `bun:"message_id,notnull,unique:ux_sms_webhook_deliveries_provider_message"`
	Status     string    `bun:"status,notnull"`
	HTTPStatus int       `bun:"http_status,notnull"`
	Detail     string    `bun:"detail"`
	Attempts   int       `bun:"attempts,notnull"`
	ReceivedAt time.Time `bun:"received_at,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
