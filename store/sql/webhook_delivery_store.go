package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-sms/webhooks"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// WebhookDeliveryStore is the durable delivery ledger. One row per
// (provider, message id); repeated deliveries bump the attempt counter and
// keep the latest outcome. Payload bodies are never stored.
type WebhookDeliveryStore struct {
	db   *bun.DB
	repo repository.Repository[*webhookDeliveryRecord]
}

func NewWebhookDeliveryStore(db *bun.DB) (*WebhookDeliveryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookDeliveryRecord](db, webhookDeliveryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid webhook delivery repository wiring: %w", err)
		}
	}
	return &WebhookDeliveryStore{db: db, repo: repo}, nil
}

func (s *WebhookDeliveryStore) Record(ctx context.Context, delivery webhooks.Delivery) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: webhook delivery store is not configured")
	}
	provider := strings.TrimSpace(delivery.Provider)
	messageID := strings.TrimSpace(delivery.MessageID)
	if provider == "" || messageID == "" {
		return fmt.Errorf("sqlstore: provider and message id are required")
	}
	receivedAt := delivery.ReceivedAt.UTC()
	if delivery.ReceivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	record := &webhookDeliveryRecord{
		ID:         uuid.NewString(),
		Provider:   provider,
		MessageID:  messageID,
		Status:     delivery.Status,
		HTTPStatus: delivery.HTTPStatus,
		Detail:     delivery.Detail,
		Attempts:   1,
		ReceivedAt: receivedAt,
		CreatedAt:  receivedAt,
		UpdatedAt:  receivedAt,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if !isUniqueViolation(err) {
			return err
		}
		return s.bumpAttempt(ctx, provider, messageID, delivery, receivedAt)
	}
	return nil
}

func (s *WebhookDeliveryStore) bumpAttempt(
	ctx context.Context,
	provider string,
	messageID string,
	delivery webhooks.Delivery,
	receivedAt time.Time,
) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := &webhookDeliveryRecord{}
		err := tx.NewSelect().
			Model(existing).
			Where("?TableAlias.provider = ?", provider).
			Where("?TableAlias.message_id = ?", messageID).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("sqlstore: webhook delivery vanished for provider %q message %q", provider, messageID)
			}
			return err
		}
		_, err = tx.NewUpdate().
			Model((*webhookDeliveryRecord)(nil)).
			Set("status = ?", delivery.Status).
			Set("http_status = ?", delivery.HTTPStatus).
			Set("detail = ?", delivery.Detail).
			Set("attempts = ?", existing.Attempts+1).
			Set("received_at = ?", receivedAt).
			Set("updated_at = ?", receivedAt).
			Where("provider = ?", provider).
			Where("message_id = ?", messageID).
			Exec(ctx)
		return err
	})
}

func (s *WebhookDeliveryStore) Get(
	ctx context.Context,
	provider string,
	messageID string,
) (webhooks.Delivery, error) {
	if s == nil || s.db == nil {
		return webhooks.Delivery{}, fmt.Errorf("sqlstore: webhook delivery store is not configured")
	}
	record := &webhookDeliveryRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.provider = ?", strings.TrimSpace(provider)).
		Where("?TableAlias.message_id = ?", strings.TrimSpace(messageID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return webhooks.Delivery{}, fmt.Errorf(
				"sqlstore: webhook delivery not found for provider %q message %q",
				provider,
				messageID,
			)
		}
		return webhooks.Delivery{}, err
	}
	return webhookDeliveryToDomain(record), nil
}

// List returns the most recent deliveries for a provider, newest first.
func (s *WebhookDeliveryStore) List(
	ctx context.Context,
	provider string,
	limit int,
) ([]webhooks.Delivery, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: webhook delivery store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	records := []*webhookDeliveryRecord{}
	query := s.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.received_at DESC").
		Limit(limit)
	if provider = strings.TrimSpace(provider); provider != "" {
		query = query.Where("?TableAlias.provider = ?", provider)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	deliveries := make([]webhooks.Delivery, 0, len(records))
	for _, record := range records {
		deliveries = append(deliveries, webhookDeliveryToDomain(record))
	}
	return deliveries, nil
}

func webhookDeliveryToDomain(record *webhookDeliveryRecord) webhooks.Delivery {
	if record == nil {
		return webhooks.Delivery{}
	}
	return webhooks.Delivery{
		Provider:   record.Provider,
		MessageID:  record.MessageID,
		Status:     record.Status,
		HTTPStatus: record.HTTPStatus,
		Detail:     record.Detail,
		ReceivedAt: record.ReceivedAt,
		Attempts:   record.Attempts,
	}
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}

var _ webhooks.DeliveryLedger = (*WebhookDeliveryStore)(nil)
