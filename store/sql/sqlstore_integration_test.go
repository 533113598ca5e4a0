package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/http"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	smsmigrations "github.com/goliatone/go-sms/migrations"
	"github.com/goliatone/go-sms/ratelimit"
	sqlstore "github.com/goliatone/go-sms/store/sql"
	"github.com/goliatone/go-sms/webhooks"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-sms-tests"
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:sms-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = smsmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != smsmigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, smsmigrations.WithValidationTargets(smsmigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"sms_rate_limit_buckets",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "sms_rate_limit_buckets" {
		t.Fatalf("expected sms_rate_limit_buckets table, got %q", tableName)
	}
}

func TestStoreFactory_BuildsStoresFromPersistence(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewStoreFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new store factory: %v", err)
	}
	if factory.RateLimitStateStore() == nil || factory.WebhookDeliveryStore() == nil {
		t.Fatalf("expected stores from factory")
	}
	if factory.DB() == nil {
		t.Fatalf("expected resolved bun db")
	}
}

func TestRateLimitStateStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewRateLimitStateStore(client.DB())
	if err != nil {
		t.Fatalf("new rate-limit state store: %v", err)
	}

	lastRefill := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snapshot := []ratelimit.BucketState{
		{Key: "plivo:203.0.113.7", Tokens: 42, MaxTokens: 100, RefillRate: 100.0 / 60.0, LastRefill: lastRefill},
		{Key: "twilio:203.0.113.8", Tokens: 9, MaxTokens: 10, RefillRate: 10.0 / 60.0, LastRefill: lastRefill},
	}
	if err := store.Save(ctx, snapshot); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(loaded))
	}
	if loaded[0].Key != "plivo:203.0.113.7" || loaded[0].Tokens != 42 {
		t.Fatalf("unexpected first bucket %+v", loaded[0])
	}
	if !loaded[0].LastRefill.Equal(lastRefill) {
		t.Fatalf("expected last refill to survive, got %v", loaded[0].LastRefill)
	}
}

func TestRateLimitStateStore_SaveReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewRateLimitStateStore(client.DB())
	if err != nil {
		t.Fatalf("new rate-limit state store: %v", err)
	}

	lastRefill := time.Now().UTC()
	if err := store.Save(ctx, []ratelimit.BucketState{
		{Key: "plivo:a", Tokens: 1, MaxTokens: 5, RefillRate: 1, LastRefill: lastRefill},
		{Key: "plivo:b", Tokens: 2, MaxTokens: 5, RefillRate: 1, LastRefill: lastRefill},
	}); err != nil {
		t.Fatalf("save first snapshot: %v", err)
	}

	// Second snapshot drops plivo:b (swept) and updates plivo:a.
	if err := store.Save(ctx, []ratelimit.BucketState{
		{Key: "plivo:a", Tokens: 4, MaxTokens: 5, RefillRate: 1, LastRefill: lastRefill},
	}); err != nil {
		t.Fatalf("save second snapshot: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected swept bucket to be pruned, got %d rows", len(loaded))
	}
	if loaded[0].Key != "plivo:a" || loaded[0].Tokens != 4 {
		t.Fatalf("unexpected surviving bucket %+v", loaded[0])
	}
}

func TestWebhookDeliveryStore_RecordAndBumpAttempts(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewWebhookDeliveryStore(client.DB())
	if err != nil {
		t.Fatalf("new webhook delivery store: %v", err)
	}

	first := webhooks.Delivery{
		Provider:   "plivo",
		MessageID:  "uuid-1",
		Status:     webhooks.DeliveryStatusProcessed,
		HTTPStatus: http.StatusOK,
		ReceivedAt: time.Now().UTC(),
	}
	if err := store.Record(ctx, first); err != nil {
		t.Fatalf("record first delivery: %v", err)
	}

	retry := first
	retry.Status = webhooks.DeliveryStatusInvalid
	retry.HTTPStatus = http.StatusBadRequest
	retry.Detail = "core: parse failed: form decode"
	if err := store.Record(ctx, retry); err != nil {
		t.Fatalf("record duplicate delivery: %v", err)
	}

	stored, err := store.Get(ctx, "plivo", "uuid-1")
	if err != nil {
		t.Fatalf("get delivery: %v", err)
	}
	if stored.Attempts != 2 {
		t.Fatalf("expected attempt bump, got %d", stored.Attempts)
	}
	if stored.Status != webhooks.DeliveryStatusInvalid || stored.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("expected latest outcome to win, got %+v", stored)
	}
}

func TestWebhookDeliveryStore_GetMissesAreErrors(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewWebhookDeliveryStore(client.DB())
	if err != nil {
		t.Fatalf("new webhook delivery store: %v", err)
	}
	if _, err := store.Get(context.Background(), "plivo", "missing"); err == nil {
		t.Fatalf("expected missing delivery to fail")
	}
}

func TestWebhookDeliveryStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewWebhookDeliveryStore(client.DB())
	if err != nil {
		t.Fatalf("new webhook delivery store: %v", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := store.Record(ctx, webhooks.Delivery{
			Provider:   "twilio",
			MessageID:  fmt.Sprintf("SM%d", i),
			Status:     webhooks.DeliveryStatusProcessed,
			HTTPStatus: http.StatusOK,
			ReceivedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("record delivery %d: %v", i, err)
		}
	}

	deliveries, err := store.List(ctx, "twilio", 2)
	if err != nil {
		t.Fatalf("list deliveries: %v", err)
	}
	if len(deliveries) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(deliveries))
	}
	if deliveries[0].MessageID != "SM2" {
		t.Fatalf("expected newest delivery first, got %+v", deliveries[0])
	}
}
