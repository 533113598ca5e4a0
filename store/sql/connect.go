package sqlstore

import (
	"database/sql"
	"fmt"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// ConnectionConfig carries the settings the persistence client needs to open
// a database. It satisfies the config contract go-persistence-bun expects.
type ConnectionConfig struct {
	Debug          bool
	Driver         string
	Server         string
	PingTimeout    time.Duration
	OtelIdentifier string
}

func (c ConnectionConfig) GetDebug() bool   { return c.Debug }
func (c ConnectionConfig) GetDriver() string { return c.Driver }
func (c ConnectionConfig) GetServer() string { return c.Server }

func (c ConnectionConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c ConnectionConfig) GetOtelIdentifier() string {
	if c.OtelIdentifier == "" {
		return "go-sms"
	}
	return c.OtelIdentifier
}

// OpenPostgres opens a Postgres-backed persistence client using the pq driver.
func OpenPostgres(cfg ConnectionConfig) (*persistence.Client, error) {
	if cfg.Server == "" {
		return nil, fmt.Errorf("sqlstore: postgres connection string is required")
	}
	cfg.Driver = "postgres"

	sqlDB, err := sql.Open("postgres", cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open postgres connection: %w", err)
	}

	client, err := persistence.New(cfg, sqlDB, pgdialect.New())
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: create postgres persistence client: %w", err)
	}
	return client, nil
}

// OpenSQLite opens a SQLite-backed persistence client. SQLite serializes
// writes, so the pool is pinned to a single connection.
func OpenSQLite(cfg ConnectionConfig) (*persistence.Client, error) {
	if cfg.Server == "" {
		return nil, fmt.Errorf("sqlstore: sqlite dsn is required")
	}
	cfg.Driver = "sqlite3"

	sqlDB, err := sql.Open("sqlite3", cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open sqlite connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: create sqlite persistence client: %w", err)
	}
	return client, nil
}
