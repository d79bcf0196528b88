// Package sql defines the core contract for relational-database adapters
// (postgres, mysql, sqlite, mssql). Each adapter lives in its own
// sub-package under pkg/database/sql/adapters so callers only pull in the
// driver they use.
package sql

import (
	"context"
	"time"

	"github.com/chris-alexander-pop/system-design-library/pkg/database"
	"gorm.io/gorm"
)

// Config holds connection parameters shared by every SQL adapter.
type Config struct {
	// Driver selects which adapter New should have been constructed from.
	// Adapters validate that this matches their own database.Driver constant.
	Driver database.Driver `env:"DB_DRIVER" env-default:"postgres"`

	Host     string `env:"DB_HOST" env-default:"localhost"`
	Port     string `env:"DB_PORT" env-default:"5432"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`

	// SSLMode is interpreted per-adapter (e.g. "disable", "require", "verify-full").
	SSLMode     string `env:"DB_SSLMODE" env-default:"disable"`
	SSLRootCert string `env:"DB_SSL_ROOT_CERT"`
	SSLCert     string `env:"DB_SSL_CERT"`
	SSLKey      string `env:"DB_SSL_KEY"`

	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"50"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"30m"`
}

// SQL is the interface every relational adapter implements. Get returns a
// request-scoped *gorm.DB bound to ctx; GetShard resolves a shard by key for
// adapters that support horizontal partitioning (single-instance adapters
// just return the primary connection).
type SQL interface {
	Get(ctx context.Context) *gorm.DB
	GetShard(ctx context.Context, key string) (*gorm.DB, error)
	Close() error
}

var _ database.DB = (*manager)(nil)

// manager adapts a SQL adapter into the cross-paradigm database.DB contract,
// reporting nil for paradigms it does not serve.
type manager struct {
	sql SQL
}

// NewManager wraps a SQL adapter so it can be used wherever a
// database.DB is expected.
func NewManager(sql SQL) database.DB {
	return &manager{sql: sql}
}

func (m *manager) Get(ctx context.Context) *gorm.DB                       { return m.sql.Get(ctx) }
func (m *manager) GetShard(ctx context.Context, key string) (*gorm.DB, error) {
	return m.sql.GetShard(ctx, key)
}
func (m *manager) GetDocument(ctx context.Context) interface{} { return nil }
func (m *manager) GetKV(ctx context.Context) interface{}       { return nil }
func (m *manager) GetVector(ctx context.Context) interface{}   { return nil }
func (m *manager) Close() error                                { return m.sql.Close() }
