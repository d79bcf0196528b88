// Package database defines the cross-paradigm connection-manager contract
// shared by the SQL, document, key-value, and vector sub-packages, plus a
// handful of helpers (driver constants, GORM logging, TLS loading) that the
// concrete adapters depend on regardless of paradigm.
package database

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	"github.com/chris-alexander-pop/system-design-library/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Driver identifies a concrete backend implementation.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite"
	DriverMSSQL    Driver = "mssql"
)

// DB is the cross-paradigm connection manager. A single deployment
// typically only populates the paradigm(s) it uses; the rest return nil.
type DB interface {
	Get(ctx context.Context) *gorm.DB
	GetShard(ctx context.Context, key string) (*gorm.DB, error)
	GetDocument(ctx context.Context) interface{}
	GetKV(ctx context.Context) interface{}
	GetVector(ctx context.Context) interface{}
	Close() error
}

// NewGORMLogger returns a GORM logger that writes through pkg/logger so
// query logs get the same handler chain as the rest of the process. Records
// are logged without a request context, so they carry no trace_id/span_id.
func NewGORMLogger() gormlogger.Interface {
	return gormlogger.New(structuredWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// structuredWriter satisfies gormlogger.Writer by forwarding to the
// structured logger rather than gorm's default os.Stdout writer.
type structuredWriter struct{}

func (structuredWriter) Printf(format string, args ...interface{}) {
	logger.L().Warn("gorm", "detail", fmt.Sprintf(format, args...))
}

// LoadTLSConfig builds a tls.Config from PEM file paths, returning nil when
// sslMode disables TLS entirely.
func LoadTLSConfig(sslMode, rootCertPath, certPath, keyPath string) (*tls.Config, error) {
	switch sslMode {
	case "", "disable", "false":
		return nil, nil
	}

	cfg := &tls.Config{}

	if rootCertPath != "" {
		pem, err := os.ReadFile(rootCertPath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read ssl root cert")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.InvalidArgument("failed to parse ssl root cert", nil)
		}
		cfg.RootCAs = pool
	}

	if certPath != "" && keyPath != "" {
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load ssl client cert/key")
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if sslMode == "insecure" {
		cfg.InsecureSkipVerify = true
	}

	return cfg, nil
}
