package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mediatally/mediatally/internal/model"
	"github.com/mediatally/mediatally/internal/schema"
)

// ConnectionConfig holds database connection parameters.
type ConnectionConfig struct {
	Driver          string
	DSN             string
	SchemaName      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// FromService converts a configured service into connection parameters.
func FromService(svc model.ServiceConfig) ConnectionConfig {
	return ConnectionConfig{
		Driver:          svc.Driver,
		DSN:             svc.DSN,
		SchemaName:      svc.Schema,
		MaxOpenConns:    svc.Pool.MaxOpenConns,
		MaxIdleConns:    svc.Pool.MaxIdleConns,
		ConnMaxLifetime: svc.Pool.ConnMaxLifetime,
		ConnMaxIdleTime: svc.Pool.ConnMaxIdleTime,
	}
}

// Connector is implemented by every database backend. A connector is also
// the schema.Dialect of its engine, so an unconnected connector can render
// DDL.
type Connector interface {
	schema.Dialect

	Connect(cfg ConnectionConfig) error
	Disconnect() error
	Ping(ctx context.Context) error
	DB() *sqlx.DB

	// GetTableNames lists base tables in the connector's schema.
	GetTableNames(ctx context.Context) ([]string, error)
	// IntrospectTable reads columns, foreign keys and unique constraints.
	IntrospectTable(ctx context.Context, tableName string) (*model.TableSchema, error)
}

// ApplyPool sets the pool limits of cfg on db. Zero values keep the
// database/sql defaults.
func ApplyPool(db *sqlx.DB, cfg ConnectionConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// IntrospectSchema reads every table of the connector's schema.
func IntrospectSchema(ctx context.Context, c Connector, name string) (*model.Schema, error) {
	names, err := c.GetTableNames(ctx)
	if err != nil {
		return nil, err
	}
	out := &model.Schema{Name: name, Tables: make([]model.TableSchema, 0, len(names))}
	for _, n := range names {
		ts, err := c.IntrospectTable(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("introspect table %q: %w", n, err)
		}
		out.Tables = append(out.Tables, *ts)
	}
	return out, nil
}
