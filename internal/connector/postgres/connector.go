package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/mediatally/mediatally/internal/connector"
	"github.com/mediatally/mediatally/internal/schema"
)

// Types spells semantic types for PostgreSQL. information_schema reports
// udt names (int4, bool), which the aliases resolve.
var Types = schema.TypeMap{
	SmallInt:  "SMALLINT",
	Integer:   "INTEGER",
	BigInt:    "BIGINT",
	Decimal:   "NUMERIC",
	Timestamp: "TIMESTAMP",
	VarChar:   "VARCHAR",
	Text:      "TEXT",
	Boolean:   "BOOLEAN",
	Aliases: map[string]schema.Type{
		"int2":                        schema.Integer{Size: schema.Small},
		"int4":                        schema.Integer{Size: schema.Standard},
		"int8":                        schema.Integer{Size: schema.Big},
		"bool":                        schema.Boolean{},
		"timestamptz":                 schema.Timestamp{},
		"timestamp without time zone": schema.Timestamp{},
		"character varying":           schema.String{},
		"bpchar":                      schema.String{},
	},
}

// PostgresConnector implements connector.Connector for PostgreSQL databases.
type PostgresConnector struct {
	db         *sqlx.DB
	schemaName string
}

// New creates an unconnected PostgresConnector for the public schema.
func New() connector.Connector {
	return &PostgresConnector{schemaName: "public"}
}

// Connect opens the pool through the pgx stdlib driver.
func (c *PostgresConnector) Connect(cfg connector.ConnectionConfig) error {
	db, err := sqlx.Connect("pgx", cfg.DSN)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	connector.ApplyPool(db, cfg)

	if cfg.SchemaName != "" {
		c.schemaName = cfg.SchemaName
	}
	c.db = db
	return nil
}

func (c *PostgresConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *PostgresConnector) Ping(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("postgres: not connected")
	}
	return c.db.PingContext(ctx)
}

func (c *PostgresConnector) DB() *sqlx.DB { return c.db }

func (c *PostgresConnector) DriverName() string { return "postgres" }

// QuoteIdentifier double-quotes name, doubling embedded quotes.
func (c *PostgresConnector) QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// QualifyTable returns "schema"."table".
func (c *PostgresConnector) QualifyTable(name string) string {
	return pgx.Identifier{c.schemaName, name}.Sanitize()
}

func (c *PostgresConnector) TypeMap() schema.TypeMap { return Types }

func (c *PostgresConnector) BooleanLiteral(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

func (c *PostgresConnector) InlineConstraints() bool { return false }
