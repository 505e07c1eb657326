package mssql

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/mediatally/mediatally/internal/connector"
	"github.com/mediatally/mediatally/internal/schema"
)

// Types spells semantic types for SQL Server. Strings are Unicode and
// unbounded text is NVARCHAR(MAX).
var Types = schema.TypeMap{
	SmallInt:  "SMALLINT",
	Integer:   "INT",
	BigInt:    "BIGINT",
	Decimal:   "NUMERIC(38,10)",
	Timestamp: "DATETIME2",
	VarChar:   "NVARCHAR",
	Text:      "NVARCHAR(MAX)",
	Boolean:   "BIT",
	Aliases: map[string]schema.Type{
		"decimal":  schema.Decimal{},
		"datetime": schema.Timestamp{},
		"varchar":  schema.String{},
		"nchar":    schema.String{},
		"ntext":    schema.String{},
		"text":     schema.String{},
	},
}

// MSSQLConnector implements connector.Connector for SQL Server databases.
type MSSQLConnector struct {
	db         *sqlx.DB
	schemaName string
}

// New creates an unconnected MSSQLConnector for the dbo schema.
func New() connector.Connector {
	return &MSSQLConnector{schemaName: "dbo"}
}

func (c *MSSQLConnector) Connect(cfg connector.ConnectionConfig) error {
	db, err := sqlx.Connect("sqlserver", cfg.DSN)
	if err != nil {
		return fmt.Errorf("mssql connect: %w", err)
	}
	connector.ApplyPool(db, cfg)

	if cfg.SchemaName != "" {
		c.schemaName = cfg.SchemaName
	}
	c.db = db
	return nil
}

func (c *MSSQLConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *MSSQLConnector) Ping(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("mssql: not connected")
	}
	return c.db.PingContext(ctx)
}

func (c *MSSQLConnector) DB() *sqlx.DB { return c.db }

func (c *MSSQLConnector) DriverName() string { return "mssql" }

// QuoteIdentifier wraps name in brackets, doubling closing brackets.
func (c *MSSQLConnector) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// QualifyTable returns [schema].[table].
func (c *MSSQLConnector) QualifyTable(name string) string {
	return c.QuoteIdentifier(c.schemaName) + "." + c.QuoteIdentifier(name)
}

func (c *MSSQLConnector) TypeMap() schema.TypeMap { return Types }

// BooleanLiteral renders a BIT literal.
func (c *MSSQLConnector) BooleanLiteral(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func (c *MSSQLConnector) InlineConstraints() bool { return false }
