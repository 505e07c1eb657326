package mysql

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/mediatally/mediatally/internal/connector"
	"github.com/mediatally/mediatally/internal/schema"
)

// Types spells semantic types for MySQL. BOOLEAN is stored as tinyint(1)
// and DECIMAL needs an explicit scale to keep fractions.
var Types = schema.TypeMap{
	SmallInt:  "SMALLINT",
	Integer:   "INT",
	BigInt:    "BIGINT",
	Decimal:   "DECIMAL(38,10)",
	Timestamp: "DATETIME",
	VarChar:   "VARCHAR",
	Text:      "TEXT",
	Boolean:   "BOOLEAN",
	Aliases: map[string]schema.Type{
		"tinyint(1)": schema.Boolean{},
		"bool":       schema.Boolean{},
		"integer":    schema.Integer{Size: schema.Standard},
		"numeric":    schema.Decimal{},
		"timestamp":  schema.Timestamp{},
		"mediumtext": schema.String{},
		"longtext":   schema.String{},
	},
}

// MySQLConnector implements connector.Connector for MySQL databases.
type MySQLConnector struct {
	db         *sqlx.DB
	schemaName string
}

// New creates an unconnected MySQLConnector. The schema defaults to the
// database named in the DSN.
func New() connector.Connector {
	return &MySQLConnector{}
}

func (c *MySQLConnector) Connect(cfg connector.ConnectionConfig) error {
	dsn := cfg.DSN
	if !strings.Contains(dsn, "parseTime") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "parseTime=true"
	}

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	connector.ApplyPool(db, cfg)

	c.schemaName = cfg.SchemaName
	if c.schemaName == "" {
		var dbName string
		if err := db.Get(&dbName, "SELECT DATABASE()"); err == nil && dbName != "" {
			c.schemaName = dbName
		}
	}
	c.db = db
	return nil
}

func (c *MySQLConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *MySQLConnector) Ping(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("mysql: not connected")
	}
	return c.db.PingContext(ctx)
}

func (c *MySQLConnector) DB() *sqlx.DB { return c.db }

func (c *MySQLConnector) DriverName() string { return "mysql" }

// QuoteIdentifier wraps name in backticks, doubling embedded backticks.
func (c *MySQLConnector) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QualifyTable returns the quoted table name; the DSN selects the database.
func (c *MySQLConnector) QualifyTable(name string) string {
	return c.QuoteIdentifier(name)
}

func (c *MySQLConnector) TypeMap() schema.TypeMap { return Types }

func (c *MySQLConnector) BooleanLiteral(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

func (c *MySQLConnector) InlineConstraints() bool { return false }
