package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mediatally/mediatally/internal/connector"
	"github.com/mediatally/mediatally/internal/schema"
)

// SQLiteConnector implements connector.Connector for SQLite databases.
type SQLiteConnector struct {
	db         *sqlx.DB
	schemaName string
}

// New creates an unconnected SQLiteConnector.
func New() connector.Connector {
	return &SQLiteConnector{schemaName: "main"}
}

// Connect opens the database file named by the DSN, or an in-memory
// database for ":memory:". Foreign key enforcement is switched on.
func (c *SQLiteConnector) Connect(cfg connector.ConnectionConfig) error {
	dsn := cfg.DSN
	if !strings.Contains(dsn, "foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("sqlite connect: %w", err)
	}
	connector.ApplyPool(db, cfg)

	// Every connection to :memory: is a separate database.
	if strings.Contains(cfg.DSN, ":memory:") || strings.Contains(cfg.DSN, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return fmt.Errorf("sqlite enable foreign keys: %w", err)
	}

	if cfg.SchemaName != "" {
		c.schemaName = cfg.SchemaName
	}
	c.db = db
	return nil
}

func (c *SQLiteConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *SQLiteConnector) Ping(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("sqlite: not connected")
	}
	return c.db.PingContext(ctx)
}

func (c *SQLiteConnector) DB() *sqlx.DB { return c.db }

func (c *SQLiteConnector) DriverName() string { return "sqlite" }

// QuoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double quotes.
func (c *SQLiteConnector) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QualifyTable returns the quoted table name. Tables live in the main
// database, so no schema prefix is written.
func (c *SQLiteConnector) QualifyTable(name string) string {
	return c.QuoteIdentifier(name)
}

// TypeMap uses the generic spellings; SQLite keeps declared types verbatim
// in its catalog, so they resolve back unchanged.
func (c *SQLiteConnector) TypeMap() schema.TypeMap {
	return schema.GenericTypes
}

func (c *SQLiteConnector) BooleanLiteral(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

// InlineConstraints is true: SQLite cannot ALTER TABLE ADD CONSTRAINT.
func (c *SQLiteConnector) InlineConstraints() bool { return true }
