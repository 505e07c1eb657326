package postgres

import (
	"context"
	"fmt"

	"github.com/mediatally/mediatally/internal/model"
)

// columnRow holds the result of querying information_schema.columns.
type columnRow struct {
	ColumnName string  `db:"column_name"`
	IsNullable string  `db:"is_nullable"`
	Default    *string `db:"column_default"`
	MaxLength  *int64  `db:"character_maximum_length"`
	Position   int     `db:"ordinal_position"`
	UDTName    string  `db:"udt_name"`
}

// fkRow holds a foreign key relationship.
type fkRow struct {
	ConstraintName   string `db:"constraint_name"`
	ColumnName       string `db:"column_name"`
	ReferencedTable  string `db:"referenced_table"`
	ReferencedColumn string `db:"referenced_column"`
	DeleteRule       string `db:"delete_rule"`
	UpdateRule       string `db:"update_rule"`
}

const columnsQuery = `SELECT
		c.column_name,
		c.is_nullable,
		c.column_default,
		c.character_maximum_length,
		c.ordinal_position,
		c.udt_name
	FROM information_schema.columns c
	WHERE c.table_schema = $1 AND c.table_name = $2
	ORDER BY c.ordinal_position`

const primaryKeyQuery = `SELECT kcu.column_name
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name
		AND tc.table_schema = kcu.table_schema
	WHERE tc.constraint_type = 'PRIMARY KEY'
		AND tc.table_schema = $1
		AND tc.table_name = $2
	ORDER BY kcu.ordinal_position`

const foreignKeyQuery = `SELECT
		tc.constraint_name,
		kcu.column_name,
		ccu.table_name AS referenced_table,
		ccu.column_name AS referenced_column,
		rc.delete_rule,
		rc.update_rule
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name
		AND tc.table_schema = kcu.table_schema
	JOIN information_schema.constraint_column_usage ccu
		ON tc.constraint_name = ccu.constraint_name
		AND tc.table_schema = ccu.constraint_schema
	JOIN information_schema.referential_constraints rc
		ON tc.constraint_name = rc.constraint_name
		AND tc.table_schema = rc.constraint_schema
	WHERE tc.constraint_type = 'FOREIGN KEY'
		AND tc.table_schema = $1
		AND tc.table_name = $2
	ORDER BY tc.constraint_name`

// uniqueQuery covers unique constraints and unique indexes alike; both are
// backed by a unique pg_index entry.
const uniqueQuery = `SELECT
		ic.relname AS constraint_name,
		a.attname AS column_name
	FROM pg_index ix
	JOIN pg_class tc ON tc.oid = ix.indrelid
	JOIN pg_namespace n ON n.oid = tc.relnamespace
	JOIN pg_class ic ON ic.oid = ix.indexrelid
	JOIN LATERAL unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord) ON true
	JOIN pg_attribute a ON a.attrelid = tc.oid AND a.attnum = k.attnum
	WHERE ix.indisunique
		AND NOT ix.indisprimary
		AND ix.indpred IS NULL
		AND n.nspname = $1
		AND tc.relname = $2
	ORDER BY ic.relname, k.ord`

// IntrospectTable returns the columns, primary key, foreign keys and unique
// constraints of a table in the connector's schema.
func (c *PostgresConnector) IntrospectTable(ctx context.Context, tableName string) (*model.TableSchema, error) {
	var columns []columnRow
	if err := c.db.SelectContext(ctx, &columns, columnsQuery, c.schemaName, tableName); err != nil {
		return nil, fmt.Errorf("introspect columns for %q: %w", tableName, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q not found in schema %q", tableName, c.schemaName)
	}

	var pkCols []string
	if err := c.db.SelectContext(ctx, &pkCols, primaryKeyQuery, c.schemaName, tableName); err != nil {
		return nil, fmt.Errorf("introspect primary keys for %q: %w", tableName, err)
	}
	pkSet := make(map[string]bool, len(pkCols))
	for _, pk := range pkCols {
		pkSet[pk] = true
	}

	var fks []fkRow
	if err := c.db.SelectContext(ctx, &fks, foreignKeyQuery, c.schemaName, tableName); err != nil {
		return nil, fmt.Errorf("introspect foreign keys for %q: %w", tableName, err)
	}

	var uniques []model.UniqueColumn
	if err := c.db.SelectContext(ctx, &uniques, uniqueQuery, c.schemaName, tableName); err != nil {
		return nil, fmt.Errorf("introspect unique constraints for %q: %w", tableName, err)
	}

	ts := &model.TableSchema{
		Name:              tableName,
		Columns:           make([]model.Column, 0, len(columns)),
		PrimaryKey:        append([]string{}, pkCols...),
		ForeignKeys:       make([]model.ForeignKey, 0, len(fks)),
		UniqueConstraints: model.GroupUniqueColumns(uniques),
	}
	for _, col := range columns {
		ts.Columns = append(ts.Columns, model.Column{
			Name:         col.ColumnName,
			Position:     col.Position,
			Type:         catalogType(col.UDTName, col.MaxLength),
			Nullable:     col.IsNullable == "YES",
			Default:      col.Default,
			MaxLength:    col.MaxLength,
			IsPrimaryKey: pkSet[col.ColumnName],
		})
	}
	for _, fk := range fks {
		ts.ForeignKeys = append(ts.ForeignKeys, model.ForeignKey{
			Name:             fk.ConstraintName,
			ColumnName:       fk.ColumnName,
			ReferencedTable:  fk.ReferencedTable,
			ReferencedColumn: fk.ReferencedColumn,
			OnDelete:         fk.DeleteRule,
			OnUpdate:         fk.UpdateRule,
		})
	}
	return ts, nil
}

// GetTableNames returns the base tables of the configured schema.
func (c *PostgresConnector) GetTableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	var names []string
	if err := c.db.SelectContext(ctx, &names, query, c.schemaName); err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}

func catalogType(udt string, maxLength *int64) string {
	if maxLength != nil && *maxLength > 0 {
		return fmt.Sprintf("%s(%d)", udt, *maxLength)
	}
	return udt
}
