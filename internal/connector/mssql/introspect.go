package mssql

import (
	"context"
	"fmt"
	"strings"

	"github.com/mediatally/mediatally/internal/model"
)

// columnRow holds the result of querying INFORMATION_SCHEMA.COLUMNS.
type columnRow struct {
	ColumnName string  `db:"COLUMN_NAME"`
	DataType   string  `db:"DATA_TYPE"`
	IsNullable string  `db:"IS_NULLABLE"`
	Default    *string `db:"COLUMN_DEFAULT"`
	MaxLength  *int64  `db:"CHARACTER_MAXIMUM_LENGTH"`
	Position   int     `db:"ORDINAL_POSITION"`
}

// fkRow holds a foreign key relationship.
type fkRow struct {
	ConstraintName   string `db:"CONSTRAINT_NAME"`
	ColumnName       string `db:"COLUMN_NAME"`
	ReferencedTable  string `db:"REFERENCED_TABLE_NAME"`
	ReferencedColumn string `db:"REFERENCED_COLUMN_NAME"`
	DeleteRule       string `db:"DELETE_RULE"`
	UpdateRule       string `db:"UPDATE_RULE"`
}

const columnsQuery = `SELECT
		c.COLUMN_NAME,
		c.DATA_TYPE,
		c.IS_NULLABLE,
		c.COLUMN_DEFAULT,
		c.CHARACTER_MAXIMUM_LENGTH,
		c.ORDINAL_POSITION
	FROM INFORMATION_SCHEMA.COLUMNS c
	WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
	ORDER BY c.ORDINAL_POSITION`

const primaryKeyQuery = `SELECT kcu.COLUMN_NAME
	FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
	JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
		ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
		AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
	WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
		AND tc.TABLE_SCHEMA = @p1
		AND tc.TABLE_NAME = @p2
	ORDER BY kcu.ORDINAL_POSITION`

const foreignKeyQuery = `SELECT
		fk.name AS CONSTRAINT_NAME,
		fk_col.name AS COLUMN_NAME,
		pk_tab.name AS REFERENCED_TABLE_NAME,
		pk_col.name AS REFERENCED_COLUMN_NAME,
		fk.delete_referential_action_desc AS DELETE_RULE,
		fk.update_referential_action_desc AS UPDATE_RULE
	FROM sys.foreign_keys fk
	JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
	JOIN sys.tables fk_tab ON fkc.parent_object_id = fk_tab.object_id
	JOIN sys.columns fk_col ON fkc.parent_object_id = fk_col.object_id AND fkc.parent_column_id = fk_col.column_id
	JOIN sys.tables pk_tab ON fkc.referenced_object_id = pk_tab.object_id
	JOIN sys.columns pk_col ON fkc.referenced_object_id = pk_col.object_id AND fkc.referenced_column_id = pk_col.column_id
	JOIN sys.schemas s ON fk_tab.schema_id = s.schema_id
	WHERE s.name = @p1 AND fk_tab.name = @p2
	ORDER BY fk.name`

const uniqueQuery = `SELECT i.name AS constraint_name, c.name AS column_name
	FROM sys.indexes i
	JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
	JOIN sys.tables t ON t.object_id = i.object_id
	JOIN sys.schemas s ON s.schema_id = t.schema_id
	WHERE s.name = @p1 AND t.name = @p2
		AND i.is_unique = 1 AND i.is_primary_key = 0 AND i.has_filter = 0
	ORDER BY i.name, ic.key_ordinal`

// IntrospectTable returns the columns, primary key, foreign keys and unique
// indexes of a table in the connector's schema.
func (c *MSSQLConnector) IntrospectTable(ctx context.Context, tableName string) (*model.TableSchema, error) {
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
			Type:         catalogType(col.DataType, col.MaxLength),
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
			OnDelete:         strings.ReplaceAll(fk.DeleteRule, "_", " "),
			OnUpdate:         strings.ReplaceAll(fk.UpdateRule, "_", " "),
		})
	}
	return ts, nil
}

// GetTableNames returns the base tables of the configured schema.
func (c *MSSQLConnector) GetTableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`

	var names []string
	if err := c.db.SelectContext(ctx, &names, query, c.schemaName); err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}

// catalogType rebuilds a declared spelling from DATA_TYPE. A maximum
// length of -1 means MAX.
func catalogType(dataType string, maxLength *int64) string {
	if maxLength == nil {
		return dataType
	}
	if *maxLength < 0 {
		return dataType + "(max)"
	}
	return fmt.Sprintf("%s(%d)", dataType, *maxLength)
}
