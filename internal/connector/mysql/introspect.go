package mysql

import (
	"context"
	"fmt"

	"github.com/mediatally/mediatally/internal/model"
)

// columnRow holds the result of querying INFORMATION_SCHEMA.COLUMNS.
type columnRow struct {
	ColumnName string  `db:"COLUMN_NAME"`
	ColumnType string  `db:"COLUMN_TYPE"`
	IsNullable string  `db:"IS_NULLABLE"`
	Default    *string `db:"COLUMN_DEFAULT"`
	MaxLength  *int64  `db:"CHARACTER_MAXIMUM_LENGTH"`
	Position   int     `db:"ORDINAL_POSITION"`
	ColumnKey  string  `db:"COLUMN_KEY"`
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
		COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT,
		CHARACTER_MAXIMUM_LENGTH, ORDINAL_POSITION, COLUMN_KEY
	FROM INFORMATION_SCHEMA.COLUMNS
	WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
	ORDER BY ORDINAL_POSITION`

const foreignKeyQuery = `SELECT
		kcu.CONSTRAINT_NAME,
		kcu.COLUMN_NAME,
		kcu.REFERENCED_TABLE_NAME,
		kcu.REFERENCED_COLUMN_NAME,
		rc.DELETE_RULE,
		rc.UPDATE_RULE
	FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
	JOIN INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
		ON kcu.CONSTRAINT_NAME = rc.CONSTRAINT_NAME
		AND kcu.TABLE_SCHEMA = rc.CONSTRAINT_SCHEMA
	WHERE kcu.TABLE_SCHEMA = ? AND kcu.TABLE_NAME = ?
		AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
	ORDER BY kcu.CONSTRAINT_NAME`

const uniqueQuery = `SELECT INDEX_NAME AS constraint_name, COLUMN_NAME AS column_name
	FROM INFORMATION_SCHEMA.STATISTICS
	WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		AND NON_UNIQUE = 0 AND INDEX_NAME <> 'PRIMARY'
	ORDER BY INDEX_NAME, SEQ_IN_INDEX`

// IntrospectTable returns the columns, foreign keys and unique indexes of a
// table in the connected database.
func (c *MySQLConnector) IntrospectTable(ctx context.Context, tableName string) (*model.TableSchema, error) {
	var columns []columnRow
	if err := c.db.SelectContext(ctx, &columns, columnsQuery, c.schemaName, tableName); err != nil {
		return nil, fmt.Errorf("introspect columns for %q: %w", tableName, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q not found in schema %q", tableName, c.schemaName)
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
		PrimaryKey:        []string{},
		ForeignKeys:       make([]model.ForeignKey, 0, len(fks)),
		UniqueConstraints: model.GroupUniqueColumns(uniques),
	}
	for _, col := range columns {
		isPK := col.ColumnKey == "PRI"
		if isPK {
			ts.PrimaryKey = append(ts.PrimaryKey, col.ColumnName)
		}
		ts.Columns = append(ts.Columns, model.Column{
			Name:         col.ColumnName,
			Position:     col.Position,
			Type:         col.ColumnType,
			Nullable:     col.IsNullable == "YES",
			Default:      col.Default,
			MaxLength:    col.MaxLength,
			IsPrimaryKey: isPK,
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

// GetTableNames returns the base tables of the connected database.
func (c *MySQLConnector) GetTableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`

	var names []string
	if err := c.db.SelectContext(ctx, &names, query, c.schemaName); err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}
