package sqlite

import (
	"context"
	"fmt"

	"github.com/mediatally/mediatally/internal/model"
)

// tableInfoRow holds a row from PRAGMA table_info().
type tableInfoRow struct {
	CID     int     `db:"cid"`
	Name    string  `db:"name"`
	Type    string  `db:"type"`
	NotNull int     `db:"notnull"`
	Default *string `db:"dflt_value"`
	PK      int     `db:"pk"`
}

// foreignKeyRow holds a row from PRAGMA foreign_key_list(). To is NULL when
// the constraint references the target's primary key implicitly.
type foreignKeyRow struct {
	ID       int     `db:"id"`
	Seq      int     `db:"seq"`
	Table    string  `db:"table"`
	From     string  `db:"from"`
	To       *string `db:"to"`
	OnUpdate string  `db:"on_update"`
	OnDelete string  `db:"on_delete"`
	Match    string  `db:"match"`
}

// indexListRow holds a row from PRAGMA index_list().
type indexListRow struct {
	Seq     int    `db:"seq"`
	Name    string `db:"name"`
	Unique  int    `db:"unique"`
	Origin  string `db:"origin"`
	Partial int    `db:"partial"`
}

// indexInfoRow holds a row from PRAGMA index_info().
type indexInfoRow struct {
	SeqNo int     `db:"seqno"`
	CID   int     `db:"cid"`
	Name  *string `db:"name"`
}

// IntrospectTable returns the columns, foreign keys and unique indexes of a
// table.
func (c *SQLiteConnector) IntrospectTable(ctx context.Context, tableName string) (*model.TableSchema, error) {
	columns, err := c.tableInfo(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q not found", tableName)
	}

	ts := &model.TableSchema{
		Name:              tableName,
		Columns:           make([]model.Column, 0, len(columns)),
		PrimaryKey:        []string{},
		ForeignKeys:       []model.ForeignKey{},
		UniqueConstraints: []model.UniqueConstraint{},
	}
	for _, col := range columns {
		isPK := col.PK > 0
		if isPK {
			ts.PrimaryKey = append(ts.PrimaryKey, col.Name)
		}
		ts.Columns = append(ts.Columns, model.Column{
			Name:         col.Name,
			Position:     col.CID + 1,
			Type:         col.Type,
			Nullable:     col.NotNull == 0 && !isPK,
			Default:      col.Default,
			IsPrimaryKey: isPK,
		})
	}

	fkQuery := fmt.Sprintf("PRAGMA foreign_key_list(%s)", c.QuoteIdentifier(tableName))
	var fkRows []foreignKeyRow
	if err := c.db.SelectContext(ctx, &fkRows, fkQuery); err != nil {
		return nil, fmt.Errorf("foreign_key_list for %q: %w", tableName, err)
	}
	for _, fk := range fkRows {
		to := ""
		if fk.To != nil {
			to = *fk.To
		} else if to, err = c.primaryKeyColumn(ctx, fk.Table); err != nil {
			return nil, err
		}
		ts.ForeignKeys = append(ts.ForeignKeys, model.ForeignKey{
			Name:             fmt.Sprintf("fk_%s_%s", tableName, fk.From),
			ColumnName:       fk.From,
			ReferencedTable:  fk.Table,
			ReferencedColumn: to,
			OnDelete:         fk.OnDelete,
			OnUpdate:         fk.OnUpdate,
		})
	}

	idxQuery := fmt.Sprintf("PRAGMA index_list(%s)", c.QuoteIdentifier(tableName))
	var idxRows []indexListRow
	if err := c.db.SelectContext(ctx, &idxRows, idxQuery); err != nil {
		return nil, fmt.Errorf("index_list for %q: %w", tableName, err)
	}
	for _, idx := range idxRows {
		if idx.Unique != 1 || idx.Origin == "pk" || idx.Partial == 1 {
			continue
		}
		infoQuery := fmt.Sprintf("PRAGMA index_info(%s)", c.QuoteIdentifier(idx.Name))
		var infoRows []indexInfoRow
		if err := c.db.SelectContext(ctx, &infoRows, infoQuery); err != nil {
			return nil, fmt.Errorf("index_info for %q: %w", idx.Name, err)
		}
		uc := model.UniqueConstraint{Name: idx.Name, Columns: make([]string, 0, len(infoRows))}
		for _, info := range infoRows {
			if info.Name != nil {
				uc.Columns = append(uc.Columns, *info.Name)
			}
		}
		ts.UniqueConstraints = append(ts.UniqueConstraints, uc)
	}

	return ts, nil
}

func (c *SQLiteConnector) tableInfo(ctx context.Context, tableName string) ([]tableInfoRow, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", c.QuoteIdentifier(tableName))
	var columns []tableInfoRow
	if err := c.db.SelectContext(ctx, &columns, query); err != nil {
		return nil, fmt.Errorf("table_info for %q: %w", tableName, err)
	}
	return columns, nil
}

func (c *SQLiteConnector) primaryKeyColumn(ctx context.Context, tableName string) (string, error) {
	columns, err := c.tableInfo(ctx, tableName)
	if err != nil {
		return "", err
	}
	for _, col := range columns {
		if col.PK == 1 {
			return col.Name, nil
		}
	}
	return "", nil
}

// GetTableNames returns the user tables of the database, sorted by name.
func (c *SQLiteConnector) GetTableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	var names []string
	if err := c.db.SelectContext(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}
