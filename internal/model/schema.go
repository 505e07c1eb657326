package model

import "strings"

// Schema is a catalog snapshot of every table a service exposes.
type Schema struct {
	Name   string        `json:"name"`
	Tables []TableSchema `json:"tables"`
}

// TableSchema is the introspected structure of one live table.
type TableSchema struct {
	Name              string             `json:"name"`
	Columns           []Column           `json:"columns"`
	PrimaryKey        []string           `json:"primary_key"`
	ForeignKeys       []ForeignKey       `json:"foreign_keys"`
	UniqueConstraints []UniqueConstraint `json:"unique_constraints"`
}

// Column is one live column. Type is the catalog spelling, including a
// length or precision suffix when the engine reports one.
type Column struct {
	Name         string  `json:"name"`
	Position     int     `json:"position"`
	Type         string  `json:"db_type"`
	Nullable     bool    `json:"nullable"`
	Default      *string `json:"default,omitempty"`
	MaxLength    *int64  `json:"max_length,omitempty"`
	IsPrimaryKey bool    `json:"is_primary_key"`
}

// ForeignKey is one live foreign key column.
type ForeignKey struct {
	Name             string `json:"name"`
	ColumnName       string `json:"column_name"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
	OnDelete         string `json:"on_delete,omitempty"`
	OnUpdate         string `json:"on_update,omitempty"`
}

// UniqueConstraint is a unique constraint or unique index, excluding the
// primary key.
type UniqueConstraint struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// Column looks a column up by name, ignoring case.
func (t *TableSchema) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// GroupUniqueColumns folds (constraint, column) rows, ordered by constraint
// and column position, into one UniqueConstraint per name.
func GroupUniqueColumns(rows []UniqueColumn) []UniqueConstraint {
	out := []UniqueConstraint{}
	for _, r := range rows {
		n := len(out)
		if n > 0 && out[n-1].Name == r.ConstraintName {
			out[n-1].Columns = append(out[n-1].Columns, r.ColumnName)
			continue
		}
		out = append(out, UniqueConstraint{Name: r.ConstraintName, Columns: []string{r.ColumnName}})
	}
	return out
}

// UniqueColumn is one column of a unique constraint as catalog queries
// return it.
type UniqueColumn struct {
	ConstraintName string `db:"constraint_name"`
	ColumnName     string `db:"column_name"`
}
