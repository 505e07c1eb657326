package schema

import (
	"fmt"
	"strings"
)

// ForeignKeyRef links a source column to the key of a target table.
type ForeignKeyRef struct {
	Column      string
	Table       string
	TargetKey   string
	Nullability Nullability
}

// Name returns the constraint name fk_<table>_<column> for source table.
func (r ForeignKeyRef) Name(source string) string {
	return ConstraintName("fk", source, r.Column)
}

// UniqueConstraint is one composite unique constraint over ordered columns.
type UniqueConstraint struct {
	Columns []string
}

// Name returns the constraint name uq_<table>_<col>_<col>... for table.
func (u UniqueConstraint) Name(table string) string {
	return ConstraintName("uq", table, u.Columns...)
}

// Table is an immutable table declaration produced by TableBuilder.Build.
type Table struct {
	name        string
	fields      []Field
	index       map[string]int
	foreignKeys []ForeignKeyRef
	uniques     []UniqueConstraint
	retireable  bool
}

func (t *Table) Name() string { return t.name }

// Fields returns the columns in registration order.
func (t *Table) Fields() []Field {
	return append([]Field(nil), t.fields...)
}

// Field looks a column up by name, ignoring case.
func (t *Table) Field(name string) (Field, bool) {
	i, ok := t.index[strings.ToLower(name)]
	if !ok {
		return Field{}, false
	}
	return t.fields[i], true
}

// PrimaryKey returns the key column. A zero Table has none.
func (t *Table) PrimaryKey() (Field, bool) {
	for _, f := range t.fields {
		if f.primary {
			return f, true
		}
	}
	return Field{}, false
}

func (t *Table) ForeignKeys() []ForeignKeyRef {
	return append([]ForeignKeyRef(nil), t.foreignKeys...)
}

func (t *Table) UniqueConstraints() []UniqueConstraint {
	out := make([]UniqueConstraint, len(t.uniques))
	for i, u := range t.uniques {
		out[i] = UniqueConstraint{Columns: append([]string(nil), u.Columns...)}
	}
	return out
}

// Retireable reports whether rows are retired instead of deleted.
func (t *Table) Retireable() bool { return t.retireable }

// CreateStatement renders CREATE TABLE in the generic dialect.
func (t *Table) CreateStatement() (string, error) {
	return t.CreateStatementFor(Generic)
}

// CreateStatementFor renders CREATE TABLE for d. Columns appear in
// registration order followed by the primary key. Dialects with inline
// constraints also receive the foreign keys here.
func (t *Table) CreateStatementFor(d Dialect) (string, error) {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(d.QualifyTable(t.name))
	b.WriteString(" (\n")

	for i, f := range t.fields {
		col, err := f.columnSQL(d)
		if err != nil {
			return "", fmt.Errorf("table %q column %q: %w", t.name, f.name, err)
		}
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  ")
		b.WriteString(col)
	}

	if pk, ok := t.PrimaryKey(); ok {
		b.WriteString(",\n  PRIMARY KEY (")
		b.WriteString(d.QuoteIdentifier(pk.name))
		b.WriteString(")")
	}

	if d.InlineConstraints() {
		for _, fk := range t.foreignKeys {
			b.WriteString(",\n  ")
			b.WriteString(t.foreignKeyClause(d, fk))
		}
	}

	b.WriteString("\n)")
	return b.String(), nil
}

// DropStatementFor renders an idempotent DROP TABLE for d.
func (t *Table) DropStatementFor(d Dialect) string {
	return "DROP TABLE IF EXISTS " + d.QualifyTable(t.name)
}

// ForeignKeyStatements renders one ALTER TABLE per foreign key in the
// generic dialect.
func (t *Table) ForeignKeyStatements() []string {
	return t.ForeignKeyStatementsFor(Generic)
}

// ForeignKeyStatementsFor renders one ALTER TABLE per foreign key. It
// returns nothing for dialects that declare foreign keys inline.
func (t *Table) ForeignKeyStatementsFor(d Dialect) []string {
	if d.InlineConstraints() {
		return nil
	}
	stmts := make([]string, 0, len(t.foreignKeys))
	for _, fk := range t.foreignKeys {
		stmts = append(stmts, "ALTER TABLE "+d.QualifyTable(t.name)+" ADD "+t.foreignKeyClause(d, fk))
	}
	return stmts
}

// UniqueStatementsFor renders one statement per unique constraint: an ALTER
// TABLE constraint, or a unique index for inline dialects.
func (t *Table) UniqueStatementsFor(d Dialect) []string {
	stmts := make([]string, 0, len(t.uniques))
	for _, u := range t.uniques {
		cols := quoteList(d, u.Columns)
		name := d.QuoteIdentifier(u.Name(t.name))
		if d.InlineConstraints() {
			stmts = append(stmts, fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)", name, d.QualifyTable(t.name), cols))
			continue
		}
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)", d.QualifyTable(t.name), name, cols))
	}
	return stmts
}

func (t *Table) foreignKeyClause(d Dialect, fk ForeignKeyRef) string {
	return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		d.QuoteIdentifier(fk.Name(t.name)),
		d.QuoteIdentifier(fk.Column),
		d.QualifyTable(fk.Table),
		d.QuoteIdentifier(fk.TargetKey),
	)
}

func quoteList(d Dialect, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}
