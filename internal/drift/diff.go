package drift

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mediatally/mediatally/internal/model"
	"github.com/mediatally/mediatally/internal/schema"
)

// DiffTable compares one declared table against its live catalog entry.
// Names match ignoring case. Catalog types are resolved with types and
// compared by storage, so a reference matches its key's integer type and
// string lengths are not compared.
func DiffTable(t *schema.Table, live *model.TableSchema, types schema.TypeMap) []Mismatch {
	var out []Mismatch

	for _, f := range t.Fields() {
		col, ok := live.Column(f.Name())
		if !ok {
			out = append(out, Mismatch{
				Kind:      MissingColumn,
				Table:     t,
				TableName: t.Name(),
				Column:    f.Name(),
				Expected:  types.Render(f.Type()),
				Message:   fmt.Sprintf("column %s.%s is missing", t.Name(), f.Name()),
			})
			continue
		}

		actual, resolved := types.Resolve(col.Type)
		if !resolved || !schema.StorageEquivalent(f.Type(), actual) {
			out = append(out, Mismatch{
				Kind:      ColumnTypeMismatch,
				Table:     t,
				TableName: t.Name(),
				Column:    f.Name(),
				Expected:  types.Render(f.Type()),
				Actual:    col.Type,
				Message: fmt.Sprintf("column %s.%s has type %s, expected %s",
					t.Name(), f.Name(), col.Type, types.Render(f.Type())),
			})
		}

		if col.Nullable != f.Nullable() {
			out = append(out, Mismatch{
				Kind:      NullabilityMismatch,
				Table:     t,
				TableName: t.Name(),
				Column:    f.Name(),
				Expected:  f.Nullability().String(),
				Actual:    nullability(col.Nullable),
				Message: fmt.Sprintf("column %s.%s is %s, expected %s",
					t.Name(), f.Name(), nullability(col.Nullable), f.Nullability()),
			})
		}
	}

	for _, uc := range t.UniqueConstraints() {
		if !hasUnique(live.UniqueConstraints, uc.Columns) {
			cols := strings.Join(uc.Columns, ", ")
			out = append(out, Mismatch{
				Kind:      MissingUniqueConstraint,
				Table:     t,
				TableName: t.Name(),
				Column:    uc.Name(t.Name()),
				Expected:  "UNIQUE (" + cols + ")",
				Message:   fmt.Sprintf("table %s has no unique constraint on (%s)", t.Name(), cols),
			})
		}
	}

	for _, fk := range t.ForeignKeys() {
		if !hasForeignKey(live.ForeignKeys, fk) {
			out = append(out, Mismatch{
				Kind:      MissingForeignKey,
				Table:     t,
				TableName: t.Name(),
				Column:    fk.Column,
				Expected:  fmt.Sprintf("%s -> %s(%s)", fk.Column, fk.Table, fk.TargetKey),
				Message: fmt.Sprintf("table %s has no foreign key from %s to %s(%s)",
					t.Name(), fk.Column, fk.Table, fk.TargetKey),
			})
		}
	}

	return out
}

func nullability(nullable bool) string {
	if nullable {
		return schema.Nullable.String()
	}
	return schema.NotNull.String()
}

// hasUnique reports whether a live constraint covers exactly cols, in any
// order.
func hasUnique(live []model.UniqueConstraint, cols []string) bool {
	want := columnSet(cols)
	for _, uc := range live {
		if columnSet(uc.Columns) == want {
			return true
		}
	}
	return false
}

func columnSet(cols []string) string {
	lower := make([]string, len(cols))
	for i, c := range cols {
		lower[i] = strings.ToLower(c)
	}
	sort.Strings(lower)
	return strings.Join(lower, "\x00")
}

func hasForeignKey(live []model.ForeignKey, fk schema.ForeignKeyRef) bool {
	for _, l := range live {
		if strings.EqualFold(l.ColumnName, fk.Column) &&
			strings.EqualFold(l.ReferencedTable, fk.Table) &&
			strings.EqualFold(l.ReferencedColumn, fk.TargetKey) {
			return true
		}
	}
	return false
}
