package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// PrimaryKeyName is the column every table registers first as its key.
const PrimaryKeyName = "id"

// Trait adds a reusable set of fields or constraints to a table builder.
type Trait func(b *TableBuilder)

// TableBuilder accumulates a table declaration. Errors are collected and
// reported together by Build.
type TableBuilder struct {
	name       string
	fields     []*Field
	refs       []ForeignKeyRef
	uniques    [][]string
	retireable bool
	errs       []error
}

// NewTable starts a table declaration. The primary key column id is
// registered first as a NOT NULL standard integer.
func NewTable(name string) *TableBuilder {
	b := &TableBuilder{name: name}
	if !isIdentifier(name) {
		b.fail("", fmt.Sprintf("invalid table name %q", name))
	}
	b.fields = append(b.fields, &Field{
		name:    PrimaryKeyName,
		typ:     Integer{Size: Standard},
		null:    NotNull,
		primary: true,
	})
	return b
}

// Name returns the table name being declared.
func (b *TableBuilder) Name() string { return b.name }

// PrimaryKeySize changes the width of the id column.
func (b *TableBuilder) PrimaryKeySize(size IntSize) *TableBuilder {
	b.fields[0].typ = Integer{Size: size}
	return b
}

// With applies traits in order.
func (b *TableBuilder) With(traits ...Trait) *TableBuilder {
	for _, t := range traits {
		t(b)
	}
	return b
}

// Field registers a column of any semantic type.
func (b *TableBuilder) Field(name string, t Type, n Nullability) *FieldSpec {
	if t == nil {
		b.fail(name, "nil type")
		return &FieldSpec{b: b}
	}
	if _, ok := t.(Reference); ok {
		b.fail(name, "references must be declared with ForeignKey or References")
		return &FieldSpec{b: b}
	}
	return b.add(&Field{name: name, typ: t, null: n})
}

func (b *TableBuilder) Integer(name string, size IntSize, n Nullability) *FieldSpec {
	return b.Field(name, Integer{Size: size}, n)
}

// String registers a bounded string column. A zero length is unbounded.
func (b *TableBuilder) String(name string, length int, n Nullability) *FieldSpec {
	if length < 0 {
		b.fail(name, fmt.Sprintf("negative string length %d", length))
		return &FieldSpec{b: b}
	}
	return b.Field(name, String{Length: length}, n)
}

func (b *TableBuilder) Text(name string, n Nullability) *FieldSpec {
	return b.Field(name, String{}, n)
}

func (b *TableBuilder) Decimal(name string, n Nullability) *FieldSpec {
	return b.Field(name, Decimal{}, n)
}

func (b *TableBuilder) Timestamp(name string, n Nullability) *FieldSpec {
	return b.Field(name, Timestamp{}, n)
}

func (b *TableBuilder) Boolean(name string, n Nullability) *FieldSpec {
	return b.Field(name, Boolean{}, n)
}

// ForeignKey registers the column <target>_id referencing target's key.
func (b *TableBuilder) ForeignKey(target *Table, n Nullability) *FieldSpec {
	if target == nil {
		b.fail("", "foreign key to nil table")
		return &FieldSpec{b: b}
	}
	return b.ForeignKeyAs(target.Name()+"_"+PrimaryKeyName, target, n)
}

// ForeignKeyAs registers column referencing target's key.
func (b *TableBuilder) ForeignKeyAs(column string, target *Table, n Nullability) *FieldSpec {
	if target == nil {
		b.fail(column, "foreign key to nil table")
		return &FieldSpec{b: b}
	}
	pk, ok := target.PrimaryKey()
	if !ok {
		b.fail(column, fmt.Sprintf("foreign key target %q has no primary key", target.Name()))
		return &FieldSpec{b: b}
	}
	key, _ := pk.Type().(Integer)
	return b.reference(column, target.Name(), key, n)
}

// References registers column referencing a table by name. The target is
// resolved when the table joins a schema, which also lets self and mutual
// references be declared. The column takes the width of the target's key.
func (b *TableBuilder) References(column, target string, n Nullability) *FieldSpec {
	if !isIdentifier(target) {
		b.fail(column, fmt.Sprintf("invalid foreign key target %q", target))
		return &FieldSpec{b: b}
	}
	spec := b.reference(column, target, Integer{Size: Standard}, n)
	if spec.field != nil {
		spec.field.byName = true
	}
	return spec
}

func (b *TableBuilder) reference(column, target string, key Integer, n Nullability) *FieldSpec {
	spec := b.add(&Field{name: column, typ: Reference{Table: target, Key: key}, null: n})
	if spec.field != nil {
		b.refs = append(b.refs, ForeignKeyRef{
			Column:      column,
			Table:       target,
			TargetKey:   PrimaryKeyName,
			Nullability: n,
		})
	}
	return spec
}

// Unique declares one composite unique constraint over fields, in order.
// Fields may be registered before or after the call.
func (b *TableBuilder) Unique(fields ...string) *TableBuilder {
	b.uniques = append(b.uniques, append([]string(nil), fields...))
	return b
}

func (b *TableBuilder) add(f *Field) *FieldSpec {
	if !isIdentifier(f.name) {
		b.fail(f.name, "invalid field name")
		return &FieldSpec{b: b}
	}
	if b.lookup(f.name) != nil {
		b.fail(f.name, "field registered twice")
		return &FieldSpec{b: b}
	}
	b.fields = append(b.fields, f)
	return &FieldSpec{b: b, field: f}
}

func (b *TableBuilder) lookup(name string) *Field {
	for _, f := range b.fields {
		if strings.EqualFold(f.name, name) {
			return f
		}
	}
	return nil
}

func (b *TableBuilder) fail(field, reason string) {
	b.errs = append(b.errs, &DefinitionError{Table: b.name, Field: field, Reason: reason})
}

// Build validates the declaration and returns the immutable table.
func (b *TableBuilder) Build() (*Table, error) {
	errs := append([]error(nil), b.errs...)

	t := &Table{
		name:        b.name,
		index:       make(map[string]int, len(b.fields)),
		retireable:  b.retireable,
		foreignKeys: append([]ForeignKeyRef(nil), b.refs...),
	}
	for i, f := range b.fields {
		field := *f
		if f.def != nil {
			def := *f.def
			if err := resolveDefault(field.typ, &def); err != nil {
				errs = append(errs, &DefinitionError{Table: b.name, Field: f.name, Reason: err.Error()})
			}
			field.def = &def
		}
		t.fields = append(t.fields, field)
		t.index[strings.ToLower(field.name)] = i
	}

	declared := make(map[string]bool, len(b.uniques))
	for _, cols := range b.uniques {
		if len(cols) == 0 {
			errs = append(errs, &DefinitionError{Table: b.name, Reason: "unique constraint with no fields"})
			continue
		}
		seen := make(map[string]bool, len(cols))
		valid := true
		for _, c := range cols {
			key := strings.ToLower(c)
			if _, ok := t.index[key]; !ok {
				errs = append(errs, &DefinitionError{Table: b.name, Field: c, Reason: "unique constraint names an unknown field", Err: ErrUnknownField})
				valid = false
			} else if seen[key] {
				errs = append(errs, &DefinitionError{Table: b.name, Field: c, Reason: "field repeated in unique constraint"})
				valid = false
			}
			seen[key] = true
		}
		if !valid {
			continue
		}
		set := columnSet(cols)
		if declared[set] {
			errs = append(errs, &DefinitionError{Table: b.name, Reason: fmt.Sprintf("unique constraint on (%s) declared twice", strings.Join(cols, ", "))})
			continue
		}
		declared[set] = true
		t.uniques = append(t.uniques, UniqueConstraint{Columns: append([]string(nil), cols...)})
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return t, nil
}

// MustBuild is like Build but panics on a definition error.
func (b *TableBuilder) MustBuild() *Table {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

// columnSet keys a column list ignoring order and case.
func columnSet(cols []string) string {
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = strings.ToLower(c)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func resolveDefault(t Type, d *Default) error {
	if d.Now {
		if t.Kind() != KindTimestamp {
			return fmt.Errorf("default %q is only valid for timestamp fields", Now)
		}
		return nil
	}
	v, err := t.Parse(d.Raw)
	if err != nil {
		return fmt.Errorf("invalid default: %w", err)
	}
	d.value = v
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
