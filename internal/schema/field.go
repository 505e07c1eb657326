package schema

import (
	"fmt"
)

// Nullability states whether a column accepts NULL.
type Nullability int

const (
	NotNull Nullability = iota
	Nullable
)

func (n Nullability) String() string {
	if n == Nullable {
		return "NULL"
	}
	return "NOT NULL"
}

// Now is the default sentinel for "the current timestamp at insert".
const Now = "now"

// Default is a column default: either the insert time or a parsed literal.
type Default struct {
	Now   bool
	Raw   string
	value any
}

// Value returns the parsed literal, or nil for a Now default.
func (d Default) Value() any { return d.value }

// Field is one column of a table. Fields are immutable once the owning
// table is built.
type Field struct {
	name    string
	typ     Type
	null    Nullability
	def     *Default
	primary bool
	// byName references take their key type from the target at schema assembly.
	byName bool
}

func (f Field) Name() string             { return f.name }
func (f Field) Type() Type               { return f.typ }
func (f Field) Nullability() Nullability { return f.null }
func (f Field) Nullable() bool           { return f.null == Nullable }
func (f Field) IsPrimaryKey() bool       { return f.primary }

// Default returns the column default, if one was declared.
func (f Field) Default() (Default, bool) {
	if f.def == nil {
		return Default{}, false
	}
	return *f.def, true
}

// Parse converts a raw value with the field's type. An empty value is nil
// for a nullable field and an error otherwise.
func (f Field) Parse(raw string) (any, error) {
	if raw == "" {
		if f.null == Nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("empty value for NOT NULL field")
	}
	return f.typ.Parse(raw)
}

// columnSQL renders the column clause used inside CREATE TABLE.
func (f Field) columnSQL(d Dialect) (string, error) {
	s := d.QuoteIdentifier(f.name) + " " + f.typ.sqlType(d.TypeMap())
	if f.null == NotNull {
		s += " NOT NULL"
	}
	if f.def != nil {
		lit := NowExpression
		if !f.def.Now {
			var err error
			lit, err = f.typ.literal(f.def.value, d)
			if err != nil {
				return "", err
			}
		}
		s += " DEFAULT " + lit
	}
	return s, nil
}

// FieldSpec is returned by the builder's field methods so a default can be
// attached to the field just declared.
type FieldSpec struct {
	b     *TableBuilder
	field *Field
}

// WithDefault sets the column default. Pass Now for the insert time on a
// timestamp field; any other value is parsed with the field's type when the
// table is built.
func (s *FieldSpec) WithDefault(value string) *FieldSpec {
	if s.field == nil {
		return s
	}
	s.field.def = &Default{Now: value == Now, Raw: value}
	return s
}

// Builder returns the table builder the field belongs to.
func (s *FieldSpec) Builder() *TableBuilder { return s.b }
