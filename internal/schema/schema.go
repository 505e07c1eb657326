package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Schema is a named, ordered collection of tables. Table order is the order
// given to New and is the tie-break for dependency ordering.
type Schema struct {
	name   string
	tables []*Table
	index  map[string]int
}

// New assembles a schema. Table names must be unique ignoring case, every
// foreign key must target a table of the same schema whose key type matches
// the referencing column, and generated constraint names must not collide.
// References declared by name take the width of their target's key.
func New(name string, tables ...*Table) (*Schema, error) {
	s := &Schema{
		name:  name,
		index: make(map[string]int, len(tables)),
	}

	var errs []error
	for _, t := range tables {
		if t == nil {
			errs = append(errs, &DefinitionError{Reason: "nil table"})
			continue
		}
		key := strings.ToLower(t.Name())
		if _, dup := s.index[key]; dup {
			errs = append(errs, &DefinitionError{Table: t.Name(), Reason: "table declared twice in schema " + name})
			continue
		}
		s.index[key] = len(s.tables)
		s.tables = append(s.tables, t)
	}

	for i, t := range s.tables {
		s.tables[i] = s.resolveReferences(t)
	}

	for _, t := range s.tables {
		for _, fk := range t.foreignKeys {
			target, ok := s.Table(fk.Table)
			if !ok {
				errs = append(errs, &DefinitionError{
					Table:  t.Name(),
					Field:  fk.Column,
					Reason: fmt.Sprintf("foreign key target %q is not in schema %s", fk.Table, name),
				})
				continue
			}
			if err := checkTargetKey(t, fk, target); err != nil {
				errs = append(errs, err)
			}
		}
	}

	errs = append(errs, s.checkConstraintNames()...)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}

// resolveReferences returns t with every by-name reference typed as its
// target's key. t itself is not modified.
func (s *Schema) resolveReferences(t *Table) *Table {
	var fields []Field
	for i, f := range t.fields {
		ref, ok := f.typ.(Reference)
		if !ok || !f.byName {
			continue
		}
		target, ok := s.Table(ref.Table)
		if !ok {
			continue
		}
		pk, ok := target.PrimaryKey()
		if !ok {
			continue
		}
		key, ok := pk.typ.(Integer)
		if !ok || key == ref.Key {
			continue
		}
		if fields == nil {
			fields = append([]Field(nil), t.fields...)
		}
		ref.Key = key
		fields[i].typ = ref
	}
	if fields == nil {
		return t
	}
	resolved := *t
	resolved.fields = fields
	return &resolved
}

// checkConstraintNames rejects constraints that generate the same name,
// e.g. uq on game.platform_name and on game_platform.name. Index and
// constraint names share one namespace per database schema.
func (s *Schema) checkConstraintNames() []error {
	var errs []error
	owners := make(map[string]string)
	claim := func(t *Table, name, what string) {
		key := strings.ToLower(name)
		if prev, taken := owners[key]; taken {
			errs = append(errs, &DefinitionError{
				Table:  t.Name(),
				Reason: fmt.Sprintf("constraint name %s of %s collides with %s", name, what, prev),
			})
			return
		}
		owners[key] = fmt.Sprintf("%s in table %s", what, t.Name())
	}
	for _, t := range s.tables {
		for _, fk := range t.foreignKeys {
			claim(t, fk.Name(t.Name()), "foreign key "+fk.Column)
		}
		for _, uc := range t.uniques {
			claim(t, uc.Name(t.Name()), "unique ("+strings.Join(uc.Columns, ", ")+")")
		}
	}
	return errs
}

func checkTargetKey(source *Table, fk ForeignKeyRef, target *Table) error {
	pk, ok := target.PrimaryKey()
	if !ok {
		return &DefinitionError{
			Table:  source.Name(),
			Field:  fk.Column,
			Reason: fmt.Sprintf("foreign key target %q has no primary key", target.Name()),
		}
	}
	col, _ := source.Field(fk.Column)
	if !StorageEquivalent(col.Type(), pk.Type()) {
		return &DefinitionError{
			Table:  source.Name(),
			Field:  fk.Column,
			Reason: fmt.Sprintf("column type %s does not match %s.%s (%s)", col.Type(), target.Name(), pk.Name(), pk.Type()),
		}
	}
	return nil
}

// MustNew is like New but panics on a definition error.
func MustNew(name string, tables ...*Table) *Schema {
	s, err := New(name, tables...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string { return s.name }

// Tables returns the tables in declaration order.
func (s *Schema) Tables() []*Table {
	return append([]*Table(nil), s.tables...)
}

// Table looks a table up by name, ignoring case.
func (s *Schema) Table(name string) (*Table, bool) {
	i, ok := s.index[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return s.tables[i], true
}

func (s *Schema) Len() int { return len(s.tables) }

// With returns a new schema holding s's tables followed by tables. s is
// not modified.
func (s *Schema) With(tables ...*Table) (*Schema, error) {
	all := make([]*Table, 0, len(s.tables)+len(tables))
	all = append(all, s.tables...)
	all = append(all, tables...)
	return New(s.name, all...)
}
