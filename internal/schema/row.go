package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type slot struct {
	current  any
	original any
}

// Row holds the current and original values of one record of a table.
// Values use the Go types produced by the field types' Parse methods.
type Row struct {
	table *Table
	slots []slot
}

// NewRow returns an empty row of t with every value nil.
func (t *Table) NewRow() *Row {
	return &Row{table: t, slots: make([]slot, len(t.fields))}
}

func (r *Row) Table() *Table { return r.table }

// Get returns the current value of a field.
func (r *Row) Get(name string) (any, error) {
	i, err := r.position(name)
	if err != nil {
		return nil, err
	}
	return r.slots[i].current, nil
}

// Set changes the current value of a field. nil is only accepted for
// nullable fields and the value's Go type must match the field's type.
func (r *Row) Set(name string, v any) error {
	i, err := r.position(name)
	if err != nil {
		return err
	}
	f := r.table.fields[i]
	v, err = normalize(f, v)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", r.table.name, f.name, err)
	}
	r.slots[i].current = v
	return nil
}

// Hydrate loads raw catalog values as both current and original values.
// Every value is attempted; one ConversionError is returned per failing
// field and the failing field keeps its previous value.
func (r *Row) Hydrate(raw map[string]string) []*ConversionError {
	var errs []*ConversionError
	for i, f := range r.table.fields {
		s, ok := raw[f.name]
		if !ok {
			continue
		}
		v, err := f.Parse(s)
		if err != nil {
			errs = append(errs, &ConversionError{Table: r.table.name, Field: f.name, Value: s, Type: f.typ, Err: err})
			continue
		}
		r.slots[i] = slot{current: v, original: v}
	}
	return errs
}

// Dirty lists, in field order, the fields whose current value differs from
// the original.
func (r *Row) Dirty() []string {
	var out []string
	for i, s := range r.slots {
		if !sameValue(s.current, s.original) {
			out = append(out, r.table.fields[i].name)
		}
	}
	return out
}

// MarkClean makes every current value the original.
func (r *Row) MarkClean() {
	for i := range r.slots {
		r.slots[i].original = r.slots[i].current
	}
}

// Retire flags the row as retired at the given time. The table must be
// Retireable.
func (r *Row) Retire(at time.Time) error {
	if !r.table.retireable {
		return fmt.Errorf("table %q is not retireable", r.table.name)
	}
	if err := r.Set(RetiredField, true); err != nil {
		return err
	}
	return r.Set(RetiredDateField, at)
}

// Retired reports whether the row's retired flag is set.
func (r *Row) Retired() bool {
	if !r.table.retireable {
		return false
	}
	v, _ := r.Get(RetiredField)
	b, _ := v.(bool)
	return b
}

func (r *Row) position(name string) (int, error) {
	if r.table == nil {
		return 0, fmt.Errorf("row has no table")
	}
	i, ok := r.table.index[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%s.%s: %w", r.table.name, name, ErrUnknownField)
	}
	return i, nil
}

func normalize(f Field, v any) (any, error) {
	if v == nil {
		if f.null == NotNull {
			return nil, fmt.Errorf("nil value for NOT NULL field")
		}
		return nil, nil
	}
	switch t := storage(f.typ).(type) {
	case Integer:
		var n int64
		switch x := v.(type) {
		case int:
			n = int64(x)
		case int32:
			n = int64(x)
		case int64:
			n = x
		default:
			return nil, fmt.Errorf("%T is not an integer", v)
		}
		lo, hi := intRange(t.Size)
		if n < lo || n > hi {
			return nil, fmt.Errorf("%d is out of range for a %s", n, t)
		}
		return n, nil
	case Decimal:
		d, ok := v.(decimal.Decimal)
		if !ok {
			return nil, fmt.Errorf("%T is not a decimal", v)
		}
		return d, nil
	case Timestamp:
		ts, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("%T is not a timestamp", v)
		}
		return ts, nil
	case String:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%T is not a string", v)
		}
		return t.Parse(s)
	case Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%T is not a boolean", v)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unsupported type %s", f.typ)
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case decimal.Decimal:
		y, ok := b.(decimal.Decimal)
		return ok && x.Equal(y)
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	return a == b
}
