package schema

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Kind enumerates the semantic storage categories a column can hold.
type Kind int

const (
	KindInteger Kind = iota + 1
	KindDecimal
	KindTimestamp
	KindString
	KindBoolean
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindTimestamp:
		return "timestamp"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindReference:
		return "reference"
	default:
		return "unknown"
	}
}

// IntSize is the storage width of an integer column.
type IntSize int

const (
	Standard IntSize = iota
	Small
	Big
)

func (s IntSize) String() string {
	switch s {
	case Small:
		return "small"
	case Big:
		return "big"
	default:
		return "standard"
	}
}

func (s IntSize) bits() int {
	switch s {
	case Small:
		return 16
	case Big:
		return 64
	default:
		return 32
	}
}

// Type is the semantic type of a column. The set of implementations is
// closed: Integer, Decimal, Timestamp, String, Boolean and Reference.
type Type interface {
	Kind() Kind
	String() string
	// Parse converts a raw textual value into the Go value stored in a Row.
	Parse(raw string) (any, error)

	sqlType(m TypeMap) string
	literal(v any, d Dialect) (string, error)
}

// Integer is a signed integer of the given width. Parsed values are int64.
type Integer struct {
	Size IntSize
}

func (Integer) Kind() Kind { return KindInteger }

func (t Integer) String() string { return t.Size.String() + " integer" }

func (t Integer) Parse(raw string) (any, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, t.Size.bits())
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return nil, fmt.Errorf("%q is out of range for a %s", raw, t)
		}
		return nil, fmt.Errorf("%q is not an integer", raw)
	}
	return n, nil
}

func (t Integer) sqlType(m TypeMap) string {
	switch t.Size {
	case Small:
		return m.SmallInt
	case Big:
		return m.BigInt
	default:
		return m.Integer
	}
}

func (t Integer) literal(v any, _ Dialect) (string, error) {
	switch n := v.(type) {
	case int64:
		return strconv.FormatInt(n, 10), nil
	case int:
		return strconv.Itoa(n), nil
	}
	return "", fmt.Errorf("integer literal: unexpected %T", v)
}

// Decimal is an exact numeric. Parsed values are decimal.Decimal.
type Decimal struct{}

func (Decimal) Kind() Kind { return KindDecimal }

func (Decimal) String() string { return "decimal" }

func (Decimal) Parse(raw string) (any, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%q is not a decimal", raw)
	}
	return d, nil
}

func (Decimal) sqlType(m TypeMap) string { return m.Decimal }

func (Decimal) literal(v any, _ Dialect) (string, error) {
	d, ok := v.(decimal.Decimal)
	if !ok {
		return "", fmt.Errorf("decimal literal: unexpected %T", v)
	}
	return d.String(), nil
}

// timestampLayouts are tried in order when parsing a Timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp is a point in time without zone. Parsed values are time.Time.
type Timestamp struct{}

func (Timestamp) Kind() Kind { return KindTimestamp }

func (Timestamp) String() string { return "timestamp" }

func (Timestamp) Parse(raw string) (any, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return nil, fmt.Errorf("%q is not a timestamp", raw)
}

func (Timestamp) sqlType(m TypeMap) string { return m.Timestamp }

func (Timestamp) literal(v any, _ Dialect) (string, error) {
	ts, ok := v.(time.Time)
	if !ok {
		return "", fmt.Errorf("timestamp literal: unexpected %T", v)
	}
	return quoteString(ts.UTC().Format("2006-01-02 15:04:05")), nil
}

// String is character data. A zero Length means unbounded text.
type String struct {
	Length int
}

func (String) Kind() Kind { return KindString }

func (t String) String() string {
	if t.Length > 0 {
		return fmt.Sprintf("string(%d)", t.Length)
	}
	return "text"
}

func (t String) Parse(raw string) (any, error) {
	if t.Length > 0 && utf8.RuneCountInString(raw) > t.Length {
		return nil, fmt.Errorf("value is longer than %d characters", t.Length)
	}
	return raw, nil
}

func (t String) sqlType(m TypeMap) string {
	if t.Length > 0 {
		return fmt.Sprintf("%s(%d)", m.VarChar, t.Length)
	}
	return m.Text
}

func (String) literal(v any, _ Dialect) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("string literal: unexpected %T", v)
	}
	return quoteString(s), nil
}

// Boolean is a truth value. Parsed values are bool.
type Boolean struct{}

func (Boolean) Kind() Kind { return KindBoolean }

func (Boolean) String() string { return "boolean" }

func (Boolean) Parse(raw string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	}
	return nil, fmt.Errorf("%q is not a boolean", raw)
}

func (Boolean) sqlType(m TypeMap) string { return m.Boolean }

func (Boolean) literal(v any, d Dialect) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return "", fmt.Errorf("boolean literal: unexpected %T", v)
	}
	return d.BooleanLiteral(b), nil
}

// Reference is a foreign key column. It stores values as the referenced
// table's key type.
type Reference struct {
	Table string
	Key   Integer
}

func (Reference) Kind() Kind { return KindReference }

func (t Reference) String() string { return "reference to " + t.Table }

func (t Reference) Parse(raw string) (any, error) { return t.Key.Parse(raw) }

func (t Reference) sqlType(m TypeMap) string { return t.Key.sqlType(m) }

func (t Reference) literal(v any, d Dialect) (string, error) { return t.Key.literal(v, d) }

// StorageEquivalent reports whether a and b are stored identically. A
// reference compares as its key type and string lengths are ignored.
func StorageEquivalent(a, b Type) bool {
	a, b = storage(a), storage(b)
	if a == nil || b == nil || a.Kind() != b.Kind() {
		return false
	}
	if ai, ok := a.(Integer); ok {
		return ai.Size == b.(Integer).Size
	}
	return true
}

func storage(t Type) Type {
	if r, ok := t.(Reference); ok {
		return r.Key
	}
	return t
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// intRange returns the inclusive bounds of an integer size.
func intRange(s IntSize) (int64, int64) {
	switch s {
	case Small:
		return math.MinInt16, math.MaxInt16
	case Big:
		return math.MinInt64, math.MaxInt64
	default:
		return math.MinInt32, math.MaxInt32
	}
}
