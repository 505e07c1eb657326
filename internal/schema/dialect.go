package schema

import (
	"strconv"
	"strings"
)

// Dialect describes how a database engine spells identifiers, types and
// literals. Connectors implement it; Generic is used when no engine is named.
type Dialect interface {
	DriverName() string
	QuoteIdentifier(name string) string
	// QualifyTable returns the quoted, schema-qualified name of a table.
	QualifyTable(name string) string
	TypeMap() TypeMap
	BooleanLiteral(v bool) string
	// InlineConstraints reports whether foreign keys must be declared inside
	// CREATE TABLE because the engine cannot add them afterwards.
	InlineConstraints() bool
}

// NowExpression is the column default rendered for a Now default.
const NowExpression = "CURRENT_TIMESTAMP"

// TypeMap spells every semantic type for one dialect. The same map drives
// DDL generation and catalog type resolution.
type TypeMap struct {
	SmallInt  string
	Integer   string
	BigInt    string
	Decimal   string
	Timestamp string
	// VarChar is rendered as VarChar(n) for bounded strings.
	VarChar string
	Text    string
	Boolean string

	// Aliases maps other lower-case catalog spellings to a semantic type.
	// Full spellings such as "tinyint(1)" are matched before base names.
	Aliases map[string]Type
}

// GenericTypes is the ANSI spelling used by the generic dialect.
var GenericTypes = TypeMap{
	SmallInt:  "SMALLINT",
	Integer:   "INTEGER",
	BigInt:    "BIGINT",
	Decimal:   "NUMERIC",
	Timestamp: "TIMESTAMP",
	VarChar:   "VARCHAR",
	Text:      "TEXT",
	Boolean:   "BOOLEAN",
	Aliases: map[string]Type{
		"int":       Integer{Size: Standard},
		"decimal":   Decimal{},
		"datetime":  Timestamp{},
		"character": String{},
		"char":      String{},
		"bool":      Boolean{},
	},
}

// Render returns the column type spelling for t.
func (m TypeMap) Render(t Type) string {
	return t.sqlType(m)
}

// Resolve maps a catalog column type back to a semantic type. Bounded
// strings resolve with their length when the spelling carries one.
func (m TypeMap) Resolve(catalogType string) (Type, bool) {
	full := strings.ToLower(strings.TrimSpace(catalogType))
	if full == "" {
		return nil, false
	}
	if t, ok := m.Aliases[full]; ok {
		return t, true
	}

	canon := m.canonical()
	for _, c := range canon {
		if strings.ToLower(c.spelling) == full {
			return c.typ, true
		}
	}

	base, arg := splitTypeArgs(full)
	if t, ok := m.Aliases[base]; ok {
		return withLength(t, arg), true
	}
	for _, c := range canon {
		if b, _ := splitTypeArgs(strings.ToLower(c.spelling)); b == base {
			return withLength(c.typ, arg), true
		}
	}
	return nil, false
}

type spelling struct {
	spelling string
	typ      Type
}

// canonical lists the map's spellings in resolution order. VarChar precedes
// Text so engines that spell both with the same base name resolve a length.
func (m TypeMap) canonical() []spelling {
	return []spelling{
		{m.SmallInt, Integer{Size: Small}},
		{m.Integer, Integer{Size: Standard}},
		{m.BigInt, Integer{Size: Big}},
		{m.Decimal, Decimal{}},
		{m.Timestamp, Timestamp{}},
		{m.VarChar, String{}},
		{m.Text, String{}},
		{m.Boolean, Boolean{}},
	}
}

func splitTypeArgs(s string) (string, string) {
	i := strings.IndexByte(s, '(')
	if i < 0 {
		return strings.TrimSpace(s), ""
	}
	arg := strings.TrimSuffix(s[i+1:], ")")
	return strings.TrimSpace(s[:i]), strings.TrimSpace(arg)
}

func withLength(t Type, arg string) Type {
	if _, ok := t.(String); !ok {
		return t
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return String{}
	}
	return String{Length: n}
}

type genericDialect struct{}

// Generic is the engine-neutral dialect: ANSI types and unquoted names.
var Generic Dialect = genericDialect{}

func (genericDialect) DriverName() string                { return "generic" }
func (genericDialect) QuoteIdentifier(name string) string { return name }
func (genericDialect) QualifyTable(name string) string    { return name }
func (genericDialect) TypeMap() TypeMap                   { return GenericTypes }
func (genericDialect) InlineConstraints() bool            { return false }

func (genericDialect) BooleanLiteral(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}
