package drift

import (
	"time"

	"github.com/mediatally/mediatally/internal/schema"
)

// Kind classifies a difference between the declared model and the live
// catalog.
type Kind string

const (
	MissingTable            Kind = "missing_table"
	MissingColumn           Kind = "missing_column"
	ColumnTypeMismatch      Kind = "column_type_mismatch"
	NullabilityMismatch     Kind = "nullability_mismatch"
	MissingUniqueConstraint Kind = "missing_unique_constraint"
	MissingForeignKey       Kind = "missing_foreign_key"
)

// Kinds lists every Kind in reporting order.
var Kinds = []Kind{
	MissingTable,
	MissingColumn,
	ColumnTypeMismatch,
	NullabilityMismatch,
	MissingUniqueConstraint,
	MissingForeignKey,
}

// Mismatch describes one way the live database differs from the model.
// Column holds the column or constraint the mismatch concerns.
type Mismatch struct {
	Kind      Kind          `json:"kind"`
	Table     *schema.Table `json:"-"`
	TableName string        `json:"table"`
	Column    string        `json:"column,omitempty"`
	Expected  string        `json:"expected,omitempty"`
	Actual    string        `json:"actual,omitempty"`
	Message   string        `json:"message"`
}

func (m Mismatch) String() string { return m.Message }

// Report summarizes the mismatches of one validation run.
type Report struct {
	Service    string       `json:"service,omitempty"`
	Schema     string       `json:"schema"`
	Dialect    string       `json:"dialect"`
	HasDrift   bool         `json:"has_drift"`
	Counts     map[Kind]int `json:"counts"`
	Mismatches []Mismatch   `json:"mismatches"`
	CheckedAt  time.Time    `json:"checked_at"`
}

// NewReport counts mismatches per kind.
func NewReport(service, schemaName, dialect string, mismatches []Mismatch) Report {
	r := Report{
		Service:    service,
		Schema:     schemaName,
		Dialect:    dialect,
		HasDrift:   len(mismatches) > 0,
		Counts:     make(map[Kind]int),
		Mismatches: mismatches,
		CheckedAt:  time.Now().UTC(),
	}
	if r.Mismatches == nil {
		r.Mismatches = []Mismatch{}
	}
	for _, m := range mismatches {
		r.Counts[m.Kind]++
	}
	return r
}
