package drift

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mediatally/mediatally/internal/model"
	"github.com/mediatally/mediatally/internal/schema"
)

// Catalog reads live table structure. Every connector satisfies it.
type Catalog interface {
	GetTableNames(ctx context.Context) ([]string, error)
	IntrospectTable(ctx context.Context, tableName string) (*model.TableSchema, error)
}

// Validator compares a schema against a live catalog. It only reads.
type Validator struct {
	catalog Catalog
	types   schema.TypeMap
	logger  *slog.Logger
}

// NewValidator returns a Validator resolving catalog types with types. A
// nil logger uses slog.Default().
func NewValidator(catalog Catalog, types schema.TypeMap, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{catalog: catalog, types: types, logger: logger}
}

// Validate returns every mismatch in schema table order. A table missing
// from the catalog yields one MissingTable and is not inspected further.
// The error is reserved for failures reading the catalog.
func (v *Validator) Validate(ctx context.Context, s *schema.Schema) ([]Mismatch, error) {
	names, err := v.catalog.GetTableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list live tables: %w", err)
	}
	live := make(map[string]string, len(names))
	for _, n := range names {
		live[strings.ToLower(n)] = n
	}

	var out []Mismatch
	for _, t := range s.Tables() {
		name, ok := live[strings.ToLower(t.Name())]
		if !ok {
			out = append(out, Mismatch{
				Kind:      MissingTable,
				Table:     t,
				TableName: t.Name(),
				Message:   fmt.Sprintf("table %s is missing", t.Name()),
			})
			continue
		}

		ts, err := v.catalog.IntrospectTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("introspect table %q: %w", name, err)
		}
		found := DiffTable(t, ts, v.types)
		if len(found) > 0 {
			v.logger.Debug("table drift", "table", t.Name(), "mismatches", len(found))
		}
		out = append(out, found...)
	}

	v.logger.Info("schema validated", "schema", s.Name(), "tables", s.Len(), "mismatches", len(out))
	return out, nil
}
