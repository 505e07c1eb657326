package schema

import (
	"errors"
	"fmt"
)

// ErrUnknownField is returned when a row or constraint names a field the
// table does not declare.
var ErrUnknownField = errors.New("unknown field")

// DefinitionError reports an invalid table or schema declaration. Err, when
// set, is the sentinel the reason stands for.
type DefinitionError struct {
	Table  string
	Field  string
	Reason string
	Err    error
}

func (e *DefinitionError) Unwrap() error { return e.Err }

func (e *DefinitionError) Error() string {
	switch {
	case e.Table == "":
		return "schema definition: " + e.Reason
	case e.Field == "":
		return fmt.Sprintf("table %q: %s", e.Table, e.Reason)
	default:
		return fmt.Sprintf("table %q field %q: %s", e.Table, e.Field, e.Reason)
	}
}

// ConversionError reports a raw value that could not be parsed as its
// field's type.
type ConversionError struct {
	Table string
	Field string
	Value string
	Type  Type
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s.%s: convert %q to %s: %v", e.Table, e.Field, e.Value, e.Type, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }
