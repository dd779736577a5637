package types

import "fmt"

// ColumnDef defines a single column in the schema.
type ColumnDef struct {
	// Name is the column name, unique within a schema.
	Name string

	// Kind is the scalar kind every value in the column must carry.
	Kind ValueKind
}

// Schema is the ordered set of columns agreed for one pipeline run.
// It is fixed before traversal starts and never changes afterwards.
type Schema struct {
	Columns []ColumnDef
}

// NewSchema builds a schema from column definitions in order.
func NewSchema(cols ...ColumnDef) Schema {
	return Schema{Columns: cols}
}

// Validate checks the schema is usable: at least one column, every column
// named, no duplicate names, and a concrete kind on every column.
func (s Schema) Validate() error {
	if len(s.Columns) == 0 {
		return NewError(CodeSchemaViolation, "schema has no columns")
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for _, col := range s.Columns {
		if col.Name == "" {
			return NewError(CodeSchemaViolation, "schema contains an unnamed column")
		}
		if _, dup := seen[col.Name]; dup {
			return NewError(CodeSchemaViolation, fmt.Sprintf("duplicate column %q", col.Name))
		}
		switch col.Kind {
		case KindString, KindInt, KindFloat:
		default:
			return NewError(CodeSchemaViolation, fmt.Sprintf("column %q has invalid kind", col.Name))
		}
		seen[col.Name] = struct{}{}
	}
	return nil
}

// Index returns the position of the named column, or -1 if absent.
func (s Schema) Index(name string) int {
	for i, col := range s.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// Equal reports whether two schemas have identical columns in identical order.
func (s Schema) Equal(o Schema) bool {
	if len(s.Columns) != len(o.Columns) {
		return false
	}
	for i, col := range s.Columns {
		if col != o.Columns[i] {
			return false
		}
	}
	return true
}

// Record maps every schema column to exactly one scalar value.
// Partial records (missing or extra columns) are rejected at append time.
// A nil Record from an extractor means "exclude this entry".
type Record map[string]Value
