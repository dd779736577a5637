package frame

import (
	"fmt"

	"github.com/fsweep/fsweep/pkg/types"
)

// Table is the final logical concatenation of all checkpointed batches plus
// the last resident batch, in flush order. Same schema throughout.
type Table struct {
	schema types.Schema
	cols   []column
	rows   int
}

// ColumnData is a flat view of one table column, used by the codec and the
// optimizer. The slices are shared with the table, not copied.
type ColumnData struct {
	Def    types.ColumnDef
	Width  uint8
	Strs   []string
	Ints   []int64
	Floats []float64
}

// NewTable creates an empty table with the given schema.
func NewTable(schema types.Schema) (*Table, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	cols := make([]column, len(schema.Columns))
	for i, def := range schema.Columns {
		cols[i] = column{def: def}
	}
	return &Table{schema: schema, cols: cols}, nil
}

// FromColumns assembles a table from raw column data, as produced by the
// codec. Every column must match the schema and hold exactly rows values.
func FromColumns(schema types.Schema, rows int, data []ColumnData) (*Table, error) {
	t, err := NewTable(schema)
	if err != nil {
		return nil, err
	}
	if len(data) != len(t.cols) {
		return nil, fmt.Errorf("frame: got %d columns, schema declares %d", len(data), len(t.cols))
	}
	for i, cd := range data {
		if cd.Def != t.cols[i].def {
			return nil, fmt.Errorf("frame: column %d is %+v, schema declares %+v", i, cd.Def, t.cols[i].def)
		}
		t.cols[i].width = cd.Width
		t.cols[i].strs = cd.Strs
		t.cols[i].ints = cd.Ints
		t.cols[i].floats = cd.Floats
		if got := t.cols[i].length(); got != rows {
			return nil, fmt.Errorf("frame: column %q has %d rows, expected %d", cd.Def.Name, got, rows)
		}
	}
	t.rows = rows
	return t, nil
}

// Schema returns the table's schema.
func (t *Table) Schema() types.Schema {
	return t.schema
}

// NumRows returns the number of rows in the table.
func (t *Table) NumRows() int {
	return t.rows
}

// Column returns a flat view of the i-th column.
func (t *Table) Column(i int) ColumnData {
	c := &t.cols[i]
	return ColumnData{Def: c.def, Width: c.width, Strs: c.strs, Ints: c.ints, Floats: c.floats}
}

// AppendBatch concatenates a batch onto the table. The batch schema must
// equal the table schema.
func (t *Table) AppendBatch(b *Batch) error {
	if !t.schema.Equal(b.schema) {
		return types.NewError(types.CodeSchemaViolation, "batch schema does not match table schema")
	}
	for i := range t.cols {
		t.cols[i].strs = append(t.cols[i].strs, b.cols[i].strs...)
		t.cols[i].ints = append(t.cols[i].ints, b.cols[i].ints...)
		t.cols[i].floats = append(t.cols[i].floats, b.cols[i].floats...)
	}
	t.rows += b.rows
	return nil
}

// AppendTable concatenates another table onto this one.
func (t *Table) AppendTable(o *Table) error {
	if !t.schema.Equal(o.schema) {
		return types.NewError(types.CodeSchemaViolation, "table schemas do not match")
	}
	for i := range t.cols {
		t.cols[i].strs = append(t.cols[i].strs, o.cols[i].strs...)
		t.cols[i].ints = append(t.cols[i].ints, o.cols[i].ints...)
		t.cols[i].floats = append(t.cols[i].floats, o.cols[i].floats...)
	}
	t.rows += o.rows
	return nil
}

// Strings returns the backing slice of a string column.
func (t *Table) Strings(name string) ([]string, error) {
	c, err := t.findColumn(name, types.KindString)
	if err != nil {
		return nil, err
	}
	return c.strs, nil
}

// Ints returns the backing slice of an integer column.
func (t *Table) Ints(name string) ([]int64, error) {
	c, err := t.findColumn(name, types.KindInt)
	if err != nil {
		return nil, err
	}
	return c.ints, nil
}

// Floats returns the backing slice of a float column.
func (t *Table) Floats(name string) ([]float64, error) {
	c, err := t.findColumn(name, types.KindFloat)
	if err != nil {
		return nil, err
	}
	return c.floats, nil
}

// Value returns the scalar at (row, column name).
func (t *Table) Value(row int, name string) (types.Value, error) {
	i := t.schema.Index(name)
	if i < 0 {
		return types.Value{}, fmt.Errorf("frame: no column %q", name)
	}
	if row < 0 || row >= t.rows {
		return types.Value{}, fmt.Errorf("frame: row %d out of range [0,%d)", row, t.rows)
	}
	return t.cols[i].value(row), nil
}

// ColumnWidth returns the physical encoding width of the named integer
// column (0 means the default 8 bytes).
func (t *Table) ColumnWidth(name string) (uint8, error) {
	c, err := t.findColumn(name, types.KindInt)
	if err != nil {
		return 0, err
	}
	return c.width, nil
}

// SetColumnWidth narrows the physical encoding width of an integer column.
// The logical values are untouched; only serialization is affected.
func (t *Table) SetColumnWidth(name string, width uint8) error {
	c, err := t.findColumn(name, types.KindInt)
	if err != nil {
		return err
	}
	switch width {
	case 1, 2, 4, 8:
	default:
		return fmt.Errorf("frame: invalid column width %d", width)
	}
	c.width = width
	return nil
}

// FilterRows builds a new table containing the given rows, in the given
// order. Row indices must be in range.
func (t *Table) FilterRows(rows []int) (*Table, error) {
	out, err := NewTable(t.schema)
	if err != nil {
		return nil, err
	}
	for i := range t.cols {
		out.cols[i].width = t.cols[i].width
	}
	for _, r := range rows {
		if r < 0 || r >= t.rows {
			return nil, fmt.Errorf("frame: row %d out of range [0,%d)", r, t.rows)
		}
		for i := range t.cols {
			out.cols[i].appendValue(t.cols[i].value(r))
		}
	}
	out.rows = len(rows)
	return out, nil
}

// Equal reports whether two tables have identical schemas, row order,
// values, and physical column widths.
func (t *Table) Equal(o *Table) bool {
	if t.rows != o.rows || !t.schema.Equal(o.schema) {
		return false
	}
	for i := range t.cols {
		if t.cols[i].width != o.cols[i].width {
			return false
		}
		for r := 0; r < t.rows; r++ {
			if !t.cols[i].value(r).Equal(o.cols[i].value(r)) {
				return false
			}
		}
	}
	return true
}

func (t *Table) findColumn(name string, kind types.ValueKind) (*column, error) {
	i := t.schema.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("frame: no column %q", name)
	}
	if t.cols[i].def.Kind != kind {
		return nil, fmt.Errorf("frame: column %q is %s, not %s", name, t.cols[i].def.Kind, kind)
	}
	return &t.cols[i], nil
}
