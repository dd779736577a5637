// Package frame provides the column-oriented containers the pipeline
// accumulates records into: the in-memory Batch and the merged Table.
package frame

import (
	"fmt"

	"github.com/fsweep/fsweep/pkg/types"
)

// column holds the values of one schema column. Exactly one of the three
// slices is in use, selected by def.Kind. width is the physical encoding
// width for integer columns (0 means the full 8 bytes).
type column struct {
	def    types.ColumnDef
	width  uint8
	strs   []string
	ints   []int64
	floats []float64
}

func (c *column) length() int {
	switch c.def.Kind {
	case types.KindString:
		return len(c.strs)
	case types.KindInt:
		return len(c.ints)
	default:
		return len(c.floats)
	}
}

func (c *column) appendValue(v types.Value) {
	switch c.def.Kind {
	case types.KindString:
		c.strs = append(c.strs, v.Str())
	case types.KindInt:
		c.ints = append(c.ints, v.Int())
	default:
		c.floats = append(c.floats, v.Float())
	}
}

func (c *column) value(row int) types.Value {
	switch c.def.Kind {
	case types.KindString:
		return types.String(c.strs[row])
	case types.KindInt:
		return types.Int(c.ints[row])
	default:
		return types.Float(c.floats[row])
	}
}

// Batch is the in-memory column-oriented accumulator for one stretch of a
// run, between two checkpoints. All columns are equal length at every
// observable point: Append either grows every column or none.
type Batch struct {
	schema types.Schema
	cols   []column
	rows   int
}

// NewBatch creates an empty batch with the given schema.
func NewBatch(schema types.Schema) (*Batch, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	cols := make([]column, len(schema.Columns))
	for i, def := range schema.Columns {
		cols[i] = column{def: def}
	}
	return &Batch{schema: schema, cols: cols}, nil
}

// Schema returns the batch's schema.
func (b *Batch) Schema() types.Schema {
	return b.schema
}

// Len returns the number of rows currently buffered.
func (b *Batch) Len() int {
	return b.rows
}

// Append pushes one record onto the batch, atomically across all columns.
// The record is validated in full before any column is touched; a missing
// column, an unknown column, or a kind mismatch is a fatal SchemaViolation
// and leaves the batch unchanged.
func (b *Batch) Append(rec types.Record) error {
	if len(rec) != len(b.cols) {
		return types.NewError(types.CodeSchemaViolation,
			fmt.Sprintf("record has %d columns, schema declares %d", len(rec), len(b.cols)))
	}
	for i := range b.cols {
		def := b.cols[i].def
		v, ok := rec[def.Name]
		if !ok {
			return types.NewError(types.CodeSchemaViolation,
				fmt.Sprintf("record is missing column %q", def.Name))
		}
		if v.Kind() != def.Kind {
			return types.NewError(types.CodeSchemaViolation,
				fmt.Sprintf("column %q expects %s, record carries %s", def.Name, def.Kind, v.Kind()))
		}
	}
	// Equal length plus every schema column present rules out extras.
	for i := range b.cols {
		b.cols[i].appendValue(rec[b.cols[i].def.Name])
	}
	b.rows++
	return nil
}

// Reset empties the batch in place, keeping the schema. Called right after
// a checkpoint spill so the next stretch starts from a fresh buffer.
func (b *Batch) Reset() {
	for i := range b.cols {
		b.cols[i].strs = nil
		b.cols[i].ints = nil
		b.cols[i].floats = nil
	}
	b.rows = 0
}
