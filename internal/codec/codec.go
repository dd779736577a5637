// Package codec implements the self-describing binary columnar encoding
// shared by checkpoint artifacts and the persisted table.
//
// Layout, all integers little-endian:
//
//	magic "FSWT" (4 bytes)
//	format version (uint16)
//	column count (uint16)
//	per column: name length (uint16), name bytes, kind (uint8), width (uint8)
//	row count (uint64)
//	per column, in schema order, one block:
//	    compressed payload length (uint32)
//	    murmur3-64 checksum of the compressed payload (uint64)
//	    snappy-compressed payload
//
// Column payloads: strings are uvarint-length-prefixed bytes; integers are
// fixed-width little-endian at the column's physical width (8 by default,
// 1/2/4 after optimization); floats are IEEE-754 64-bit.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/golang/snappy"
	"github.com/spaolacci/murmur3"

	"github.com/fsweep/fsweep/internal/frame"
	"github.com/fsweep/fsweep/pkg/types"
)

const (
	magic   = "FSWT"
	version = 1
)

// Encode serializes a table, schema included.
func Encode(t *frame.Table) ([]byte, error) {
	schema := t.Schema()
	rows := t.NumRows()

	buf := make([]byte, 0, 64)
	buf = append(buf, magic...)
	buf = binary.LittleEndian.AppendUint16(buf, version)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(schema.Columns)))
	for i := range schema.Columns {
		cd := t.Column(i)
		if len(cd.Def.Name) > math.MaxUint16 {
			return nil, fmt.Errorf("codec: column name %q too long", cd.Def.Name)
		}
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(cd.Def.Name)))
		buf = append(buf, cd.Def.Name...)
		buf = append(buf, byte(cd.Def.Kind), normWidth(cd.Width))
	}
	buf = binary.LittleEndian.AppendUint64(buf, uint64(rows))

	for i := range schema.Columns {
		payload, err := encodeColumn(t.Column(i))
		if err != nil {
			return nil, err
		}
		compressed := snappy.Encode(nil, payload)
		if err := checkBlockLen(schema.Columns[i].Name, len(compressed)); err != nil {
			return nil, err
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(compressed)))
		buf = binary.LittleEndian.AppendUint64(buf, murmur3.Sum64(compressed))
		buf = append(buf, compressed...)
	}
	return buf, nil
}

// Decode reconstructs a table from bytes produced by Encode. Any structural
// mismatch is reported as ArtifactCorruption.
func Decode(data []byte) (*frame.Table, error) {
	r := &reader{data: data}

	head, err := r.take(len(magic) + 2 + 2)
	if err != nil {
		return nil, err
	}
	if string(head[:4]) != magic {
		return nil, types.NewError(types.CodeArtifactCorruption, "bad magic, not a table artifact")
	}
	if v := binary.LittleEndian.Uint16(head[4:6]); v != version {
		return nil, types.NewError(types.CodeArtifactCorruption,
			fmt.Sprintf("unsupported format version %d", v))
	}
	ncols := int(binary.LittleEndian.Uint16(head[6:8]))
	if ncols == 0 {
		return nil, types.NewError(types.CodeArtifactCorruption, "artifact declares zero columns")
	}

	defs := make([]types.ColumnDef, ncols)
	widths := make([]uint8, ncols)
	for i := 0; i < ncols; i++ {
		nameLen, err := r.uint16()
		if err != nil {
			return nil, err
		}
		name, err := r.take(int(nameLen))
		if err != nil {
			return nil, err
		}
		meta, err := r.take(2)
		if err != nil {
			return nil, err
		}
		defs[i] = types.ColumnDef{Name: string(name), Kind: types.ValueKind(meta[0])}
		widths[i] = meta[1]
	}
	schema := types.NewSchema(defs...)
	if err := schema.Validate(); err != nil {
		return nil, types.WrapError(types.CodeArtifactCorruption, "artifact schema invalid", err)
	}

	rows64, err := r.uint64()
	if err != nil {
		return nil, err
	}
	// The header row count is outside the per-block checksums, so it is
	// validated against each payload before any row-sized allocation.
	if rows64 > math.MaxInt {
		return nil, types.NewError(types.CodeArtifactCorruption,
			fmt.Sprintf("implausible row count %d", rows64))
	}
	rows := int(rows64)

	cols := make([]frame.ColumnData, ncols)
	for i := 0; i < ncols; i++ {
		blockLen, err := r.uint32()
		if err != nil {
			return nil, err
		}
		sum, err := r.uint64()
		if err != nil {
			return nil, err
		}
		compressed, err := r.take(int(blockLen))
		if err != nil {
			return nil, err
		}
		if murmur3.Sum64(compressed) != sum {
			return nil, types.NewError(types.CodeArtifactCorruption,
				fmt.Sprintf("checksum mismatch in column %q", defs[i].Name))
		}
		payload, err := snappy.Decode(nil, compressed)
		if err != nil {
			return nil, types.WrapError(types.CodeArtifactCorruption,
				fmt.Sprintf("column %q does not decompress", defs[i].Name), err)
		}
		cd, err := decodeColumn(defs[i], widths[i], rows, payload)
		if err != nil {
			return nil, err
		}
		cols[i] = cd
	}
	if r.off != len(r.data) {
		return nil, types.NewError(types.CodeArtifactCorruption, "trailing bytes after last column block")
	}

	t, err := frame.FromColumns(schema, rows, cols)
	if err != nil {
		return nil, types.WrapError(types.CodeArtifactCorruption, "decoded columns misaligned", err)
	}
	return t, nil
}

func encodeColumn(cd frame.ColumnData) ([]byte, error) {
	var buf []byte
	switch cd.Def.Kind {
	case types.KindString:
		for _, s := range cd.Strs {
			buf = binary.AppendUvarint(buf, uint64(len(s)))
			buf = append(buf, s...)
		}
	case types.KindInt:
		w := normWidth(cd.Width)
		limit := widthMax(w)
		for _, v := range cd.Ints {
			if w == 8 {
				buf = binary.LittleEndian.AppendUint64(buf, uint64(v))
				continue
			}
			if v < 0 || v > limit {
				return nil, fmt.Errorf("codec: value %d in column %q does not fit width %d",
					v, cd.Def.Name, w)
			}
			u := uint64(v)
			for b := uint8(0); b < w; b++ {
				buf = append(buf, byte(u>>(8*b)))
			}
		}
	case types.KindFloat:
		for _, f := range cd.Floats {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
		}
	}
	return buf, nil
}

func decodeColumn(def types.ColumnDef, width uint8, rows int, payload []byte) (frame.ColumnData, error) {
	cd := frame.ColumnData{Def: def, Width: width}
	r := &reader{data: payload}
	switch def.Kind {
	case types.KindString:
		// Every string costs at least its one-byte length prefix, so the
		// payload bounds the row count.
		if rows > len(r.data) {
			return cd, rowCountMismatch(def.Name, rows, len(r.data))
		}
		cd.Strs = make([]string, 0, rows)
		for i := 0; i < rows; i++ {
			n, err := r.uvarint()
			if err != nil {
				return cd, corruptColumn(def.Name, err)
			}
			b, err := r.take(int(n))
			if err != nil {
				return cd, corruptColumn(def.Name, err)
			}
			cd.Strs = append(cd.Strs, string(b))
		}
	case types.KindInt:
		w := normWidth(width)
		if len(r.data)%int(w) != 0 || len(r.data)/int(w) != rows {
			return cd, rowCountMismatch(def.Name, rows, len(r.data))
		}
		cd.Ints = make([]int64, 0, rows)
		for i := 0; i < rows; i++ {
			b, err := r.take(int(w))
			if err != nil {
				return cd, corruptColumn(def.Name, err)
			}
			if w == 8 {
				cd.Ints = append(cd.Ints, int64(binary.LittleEndian.Uint64(b)))
				continue
			}
			var u uint64
			for j := uint8(0); j < w; j++ {
				u |= uint64(b[j]) << (8 * j)
			}
			cd.Ints = append(cd.Ints, int64(u))
		}
	case types.KindFloat:
		if len(r.data)%8 != 0 || len(r.data)/8 != rows {
			return cd, rowCountMismatch(def.Name, rows, len(r.data))
		}
		cd.Floats = make([]float64, 0, rows)
		for i := 0; i < rows; i++ {
			b, err := r.take(8)
			if err != nil {
				return cd, corruptColumn(def.Name, err)
			}
			cd.Floats = append(cd.Floats, math.Float64frombits(binary.LittleEndian.Uint64(b)))
		}
	}
	if r.off != len(r.data) {
		return cd, types.NewError(types.CodeArtifactCorruption,
			fmt.Sprintf("trailing bytes in column %q", def.Name))
	}
	return cd, nil
}

// checkBlockLen rejects compressed blocks whose length does not fit the
// uint32 block-length field.
func checkBlockLen(name string, n int) error {
	if n > math.MaxUint32 {
		return fmt.Errorf("codec: column %q block too large (%d bytes)", name, n)
	}
	return nil
}

func rowCountMismatch(name string, rows, payloadLen int) error {
	return types.NewError(types.CodeArtifactCorruption,
		fmt.Sprintf("column %q payload (%d bytes) does not match declared row count %d",
			name, payloadLen, rows))
}

func corruptColumn(name string, err error) error {
	return types.WrapError(types.CodeArtifactCorruption,
		fmt.Sprintf("column %q truncated", name), err)
}

// normWidth maps the stored width onto a concrete byte count.
func normWidth(w uint8) uint8 {
	switch w {
	case 1, 2, 4:
		return w
	default:
		return 8
	}
}

// widthMax returns the largest value encodable at the given width. Width 8
// keeps full signed range; narrower widths are unsigned.
func widthMax(w uint8) int64 {
	if w >= 8 {
		return math.MaxInt64
	}
	return int64(1)<<(8*w) - 1
}

// reader is a bounds-checked cursor over an artifact; every short read is
// an ArtifactCorruption.
type reader struct {
	data []byte
	off  int
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.data) {
		return nil, types.NewError(types.CodeArtifactCorruption, "artifact truncated")
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.off:])
	if n <= 0 {
		return 0, types.NewError(types.CodeArtifactCorruption, "artifact truncated")
	}
	r.off += n
	return v, nil
}
