package codec

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsweep/fsweep/internal/frame"
	"github.com/fsweep/fsweep/pkg/types"
)

func testSchema() types.Schema {
	return types.NewSchema(
		types.ColumnDef{Name: "path", Kind: types.KindString},
		types.ColumnDef{Name: "size", Kind: types.KindInt},
		types.ColumnDef{Name: "ratio", Kind: types.KindFloat},
	)
}

func buildTable(t *testing.T, paths []string, sizes []int64, ratios []float64) *frame.Table {
	t.Helper()
	b, err := frame.NewBatch(testSchema())
	require.NoError(t, err)
	for i := range paths {
		require.NoError(t, b.Append(types.Record{
			"path":  types.String(paths[i]),
			"size":  types.Int(sizes[i]),
			"ratio": types.Float(ratios[i]),
		}))
	}
	tbl, err := frame.NewTable(testSchema())
	require.NoError(t, err)
	require.NoError(t, tbl.AppendBatch(b))
	return tbl
}

func TestCodec_RoundTrip(t *testing.T) {
	tbl := buildTable(t,
		[]string{"/a", "", "/c/with/long/path"},
		[]int64{0, -5, 1 << 40},
		[]float64{0.0, -1.5, 3.14},
	)

	data, err := Encode(tbl)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, tbl.Equal(got))
}

func TestCodec_RoundTripEmptyTable(t *testing.T) {
	tbl := buildTable(t, nil, nil, nil)
	data, err := Encode(tbl)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 0, got.NumRows())
	assert.True(t, tbl.Equal(got))
}

func TestCodec_RoundTripNarrowedWidths(t *testing.T) {
	tbl := buildTable(t, []string{"/a", "/b"}, []int64{3, 65000}, []float64{1, 2})
	require.NoError(t, tbl.SetColumnWidth("size", 2))

	data, err := Encode(tbl)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, tbl.Equal(got))

	w, err := got.ColumnWidth("size")
	require.NoError(t, err)
	assert.Equal(t, uint8(2), w)
}

func TestCodec_EncodeWidthOverflow(t *testing.T) {
	tbl := buildTable(t, []string{"/a"}, []int64{70000}, []float64{1})
	require.NoError(t, tbl.SetColumnWidth("size", 2))
	_, err := Encode(tbl)
	assert.Error(t, err)
}

func TestCodec_EncodeNegativeNarrowed(t *testing.T) {
	tbl := buildTable(t, []string{"/a"}, []int64{-1}, []float64{1})
	require.NoError(t, tbl.SetColumnWidth("size", 4))
	_, err := Encode(tbl)
	assert.Error(t, err)
}

func TestCodec_BlockLengthLimit(t *testing.T) {
	assert.NoError(t, checkBlockLen("path", math.MaxUint32))
	assert.Error(t, checkBlockLen("path", int(math.MaxUint32)+1))
}

func TestCodec_DecodeBadMagic(t *testing.T) {
	tbl := buildTable(t, []string{"/a"}, []int64{1}, []float64{1})
	data, err := Encode(tbl)
	require.NoError(t, err)
	data[0] = 'X'

	_, err = Decode(data)
	assert.Equal(t, types.CodeArtifactCorruption, types.CodeOf(err))
}

func TestCodec_DecodeChecksumMismatch(t *testing.T) {
	tbl := buildTable(t, []string{"/a"}, []int64{1}, []float64{1})
	data, err := Encode(tbl)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff

	_, err = Decode(data)
	assert.Equal(t, types.CodeArtifactCorruption, types.CodeOf(err))
}

func TestCodec_DecodeTruncated(t *testing.T) {
	tbl := buildTable(t, []string{"/a"}, []int64{1}, []float64{1})
	data, err := Encode(tbl)
	require.NoError(t, err)

	for _, cut := range []int{1, 8, len(data) / 2, len(data) - 1} {
		_, err = Decode(data[:cut])
		assert.Equal(t, types.CodeArtifactCorruption, types.CodeOf(err), "cut at %d", cut)
	}
}

// rowsOffset returns the byte offset of the row-count field for a table
// encoded with testSchema.
func rowsOffset() int {
	off := len(magic) + 2 + 2
	for _, col := range testSchema().Columns {
		off += 2 + len(col.Name) + 2
	}
	return off
}

func TestCodec_DecodeCorruptRowCount(t *testing.T) {
	tbl := buildTable(t, []string{"/a", "/b"}, []int64{1, 2}, []float64{1, 2})
	data, err := Encode(tbl)
	require.NoError(t, err)

	// The row count lives outside the block checksums; a corrupted value
	// must surface as ArtifactCorruption, never as an allocation sized by
	// the corrupt field.
	for _, rows := range []uint64{1 << 40, 1<<64 - 1, 3, 1, 0} {
		flipped := append([]byte(nil), data...)
		binary.LittleEndian.PutUint64(flipped[rowsOffset():], rows)
		_, err := Decode(flipped)
		assert.Equal(t, types.CodeArtifactCorruption, types.CodeOf(err), "rows=%d", rows)
	}
}

func TestCodec_DecodeTrailingBytes(t *testing.T) {
	tbl := buildTable(t, []string{"/a"}, []int64{1}, []float64{1})
	data, err := Encode(tbl)
	require.NoError(t, err)

	_, err = Decode(append(data, 0x00))
	assert.Equal(t, types.CodeArtifactCorruption, types.CodeOf(err))
}

// Property: Decode(Encode(T)) == T for arbitrary tables.
func TestProperty_CodecRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("encode/decode reproduces the table", prop.ForAll(
		func(paths []string, sizes []int64, ratios []float64) bool {
			// Equalize lengths; generators produce independent slices.
			n := len(paths)
			if len(sizes) < n {
				n = len(sizes)
			}
			if len(ratios) < n {
				n = len(ratios)
			}

			b, err := frame.NewBatch(testSchema())
			if err != nil {
				return false
			}
			for i := 0; i < n; i++ {
				if err := b.Append(types.Record{
					"path":  types.String(paths[i]),
					"size":  types.Int(sizes[i]),
					"ratio": types.Float(ratios[i]),
				}); err != nil {
					return false
				}
			}
			tbl, err := frame.NewTable(testSchema())
			if err != nil {
				return false
			}
			if err := tbl.AppendBatch(b); err != nil {
				return false
			}

			data, err := Encode(tbl)
			if err != nil {
				return false
			}
			got, err := Decode(data)
			if err != nil {
				return false
			}
			return tbl.Equal(got)
		},
		gen.SliceOf(gen.AnyString()),
		gen.SliceOf(gen.Int64()),
		gen.SliceOf(gen.Float64()),
	))

	properties.TestingRun(t)
}
