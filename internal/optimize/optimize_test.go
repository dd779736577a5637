package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsweep/fsweep/internal/frame"
	"github.com/fsweep/fsweep/pkg/types"
)

func intTable(t *testing.T, name string, vals ...int64) *frame.Table {
	t.Helper()
	schema := types.NewSchema(types.ColumnDef{Name: name, Kind: types.KindInt})
	b, err := frame.NewBatch(schema)
	require.NoError(t, err)
	for _, v := range vals {
		require.NoError(t, b.Append(types.Record{name: types.Int(v)}))
	}
	tbl, err := frame.NewTable(schema)
	require.NoError(t, err)
	require.NoError(t, tbl.AppendBatch(b))
	return tbl
}

func TestNarrowInts_WidthFromObservedMax(t *testing.T) {
	cases := []struct {
		vals  []int64
		width uint8
	}{
		{[]int64{0, 200}, 1},
		{[]int64{0, 65000}, 2},
		{[]int64{0, 70000}, 4},
		{[]int64{0, 1 << 40}, 8},
		{[]int64{-1, 5}, 8},
		{nil, 1},
	}
	for _, tc := range cases {
		tbl := intTable(t, "uid", tc.vals...)
		got, err := NarrowInts("uid")(tbl)
		require.NoError(t, err)
		w, err := got.ColumnWidth("uid")
		require.NoError(t, err)
		assert.Equal(t, tc.width, w, "values %v", tc.vals)
	}
}

func TestNarrowInts_ValuesUnchanged(t *testing.T) {
	tbl := intTable(t, "uid", 7, 42, 250)
	before, err := tbl.Ints("uid")
	require.NoError(t, err)
	beforeCopy := append([]int64(nil), before...)

	got, err := NarrowInts("uid")(tbl)
	require.NoError(t, err)
	after, err := got.Ints("uid")
	require.NoError(t, err)
	assert.Equal(t, beforeCopy, after)
}

func TestNarrowInts_Idempotent(t *testing.T) {
	tbl := intTable(t, "uid", 7, 65000)
	opt := NarrowInts("uid")

	once, err := opt(tbl)
	require.NoError(t, err)
	twice, err := opt(once)
	require.NoError(t, err)
	assert.True(t, once.Equal(twice))
}

func TestNarrowInts_UnknownColumn(t *testing.T) {
	tbl := intTable(t, "uid", 1)
	_, err := NarrowInts("missing")(tbl)
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	schema := types.NewSchema(
		types.ColumnDef{Name: "uid", Kind: types.KindInt},
		types.ColumnDef{Name: "size", Kind: types.KindInt},
	)
	b, err := frame.NewBatch(schema)
	require.NoError(t, err)
	require.NoError(t, b.Append(types.Record{"uid": types.Int(10), "size": types.Int(1 << 20)}))
	tbl, err := frame.NewTable(schema)
	require.NoError(t, err)
	require.NoError(t, tbl.AppendBatch(b))

	got, err := Chain(NarrowInts("uid"), NarrowInts("size"))(tbl)
	require.NoError(t, err)
	uw, _ := got.ColumnWidth("uid")
	sw, _ := got.ColumnWidth("size")
	assert.Equal(t, uint8(1), uw)
	assert.Equal(t, uint8(4), sw)
}
