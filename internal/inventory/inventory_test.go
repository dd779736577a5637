package inventory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsweep/fsweep/internal/frame"
	"github.com/fsweep/fsweep/pkg/types"
)

func TestExtractFile_Record(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.log")
	content := strings.Repeat("x", 2048)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rec, err := Extractor{}.ExtractFile(path)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, types.String(path), rec["path"])
	assert.Equal(t, types.Int(2048), rec["size"])
	assert.Equal(t, types.Int(int64(os.Getuid())), rec["uid"])
	assert.Greater(t, rec["mtime"].Int(), int64(0))
}

func TestExtractFile_UnderThresholdSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.txt")
	require.NoError(t, os.WriteFile(path, []byte("tiny"), 0o644))

	rec, err := Extractor{}.ExtractFile(path)
	require.NoError(t, err)
	assert.Nil(t, rec)

	// Negative threshold registers everything.
	rec, err = Extractor{SizeThreshold: -1}.ExtractFile(path)
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestExtractFile_Missing(t *testing.T) {
	_, err := Extractor{}.ExtractFile(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func inventoryTable(t *testing.T, rows []types.Record) *frame.Table {
	t.Helper()
	b, err := frame.NewBatch(Schema())
	require.NoError(t, err)
	for _, rec := range rows {
		require.NoError(t, b.Append(rec))
	}
	tbl, err := frame.NewTable(Schema())
	require.NoError(t, err)
	require.NoError(t, tbl.AppendBatch(b))
	return tbl
}

func invRecord(path string, size int64) types.Record {
	return types.Record{
		"path":  types.String(path),
		"size":  types.Int(size),
		"uid":   types.Int(1000),
		"atime": types.Int(1700000000),
		"mtime": types.Int(1700000000),
	}
}

func TestOptimizer_NarrowsUID(t *testing.T) {
	tbl := inventoryTable(t, []types.Record{invRecord("/a.log", 4096)})

	got, err := Optimizer()(tbl)
	require.NoError(t, err)

	uidWidth, err := got.ColumnWidth("uid")
	require.NoError(t, err)
	assert.Equal(t, uint8(2), uidWidth)

	atimeWidth, err := got.ColumnWidth("atime")
	require.NoError(t, err)
	assert.Equal(t, uint8(4), atimeWidth)
}

func TestSizeByExtension(t *testing.T) {
	tbl := inventoryTable(t, []types.Record{
		invRecord("/logs/a.log", 100),
		invRecord("/logs/b.LOG", 50),
		invRecord("/media/c.iso", 2000),
		invRecord("/etc/hostname", 10),
	})

	totals, err := SizeByExtension(tbl)
	require.NoError(t, err)
	assert.Equal(t, int64(150), totals[".log"])
	assert.Equal(t, int64(2000), totals[".iso"])
	assert.Equal(t, int64(10), totals[""])
}
