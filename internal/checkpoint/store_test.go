package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsweep/fsweep/internal/frame"
	"github.com/fsweep/fsweep/pkg/types"
)

func testSchema() types.Schema {
	return types.NewSchema(
		types.ColumnDef{Name: "path", Kind: types.KindString},
		types.ColumnDef{Name: "size", Kind: types.KindInt},
	)
}

func newBatch(t *testing.T, paths ...string) *frame.Batch {
	t.Helper()
	b, err := frame.NewBatch(testSchema())
	require.NoError(t, err)
	for i, p := range paths {
		require.NoError(t, b.Append(types.Record{
			"path": types.String(p),
			"size": types.Int(int64(i)),
		}))
	}
	return b
}

func tempDir(t *testing.T) string {
	return filepath.Join(t.TempDir(), "fsweep_temp")
}

func TestStore_ConflictOnExistingDir(t *testing.T) {
	dir := tempDir(t)
	require.NoError(t, os.Mkdir(dir, 0o755))

	_, err := NewStore(dir, testSchema())
	require.Error(t, err)
	assert.Equal(t, types.CodeCheckpointConflict, types.CodeOf(err))
}

func TestStore_FlushAssignsSequenceNumbers(t *testing.T) {
	dir := tempDir(t)
	s, err := NewStore(dir, testSchema())
	require.NoError(t, err)

	require.NoError(t, s.Flush(newBatch(t, "/a")))
	require.NoError(t, s.Flush(newBatch(t, "/b")))
	assert.Equal(t, 2, s.Count())

	assert.FileExists(t, filepath.Join(dir, "000000.ckpt"))
	assert.FileExists(t, filepath.Join(dir, "000001.ckpt"))
}

func TestStore_MergeOrdersBySequence(t *testing.T) {
	dir := tempDir(t)
	s, err := NewStore(dir, testSchema())
	require.NoError(t, err)

	require.NoError(t, s.Flush(newBatch(t, "/first")))
	require.NoError(t, s.Flush(newBatch(t, "/second")))

	tbl, err := s.Merge(newBatch(t, "/resident"))
	require.NoError(t, err)

	paths, err := tbl.Strings("path")
	require.NoError(t, err)
	assert.Equal(t, []string{"/first", "/second", "/resident"}, paths)

	// Nothing survives a successful run.
	assert.NoDirExists(t, dir)
}

func TestStore_MergeNoCheckpoints(t *testing.T) {
	dir := tempDir(t)
	s, err := NewStore(dir, testSchema())
	require.NoError(t, err)

	tbl, err := s.Merge(newBatch(t, "/only"))
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.NumRows())
	assert.NoDirExists(t, dir)
}

func TestStore_MergeCorruptArtifactFails(t *testing.T) {
	dir := tempDir(t)
	s, err := NewStore(dir, testSchema())
	require.NoError(t, err)

	require.NoError(t, s.Flush(newBatch(t, "/a")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000000.ckpt"), []byte("garbage"), 0o644))

	_, err = s.Merge(newBatch(t))
	require.Error(t, err)
	assert.Equal(t, types.CodeArtifactCorruption, types.CodeOf(err))
}

func TestStore_MergeUnparseableNameFails(t *testing.T) {
	dir := tempDir(t)
	s, err := NewStore(dir, testSchema())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.ckpt"), []byte("x"), 0o644))

	_, err = s.Merge(newBatch(t))
	require.Error(t, err)
	assert.Equal(t, types.CodeArtifactCorruption, types.CodeOf(err))
}

func TestStore_MergeForeignSchemaFails(t *testing.T) {
	dir := tempDir(t)
	s, err := NewStore(dir, testSchema())
	require.NoError(t, err)
	require.NoError(t, s.Flush(newBatch(t, "/a")))

	other := types.NewSchema(types.ColumnDef{Name: "hash", Kind: types.KindString})
	s2 := &Store{dir: dir, schema: other}
	_, err = s2.Merge(mustBatch(t, other))
	require.Error(t, err)
	assert.Equal(t, types.CodeArtifactCorruption, types.CodeOf(err))
}

func mustBatch(t *testing.T, schema types.Schema) *frame.Batch {
	t.Helper()
	b, err := frame.NewBatch(schema)
	require.NoError(t, err)
	return b
}
