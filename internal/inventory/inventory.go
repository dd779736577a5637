// Package inventory is the file-metadata consumer of the pipeline: one row
// per file with path, size, owner and timestamps.
package inventory

import (
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/fsweep/fsweep/internal/frame"
	"github.com/fsweep/fsweep/internal/optimize"
	"github.com/fsweep/fsweep/pkg/types"
)

// DefaultSizeThreshold: files at or under this many bytes are not
// registered.
const DefaultSizeThreshold = 1024

// Schema returns the inventory schema.
func Schema() types.Schema {
	return types.NewSchema(
		types.ColumnDef{Name: "path", Kind: types.KindString},
		types.ColumnDef{Name: "size", Kind: types.KindInt},
		types.ColumnDef{Name: "uid", Kind: types.KindInt},
		types.ColumnDef{Name: "atime", Kind: types.KindInt},
		types.ColumnDef{Name: "mtime", Kind: types.KindInt},
	)
}

// Extractor stats files and records their metadata. Directories produce no
// records.
type Extractor struct {
	// SizeThreshold excludes files at or under this many bytes; zero
	// means DefaultSizeThreshold. Use a negative threshold to register
	// everything.
	SizeThreshold int64
}

// ExtractFile returns the file's metadata record, or nil for files under
// the size threshold.
func (e Extractor) ExtractFile(path string) (types.Record, error) {
	threshold := e.SizeThreshold
	if threshold == 0 {
		threshold = DefaultSizeThreshold
	}

	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return nil, err
	}
	if st.Size <= threshold {
		return nil, nil
	}
	return types.Record{
		"path":  types.String(path),
		"size":  types.Int(st.Size),
		"uid":   types.Int(int64(st.Uid)),
		"atime": types.Int(st.Atim.Sec),
		"mtime": types.Int(st.Mtim.Sec),
	}, nil
}

// ExtractDirectory excludes directories from the table.
func (Extractor) ExtractDirectory(string) (types.Record, error) {
	return nil, nil
}

// Optimizer narrows the integer columns to their observed ranges; the uid
// column in particular usually fits in two bytes.
func Optimizer() optimize.Optimizer {
	return optimize.NarrowInts("size", "uid", "atime", "mtime")
}

// SizeByExtension aggregates total file size per lowercase extension from
// an inventory table. Files without an extension are keyed by "".
func SizeByExtension(t *frame.Table) (map[string]int64, error) {
	paths, err := t.Strings("path")
	if err != nil {
		return nil, err
	}
	sizes, err := t.Ints("size")
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int64)
	for i, p := range paths {
		ext := strings.ToLower(filepath.Ext(p))
		totals[ext] += sizes[i]
	}
	return totals, nil
}
