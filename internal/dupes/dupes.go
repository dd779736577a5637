// Package dupes finds duplicate files by content hash, built entirely on
// top of the inventory pipeline.
package dupes

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sort"

	"github.com/fsweep/fsweep/internal/frame"
	"github.com/fsweep/fsweep/internal/store"
	"github.com/fsweep/fsweep/pkg/types"
)

// hashChunkSize bounds how much of a file is resident while hashing, so
// memory per file is constant regardless of file size.
const hashChunkSize = 1 << 20

// Schema returns the duplicate scan schema: one row per hashed file.
func Schema() types.Schema {
	return types.NewSchema(
		types.ColumnDef{Name: "path", Kind: types.KindString},
		types.ColumnDef{Name: "hash", Kind: types.KindString},
	)
}

// Extractor hashes every file's content. Directories produce no records.
type Extractor struct{}

// ExtractFile streams the file through sha256 in fixed-size chunks and
// returns {path, hash}. Unreadable files are skipped by the pipeline.
func (Extractor) ExtractFile(path string) (types.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, hashChunkSize)); err != nil {
		return nil, err
	}
	return types.Record{
		"path": types.String(path),
		"hash": types.String(hex.EncodeToString(h.Sum(nil))),
	}, nil
}

// ExtractDirectory excludes directories from the table.
func (Extractor) ExtractDirectory(string) (types.Record, error) {
	return nil, nil
}

// Cluster is a set of rows sharing one content hash, size >= 2.
type Cluster struct {
	Hash string
	Rows []int
}

// Clusters groups table rows by hash and returns every hash shared by more
// than one row. Clusters are ordered by their first row index; row indices
// within a cluster are ascending, so results are deterministic for a fixed
// table.
func Clusters(t *frame.Table) ([]Cluster, error) {
	hashes, err := t.Strings("hash")
	if err != nil {
		return nil, err
	}

	byHash := make(map[string][]int)
	for i, h := range hashes {
		byHash[h] = append(byHash[h], i)
	}

	var clusters []Cluster
	for h, rows := range byHash {
		if len(rows) > 1 {
			clusters = append(clusters, Cluster{Hash: h, Rows: rows})
		}
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Rows[0] < clusters[j].Rows[0] })
	return clusters, nil
}

// WriteDuplicatesOnly rewrites the artifact at path keeping only rows that
// belong to a duplicate cluster, and returns the filtered table.
func WriteDuplicatesOnly(t *frame.Table, path string) (*frame.Table, error) {
	clusters, err := Clusters(t)
	if err != nil {
		return nil, err
	}
	var keep []int
	for _, c := range clusters {
		keep = append(keep, c.Rows...)
	}
	sort.Ints(keep)

	filtered, err := t.FilterRows(keep)
	if err != nil {
		return nil, err
	}
	if err := store.WriteTable(path, filtered); err != nil {
		return nil, err
	}
	return filtered, nil
}
