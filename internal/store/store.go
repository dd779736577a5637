// Package store persists merged tables as self-describing binary columnar
// artifacts and optionally archives them to object storage.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fsweep/fsweep/internal/codec"
	"github.com/fsweep/fsweep/internal/frame"
	"github.com/fsweep/fsweep/pkg/types"
)

// ArtifactSuffix terminates every persisted artifact name.
const ArtifactSuffix = "_persistent.ftb"

var nonAlnum = regexp.MustCompile("[^A-Za-z0-9]+")

// ArtifactName derives a deterministic artifact file name from the scanned
// root path: non-alphanumeric runs are stripped from each path segment,
// empties dropped, segments joined by "_", and the fixed suffix appended.
// Re-scanning the same root therefore overwrites the same file.
func ArtifactName(root string) string {
	parts := strings.Split(root, string(os.PathSeparator))
	cleaned := parts[:0]
	for _, part := range parts {
		if p := nonAlnum.ReplaceAllString(part, ""); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, "_") + ArtifactSuffix
}

// ArtifactPath returns the artifact location for a scanned root inside the
// given output directory.
func ArtifactPath(outputDir, root string) string {
	return filepath.Join(outputDir, ArtifactName(root))
}

// WriteTable serializes the table, schema included, to path. The write is
// atomic: the artifact appears complete or not at all.
func WriteTable(path string, t *frame.Table) error {
	data, err := codec.Encode(t)
	if err != nil {
		return fmt.Errorf("store: encoding table: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: renaming into place: %w", err)
	}
	return nil
}

// ReadTable is the exact inverse of WriteTable: it reproduces a table with
// identical schema, row order and values.
func ReadTable(path string) (*frame.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: reading %s: %w", path, err)
	}
	t, err := codec.Decode(data)
	if err != nil {
		return nil, types.WrapError(types.CodeArtifactCorruption,
			fmt.Sprintf("artifact %s", path), err)
	}
	return t, nil
}
