// Package walker provides lazy pre-order traversal of a directory tree,
// tolerant of per-entry failures.
package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// WalkFunc is called once per directory, pre-order: the directory is
// reported before any of its descendants are visited. files holds the
// names of the directory's non-directory entries. Returning an error
// aborts the traversal.
type WalkFunc func(dir string, files []string) error

// Walk traverses root recursively. Each call re-traverses from scratch.
//
// Per-entry failures (permission denied, vanished entries) are skipped and
// traversal continues; an unlistable subdirectory skips that subtree only.
// Symlinked directories are never descended, so a link cycle cannot trap
// the traversal; symlinks to regular files are reported as files.
//
// Entries are visited in name order, making traversal stable for a fixed
// tree regardless of the filesystem's physical layout.
func Walk(root string, fn WalkFunc) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("walker: root %q: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("walker: root %q is not a directory", root)
	}
	return walk(root, fn)
}

func walk(dir string, fn WalkFunc) error {
	// os.ReadDir returns entries sorted by name, which is what keeps the
	// traversal order stable across runs.
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Unlistable directory: skip the subtree, keep going elsewhere.
		return nil
	}

	var files []string
	var subdirs []string
	for _, entry := range entries {
		switch {
		case entry.IsDir():
			subdirs = append(subdirs, entry.Name())
		case entry.Type()&fs.ModeSymlink != 0:
			// Resolve the target once; links to directories are dropped,
			// links to files surface like any other file. A broken link
			// is a per-entry failure and is skipped.
			target, err := os.Stat(filepath.Join(dir, entry.Name()))
			if err != nil || target.IsDir() {
				continue
			}
			files = append(files, entry.Name())
		default:
			files = append(files, entry.Name())
		}
	}

	if err := fn(dir, files); err != nil {
		return err
	}
	for _, name := range subdirs {
		if err := walk(filepath.Join(dir, name), fn); err != nil {
			return err
		}
	}
	return nil
}
