// Package checkpoint spills full column batches to a run-scoped temporary
// directory and merges every spilled artifact plus the final resident batch
// into one table.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fsweep/fsweep/internal/codec"
	"github.com/fsweep/fsweep/internal/frame"
	"github.com/fsweep/fsweep/pkg/types"
)

const artifactExt = ".ckpt"

// Store owns the run-scoped temp directory and the flush sequence.
// The pipeline is single-threaded, so the directory's mere existence acts
// as a crude cross-process mutual-exclusion marker; no lock is needed.
type Store struct {
	dir     string
	schema  types.Schema
	nextSeq int
}

// NewStore creates the temp directory and the store. A pre-existing
// directory means a prior run crashed or is still running: the run aborts
// with CheckpointConflict before any traversal begins, rather than
// silently merging unrelated leftover data.
func NewStore(dir string, schema types.Schema) (*Store, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		if os.IsExist(err) {
			return nil, types.WrapError(types.CodeCheckpointConflict,
				fmt.Sprintf("temp directory %q already exists; remove the stale leftovers of the previous run", dir), err)
		}
		return nil, fmt.Errorf("checkpoint: creating temp directory: %w", err)
	}
	return &Store{dir: dir, schema: schema}, nil
}

// Dir returns the temp directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Count returns the number of checkpoints flushed so far.
func (s *Store) Count() int {
	return s.nextSeq
}

// Flush serializes the batch to a new artifact named by a strictly
// increasing sequence number assigned at flush time. The caller resets the
// batch afterwards; the artifact is read exactly once, during merge.
func (s *Store) Flush(b *frame.Batch) error {
	tbl, err := frame.NewTable(s.schema)
	if err != nil {
		return err
	}
	if err := tbl.AppendBatch(b); err != nil {
		return err
	}
	data, err := codec.Encode(tbl)
	if err != nil {
		return fmt.Errorf("checkpoint: encoding batch: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%06d%s", s.nextSeq, artifactExt))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("checkpoint: writing %s: %w", path, err)
	}
	s.nextSeq++
	return nil
}

// Merge reads every checkpoint artifact in sequence order, concatenates
// them followed by the still-resident final batch, deletes each artifact
// right after reading it, and removes the temp directory. Any unreadable
// or undecodable artifact fails the merge: the run is all-or-nothing.
func (s *Store) Merge(final *frame.Batch) (*frame.Table, error) {
	paths, err := s.listArtifacts()
	if err != nil {
		return nil, err
	}

	out, err := frame.NewTable(s.schema)
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, types.WrapError(types.CodeArtifactCorruption,
				fmt.Sprintf("reading checkpoint %s", path), err)
		}
		part, err := codec.Decode(data)
		if err != nil {
			return nil, types.WrapError(types.CodeArtifactCorruption,
				fmt.Sprintf("decoding checkpoint %s", path), err)
		}
		if !part.Schema().Equal(s.schema) {
			return nil, types.NewError(types.CodeArtifactCorruption,
				fmt.Sprintf("checkpoint %s carries a foreign schema", path))
		}
		if err := out.AppendTable(part); err != nil {
			return nil, err
		}
		// Deleting as we go bounds peak disk usage during the merge.
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("checkpoint: removing %s: %w", path, err)
		}
	}

	if err := out.AppendBatch(final); err != nil {
		return nil, err
	}
	if err := os.Remove(s.dir); err != nil {
		return nil, fmt.Errorf("checkpoint: removing temp directory: %w", err)
	}
	return out, nil
}

// listArtifacts returns checkpoint paths ordered by their assigned
// sequence number, never by raw listing order.
func (s *Store) listArtifacts() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: listing temp directory: %w", err)
	}

	type artifact struct {
		seq  int
		name string
	}
	var artifacts []artifact
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), artifactExt) {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimSuffix(entry.Name(), artifactExt))
		if err != nil {
			return nil, types.WrapError(types.CodeArtifactCorruption,
				fmt.Sprintf("unparseable checkpoint name %q", entry.Name()), err)
		}
		artifacts = append(artifacts, artifact{seq: seq, name: entry.Name()})
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].seq < artifacts[j].seq })

	paths := make([]string, len(artifacts))
	for i, a := range artifacts {
		paths[i] = filepath.Join(s.dir, a.name)
	}
	return paths, nil
}
