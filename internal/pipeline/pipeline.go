// Package pipeline drives a full inventory run: traversal, extraction,
// batching, memory-budget checkpointing, merge, optimization, persistence.
package pipeline

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsweep/fsweep/internal/checkpoint"
	"github.com/fsweep/fsweep/internal/frame"
	"github.com/fsweep/fsweep/internal/memprobe"
	"github.com/fsweep/fsweep/internal/optimize"
	"github.com/fsweep/fsweep/internal/store"
	"github.com/fsweep/fsweep/internal/walker"
	"github.com/fsweep/fsweep/pkg/types"
)

const (
	// DefaultMemLimit is the default memory budget: 2 GiB. The budget is
	// soft; see memprobe.RuntimeProbe for the documented overshoot.
	DefaultMemLimit = 2 * 1024 * 1024 * 1024

	// DefaultTempDirName is the run-scoped temp directory, relative to the
	// working directory unless Options.TempDir overrides it.
	DefaultTempDirName = "fsweep_temp"
)

// Extractor maps filesystem entries to records. A nil record means
// "exclude this entry". Any returned error is treated as a per-entry
// failure: the entry is skipped and traversal continues.
type Extractor interface {
	ExtractFile(path string) (types.Record, error)
	ExtractDirectory(path string) (types.Record, error)
}

// Options configures a pipeline.
type Options struct {
	// Schema is the fixed, ordered column set for the run. Required.
	Schema types.Schema

	// Extractor produces records from paths. Required.
	Extractor Extractor

	// MemLimit is the soft memory budget in bytes. Sampled once per
	// directory; exceeding it spills the active batch to disk. Defaults
	// to DefaultMemLimit.
	MemLimit uint64

	// TempDir is the run-scoped checkpoint directory. It must not exist
	// when the run starts. Defaults to DefaultTempDirName under the
	// working directory.
	TempDir string

	// OutputDir is where the persisted artifact is written. Defaults to
	// the working directory.
	OutputDir string

	// Probe reports current memory usage. Defaults to the runtime heap
	// probe; tests inject fixed probes to force or suppress spills.
	Probe memprobe.Probe

	// Optimizer, if set, is applied exactly once after merge and before
	// persistence.
	Optimizer optimize.Optimizer
}

// RunStats summarizes one completed run.
type RunStats struct {
	Root         string
	ArtifactPath string
	Rows         int
	Checkpoints  int
	StartedAt    time.Time
	WalkTime     time.Duration
	MergeTime    time.Duration
	StoreTime    time.Duration
	TotalTime    time.Duration
}

// Pipeline runs bounded-memory inventory scans. Single-threaded and
// synchronous throughout; the walker hands control back once per
// directory, which is the sole point where memory is sampled and
// checkpoints are triggered.
type Pipeline struct {
	opts Options
}

// New validates options, fills defaults, and returns a pipeline.
func New(opts Options) (*Pipeline, error) {
	if err := opts.Schema.Validate(); err != nil {
		return nil, err
	}
	if opts.Extractor == nil {
		return nil, fmt.Errorf("pipeline: an extractor is required")
	}
	if opts.MemLimit == 0 {
		opts.MemLimit = DefaultMemLimit
	}
	if opts.TempDir == "" {
		opts.TempDir = DefaultTempDirName
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.Probe == nil {
		opts.Probe = memprobe.RuntimeProbe{}
	}
	return &Pipeline{opts: opts}, nil
}

// Run scans root and persists the resulting table. On success the table,
// its artifact path (in stats) and run statistics are returned, and no
// trace of the run's temp storage remains. Structural failures abort with
// no artifact written; per-entry failures only reduce the row count.
func (p *Pipeline) Run(root string) (*frame.Table, *RunStats, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: resolving root: %w", err)
	}

	stats := &RunStats{Root: absRoot, StartedAt: time.Now()}

	// Fails with CheckpointConflict before any traversal if a stale temp
	// directory is present.
	ckpt, err := checkpoint.NewStore(p.opts.TempDir, p.opts.Schema)
	if err != nil {
		return nil, nil, err
	}

	batch, err := frame.NewBatch(p.opts.Schema)
	if err != nil {
		return nil, nil, err
	}

	walkStart := time.Now()
	if err := walker.Walk(absRoot, func(dir string, files []string) error {
		if p.opts.Probe.CurrentUsage() > p.opts.MemLimit && batch.Len() > 0 {
			if err := ckpt.Flush(batch); err != nil {
				return err
			}
			batch.Reset()
		}
		if err := p.extractOne(batch, dir, p.opts.Extractor.ExtractDirectory); err != nil {
			return err
		}
		for _, name := range files {
			if err := p.extractOne(batch, filepath.Join(dir, name), p.opts.Extractor.ExtractFile); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, nil, err
	}
	stats.WalkTime = time.Since(walkStart)
	stats.Checkpoints = ckpt.Count()
	log.Printf("pipeline: walk done: duration=%s checkpoints=%d", stats.WalkTime, stats.Checkpoints)

	mergeStart := time.Now()
	table, err := ckpt.Merge(batch)
	if err != nil {
		return nil, nil, err
	}
	stats.MergeTime = time.Since(mergeStart)
	stats.Rows = table.NumRows()
	log.Printf("pipeline: merge done: duration=%s rows=%d", stats.MergeTime, stats.Rows)

	if p.opts.Optimizer != nil {
		if table, err = p.opts.Optimizer(table); err != nil {
			return nil, nil, fmt.Errorf("pipeline: optimizing table: %w", err)
		}
	}

	storeStart := time.Now()
	stats.ArtifactPath = store.ArtifactPath(p.opts.OutputDir, absRoot)
	if err := store.WriteTable(stats.ArtifactPath, table); err != nil {
		return nil, nil, err
	}
	stats.StoreTime = time.Since(storeStart)
	stats.TotalTime = time.Since(stats.StartedAt)
	log.Printf("pipeline: stored %s: duration=%s total=%s", stats.ArtifactPath, stats.StoreTime, stats.TotalTime)

	return table, stats, nil
}

// extractOne runs a callback on one entry and appends the produced record.
// Callback errors are per-entry and skipped; append errors are schema
// violations and fatal.
func (p *Pipeline) extractOne(batch *frame.Batch, path string, extract func(string) (types.Record, error)) error {
	rec, err := extract(path)
	if err != nil || rec == nil {
		return nil
	}
	return batch.Append(rec)
}
