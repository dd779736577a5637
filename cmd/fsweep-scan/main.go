// Command fsweep-scan walks a directory tree and persists a file-metadata
// inventory table (path, size, uid, atime, mtime).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fsweep/fsweep/internal/catalog"
	"github.com/fsweep/fsweep/internal/config"
	"github.com/fsweep/fsweep/internal/inventory"
	"github.com/fsweep/fsweep/internal/pipeline"
	"github.com/fsweep/fsweep/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file")
		root       = flag.String("root", "", "Directory to scan recursively (required)")
		memLimit   = flag.Uint64("mem-limit", 0, "Soft memory budget in bytes (default 2 GiB)")
		threshold  = flag.Int64("threshold", inventory.DefaultSizeThreshold, "Skip files at or under this many bytes")
	)
	flag.Parse()

	if *root == "" {
		fmt.Fprintln(os.Stderr, "fsweep-scan: -root is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *memLimit != 0 {
		cfg.MemLimit = *memLimit
	}
	sizeThreshold := cfg.FileSizeThreshold
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "threshold" {
			sizeThreshold = *threshold
		}
	})

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	p, err := pipeline.New(pipeline.Options{
		Schema:    inventory.Schema(),
		Extractor: inventory.Extractor{SizeThreshold: sizeThreshold},
		MemLimit:  cfg.MemLimit,
		TempDir:   cfg.TempDir,
		OutputDir: cfg.DataDir,
		Optimizer: inventory.Optimizer(),
	})
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	log.Printf("Scanning %s...", *root)
	_, stats, err := p.Run(*root)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}
	log.Printf("Scan complete: rows=%d checkpoints=%d artifact=%s",
		stats.Rows, stats.Checkpoints, stats.ArtifactPath)

	ctx := context.Background()
	if err := recordRun(ctx, cfg, stats); err != nil {
		log.Fatalf("Failed to record run: %v", err)
	}
	if cfg.Archive.Enabled {
		if err := archiveArtifact(ctx, cfg, stats.ArtifactPath); err != nil {
			log.Fatalf("Failed to archive artifact: %v", err)
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}
	cfg := config.DefaultConfig()
	cfg.Resolve()
	return cfg, cfg.Validate()
}

func recordRun(ctx context.Context, cfg *config.Config, stats *pipeline.RunStats) error {
	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return err
	}
	defer cat.Close()

	runID, err := cat.RecordRun(ctx, catalog.Run{
		Root:        stats.Root,
		Artifact:    stats.ArtifactPath,
		RowCount:    int64(stats.Rows),
		Checkpoints: stats.Checkpoints,
		StartedAt:   stats.StartedAt,
		Duration:    stats.TotalTime,
	})
	if err != nil {
		return err
	}
	log.Printf("Recorded run %s in %s", runID, cfg.CatalogPath)
	return nil
}

func archiveArtifact(ctx context.Context, cfg *config.Config, artifactPath string) error {
	var backend store.ObjectStorage
	var err error
	switch cfg.Archive.Type {
	case "s3":
		backend, err = store.NewS3Storage(ctx, cfg.Archive.S3.Bucket, store.S3Config{
			Region:   cfg.Archive.S3.Region,
			Endpoint: cfg.Archive.S3.Endpoint,
		})
	default:
		backend, err = store.NewLocalStorage(cfg.Archive.Path)
	}
	if err != nil {
		return err
	}

	objectPath, err := store.Archive(ctx, backend, artifactPath, cfg.Archive.Prefix)
	if err != nil {
		return err
	}
	log.Printf("Archived artifact to %s", objectPath)
	return nil
}
