// Command fsweep-dupes walks a directory tree, hashes every file's content,
// and reports clusters of files sharing the same sha256 digest. With -clean
// the persisted artifact is rewritten to keep only the duplicate rows.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fsweep/fsweep/internal/catalog"
	"github.com/fsweep/fsweep/internal/config"
	"github.com/fsweep/fsweep/internal/dupes"
	"github.com/fsweep/fsweep/internal/frame"
	"github.com/fsweep/fsweep/internal/pipeline"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file")
		root       = flag.String("root", "", "Directory to scan recursively (required)")
		memLimit   = flag.Uint64("mem-limit", 0, "Soft memory budget in bytes (default 2 GiB)")
		clean      = flag.Bool("clean", false, "Rewrite the artifact keeping only duplicate rows")
	)
	flag.Parse()

	if *root == "" {
		fmt.Fprintln(os.Stderr, "fsweep-dupes: -root is required")
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

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	p, err := pipeline.New(pipeline.Options{
		Schema:    dupes.Schema(),
		Extractor: dupes.Extractor{},
		MemLimit:  cfg.MemLimit,
		TempDir:   cfg.TempDir,
		OutputDir: cfg.DataDir,
	})
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	log.Printf("Hashing %s...", *root)
	table, stats, err := p.Run(*root)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}
	log.Printf("Scan complete: rows=%d checkpoints=%d artifact=%s",
		stats.Rows, stats.Checkpoints, stats.ArtifactPath)

	clusters, err := dupes.Clusters(table)
	if err != nil {
		log.Fatalf("Failed to cluster hashes: %v", err)
	}
	printClusters(table, clusters)

	if *clean {
		filtered, err := dupes.WriteDuplicatesOnly(table, stats.ArtifactPath)
		if err != nil {
			log.Fatalf("Failed to rewrite artifact: %v", err)
		}
		log.Printf("Rewrote %s with %d duplicate rows", stats.ArtifactPath, filtered.NumRows())
	}

	if err := recordRun(context.Background(), cfg, stats); err != nil {
		log.Fatalf("Failed to record run: %v", err)
	}
}

func printClusters(t *frame.Table, clusters []dupes.Cluster) {
	if len(clusters) == 0 {
		fmt.Println("No duplicates found.")
		return
	}
	paths, err := t.Strings("path")
	if err != nil {
		log.Fatalf("Failed to read paths: %v", err)
	}
	for _, c := range clusters {
		fmt.Printf("%s (%d files)\n", c.Hash, len(c.Rows))
		for _, row := range c.Rows {
			fmt.Printf("  %s\n", paths[row])
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
