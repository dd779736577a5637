// Package config provides unified configuration for the fsweep tools.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration shared by the fsweep front ends.
type Config struct {
	// DataDir is the base directory for artifacts and the run catalog.
	DataDir string `yaml:"data_dir"`

	// MemLimit is the soft memory budget in bytes. 0 keeps the pipeline
	// default of 2 GiB. The budget is soft: expect overshoot of roughly
	// one directory's pending records plus sampling granularity.
	MemLimit uint64 `yaml:"mem_limit"`

	// TempDir is the run-scoped checkpoint directory. It must not exist
	// when a run starts.
	TempDir string `yaml:"temp_dir"`

	// FileSizeThreshold: inventory scans skip files at or under this many
	// bytes.
	FileSizeThreshold int64 `yaml:"file_size_threshold"`

	// CatalogPath is the SQLite run-history database.
	CatalogPath string `yaml:"catalog_path"`

	// Archive configures optional artifact archiving.
	Archive ArchiveConfig `yaml:"archive"`
}

// ArchiveConfig configures where persisted artifacts are archived.
type ArchiveConfig struct {
	// Enabled turns archiving on.
	Enabled bool `yaml:"enabled"`

	// Type is the archive backend: local, s3.
	Type string `yaml:"type"`

	// Prefix is the object path prefix artifacts are archived under.
	Prefix string `yaml:"prefix"`

	// Path is the archive root (for local type).
	Path string `yaml:"path"`

	// S3 configuration (for s3 type).
	S3 S3Config `yaml:"s3"`
}

// S3Config holds S3 archive configuration.
type S3Config struct {
	// Bucket is the S3 bucket name.
	Bucket string `yaml:"bucket"`

	// Region is the AWS region.
	Region string `yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage).
	Endpoint string `yaml:"endpoint"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:           "./data/fsweep",
		FileSizeThreshold: 1024,
		Archive: ArchiveConfig{
			Type:   "local",
			Prefix: "scans",
		},
	}
}

// Load reads a YAML config file, layered over the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.Resolve()
	return cfg, nil
}

// Resolve fills derived paths from DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/fsweep"
	}
	if c.TempDir == "" {
		c.TempDir = filepath.Join(c.DataDir, "fsweep_temp")
	}
	if c.CatalogPath == "" {
		c.CatalogPath = filepath.Join(c.DataDir, "catalog.db")
	}
	if c.Archive.Path == "" {
		c.Archive.Path = filepath.Join(c.DataDir, "archive")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir is required")
	}
	if c.FileSizeThreshold < 0 {
		return fmt.Errorf("config: file_size_threshold must not be negative")
	}
	switch c.Archive.Type {
	case "local", "s3":
	default:
		return fmt.Errorf("config: invalid archive type %q (must be local or s3)", c.Archive.Type)
	}
	if c.Archive.Enabled && c.Archive.Type == "s3" && c.Archive.S3.Bucket == "" {
		return fmt.Errorf("config: archive.s3.bucket is required when archive type is s3")
	}
	return nil
}
