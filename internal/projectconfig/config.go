// Package projectconfig provides the ProjectConfig struct and loader for
// .architect.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up by Load.
const FileName = ".architect.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultCatalog    = ""
	DefaultResultsDir = "results/"

	DefaultSeed    int64 = -1
	DefaultTrials        = 200
	DefaultWorkers       = 4
	DefaultFormat        = "table"

	DefaultCacheDir     = ".architect-cache"
	DefaultCacheEntries = 128

	DefaultServerAddress = "stdio"
)

// PathsConfig holds the catalog file and the directory reports are written to.
type PathsConfig struct {
	Catalog string `yaml:"catalog,omitempty"`
	Results string `yaml:"results,omitempty"`
}

// DefaultsConfig holds default run parameters.
type DefaultsConfig struct {
	Seed      *int64 `yaml:"seed,omitempty"`
	Trials    int    `yaml:"trials,omitempty"`
	Workers   int    `yaml:"workers,omitempty"`
	Format    string `yaml:"format,omitempty"`
	Interpret *bool  `yaml:"interpret,omitempty"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Enabled       *bool  `yaml:"enabled,omitempty"`
	Dir           string `yaml:"dir,omitempty"`
	MemoryEntries int    `yaml:"memory_entries,omitempty"`
}

// ServerConfig holds JSON-RPC server settings. Address is "stdio" or a TCP
// listen address.
type ServerConfig struct {
	Address string `yaml:"address,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .architect.yaml.
type ProjectConfig struct {
	Paths    PathsConfig    `yaml:"paths,omitempty"`
	Defaults DefaultsConfig `yaml:"defaults,omitempty"`
	Cache    CacheConfig    `yaml:"cache,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	seed := DefaultSeed
	return &ProjectConfig{
		Paths: PathsConfig{
			Catalog: DefaultCatalog,
			Results: DefaultResultsDir,
		},
		Defaults: DefaultsConfig{
			Seed:      &seed,
			Trials:    DefaultTrials,
			Workers:   DefaultWorkers,
			Format:    DefaultFormat,
			Interpret: boolPtr(false),
		},
		Cache: CacheConfig{
			Enabled:       boolPtr(false),
			Dir:           DefaultCacheDir,
			MemoryEntries: DefaultCacheEntries,
		},
		Server: ServerConfig{
			Address: DefaultServerAddress,
		},
	}
}

// Load finds .architect.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Relative paths in the file are resolved against the file's directory.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	path, data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := fileCfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Dir(path)
	if p := fileCfg.Paths.Catalog; p != "" && !filepath.IsAbs(p) {
		fileCfg.Paths.Catalog = filepath.Join(base, p)
	}
	if p := fileCfg.Cache.Dir; p != "" && !filepath.IsAbs(p) {
		fileCfg.Cache.Dir = filepath.Join(base, p)
	}

	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// SeedValue returns the configured default seed; negative means random.
func (c *ProjectConfig) SeedValue() int64 {
	if c.Defaults.Seed == nil {
		return DefaultSeed
	}
	return *c.Defaults.Seed
}

// CacheEnabled reports whether estimation results should be cached.
func (c *ProjectConfig) CacheEnabled() bool {
	return c.Cache.Enabled != nil && *c.Cache.Enabled
}

func (c *ProjectConfig) validate() error {
	if c.Defaults.Trials < 0 {
		return fmt.Errorf("defaults.trials must not be negative, got %d", c.Defaults.Trials)
	}
	if c.Defaults.Workers < 0 {
		return fmt.Errorf("defaults.workers must not be negative, got %d", c.Defaults.Workers)
	}
	switch c.Defaults.Format {
	case "", "table", "json", "junit", "markdown", "html":
	default:
		return fmt.Errorf("defaults.format %q is not one of table, json, junit, markdown, html", c.Defaults.Format)
	}
	return nil
}

// findConfigFile walks up from dir looking for .architect.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found.
func findConfigFile(dir string) (string, []byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return p, data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	// Paths
	if src.Paths.Catalog != "" {
		dst.Paths.Catalog = src.Paths.Catalog
	}
	if src.Paths.Results != "" {
		dst.Paths.Results = src.Paths.Results
	}

	// Defaults
	if src.Defaults.Seed != nil {
		dst.Defaults.Seed = src.Defaults.Seed
	}
	if src.Defaults.Trials != 0 {
		dst.Defaults.Trials = src.Defaults.Trials
	}
	if src.Defaults.Workers != 0 {
		dst.Defaults.Workers = src.Defaults.Workers
	}
	if src.Defaults.Format != "" {
		dst.Defaults.Format = src.Defaults.Format
	}
	if src.Defaults.Interpret != nil {
		dst.Defaults.Interpret = src.Defaults.Interpret
	}

	// Cache
	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}
	if src.Cache.MemoryEntries != 0 {
		dst.Cache.MemoryEntries = src.Cache.MemoryEntries
	}

	// Server
	if src.Server.Address != "" {
		dst.Server.Address = src.Server.Address
	}
}

func boolPtr(b bool) *bool {
	return &b
}
