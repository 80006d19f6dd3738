package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Bateristico/agent-architect/internal/cache"
	"github.com/Bateristico/agent-architect/internal/catalog"
	"github.com/Bateristico/agent-architect/internal/dataset"
	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/Bateristico/agent-architect/internal/orchestration"
	"github.com/Bateristico/agent-architect/internal/projectconfig"
	"github.com/spf13/cobra"
)

// projectContext bundles the project config and the catalog it points at.
type projectContext struct {
	cfg *projectconfig.ProjectConfig
	cat *catalog.Catalog
}

// loadProject reads .architect.yaml from the working directory upward and
// loads the catalog. A non-empty catalogPath overrides the configured one.
func loadProject(catalogPath string) (*projectContext, error) {
	cfg, err := projectconfig.Load(".")
	if err != nil {
		return nil, err
	}
	if catalogPath == "" {
		catalogPath = cfg.Paths.Catalog
	}
	cat, err := catalog.LoadOrDefault(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	slog.Debug("project loaded", "catalog", catalogPath, "components", len(cat.Components), "levels", len(cat.Levels))
	return &projectContext{cfg: cfg, cat: cat}, nil
}

// placementFlags builds a placement from a YAML file and repeated role=id pairs.
type placementFlags struct {
	file   string
	places []string
}

func (f *placementFlags) register(cmd *cobra.Command, fileFlag, placeFlag, label string) {
	cmd.Flags().StringVar(&f.file, fileFlag, "", "Placement YAML file for "+label+" (role: component-id)")
	cmd.Flags().StringArrayVar(&f.places, placeFlag, nil, "Place a component for "+label+" as role=component-id (repeatable)")
}

func (f *placementFlags) empty() bool {
	return f.file == "" && len(f.places) == 0
}

// placement merges the file with the pairs; pairs win.
func (f *placementFlags) placement() (models.Placement, error) {
	p := models.Placement{}
	if f.file != "" {
		fromFile, err := catalog.LoadPlacement(f.file)
		if err != nil {
			return nil, fmt.Errorf("loading placement: %w", err)
		}
		p = fromFile
	}
	pairs, err := models.ParsePlacement(f.places)
	if err != nil {
		return nil, err
	}
	for role, id := range pairs {
		p[role] = id
	}
	return p, nil
}

func (f *placementFlags) configuration(cat *catalog.Catalog) (models.Placement, models.Configuration, error) {
	p, err := f.placement()
	if err != nil {
		return nil, models.Configuration{}, err
	}
	cfg, err := cat.Resolve(p)
	if err != nil {
		return nil, models.Configuration{}, err
	}
	return p, cfg, nil
}

// resolveLevel finds ref in the catalog, or loads it as a level YAML file.
// A scenarios CSV replaces the level's scenarios.
func resolveLevel(cat *catalog.Catalog, ref, scenariosCSV string) (*models.Level, error) {
	var level *models.Level
	if l, ok := cat.Level(ref); ok {
		copied := *l
		level = &copied
	} else if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		level, err = models.LoadLevel(ref)
		if err != nil {
			return nil, err
		}
	} else {
		ids := make([]string, 0, len(cat.Levels))
		for _, l := range cat.Levels {
			ids = append(ids, l.ID)
		}
		return nil, fmt.Errorf("unknown level %q (available: %s)", ref, strings.Join(ids, ", "))
	}

	if scenariosCSV != "" {
		scenarios, err := dataset.LoadScenarios(scenariosCSV)
		if err != nil {
			return nil, err
		}
		level.Scenarios = scenarios
		if err := level.Validate(); err != nil {
			return nil, fmt.Errorf("level %s with scenarios from %s: %w", level.ID, scenariosCSV, err)
		}
		slog.Debug("scenarios imported", "level", level.ID, "count", len(scenarios), "file", scenariosCSV)
	}
	return level, nil
}

// runnerFlags select scenarios and control caching.
type runnerFlags struct {
	scenarioPatterns []string
	difficulties     []string
	useCache         bool
	cacheDir         string
}

func (f *runnerFlags) register(cmd *cobra.Command, withCache bool) {
	cmd.Flags().StringArrayVar(&f.scenarioPatterns, "scenario", nil, "Only run scenarios whose id matches this glob (repeatable)")
	cmd.Flags().StringArrayVar(&f.difficulties, "difficulty", nil, "Only run scenarios of this difficulty: low, medium, high (repeatable)")
	if withCache {
		cmd.Flags().BoolVar(&f.useCache, "cache", false, "Cache estimations with a pinned seed")
		cmd.Flags().StringVar(&f.cacheDir, "cache-dir", "", "Cache directory (default from .architect.yaml)")
	}
}

func (f *runnerFlags) runner(cmd *cobra.Command, pc *projectContext) (*orchestration.Runner, error) {
	opts := []orchestration.RunnerOption{orchestration.WithLogger(slog.Default())}
	if len(f.scenarioPatterns) > 0 {
		opts = append(opts, orchestration.WithScenarioFilters(f.scenarioPatterns...))
	}
	if len(f.difficulties) > 0 {
		ds := make([]models.Difficulty, 0, len(f.difficulties))
		for _, s := range f.difficulties {
			d, err := models.ParseDifficulty(s)
			if err != nil {
				return nil, err
			}
			ds = append(ds, d)
		}
		opts = append(opts, orchestration.WithDifficultyFilters(ds...))
	}

	enabled := pc.cfg.CacheEnabled()
	if cmd.Flags().Lookup("cache") != nil && cmd.Flags().Changed("cache") {
		enabled = f.useCache
	}
	if enabled {
		dir := f.cacheDir
		if dir == "" {
			dir = pc.cfg.Cache.Dir
		}
		store, err := cache.New(dir, pc.cfg.Cache.MemoryEntries)
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		opts = append(opts, orchestration.WithCache(store))
	}
	return orchestration.NewRunner(opts...), nil
}

// seedFlag returns the --seed value, or the project default when unset.
func seedFlag(cmd *cobra.Command, seed int64, pc *projectContext) int64 {
	if cmd.Flags().Changed("seed") {
		return seed
	}
	return pc.cfg.SeedValue()
}

// writeOutput writes content to path, creating parent directories, or to
// the command's stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, content []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(content)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path) //nolint:errcheck
	return nil
}
