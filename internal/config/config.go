// Package config loads the wiki index core's configuration: index limits,
// worker pool sizing, query ranking weights, and include/exclude globs.
// Layering follows the teacher's project/base merge: a project-local
// ".wikiindex.kdl" overrides a global "~/.wikiindex.kdl", with exclusions
// from both unioned rather than replaced.
package config

import (
	"os"
	"path/filepath"
)

// Config is the root configuration object threaded through every component.
type Config struct {
	Version     int
	Project     Project
	Index       Index
	Performance Performance
	Search      Search
	AI          AI
	Include     []string
	Exclude     []string
}

// Project describes the default space root used when no explicit root is
// given on the command line.
type Project struct {
	Root string
	Name string
}

// Index controls walker/extractor limits (spec.md §4.2/§4.3).
type Index struct {
	MaxFileSize      int64 // extractor read cap per file, bytes (default 2 MiB)
	MaxTotalSizeMB   int64
	MaxFileCount     int
	FollowSymlinks   bool
	RespectGitignore bool
}

// Performance controls the bounded worker pool (spec.md §4.2/§5).
type Performance struct {
	ParallelFileWorkers int // 0 = auto-detect (NumCPU)
	IndexShardCount     int // token-map shard count for C4, reduces writer contention
	RebuildTimeoutSec   int
}

// SearchRanking mirrors the teacher's file-type/symbol ranking knobs,
// generalized to per-category boosts. They are parsed from the config file
// only: the query engine does not read them, and its scores come from the
// fixed per-field weight table (spec.md §4.6) alone.
type SearchRanking struct {
	Enabled         bool
	DocumentBoost   float64
	CodeBoost       float64
	OtherPenalty    float64
}

// Search controls query engine defaults (spec.md §4.6).
type Search struct {
	DefaultMaxResults int
	SuggestionNGramMin int
	SuggestionNGramMax int
	SuggestionDefaultLimit int
	Ranking SearchRanking
}

// AI controls the C8 folder-context generator's defaults.
type AI struct {
	CallTimeoutSec        int
	DefaultModel          string
	DefaultProvider       string
	GenerationIntervalSec int // scheduler tick, spec.md §2 "AI-Context Generator (scheduled)"
}

// Load loads configuration, searching the directory that contains path for
// a project ".wikiindex.kdl" and layering it over "~/.wikiindex.kdl" if
// present. Only the directory of path is used; the project file read there
// is always named ".wikiindex.kdl".
func Load(path string) (*Config, error) {
	return LoadWithRoot(path, filepath.Dir(path))
}

// LoadWithRoot loads configuration the same way Load does, but resolves the
// project config file relative to rootDir instead of the working directory.
func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}

	var baseConfig *Config
	if homeDir, err := os.UserHomeDir(); err == nil {
		if cfg, err := LoadKDL(homeDir); err == nil && cfg != nil {
			baseConfig = cfg
		}
	}

	var projectConfig *Config
	cfg, err := LoadKDL(searchDir)
	if err != nil {
		return nil, err
	}
	projectConfig = cfg

	switch {
	case baseConfig != nil && projectConfig != nil:
		return mergeConfigs(baseConfig, projectConfig), nil
	case projectConfig != nil:
		return projectConfig, nil
	case baseConfig != nil:
		baseConfig.Project.Root = searchDir
		return baseConfig, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	defaults := Default()
	defaults.Project.Root = cwd
	return defaults, nil
}

// Default returns the built-in configuration used when no KDL config file
// is found anywhere in the search path.
func Default() *Config {
	return &Config{
		Version: 1,
		Index: Index{
			MaxFileSize:      2 * 1024 * 1024, // spec.md §4.3 default extraction cap
			MaxTotalSizeMB:   500,
			MaxFileCount:     50000,
			FollowSymlinks:   true, // walker still enforces the within-root prefix check
			RespectGitignore: true,
		},
		Performance: Performance{
			ParallelFileWorkers: 4,
			IndexShardCount:     16,
			RebuildTimeoutSec:   120,
		},
		Search: Search{
			DefaultMaxResults:      20, // spec.md §4.6 default
			SuggestionNGramMin:     2,
			SuggestionNGramMax:     4,
			SuggestionDefaultLimit: 10, // spec.md §4.5 default
			Ranking: SearchRanking{
				Enabled:       false,
				DocumentBoost: 0,
				CodeBoost:     0,
				OtherPenalty:  0,
			},
		},
		AI: AI{
			CallTimeoutSec:        60, // spec.md §5 default
			DefaultModel:          "claude-sonnet-4-5",
			DefaultProvider:       "anthropic",
			GenerationIntervalSec: 600, // 10 minutes
		},
		Include: []string{},
		Exclude: []string{
			"**/.git/**",
			"**/node_modules/**",
			"**/.aicontext/**", // only C8 walks .aicontext; everyone else skips it
		},
	}
}

// mergeConfigs merges a base (e.g. global) config with a project config.
// The project config wins field-for-field; exclusions are unioned.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Exclude) > 0 {
		seen := make(map[string]bool, len(base.Exclude)+len(project.Exclude))
		union := make([]string, 0, len(base.Exclude)+len(project.Exclude))
		for _, p := range base.Exclude {
			if !seen[p] {
				seen[p] = true
				union = append(union, p)
			}
		}
		for _, p := range project.Exclude {
			if !seen[p] {
				seen[p] = true
				union = append(union, p)
			}
		}
		merged.Exclude = union
	}

	if len(project.Include) == 0 && len(base.Include) > 0 {
		merged.Include = base.Include
	}

	return &merged
}
