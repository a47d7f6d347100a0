// Package configloader resolves the effective configuration: it discovers
// system, user, and project files, layers them with environment variables
// and CLI flags, canonicalizes plugin IDs, and validates the result.
package configloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yaklabco/tsweave/pkg/config"
	"github.com/yaklabco/tsweave/pkg/rewrite"
)

// configFilePermissions is the mode of files written by WriteConfig.
const configFilePermissions = 0o644

// LoadOptions controls configuration loading.
type LoadOptions struct {
	// WorkingDir is where the project search starts. Empty means the
	// process working directory.
	WorkingDir string

	// ExplicitPath is a file named by --config. It is layered above the
	// discovered files.
	ExplicitPath string

	IgnoreSystemConfig  bool
	IgnoreUserConfig    bool
	IgnoreProjectConfig bool
	IgnoreEnv           bool

	// CLIConfig holds flag values. It has the highest precedence.
	CLIConfig *config.Config

	// Registry canonicalizes and checks plugin IDs. Nil means
	// rewrite.DefaultRegistry.
	Registry *rewrite.Registry
}

// LoadResult is the resolved configuration and where it came from.
type LoadResult struct {
	Config *config.Config
	Paths  *ConfigPaths

	// LoadedFrom lists the files applied, lowest precedence first.
	LoadedFrom []string

	// Warnings are non-fatal findings.
	Warnings []string
}

// Load resolves the configuration. Precedence, highest first:
//  1. CLI flags (opts.CLIConfig)
//  2. Environment variables (TSWEAVE_*)
//  3. Explicit config file (opts.ExplicitPath)
//  4. Project config (.tsweave.yml upward search)
//  5. User config ($XDG_CONFIG_HOME/tsweave/config.yaml)
//  6. System config (/etc/tsweave/config.yaml)
//  7. Defaults
func Load(ctx context.Context, opts LoadOptions) (*LoadResult, error) {
	workDir := opts.WorkingDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		workDir = wd
	}

	paths, err := DiscoverPaths(ctx, workDir)
	if err != nil {
		return nil, fmt.Errorf("discover paths: %w", err)
	}
	paths.Explicit = opts.ExplicitPath
	result := &LoadResult{Paths: paths}

	layers := []struct {
		name   string
		path   string
		ignore bool
	}{
		{"system", paths.System, opts.IgnoreSystemConfig},
		{"user", paths.User, opts.IgnoreUserConfig},
		{"project", paths.Project, opts.IgnoreProjectConfig},
		{"explicit", paths.Explicit, false},
	}

	cfg := config.NewConfig()
	for _, layer := range layers {
		if layer.ignore || layer.path == "" {
			continue
		}
		fileCfg, err := LoadFile(layer.path)
		if err != nil {
			return nil, fmt.Errorf("load %s config: %w", layer.name, err)
		}
		cfg = merge(cfg, fileCfg)
		result.LoadedFrom = append(result.LoadedFrom, layer.path)
	}

	if !opts.IgnoreEnv {
		if err := LoadFromEnv(cfg); err != nil {
			return nil, fmt.Errorf("load environment: %w", err)
		}
	}
	if opts.CLIConfig != nil {
		cfg = merge(cfg, opts.CLIConfig)
	}

	registry := opts.Registry
	if registry == nil {
		registry = rewrite.DefaultRegistry
	}
	canonicalizePlugins(cfg, registry)

	validation := Validate(cfg, registry)
	if !validation.Valid() {
		return nil, &validation.Errors[0]
	}
	for _, w := range validation.Warnings {
		result.Warnings = append(result.Warnings, w.Error())
	}

	result.Config = cfg
	return result, nil
}

// LoadFile reads one configuration file. Files ending in .toml are TOML;
// everything else is YAML.
func LoadFile(path string) (*config.Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg *config.Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		cfg, err = config.FromTOML(content)
	} else {
		cfg, err = config.FromYAML(content)
	}
	if err != nil {
		return nil, &ValidationError{FilePath: path, Message: err.Error()}
	}
	return cfg, nil
}

// WriteConfig writes cfg to path in the format its extension selects.
func WriteConfig(cfg *config.Config, path string) error {
	var (
		content []byte
		err     error
	)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		content, err = cfg.ToTOML()
	} else {
		content, err = cfg.ToYAMLWithHeader(config.DefaultTemplateHeader())
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, content, configFilePermissions); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// canonicalizePlugins rewrites plugin aliases to registered IDs, in the
// plugin list and in the enable and disable lists. Unknown IDs are left for
// Validate to report.
func canonicalizePlugins(cfg *config.Config, registry *rewrite.Registry) {
	canonical := func(id string) string {
		if d, ok := registry.Get(id); ok {
			return d.ID
		}
		return id
	}
	for i := range cfg.Plugins {
		cfg.Plugins[i].ID = canonical(cfg.Plugins[i].ID)
	}
	for i, id := range cfg.EnablePlugins {
		cfg.EnablePlugins[i] = canonical(id)
	}
	for i, id := range cfg.DisablePlugins {
		cfg.DisablePlugins[i] = canonical(id)
	}
}
