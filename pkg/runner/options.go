// Package runner is the batch host: it discovers source files, loads them
// into one semantic program, and transforms every file in parallel.
package runner

import "github.com/yaklabco/tsweave/pkg/config"

// Options controls one batch run.
type Options struct {
	// Paths are the files or directories to process. Empty means the
	// working directory.
	Paths []string

	// WorkingDir resolves relative Paths. Empty means the process working
	// directory.
	WorkingDir string

	// Extensions are the lowercase file extensions, with leading dot, that
	// discovery picks up. Empty means config.DefaultExtensions().
	Extensions []string

	// IncludeGlobs restrict discovery to matching paths relative to
	// WorkingDir. Empty includes everything with a matching extension.
	IncludeGlobs []string

	// ExcludeGlobs skip matching files and directories.
	ExcludeGlobs []string

	// FollowSymlinks traverses directory symlinks.
	FollowSymlinks bool

	// Jobs bounds the number of units transformed at once. 0 or negative
	// means runtime.NumCPU().
	Jobs int

	// Config supplies the failure policy, write mode, and backup settings.
	// Nil means config.NewConfig().
	Config *config.Config
}

// OptionsFromConfig builds Options for paths from cfg.
func OptionsFromConfig(cfg *config.Config, paths []string) Options {
	return Options{
		Paths:        paths,
		Extensions:   cfg.Extensions,
		ExcludeGlobs: cfg.Ignore,
		Jobs:         cfg.Jobs,
		Config:       cfg,
	}
}

func (o Options) effectiveExtensions() []string {
	if len(o.Extensions) == 0 {
		return config.DefaultExtensions()
	}
	return o.Extensions
}

func (o Options) effectivePaths() []string {
	if len(o.Paths) == 0 {
		return []string{"."}
	}
	return o.Paths
}

func (o Options) config() *config.Config {
	if o.Config == nil {
		return config.NewConfig()
	}
	return o.Config
}
