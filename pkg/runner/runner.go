package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/yaklabco/tsweave/internal/logging"
	"github.com/yaklabco/tsweave/pkg/config"
	"github.com/yaklabco/tsweave/pkg/fix"
	"github.com/yaklabco/tsweave/pkg/fsutil"
	"github.com/yaklabco/tsweave/pkg/rewrite"
	"github.com/yaklabco/tsweave/pkg/semantic"
	"github.com/yaklabco/tsweave/pkg/source"
)

// Runner transforms a set of files with one plugin list.
type Runner struct {
	// Coordinator runs the plugins over each unit.
	Coordinator *rewrite.Coordinator

	// Plugins are the resolved plugins, in order.
	Plugins []rewrite.Plugin

	// Loader reads units that discovered files import but discovery did
	// not select. Nil means semantic.NewAFSLoader().
	Loader semantic.Loader

	// Logger receives progress at debug level. Optional.
	Logger *log.Logger
}

// New creates a runner over parser. The coordinator gets a fresh analysis
// cache.
func New(parser source.Parser, plugins []rewrite.Plugin) *Runner {
	coord := rewrite.NewCoordinator(parser)
	coord.Cache = semantic.NewCache()
	return &Runner{Coordinator: coord, Plugins: plugins}
}

func (r *Runner) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.New(io.Discard)
}

func (r *Runner) loader() semantic.Loader {
	if r.Loader != nil {
		return r.Loader
	}
	return semantic.NewAFSLoader()
}

// Run discovers the files under opts.Paths and processes them:
//   - reads every file and loads all of them, with their relative imports,
//     into one semantic program
//   - runs the plugins' Analyze hooks over every unit
//   - transforms the units in parallel, each against the program
//   - writes changed files when the config asks for it
//
// Under the fatal policy the first plugin failure cancels the remaining
// units and is returned with the partial result.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	files, err := Discover(ctx, opts)
	if err != nil {
		return nil, err
	}

	cfg := opts.config()
	logger := r.logger()
	result := &Result{Shared: rewrite.NewSharedContext()}
	result.Stats.FilesDiscovered = len(files)
	logger.Debug("discovered", logging.FieldFilesDiscovered, len(files))
	if len(files) == 0 {
		return result, nil
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	units := make([]*unitState, len(files))
	for i, path := range files {
		units[i] = &unitState{outcome: UnitOutcome{Path: path}, id: filepath.ToSlash(path)}
	}

	runErr := r.process(ctx, cfg, jobs, units, result.Shared)
	for _, u := range units {
		result.accumulate(u.outcome)
	}
	if runErr != nil {
		return result, runErr
	}
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("run cancelled: %w", err)
	}
	return result, nil
}

type unitState struct {
	id       string
	text     string
	snapshot *fsutil.Snapshot
	outcome  UnitOutcome
}

func (u *unitState) ok() bool {
	return u.outcome.Err == nil && u.snapshot != nil
}

func (r *Runner) process(ctx context.Context, cfg *config.Config, jobs int, units []*unitState, shared *rewrite.SharedContext) error {
	if err := r.read(ctx, jobs, units); err != nil {
		return err
	}

	mem := make(semantic.MapLoader, len(units))
	roots := make([]string, 0, len(units))
	for _, u := range units {
		if u.ok() {
			mem[u.id] = u.text
			roots = append(roots, u.id)
		}
	}
	program := semantic.NewProgram(r.Coordinator.Parser, semantic.ChainLoader{mem, r.loader()})
	if err := program.Load(ctx, roots...); err != nil {
		return fmt.Errorf("load program: %w", err)
	}
	r.logger().Debug("program loaded", "units", program.Len())

	if err := r.forEach(ctx, jobs, units, func(ctx context.Context, u *unitState) error {
		unit, _ := program.Source(u.id)
		return r.Coordinator.AnalyzeUnit(ctx, unit, r.Plugins, shared, program)
	}, cfg.Policy); err != nil {
		return err
	}

	return r.forEach(ctx, jobs, units, func(ctx context.Context, u *unitState) error {
		unit, _ := program.Source(u.id)
		res, err := r.Coordinator.TransformUnit(ctx, unit, r.Plugins, shared, program)
		if err != nil {
			return err
		}
		u.outcome.Stats = res.Stats
		if !res.Changed {
			return nil
		}
		u.outcome.Changed = true
		u.outcome.Text = res.Text
		u.outcome.Diff = fix.GenerateDiff(u.outcome.Path, u.text, res.Text)
		if cfg.Write && !cfg.DryRun {
			r.write(ctx, cfg, u)
		}
		return nil
	}, cfg.Policy)
}

func (r *Runner) read(ctx context.Context, jobs int, units []*unitState) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, u := range units {
		g.Go(func() error {
			content, snap, err := fsutil.ReadFile(gctx, u.outcome.Path)
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				u.outcome.Err = err
				return nil
			}
			u.text, u.snapshot = string(content), snap
			return nil
		})
	}
	return g.Wait()
}

// forEach runs fn over the healthy units. Plugin failures are recorded on
// the unit under the recoverable policy and returned under the fatal one;
// every other error is returned.
func (r *Runner) forEach(
	ctx context.Context,
	jobs int,
	units []*unitState,
	fn func(context.Context, *unitState) error,
	policy config.FailurePolicy,
) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, u := range units {
		if !u.ok() {
			continue
		}
		g.Go(func() error {
			err := fn(gctx, u)
			if err == nil {
				return nil
			}
			if _, ok := rewrite.AsPluginError(err); !ok || policy == config.PolicyFatal {
				return err
			}
			r.logger().Warn("unit left unmodified", logging.FieldPath, u.outcome.Path, logging.FieldError, err)
			u.outcome.Err = err
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) write(ctx context.Context, cfg *config.Config, u *unitState) {
	res, err := fsutil.SafeWrite(ctx, u.snapshot, []byte(u.outcome.Text), BackupConfig(cfg))
	u.outcome.Written = res.Written
	u.outcome.BackupCreated = res.BackupCreated
	switch {
	case errors.Is(err, fsutil.ErrModified):
		u.outcome.Skipped = true
		r.logger().Warn("file changed during run, not written", logging.FieldPath, u.outcome.Path)
	case err != nil:
		u.outcome.Err = err
	}
}

// BackupConfig derives the backup settings for writes from cfg.
func BackupConfig(cfg *config.Config) fsutil.BackupConfig {
	return fsutil.BackupConfig{
		Enabled: cfg.Backups.Enabled && !cfg.NoBackups,
		Mode:    fsutil.BackupMode(cfg.Backups.Mode),
	}
}
