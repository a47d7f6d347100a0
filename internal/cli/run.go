package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yaklabco/tsweave/internal/logging"
	"github.com/yaklabco/tsweave/pkg/config"
	"github.com/yaklabco/tsweave/pkg/parser/treesitter"
	"github.com/yaklabco/tsweave/pkg/reporter"
	"github.com/yaklabco/tsweave/pkg/runner"

	_ "github.com/yaklabco/tsweave/pkg/rewrite/plugins" // Register built-in plugins
)

type runFlags struct {
	format         string
	policy         string
	ignore         []string
	extensions     []string
	enable         []string
	disable        []string
	followSymlinks bool
	check          bool
	all            bool
	compact        bool
	noSummary      bool
}

func newRunCommand(global *globalFlags) *cobra.Command {
	var cfg config.Config
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Transform TypeScript and JavaScript files",
		Long:  runLongDescription,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, global, &cfg, flags)
		},
	}

	addRunFlags(cmd, &cfg, flags)
	return cmd
}

const runLongDescription = `Run the configured plugins over every TypeScript and JavaScript file
under the given paths (default: the current directory).

Without --write, nothing is changed on disk and the would-be changes are
reported. With --write, changed files are rewritten in place, each after
a check that it did not change on disk during the run.

Examples:
  tsweave run                          # Report what would change
  tsweave run src/ --write             # Rewrite files under src/
  tsweave run --format diff            # Print unified diffs
  tsweave run --enable strip-console   # Enable a plugin for this run
  tsweave run --check                  # Exit 2 if any file would change`

func runRun(cmd *cobra.Command, args []string, global *globalFlags, cfg *config.Config, flags *runFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := reporter.ParseFormat(flags.format)
	if err != nil {
		return withCode(ExitInvalidUsage, err)
	}
	if cmd.Flags().Changed("policy") {
		cfg.Policy = config.FailurePolicy(flags.policy)
	}
	cfg.Format = config.OutputFormat(format)
	cfg.Ignore = flags.ignore
	cfg.Extensions = flags.extensions
	cfg.EnablePlugins = flags.enable
	cfg.DisablePlugins = flags.disable

	h, err := loadHost(ctx, global, cfg)
	if err != nil {
		return err
	}

	run := runner.New(treesitter.New(), h.plugins)
	run.Logger = h.logger
	run.Coordinator.Logger = h.logger

	opts := runner.OptionsFromConfig(h.cfg, args)
	opts.WorkingDir = h.workDir
	opts.FollowSymlinks = flags.followSymlinks

	h.logger.Debug("starting run",
		logging.FieldPaths, opts.Paths,
		logging.FieldWorkingDir, opts.WorkingDir,
	)

	result, runErr := run.Run(ctx, opts)
	if result == nil {
		return fmt.Errorf("run failed: %w", runErr)
	}

	rep, err := reporter.New(reporter.Options{
		Writer:        cmd.OutOrStdout(),
		ErrorWriter:   cmd.ErrOrStderr(),
		Format:        format,
		Color:         global.color,
		ShowSummary:   !flags.noSummary,
		ShowUnchanged: flags.all,
		Compact:       flags.compact,
		WorkingDir:    h.workDir,
	})
	if err != nil {
		return withCode(ExitInvalidUsage, err)
	}
	if _, err := rep.Report(ctx, result); err != nil {
		return fmt.Errorf("report results: %w", err)
	}

	if runErr != nil {
		return errors.Join(errors.New("run aborted"), runErr)
	}
	return ResultError(result, flags.check)
}

func addRunFlags(cmd *cobra.Command, cfg *config.Config, flags *runFlags) {
	cmd.Flags().BoolVarP(&cfg.Write, "write", "w", false, "rewrite changed files in place")
	cmd.Flags().BoolVar(&cfg.DryRun, "dry-run", false, "never write, even with --write")
	cmd.Flags().BoolVar(&cfg.NoBackups, "no-backups", false, "disable backup creation when writing")
	cmd.Flags().IntVarP(&cfg.Jobs, "jobs", "j", 0, "number of parallel workers (0 = auto)")
	cmd.Flags().StringVar(&flags.format, "format", "text", "output format: text, table, json, diff, summary")
	cmd.Flags().StringVar(&flags.policy, "policy", "recoverable",
		"on plugin failure: recoverable (leave the file unmodified) or fatal (abort)")
	cmd.Flags().StringSliceVar(&flags.ignore, "ignore", nil, "glob patterns to ignore")
	cmd.Flags().StringSliceVar(&flags.extensions, "ext", nil, "file extensions to process, e.g. .ts,.tsx")
	cmd.Flags().StringSliceVar(&flags.enable, "enable", nil, "plugin IDs to enable")
	cmd.Flags().StringSliceVar(&flags.disable, "disable", nil, "plugin IDs to disable")
	cmd.Flags().BoolVar(&flags.followSymlinks, "follow-symlinks", false, "traverse symlinked directories")
	cmd.Flags().BoolVar(&flags.check, "check", false, "exit with code 2 if any file would change")
	cmd.Flags().BoolVar(&flags.all, "all", false, "list unchanged files too")
	cmd.Flags().BoolVar(&flags.compact, "compact", false, "use compact output format")
	cmd.Flags().BoolVar(&flags.noSummary, "no-summary", false, "omit the summary line")
}
