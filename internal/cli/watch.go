package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yaklabco/tsweave/internal/logging"
	"github.com/yaklabco/tsweave/internal/ui/pretty"
	"github.com/yaklabco/tsweave/pkg/config"
	"github.com/yaklabco/tsweave/pkg/parser/treesitter"
	"github.com/yaklabco/tsweave/pkg/runner"
	"github.com/yaklabco/tsweave/pkg/semantic"
	"github.com/yaklabco/tsweave/pkg/session"
	"github.com/yaklabco/tsweave/pkg/watch"
)

type watchFlags struct {
	policy     string
	ignore     []string
	extensions []string
	enable     []string
	disable    []string
	debounce   time.Duration
	diff       bool
}

func newWatchCommand(global *globalFlags) *cobra.Command {
	var cfg config.Config
	flags := &watchFlags{}

	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Transform files again whenever they change",
		Long: `Load the files under the given paths once, then transform each file
again every time it is saved, until interrupted.

The semantic program and the plugins' shared state live for the whole
session, so cross-file lookups see the latest saved text of every file.
Without --write the would-be changes are only reported.

Examples:
  tsweave watch src/            # Report changes as files are saved
  tsweave watch --write         # Rewrite files as they are saved
  tsweave watch --diff          # Print a diff for every change`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, global, &cfg, flags)
		},
	}

	cmd.Flags().BoolVarP(&cfg.Write, "write", "w", false, "rewrite changed files in place")
	cmd.Flags().BoolVar(&cfg.NoBackups, "no-backups", false, "disable backup creation when writing")
	cmd.Flags().StringVar(&flags.policy, "policy", "recoverable",
		"on plugin failure: recoverable (report and keep watching) or fatal (stop)")
	cmd.Flags().StringSliceVar(&flags.ignore, "ignore", nil, "glob patterns to ignore")
	cmd.Flags().StringSliceVar(&flags.extensions, "ext", nil, "file extensions to process, e.g. .ts,.tsx")
	cmd.Flags().StringSliceVar(&flags.enable, "enable", nil, "plugin IDs to enable")
	cmd.Flags().StringSliceVar(&flags.disable, "disable", nil, "plugin IDs to disable")
	cmd.Flags().DurationVar(&flags.debounce, "debounce", watch.DefaultDebounce, "quiet period before a changed file is processed")
	cmd.Flags().BoolVar(&flags.diff, "diff", false, "print a unified diff for every change")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string, global *globalFlags, cfg *config.Config, flags *watchFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cmd.Flags().Changed("policy") {
		cfg.Policy = config.FailurePolicy(flags.policy)
	}
	cfg.Ignore = flags.ignore
	cfg.Extensions = flags.extensions
	cfg.EnablePlugins = flags.enable
	cfg.DisablePlugins = flags.disable

	h, err := loadHost(ctx, global, cfg)
	if err != nil {
		return err
	}

	sess := session.New(treesitter.New(), semantic.NewAFSLoader(), session.Options{
		Plugins: h.plugins,
		Policy:  h.cfg.Policy,
		Logger:  h.logger,
	})

	opts := runner.OptionsFromConfig(h.cfg, args)
	opts.WorkingDir = h.workDir

	out := cmd.OutOrStdout()
	styles := pretty.NewStyles(pretty.IsColorEnabled(global.color, out))
	ui := logging.NewInteractive(out)

	w := &watch.Watcher{
		Session:  sess,
		Options:  opts,
		Write:    h.cfg.Write && !h.cfg.DryRun,
		Backup:   runner.BackupConfig(h.cfg),
		Debounce: flags.debounce,
		Logger:   h.logger,
		OnReady: func(files []string) {
			ui.Info("watching for changes", logging.FieldFilesDiscovered, len(files))
		},
		OnEvent: func(e watch.Event) {
			path := relativeTo(h.workDir, e.Outcome.Path)
			if e.Removed {
				_, _ = fmt.Fprintln(out, "  "+styles.FilePath.Render(path)+"  "+styles.Dim.Render("removed"))
				return
			}
			if !e.Outcome.Changed && e.Outcome.Err == nil {
				return
			}
			_, _ = fmt.Fprintln(out, styles.FormatOutcome(path, e.Outcome))
			if flags.diff && e.Outcome.Diff != nil {
				_, _ = fmt.Fprint(out, styles.FormatDiff(e.Outcome.Diff.String()))
			}
		},
	}

	if err := w.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

func relativeTo(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return path
	}
	return rel
}
