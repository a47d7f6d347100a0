package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yaklabco/tsweave/internal/logging"
	"github.com/yaklabco/tsweave/pkg/config"
	"github.com/yaklabco/tsweave/pkg/fsutil"
	"github.com/yaklabco/tsweave/pkg/runner"
)

type restoreFlags struct {
	clean bool
}

func newRestoreCommand(global *globalFlags) *cobra.Command {
	flags := &restoreFlags{}

	cmd := &cobra.Command{
		Use:   "restore [paths...]",
		Short: "Restore files from the backups made by --write",
		Long: `Copy every sidecar backup found next to the selected files back over
the file, undoing the changes of earlier "run --write" invocations.
Backups are kept unless --clean is given; "restore --clean" alone
deletes them without restoring.

Examples:
  tsweave restore src/        # Undo rewrites under src/
  tsweave restore --clean     # Delete backups, keep current files`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(cmd, args, global, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.clean, "clean", false, "delete backups instead of restoring them")
	return cmd
}

func runRestore(cmd *cobra.Command, args []string, global *globalFlags, flags *restoreFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	h, err := loadHost(ctx, global, &config.Config{})
	if err != nil {
		return err
	}
	opts := runner.OptionsFromConfig(h.cfg, args)
	opts.WorkingDir = h.workDir

	files, err := runner.Discover(ctx, opts)
	if err != nil {
		return withCode(ExitIOError, err)
	}

	mode := runner.BackupConfig(h.cfg).Mode
	ui := logging.NewInteractive(cmd.OutOrStdout())
	count := 0
	for _, path := range files {
		var done bool
		if flags.clean {
			done, err = fsutil.RemoveBackup(path, mode)
		} else {
			done, err = fsutil.RestoreBackup(ctx, path, mode)
		}
		if err != nil {
			return withCode(ExitIOError, fmt.Errorf("%s: %w", path, err))
		}
		if done {
			count++
			h.logger.Debug("backup handled", logging.FieldPath, path)
		}
	}

	if flags.clean {
		ui.Info("removed backups", logging.FieldFiles, count)
	} else {
		ui.Info("restored files", logging.FieldFiles, count)
	}
	return nil
}
