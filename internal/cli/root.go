// Package cli provides the Cobra command structure for tsweave.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yaklabco/tsweave/internal/logging"
)

// BuildInfo holds build-time version information.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// globalFlags are the persistent flags every subcommand reads.
type globalFlags struct {
	debug      bool
	configPath string
	color      string
	isolated   bool
}

// NewRootCommand creates the root tsweave command with all subcommands.
func NewRootCommand(info BuildInfo) *cobra.Command {
	global := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "tsweave",
		Short: "A source-to-source rewriter for TypeScript and JavaScript",
		Long: `tsweave runs an ordered list of rewrite plugins over TypeScript and
JavaScript sources.

Each plugin sees the output of the one before it, parsed and analyzed
again, so plugins compose without knowing about each other. Imports that
plugins ask for are merged into the existing import declarations. Files
are rewritten only with --write, after a check that they did not change
on disk, and with an optional backup.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if global.debug {
				logging.SetLevel("debug")
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withCode(ExitInvalidUsage, err)
	})

	rootCmd.PersistentFlags().BoolVar(&global.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&global.configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&global.color, "color", "auto",
		"colorize output: auto, always, never")
	rootCmd.PersistentFlags().BoolVar(&global.isolated, "isolated", false,
		"ignore system and user config files and TSWEAVE_* environment variables")

	rootCmd.AddCommand(newRunCommand(global))
	rootCmd.AddCommand(newWatchCommand(global))
	rootCmd.AddCommand(newRestoreCommand(global))
	rootCmd.AddCommand(newPluginsCommand(global))
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newVersionCommand(info))

	helpFormatter := NewHelpFormatter(global.color, os.Stdout)
	helpFormatter.ApplyToCommand(rootCmd)

	return rootCmd
}
