package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yaklabco/tsweave/internal/logging"
	"github.com/yaklabco/tsweave/pkg/config"
	"github.com/yaklabco/tsweave/pkg/rewrite"
)

const configFilePermissions = 0o644

type initFlags struct {
	force  bool
	format string
	output string
}

func newInitCommand() *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a tsweave configuration file",
		Long: `Create a .tsweave.yml configuration file in the current directory.

The file lists every built-in plugin, commented out, with a short
description. Uncomment the ones you want and fill in their options.

Examples:
  tsweave init                      Create .tsweave.yml
  tsweave init --format toml        Create .tsweave.toml instead
  tsweave init -o ci/tsweave.yml    Write to a custom path`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "overwrite an existing file")
	cmd.Flags().StringVar(&flags.format, "format", "yaml", "file format: yaml or toml")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output path (default: .tsweave.yml or .tsweave.toml)")

	return cmd
}

func runInit(cmd *cobra.Command, flags *initFlags) error {
	logger := logging.NewInteractive(cmd.OutOrStdout())

	if flags.format != "yaml" && flags.format != "toml" {
		return withCode(ExitInvalidUsage, fmt.Errorf("invalid format %q: must be yaml or toml", flags.format))
	}

	path := flags.output
	if path == "" {
		path = ".tsweave.yml"
		if flags.format == "toml" {
			path = ".tsweave.toml"
		}
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if _, err := os.Stat(absPath); err == nil {
		if !flags.force {
			return withCode(ExitInvalidUsage, fmt.Errorf("file %q already exists; use --force to overwrite", path))
		}
		logger.Warn("overwriting existing file", logging.FieldPath, path)
	}

	descriptors := rewrite.DefaultRegistry.Descriptors()
	infos := make([]config.PluginInfo, len(descriptors))
	for i, d := range descriptors {
		infos[i] = config.PluginInfo{ID: d.ID, Description: d.Description}
	}

	content, err := config.GenerateTemplate(config.TemplateOptions{Format: flags.format, Plugins: infos})
	if err != nil {
		return fmt.Errorf("generate template: %w", err)
	}
	if err := os.WriteFile(absPath, content, configFilePermissions); err != nil {
		return withCode(ExitIOError, fmt.Errorf("write file: %w", err))
	}

	logger.Info("created configuration file", logging.FieldPath, path)
	logger.Info("run 'tsweave plugins' to see plugin details")
	return nil
}
