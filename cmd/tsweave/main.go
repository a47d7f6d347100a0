// Package main is the entry point for the tsweave CLI.
package main

import (
	"os"

	"github.com/yaklabco/tsweave/internal/cli"
	"github.com/yaklabco/tsweave/internal/logging"

	_ "github.com/yaklabco/tsweave/pkg/rewrite/plugins" // Register built-in plugins
)

// Build-time variables set by GoReleaser via ldflags.
//
//nolint:gochecknoglobals // Version variables must be package-level for ldflags injection
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := cli.NewRootCommand(cli.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	})

	err := rootCmd.Execute()
	if err != nil && !cli.Silent(err) {
		logging.Default().Error("command failed", logging.FieldError, err)
	}
	return cli.ExitCode(err)
}
