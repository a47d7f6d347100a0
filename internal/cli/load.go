package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/yaklabco/tsweave/internal/configloader"
	"github.com/yaklabco/tsweave/internal/logging"
	"github.com/yaklabco/tsweave/pkg/config"
	"github.com/yaklabco/tsweave/pkg/rewrite"
)

// host is what the run and watch commands share: the resolved config and
// the plugins it selects.
type host struct {
	cfg     *config.Config
	plugins []rewrite.Plugin
	workDir string
	logger  *log.Logger
}

// loadHost resolves the configuration with cliCfg on top and builds the
// plugin list from rewrite.DefaultRegistry.
func loadHost(ctx context.Context, global *globalFlags, cliCfg *config.Config) (*host, error) {
	logger := logging.Default()

	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	loaded, err := configloader.Load(ctx, configloader.LoadOptions{
		WorkingDir:         workDir,
		ExplicitPath:       global.configPath,
		IgnoreSystemConfig: global.isolated,
		IgnoreUserConfig:   global.isolated,
		IgnoreEnv:          global.isolated,
		CLIConfig:          cliCfg,
		Registry:           rewrite.DefaultRegistry,
	})
	if err != nil {
		return nil, withCode(ExitConfigError, errors.Join(errors.New("failed to load configuration"), err))
	}
	for _, warning := range loaded.Warnings {
		logger.Warn(warning)
	}
	if len(loaded.LoadedFrom) > 0 {
		logger.Debug("loaded configuration", logging.FieldConfig, loaded.LoadedFrom)
	}

	cfg := loaded.Config
	plugins, err := rewrite.ResolvePlugins(rewrite.DefaultRegistry, cfg)
	if err != nil {
		return nil, withCode(ExitConfigError, fmt.Errorf("resolve plugins: %w", err))
	}

	ids := make([]string, len(plugins))
	for i, p := range plugins {
		ids[i] = p.ID()
	}
	logger.Debug("configuration loaded",
		logging.FieldPolicy, cfg.Policy,
		logging.FieldWrite, cfg.Write,
		logging.FieldDryRun, cfg.DryRun,
		logging.FieldJobs, cfg.Jobs,
		logging.FieldPlugins, ids,
	)
	if len(plugins) == 0 {
		logger.Warn("no plugins enabled; add some to .tsweave.yml or pass --enable")
	}

	return &host{cfg: cfg, plugins: plugins, workDir: workDir, logger: logger}, nil
}
