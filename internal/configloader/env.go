package configloader

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/yaklabco/tsweave/pkg/config"
)

// envVarPrefix is the prefix of every tsweave environment variable.
const envVarPrefix = "TSWEAVE_"

// envVar binds one variable (without prefix) to a config field.
type envVar struct {
	help  string
	apply func(cfg *config.Config, value string) error
}

func envString(set func(*config.Config, string)) func(*config.Config, string) error {
	return func(cfg *config.Config, value string) error {
		set(cfg, value)
		return nil
	}
}

func envBool(set func(*config.Config, bool)) func(*config.Config, string) error {
	return func(cfg *config.Config, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%q is not a boolean (expected true/false/1/0)", value)
		}
		set(cfg, b)
		return nil
	}
}

func envList(set func(*config.Config, []string)) func(*config.Config, string) error {
	return func(cfg *config.Config, value string) error {
		set(cfg, splitList(value))
		return nil
	}
}

//nolint:gochecknoglobals // Read-only lookup table.
var envVars = map[string]envVar{
	"POLICY": {
		help:  "Failure policy: recoverable or fatal",
		apply: envString(func(c *config.Config, v string) { c.Policy = config.FailurePolicy(v) }),
	},
	"FORMAT": {
		help:  "Output format: text, table, json, diff, or summary",
		apply: envString(func(c *config.Config, v string) { c.Format = config.OutputFormat(v) }),
	},
	"JOBS": {
		help: "Number of parallel workers (0 = auto)",
		apply: func(c *config.Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%q is not an integer", v)
			}
			c.Jobs = n
			return nil
		},
	},
	"WRITE": {
		help:  "Rewrite files in place: true or false",
		apply: envBool(func(c *config.Config, v bool) { c.Write = v }),
	},
	"DRY_RUN": {
		help:  "Show changes without writing: true or false",
		apply: envBool(func(c *config.Config, v bool) { c.DryRun = v }),
	},
	"BACKUPS_ENABLED": {
		help:  "Create backups when writing: true or false",
		apply: envBool(func(c *config.Config, v bool) { c.Backups.Enabled = v }),
	},
	"BACKUPS_MODE": {
		help:  "Backup mode: sidecar or none",
		apply: envString(func(c *config.Config, v string) { c.Backups.Mode = v }),
	},
	"NO_BACKUPS": {
		help:  "Disable backups: true or false",
		apply: envBool(func(c *config.Config, v bool) { c.NoBackups = v }),
	},
	"IGNORE": {
		help:  "Comma-separated ignore globs",
		apply: envList(func(c *config.Config, v []string) { c.Ignore = v }),
	},
	"EXTENSIONS": {
		help:  "Comma-separated file extensions to process",
		apply: envList(func(c *config.Config, v []string) { c.Extensions = v }),
	},
	"ENABLE": {
		help:  "Comma-separated plugin IDs to enable",
		apply: envList(func(c *config.Config, v []string) { c.EnablePlugins = v }),
	},
	"DISABLE": {
		help:  "Comma-separated plugin IDs to disable",
		apply: envList(func(c *config.Config, v []string) { c.DisablePlugins = v }),
	},
}

// LoadFromEnv applies TSWEAVE_* overrides to cfg. Empty variables are
// ignored.
func LoadFromEnv(cfg *config.Config) error {
	if cfg == nil {
		return nil
	}
	for _, suffix := range envSuffixes() {
		name := envVarPrefix + suffix
		value := os.Getenv(name)
		if value == "" {
			continue
		}
		if err := envVars[suffix].apply(cfg, value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

// ListEnvVars returns every supported variable with its description.
func ListEnvVars() map[string]string {
	out := make(map[string]string, len(envVars))
	for suffix, v := range envVars {
		out[envVarPrefix+suffix] = v.help
	}
	return out
}

func envSuffixes() []string {
	keys := make([]string, 0, len(envVars))
	for k := range envVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// splitList parses a comma-separated value, trimming and dropping empty
// elements.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
