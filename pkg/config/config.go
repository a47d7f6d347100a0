// Package config defines core configuration types for tsweave.
// These types are plain data; loading and layering live in internal/configloader.
package config

// FailurePolicy decides what a host does when a plugin fails to transform a unit.
type FailurePolicy string

const (
	// PolicyRecoverable serves the unit unmodified and reports the error.
	PolicyRecoverable FailurePolicy = "recoverable"

	// PolicyFatal aborts the whole run on the first failure.
	PolicyFatal FailurePolicy = "fatal"
)

// IsValid returns true if the policy is known.
func (p FailurePolicy) IsValid() bool {
	switch p {
	case PolicyRecoverable, PolicyFatal:
		return true
	default:
		return false
	}
}

// OutputFormat specifies how run results are printed.
type OutputFormat string

const (
	FormatText    OutputFormat = "text"
	FormatTable   OutputFormat = "table"
	FormatJSON    OutputFormat = "json"
	FormatDiff    OutputFormat = "diff"
	FormatSummary OutputFormat = "summary"
)

// IsValid returns true if the format is known.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatText, FormatTable, FormatJSON, FormatDiff, FormatSummary:
		return true
	default:
		return false
	}
}

// PluginConfig is one entry of the ordered plugin list.
type PluginConfig struct {
	ID      string         `yaml:"id" toml:"id"`
	Enabled *bool          `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Options map[string]any `yaml:"options,omitempty" toml:"options,omitempty"`
}

// IsEnabled reports whether the entry should run. Entries are enabled unless
// they say otherwise.
func (p PluginConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// BackupsConfig controls backup behavior when writing files.
type BackupsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Mode    string `yaml:"mode" toml:"mode"` // "sidecar" or "none"
}

// Config is the root configuration structure for tsweave.
type Config struct {
	// Plugins lists the plugins to run, in order.
	Plugins []PluginConfig `yaml:"plugins" toml:"plugins"`

	// Policy is the failure policy for plugin errors.
	Policy FailurePolicy `yaml:"policy" toml:"policy"`

	// Extensions limits discovery to files with these extensions.
	Extensions []string `yaml:"extensions" toml:"extensions"`

	// Ignore contains glob patterns for files to ignore.
	Ignore []string `yaml:"ignore" toml:"ignore"`

	// Backups configures backup behavior when writing.
	Backups BackupsConfig `yaml:"backups" toml:"backups"`

	// CLI-level options (not persisted to config files).

	// Write rewrites files in place.
	Write bool `yaml:"-" toml:"-"`

	// DryRun shows what would change without writing.
	DryRun bool `yaml:"-" toml:"-"`

	// Format specifies the output format.
	Format OutputFormat `yaml:"-" toml:"-"`

	// Jobs specifies the number of parallel workers.
	Jobs int `yaml:"-" toml:"-"`

	// EnablePlugins contains plugin IDs to explicitly enable.
	EnablePlugins []string `yaml:"-" toml:"-"`

	// DisablePlugins contains plugin IDs to explicitly disable.
	DisablePlugins []string `yaml:"-" toml:"-"`

	// NoBackups disables backup creation when writing.
	NoBackups bool `yaml:"-" toml:"-"`
}

// DefaultExtensions are the file extensions processed when none are configured.
func DefaultExtensions() []string {
	return []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"}
}

// NewConfig returns a Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Policy:     PolicyRecoverable,
		Extensions: DefaultExtensions(),
		Ignore:     []string{"**/node_modules/**", "**/dist/**"},
		Backups: BackupsConfig{
			Enabled: true,
			Mode:    "sidecar",
		},
		Format: FormatText,
		Jobs:   0, // 0 means use GOMAXPROCS
	}
}

// Plugin returns the entry for id.
func (c *Config) Plugin(id string) (PluginConfig, bool) {
	for _, p := range c.Plugins {
		if p.ID == id {
			return p, true
		}
	}
	return PluginConfig{}, false
}

// SetPlugin replaces the entry for p.ID, or appends it when absent.
func (c *Config) SetPlugin(p PluginConfig) {
	for i := range c.Plugins {
		if c.Plugins[i].ID == p.ID {
			c.Plugins[i] = p
			return
		}
	}
	c.Plugins = append(c.Plugins, p)
}
