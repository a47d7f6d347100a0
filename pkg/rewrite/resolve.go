package rewrite

import (
	"errors"
	"fmt"
	"slices"

	"github.com/yaklabco/tsweave/pkg/config"
)

// ErrUnknownPlugin is returned when configuration names a plugin the
// registry does not know.
var ErrUnknownPlugin = errors.New("unknown plugin")

// ResolvePlugins builds the ordered plugin list described by cfg.
//
// Plugins run in the order cfg.Plugins lists them. An entry disabled in the
// file can be switched on with cfg.EnablePlugins; IDs named only in
// EnablePlugins are appended with empty options. cfg.DisablePlugins wins
// over both.
func ResolvePlugins(registry *Registry, cfg *config.Config) ([]Plugin, error) {
	if cfg == nil {
		return nil, nil
	}

	entries := make([]config.PluginConfig, 0, len(cfg.Plugins)+len(cfg.EnablePlugins))
	entries = append(entries, cfg.Plugins...)
	for _, id := range cfg.EnablePlugins {
		if _, ok := cfg.Plugin(id); !ok {
			entries = append(entries, config.PluginConfig{ID: id})
		}
	}

	var (
		plugins []Plugin
		errs    []error
		seen    = make(map[string]bool)
	)
	for _, entry := range entries {
		enabled := entry.IsEnabled() || slices.Contains(cfg.EnablePlugins, entry.ID)
		if !enabled || slices.Contains(cfg.DisablePlugins, entry.ID) {
			continue
		}

		d, ok := registry.Get(entry.ID)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownPlugin, entry.ID))
			continue
		}
		if seen[d.ID] {
			errs = append(errs, fmt.Errorf("plugin %s listed twice", d.ID))
			continue
		}
		seen[d.ID] = true

		p, err := d.New(Options(entry.Options))
		if err != nil {
			errs = append(errs, fmt.Errorf("configure plugin %s: %w", d.ID, err))
			continue
		}
		plugins = append(plugins, p)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return plugins, nil
}
