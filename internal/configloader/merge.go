package configloader

import "github.com/yaklabco/tsweave/pkg/config"

// merge layers override on top of base and returns a new config.
//   - Scalars: a non-zero override wins.
//   - Booleans: only true overrides, so a layer cannot unset a flag.
//   - Slices: a non-nil override replaces base.
//   - Plugins: entries merge by ID with options merged deeply; IDs new to
//     base are appended in override order.
func merge(base, override *config.Config) *config.Config {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	result := base.Clone()

	if override.Policy != "" {
		result.Policy = override.Policy
	}
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Jobs != 0 {
		result.Jobs = override.Jobs
	}

	result.Write = result.Write || override.Write
	result.DryRun = result.DryRun || override.DryRun
	result.NoBackups = result.NoBackups || override.NoBackups
	result.Backups.Enabled = result.Backups.Enabled || override.Backups.Enabled
	if override.Backups.Mode != "" {
		result.Backups.Mode = override.Backups.Mode
	}

	if override.Extensions != nil {
		result.Extensions = append([]string(nil), override.Extensions...)
	}
	if override.Ignore != nil {
		result.Ignore = append([]string(nil), override.Ignore...)
	}
	if override.EnablePlugins != nil {
		result.EnablePlugins = append([]string(nil), override.EnablePlugins...)
	}
	if override.DisablePlugins != nil {
		result.DisablePlugins = append([]string(nil), override.DisablePlugins...)
	}

	for _, p := range override.Plugins {
		existing, ok := result.Plugin(p.ID)
		if !ok {
			result.Plugins = append(result.Plugins, clonePlugin(p))
			continue
		}
		result.SetPlugin(mergePlugin(existing, p))
	}
	return result
}

func mergePlugin(base, override config.PluginConfig) config.PluginConfig {
	out := config.PluginConfig{ID: base.ID, Enabled: base.Enabled}
	if override.Enabled != nil {
		enabled := *override.Enabled
		out.Enabled = &enabled
	}
	out.Options = mergeOptions(base.Options, override.Options)
	return out
}

func clonePlugin(p config.PluginConfig) config.PluginConfig {
	out := config.PluginConfig{ID: p.ID, Options: mergeOptions(nil, p.Options)}
	if p.Enabled != nil {
		enabled := *p.Enabled
		out.Enabled = &enabled
	}
	return out
}

// mergeOptions deep-merges nested maps; other values from override replace
// those in base.
func mergeOptions(base, override map[string]any) map[string]any {
	if base == nil && override == nil {
		return nil
	}
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if sub, ok := asMap(v); ok {
			if existing, ok := asMap(out[k]); ok {
				out[k] = mergeOptions(existing, sub)
				continue
			}
			out[k] = mergeOptions(nil, sub)
			continue
		}
		out[k] = v
	}
	return out
}

// asMap accepts the map shapes produced by the YAML and TOML decoders.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	default:
		return nil, false
	}
}
