package config

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// ToYAML serializes the configuration to YAML format.
func (c *Config) ToYAML() ([]byte, error) {
	if c == nil {
		return nil, nil
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("close encoder: %w", err)
	}

	return buf.Bytes(), nil
}

// ToYAMLWithHeader serializes the configuration with a header comment.
func (c *Config) ToYAMLWithHeader(header string) ([]byte, error) {
	yamlBytes, err := c.ToYAML()
	if err != nil {
		return nil, err
	}
	if header == "" {
		return yamlBytes, nil
	}

	var buf bytes.Buffer
	buf.WriteString(header)
	if header[len(header)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(yamlBytes)
	return buf.Bytes(), nil
}

// FromYAML parses a configuration from YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return cfg, nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := *c
	clone.Extensions = slices.Clone(c.Extensions)
	clone.Ignore = slices.Clone(c.Ignore)
	clone.EnablePlugins = slices.Clone(c.EnablePlugins)
	clone.DisablePlugins = slices.Clone(c.DisablePlugins)

	if c.Plugins != nil {
		clone.Plugins = make([]PluginConfig, len(c.Plugins))
		for i, p := range c.Plugins {
			clone.Plugins[i] = p.clone()
		}
	}
	return &clone
}

// clone creates a deep copy of a PluginConfig.
func (p PluginConfig) clone() PluginConfig {
	clone := PluginConfig{ID: p.ID}
	if p.Enabled != nil {
		enabled := *p.Enabled
		clone.Enabled = &enabled
	}
	if p.Options != nil {
		clone.Options = make(map[string]any, len(p.Options))
		maps.Copy(clone.Options, p.Options) // nested maps/slices in Options are shared
	}
	return clone
}
