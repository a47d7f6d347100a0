package config

import (
	"bytes"
	"fmt"
	"strings"
)

// commentWrapWidth is the maximum width for wrapped comments in templates.
const commentWrapWidth = 70

// TemplateOptions controls configuration template generation.
type TemplateOptions struct {
	// Format is the output format: "yaml" or "toml".
	Format string

	// Plugins lists the plugins documented in the template, in order.
	Plugins []PluginInfo
}

// PluginInfo contains plugin metadata for template generation.
type PluginInfo struct {
	ID          string
	Description string
}

// GenerateTemplate creates a configuration file template.
func GenerateTemplate(opts TemplateOptions) ([]byte, error) {
	switch opts.Format {
	case "", "yaml", "yml":
		return yamlTemplate(opts), nil
	case "toml":
		return tomlTemplate(opts), nil
	default:
		return nil, fmt.Errorf("unsupported template format %q", opts.Format)
	}
}

func yamlTemplate(opts TemplateOptions) []byte {
	var buf bytes.Buffer
	buf.WriteString(DefaultTemplateHeader())
	buf.WriteString(`

# What to do when a plugin fails: recoverable or fatal
policy: recoverable

# File extensions to process
extensions: [".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"]

# File patterns to ignore (glob patterns)
ignore:
  - "**/node_modules/**"
  - "**/dist/**"

# Backup configuration for --write
backups:
  enabled: true
  mode: sidecar

# Plugins run in the order listed
plugins:
`)
	for _, p := range opts.Plugins {
		fmt.Fprintf(&buf, "  # %s\n", wrapComment(p.Description, commentWrapWidth, "  # "))
		fmt.Fprintf(&buf, "  - id: %s\n", p.ID)
		buf.WriteString("    enabled: false\n")
	}
	if len(opts.Plugins) == 0 {
		buf.WriteString("  []\n")
	}
	return buf.Bytes()
}

func tomlTemplate(opts TemplateOptions) []byte {
	var buf bytes.Buffer
	buf.WriteString(DefaultTemplateHeader())
	buf.WriteString(`

# What to do when a plugin fails: recoverable or fatal
policy = "recoverable"

# File extensions to process
extensions = [".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"]

# File patterns to ignore (glob patterns)
ignore = ["**/node_modules/**", "**/dist/**"]

[backups]
enabled = true
mode = "sidecar"
`)
	for _, p := range opts.Plugins {
		fmt.Fprintf(&buf, "\n# %s\n", wrapComment(p.Description, commentWrapWidth, "# "))
		buf.WriteString("[[plugins]]\n")
		fmt.Fprintf(&buf, "id = %q\n", p.ID)
		buf.WriteString("enabled = false\n")
	}
	return buf.Bytes()
}

// wrapComment wraps a comment to fit within maxWidth characters.
func wrapComment(text string, maxWidth int, prefix string) string {
	if len(text) <= maxWidth {
		return text
	}

	var lines []string
	currentLine := ""
	for _, word := range strings.Fields(text) {
		switch {
		case currentLine == "":
			currentLine = word
		case len(currentLine)+1+len(word) <= maxWidth:
			currentLine += " " + word
		default:
			lines = append(lines, currentLine)
			currentLine = word
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}
	return strings.Join(lines, "\n"+prefix)
}

// DefaultTemplateHeader returns the default header for generated configs.
func DefaultTemplateHeader() string {
	return `# tsweave configuration
# See: https://github.com/yaklabco/tsweave`
}
