package configloader

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/yaklabco/tsweave/pkg/config"
	"github.com/yaklabco/tsweave/pkg/rewrite"
)

// ValidationError is one configuration finding.
type ValidationError struct {
	// Field is the path to the offending field, e.g. "plugins[1].id".
	Field string

	Value any

	Message string

	// FilePath is the config file the finding comes from, if known.
	FilePath string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string
	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	parts = append(parts, e.Message)
	return strings.Join(parts, ": ")
}

// ValidationResult holds every finding of one validation.
type ValidationResult struct {
	// Errors prevent loading.
	Errors []ValidationError

	// Warnings are reported but do not stop the run.
	Warnings []ValidationError
}

// Valid returns true if there are no errors.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// AllMessages returns errors then warnings, each with its level prefixed.
func (r *ValidationResult) AllMessages() []string {
	messages := make([]string, 0, len(r.Errors)+len(r.Warnings))
	for _, e := range r.Errors {
		messages = append(messages, "error: "+e.Error())
	}
	for _, w := range r.Warnings {
		messages = append(messages, "warning: "+w.Error())
	}
	return messages
}

func (r *ValidationResult) fail(field string, value any, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) warn(field string, value any, format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)})
}

// IsValidBackupMode reports whether mode is a known backup mode.
func IsValidBackupMode(mode string) bool {
	return mode == "sidecar" || mode == "none"
}

// Validate checks cfg. Plugin IDs are checked against registry; unknown
// ones are warnings here and errors when the plugin list is resolved.
func Validate(cfg *config.Config, registry *rewrite.Registry) *ValidationResult {
	result := &ValidationResult{}
	if cfg == nil {
		return result
	}

	if cfg.Policy != "" && !cfg.Policy.IsValid() {
		result.fail("policy", cfg.Policy, "invalid policy %q; must be one of: recoverable, fatal", cfg.Policy)
	}
	if cfg.Format != "" && !cfg.Format.IsValid() {
		result.fail("format", cfg.Format, "invalid format %q; must be one of: text, table, json, diff, summary", cfg.Format)
	}
	if cfg.Jobs < 0 {
		result.fail("jobs", cfg.Jobs, "jobs must be >= 0 (0 means auto)")
	}
	if cfg.Backups.Mode != "" && !IsValidBackupMode(cfg.Backups.Mode) {
		result.fail("backups.mode", cfg.Backups.Mode, "invalid backup mode %q; must be one of: sidecar, none", cfg.Backups.Mode)
	}
	if cfg.Write && cfg.DryRun {
		result.warn("dry_run", true, "dry run wins over write; no files will be changed")
	}

	for i, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			result.fail(fmt.Sprintf("extensions[%d]", i), ext, "extension %q must start with a dot", ext)
		}
	}
	for i, pattern := range cfg.Ignore {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			result.fail(fmt.Sprintf("ignore[%d]", i), pattern, "invalid glob pattern: %v", err)
		}
	}

	validatePlugins(cfg, registry, result)
	return result
}

func validatePlugins(cfg *config.Config, registry *rewrite.Registry, result *ValidationResult) {
	known := func(id string) bool {
		if registry == nil {
			return true
		}
		_, ok := registry.Get(id)
		return ok
	}

	seen := make(map[string]int)
	for i, p := range cfg.Plugins {
		field := fmt.Sprintf("plugins[%d].id", i)
		switch {
		case strings.TrimSpace(p.ID) == "":
			result.fail(field, p.ID, "plugin id must not be empty")
			continue
		case !known(p.ID):
			result.warn(field, p.ID, "unknown plugin %q", p.ID)
		}
		if first, dup := seen[p.ID]; dup {
			result.fail(field, p.ID, "plugin %q already listed at plugins[%d]", p.ID, first)
			continue
		}
		seen[p.ID] = i
	}
	for _, list := range []struct {
		field string
		ids   []string
	}{{"enable", cfg.EnablePlugins}, {"disable", cfg.DisablePlugins}} {
		for i, id := range list.ids {
			if !known(id) {
				result.warn(fmt.Sprintf("%s[%d]", list.field, i), id, "unknown plugin %q", id)
			}
		}
	}
}

// ValidateWithFile validates cfg and attributes every finding to filePath.
func ValidateWithFile(cfg *config.Config, registry *rewrite.Registry, filePath string) *ValidationResult {
	result := Validate(cfg, registry)
	for i := range result.Errors {
		result.Errors[i].FilePath = filePath
	}
	for i := range result.Warnings {
		result.Warnings[i].FilePath = filePath
	}
	return result
}
