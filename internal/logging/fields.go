// Package logging provides a structured logging wrapper around charmbracelet/log.
package logging

// Field name constants for structured logging.
const (
	// Common fields.
	FieldError      = "error"
	FieldPath       = "path"
	FieldPaths      = "paths"
	FieldWorkingDir = "working_dir"
	FieldConfig     = "config"

	// Run configuration fields.
	FieldPolicy  = "policy"
	FieldWrite   = "write"
	FieldDryRun  = "dry_run"
	FieldJobs    = "jobs"
	FieldPlugins = "plugins"

	// Coordinator fields.
	FieldUnit    = "unit"
	FieldPlugin  = "plugin"
	FieldVersion = "version"
	FieldEdits   = "edits"
	FieldChanged = "changed"
	FieldRoots   = "roots"

	// Statistics fields.
	FieldFiles           = "files"
	FieldFilesDiscovered = "files_discovered"
	FieldFilesProcessed  = "files_processed"
	FieldFilesChanged    = "files_changed"
	FieldFilesWritten    = "files_written"
	FieldFilesErrored    = "files_errored"

	// Build fields.
	FieldCommit = "commit"
	FieldBuilt  = "built"
)
