package runner

import (
	"github.com/yaklabco/tsweave/pkg/fix"
	"github.com/yaklabco/tsweave/pkg/rewrite"
)

// UnitOutcome is the result for one file.
type UnitOutcome struct {
	// Path is the absolute file path.
	Path string

	// Changed is true when the plugins produced new text.
	Changed bool

	// Text is the transformed text when Changed.
	Text string

	// Diff is set for every changed unit.
	Diff *fix.Diff

	// Written is true if the file was rewritten on disk.
	Written bool

	// BackupCreated is true if a backup was made before writing.
	BackupCreated bool

	// Skipped is true if the new text was not written because the file
	// changed on disk during the run.
	Skipped bool

	// Stats counts the coordinator's work on this unit.
	Stats rewrite.Stats

	// Err is the read, plugin, or write failure of this unit. Under the
	// recoverable policy a plugin failure leaves the file untouched.
	Err error
}

// Stats aggregates a run.
type Stats struct {
	FilesDiscovered int `json:"files_discovered"`
	FilesProcessed  int `json:"files_processed"`
	FilesChanged    int `json:"files_changed"`
	FilesWritten    int `json:"files_written"`
	FilesSkipped    int `json:"files_skipped"`
	FilesErrored    int `json:"files_errored"`

	// Units sums the per-unit coordinator stats.
	Units rewrite.Stats `json:"units"`
}

// Result is the outcome of a run.
type Result struct {
	// Units holds one outcome per discovered file, sorted by path.
	Units []UnitOutcome

	Stats Stats

	// Shared is the SharedContext the plugins wrote to during the run.
	Shared *rewrite.SharedContext
}

// HasFailures reports whether any unit failed.
func (r *Result) HasFailures() bool {
	return r != nil && r.Stats.FilesErrored > 0
}

// HasChanges reports whether any unit changed.
func (r *Result) HasChanges() bool {
	return r != nil && r.Stats.FilesChanged > 0
}

// Failures returns the outcomes that carry an error.
func (r *Result) Failures() []UnitOutcome {
	if r == nil {
		return nil
	}
	var out []UnitOutcome
	for _, u := range r.Units {
		if u.Err != nil {
			out = append(out, u)
		}
	}
	return out
}

func (r *Result) accumulate(o UnitOutcome) {
	r.Units = append(r.Units, o)
	r.Stats.Units.Add(o.Stats)

	if o.Err != nil {
		r.Stats.FilesErrored++
		return
	}
	r.Stats.FilesProcessed++
	if o.Changed {
		r.Stats.FilesChanged++
	}
	if o.Written {
		r.Stats.FilesWritten++
	}
	if o.Skipped {
		r.Stats.FilesSkipped++
	}
}
