package reporter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yaklabco/tsweave/internal/ui/pretty"
	"github.com/yaklabco/tsweave/pkg/rewrite"
	"github.com/yaklabco/tsweave/pkg/runner"
)

// jsonSchemaVersion is bumped when the output shape changes incompatibly.
const jsonSchemaVersion = "1"

// JSONOutput is the top-level JSON structure.
type JSONOutput struct {
	Version string         `json:"version"`
	Units   []JSONUnit     `json:"units"`
	Stats   runner.Stats   `json:"stats"`
	Shared  map[string]any `json:"shared,omitempty"`
}

// JSONUnit is one unit's outcome.
type JSONUnit struct {
	Path          string        `json:"path"`
	Status        pretty.Status `json:"status"`
	Changed       bool          `json:"changed"`
	Written       bool          `json:"written,omitempty"`
	BackupCreated bool          `json:"backupCreated,omitempty"`
	Skipped       bool          `json:"skipped,omitempty"`
	Diff          string        `json:"diff,omitempty"`
	Stats         rewrite.Stats `json:"stats"`
	Error         *JSONError    `json:"error,omitempty"`
}

// JSONError describes a unit failure. Plugin and Kind are set for plugin
// failures.
type JSONError struct {
	Plugin  string `json:"plugin,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// JSONReporter formats results as JSON.
type JSONReporter struct {
	base
}

// NewJSONReporter creates a new JSON reporter.
func NewJSONReporter(opts Options) *JSONReporter {
	opts.Color = "never"
	return &JSONReporter{base: newBase(opts)}
}

// Report implements Reporter.
func (r *JSONReporter) Report(_ context.Context, result *runner.Result) (_ int, err error) {
	defer r.flush(&err)

	encoder := json.NewEncoder(r.bw)
	if !r.opts.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(r.buildOutput(result)); err != nil {
		return 0, fmt.Errorf("encode JSON: %w", err)
	}
	return reported(result), nil
}

func (r *JSONReporter) buildOutput(result *runner.Result) *JSONOutput {
	output := &JSONOutput{Version: jsonSchemaVersion, Units: []JSONUnit{}}
	if result == nil {
		return output
	}
	output.Stats = result.Stats

	for _, o := range result.Units {
		if !o.Changed && o.Err == nil && !r.opts.ShowUnchanged {
			continue
		}
		unit := JSONUnit{
			Path:          r.display(o.Path),
			Status:        pretty.StatusOf(o),
			Changed:       o.Changed,
			Written:       o.Written,
			BackupCreated: o.BackupCreated,
			Skipped:       o.Skipped,
			Stats:         o.Stats,
			Error:         jsonError(o.Err),
		}
		if o.Diff != nil && o.Diff.HasChanges() {
			diff := *o.Diff
			diff.Path = unit.Path
			unit.Diff = diff.String()
		}
		output.Units = append(output.Units, unit)
	}

	output.Shared = sharedValues(result.Shared)
	return output
}

func jsonError(err error) *JSONError {
	if err == nil {
		return nil
	}
	if perr, ok := rewrite.AsPluginError(err); ok {
		return &JSONError{Plugin: perr.PluginID, Kind: perr.Kind.String(), Message: perr.Err.Error()}
	}
	return &JSONError{Message: err.Error()}
}

// sharedValues returns the shared entries that encode as JSON.
func sharedValues(shared *rewrite.SharedContext) map[string]any {
	if shared == nil || shared.Len() == 0 {
		return nil
	}
	out := make(map[string]any, shared.Len())
	for _, key := range shared.Keys() {
		value, ok := shared.Get(key)
		if !ok {
			continue
		}
		if _, err := json.Marshal(value); err != nil {
			continue
		}
		out[key] = value
	}
	return out
}
