package reporter

import (
	"context"
	"fmt"

	"github.com/yaklabco/tsweave/pkg/runner"
)

// TextReporter prints one line per changed or failed unit.
type TextReporter struct {
	base
}

// NewTextReporter creates a new text reporter.
func NewTextReporter(opts Options) *TextReporter {
	return &TextReporter{base: newBase(opts)}
}

// Report implements Reporter.
func (r *TextReporter) Report(_ context.Context, result *runner.Result) (_ int, err error) {
	defer r.flush(&err)

	if result == nil || len(result.Units) == 0 {
		if r.opts.ShowSummary {
			fmt.Fprintln(r.bw, r.styles.Success.Render("No files to process."))
		}
		return 0, nil
	}

	for _, o := range result.Units {
		if !o.Changed && o.Err == nil && !r.opts.ShowUnchanged {
			continue
		}
		fmt.Fprint(r.bw, r.styles.FormatOutcome(r.display(o.Path), o))
	}

	if r.opts.ShowSummary {
		fmt.Fprint(r.bw, r.styles.FormatSummaryOneLine(result.Stats))
	}
	return reported(result), nil
}
