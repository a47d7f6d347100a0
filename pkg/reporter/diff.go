package reporter

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/yaklabco/tsweave/pkg/runner"
)

// DiffReporter prints a unified diff per changed unit. Failures go to
// ErrorWriter so the output can be piped to patch.
type DiffReporter struct {
	base
	errOut io.Writer
}

// NewDiffReporter creates a new diff reporter.
func NewDiffReporter(opts Options) *DiffReporter {
	errOut := opts.ErrorWriter
	if errOut == nil {
		errOut = os.Stderr
	}
	return &DiffReporter{base: newBase(opts), errOut: errOut}
}

// Report implements Reporter.
func (r *DiffReporter) Report(_ context.Context, result *runner.Result) (_ int, err error) {
	defer r.flush(&err)
	if result == nil {
		return 0, nil
	}

	var files, additions, deletions int
	for _, o := range result.Units {
		if o.Err != nil {
			fmt.Fprintf(r.errOut, "%s: %s\n", r.display(o.Path), r.styles.FormatError(o.Err))
			continue
		}
		if o.Diff == nil || !o.Diff.HasChanges() {
			continue
		}

		diff := *o.Diff
		diff.Path = r.display(o.Path)
		fmt.Fprint(r.bw, r.styles.FormatDiff(diff.String()))

		files++
		additions += diff.Additions
		deletions += diff.Deletions
	}

	if files > 0 && r.opts.ShowSummary {
		fmt.Fprintf(r.bw, "\n%s, %s, %s\n",
			r.styles.Bold.Render(plural(files, "file")+" changed"),
			r.styles.DiffAdd.Render(fmt.Sprintf("%d insertions(+)", additions)),
			r.styles.DiffRemove.Render(fmt.Sprintf("%d deletions(-)", deletions)),
		)
	}
	return reported(result), nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
