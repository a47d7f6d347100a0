package reporter

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/term"

	"github.com/yaklabco/tsweave/internal/ui/pretty"
	"github.com/yaklabco/tsweave/pkg/runner"
)

// defaultTermWidth is used when terminal width cannot be determined.
const defaultTermWidth = 100

// TableReporter prints outcomes as a table sized to the terminal.
type TableReporter struct {
	base
	formatter *pretty.TableFormatter
}

// NewTableReporter creates a new table reporter.
func NewTableReporter(opts Options) *TableReporter {
	b := newBase(opts)
	return &TableReporter{
		base:      b,
		formatter: pretty.NewTableFormatter(b.styles, b.color, terminalWidth(opts.Writer)),
	}
}

// Report implements Reporter.
func (r *TableReporter) Report(_ context.Context, result *runner.Result) (_ int, err error) {
	defer r.flush(&err)

	rows := pretty.Rows(result, r.opts.ShowUnchanged, r.display)
	if len(rows) == 0 {
		if r.opts.ShowSummary {
			fmt.Fprintln(r.bw, r.styles.Success.Render("No changes."))
		}
		return 0, nil
	}

	fmt.Fprint(r.bw, r.formatter.FormatTable(rows))
	if r.opts.ShowSummary {
		fmt.Fprint(r.bw, r.styles.FormatSummaryOneLine(result.Stats))
	}
	return reported(result), nil
}

func terminalWidth(writer io.Writer) int {
	if f, ok := writer.(interface{ Fd() uintptr }); ok {
		width, _, err := term.GetSize(int(f.Fd()))
		if err == nil && width > 0 {
			return width
		}
	}
	return defaultTermWidth
}
