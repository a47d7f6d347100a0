// Package reporter prints the outcome of a run: one line per unit, a
// table, JSON, unified diffs, or a summary block.
package reporter

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yaklabco/tsweave/internal/ui/pretty"
	"github.com/yaklabco/tsweave/pkg/runner"
)

// Reporter formats and writes run results.
type Reporter interface {
	// Report writes formatted output for result. It returns the number of
	// units that changed or failed.
	Report(ctx context.Context, result *runner.Result) (int, error)
}

// New creates a Reporter for opts.Format.
func New(opts Options) (Reporter, error) {
	if opts.Writer == nil {
		opts.Writer = DefaultOptions().Writer
	}

	format := opts.Format
	if format == "" {
		format = FormatText
	}

	switch format {
	case FormatText:
		return NewTextReporter(opts), nil
	case FormatTable:
		return NewTableReporter(opts), nil
	case FormatJSON:
		return NewJSONReporter(opts), nil
	case FormatDiff:
		return NewDiffReporter(opts), nil
	case FormatSummary:
		return NewSummaryReporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// base holds what every styled reporter needs.
type base struct {
	opts   Options
	styles *pretty.Styles
	color  bool
	bw     *bufio.Writer
}

func newBase(opts Options) base {
	color := pretty.IsColorEnabled(opts.Color, opts.Writer)
	return base{
		opts:   opts,
		styles: pretty.NewStyles(color),
		color:  color,
		bw:     bufio.NewWriterSize(opts.Writer, bufWriterSize),
	}
}

func (b *base) flush(err *error) {
	if flushErr := b.bw.Flush(); *err == nil {
		*err = flushErr
	}
}

// display returns path relative to the working directory when it lies
// beneath it.
func (b *base) display(path string) string {
	return relativePath(b.opts.WorkingDir, path)
}

func relativePath(workingDir, path string) string {
	if workingDir == "" {
		return path
	}
	rel, err := filepath.Rel(workingDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}

// reported counts the units a reporter lists by default.
func reported(result *runner.Result) int {
	if result == nil {
		return 0
	}
	return result.Stats.FilesChanged + result.Stats.FilesErrored
}
