package reporter

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/yaklabco/tsweave/pkg/rewrite"
	"github.com/yaklabco/tsweave/pkg/runner"
)

// Failure table layout.
const (
	summaryTableWidth = 60
	pluginColWidth    = 28
	kindColWidth      = 20
	countColWidth     = 8
)

// padRight pads s with spaces to width. Call it before styling.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// FailureCount is the number of units one plugin failed with one kind.
type FailureCount struct {
	Plugin string
	Kind   string
	Count  int
}

// CountFailures groups unit failures by plugin and kind, most frequent
// first. Failures outside plugins are grouped under an empty plugin ID.
func CountFailures(result *runner.Result) []FailureCount {
	if result == nil {
		return nil
	}
	counts := make(map[[2]string]int)
	for _, o := range result.Failures() {
		key := [2]string{"", "io"}
		if perr, ok := rewrite.AsPluginError(o.Err); ok {
			key = [2]string{perr.PluginID, perr.Kind.String()}
		}
		counts[key]++
	}

	out := make([]FailureCount, 0, len(counts))
	for key, n := range counts {
		out = append(out, FailureCount{Plugin: key[0], Kind: key[1], Count: n})
	}
	slices.SortFunc(out, func(a, b FailureCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Plugin, b.Plugin); c != 0 {
			return c
		}
		return cmp.Compare(a.Kind, b.Kind)
	})
	return out
}

// SummaryReporter prints aggregate statistics and failures by plugin.
type SummaryReporter struct {
	base
}

// NewSummaryReporter creates a new summary reporter.
func NewSummaryReporter(opts Options) *SummaryReporter {
	return &SummaryReporter{base: newBase(opts)}
}

// Report implements Reporter.
func (r *SummaryReporter) Report(_ context.Context, result *runner.Result) (_ int, err error) {
	defer r.flush(&err)
	if result == nil {
		result = &runner.Result{}
	}

	fmt.Fprint(r.bw, r.styles.FormatSummary(result.Stats))

	failures := CountFailures(result)
	if len(failures) == 0 {
		return reported(result), nil
	}

	fmt.Fprintln(r.bw)
	fmt.Fprintln(r.bw, r.styles.SummaryTitle.Render("Failures"))
	fmt.Fprintln(r.bw, r.styles.TableHeader.Render(
		padRight("PLUGIN", pluginColWidth)+padRight("KIND", kindColWidth)+padRight("UNITS", countColWidth)))
	fmt.Fprintln(r.bw, r.styles.TableSeparator.Render(strings.Repeat("-", summaryTableWidth)))
	for _, f := range failures {
		plugin := f.Plugin
		if plugin == "" {
			plugin = "(host)"
		}
		fmt.Fprintln(r.bw,
			r.styles.PluginID.Render(padRight(plugin, pluginColWidth))+
				r.styles.Kind.Render(padRight(f.Kind, kindColWidth))+
				r.styles.Failed.Render(strconv.Itoa(f.Count)))
	}
	return reported(result), nil
}
