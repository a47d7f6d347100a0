package pretty

import (
	"strconv"
	"strings"

	"github.com/yaklabco/tsweave/pkg/runner"
)

const summaryDividerWidth = 40

// FormatSummaryOneLine formats run statistics as a single line.
// Example: "3 files changed, 2 written, 1 failed (12 files processed)".
func (s *Styles) FormatSummaryOneLine(stats runner.Stats) string {
	processed := s.Dim.Render(" (" + plural(stats.FilesProcessed+stats.FilesErrored, "file") + " processed)")
	if stats.FilesChanged == 0 && stats.FilesErrored == 0 {
		return s.Success.Render("No changes") + processed + "\n"
	}

	var parts []string
	if stats.FilesChanged > 0 {
		parts = append(parts, s.Changed.Render(plural(stats.FilesChanged, "file")+" changed"))
	}
	if stats.FilesWritten > 0 {
		parts = append(parts, s.Written.Render(strconv.Itoa(stats.FilesWritten)+" written"))
	}
	if stats.FilesSkipped > 0 {
		parts = append(parts, s.Skipped.Render(strconv.Itoa(stats.FilesSkipped)+" skipped"))
	}
	if stats.FilesErrored > 0 {
		parts = append(parts, s.Failed.Render(strconv.Itoa(stats.FilesErrored)+" failed"))
	}
	return strings.Join(parts, ", ") + processed + "\n"
}

// FormatSummary formats run statistics as a summary block.
func (s *Styles) FormatSummary(stats runner.Stats) string {
	var builder strings.Builder
	row := func(label string, style func(...string) string, n int) {
		builder.WriteString("  " + label + strings.Repeat(" ", max(1, 19-len(label))) + style(strconv.Itoa(n)) + "\n")
	}

	builder.WriteString("\n")
	builder.WriteString(s.SummaryTitle.Render("Summary"))
	builder.WriteString("\n")
	builder.WriteString(strings.Repeat("-", summaryDividerWidth))
	builder.WriteString("\n")

	row("Files discovered:", s.SummaryValue.Render, stats.FilesDiscovered)
	row("Files processed:", s.SummaryValue.Render, stats.FilesProcessed)
	if stats.FilesChanged > 0 {
		row("Files changed:", s.Changed.Render, stats.FilesChanged)
	}
	if stats.FilesWritten > 0 {
		row("Files written:", s.Written.Render, stats.FilesWritten)
	}
	if stats.FilesSkipped > 0 {
		row("Files skipped:", s.Skipped.Render, stats.FilesSkipped)
	}
	if stats.FilesErrored > 0 {
		row("Files failed:", s.Failed.Render, stats.FilesErrored)
	}

	builder.WriteString("\n")
	units := stats.Units
	row("Plugins run:", s.SummaryValue.Render, units.PluginsRun)
	row("Plugins skipped:", s.SummaryValue.Render, units.PluginsSkipped)
	row("Edits applied:", s.SummaryValue.Render, Edits(units))
	row("Reparses:", s.Dim.Render, units.Reparses)
	builder.WriteString("\n")

	switch {
	case stats.FilesErrored > 0:
		builder.WriteString(s.Failure.Render("Run completed with failures"))
	case stats.FilesChanged > 0:
		builder.WriteString(s.Success.Render("Run completed with changes"))
	default:
		builder.WriteString(s.Success.Render("Run completed, nothing to change"))
	}
	builder.WriteString("\n")
	return builder.String()
}
