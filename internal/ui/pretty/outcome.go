package pretty

import (
	"fmt"
	"strings"

	"github.com/yaklabco/tsweave/pkg/rewrite"
	"github.com/yaklabco/tsweave/pkg/runner"
)

// Status names the state of one unit after a run.
type Status string

const (
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusWritten   Status = "written"
	StatusChanged   Status = "changed"
	StatusUnchanged Status = "unchanged"
)

// StatusOf classifies an outcome. A failure wins over everything else.
func StatusOf(o runner.UnitOutcome) Status {
	switch {
	case o.Err != nil:
		return StatusFailed
	case o.Skipped:
		return StatusSkipped
	case o.Written:
		return StatusWritten
	case o.Changed:
		return StatusChanged
	default:
		return StatusUnchanged
	}
}

// FormatStatus returns a styled status word.
func (s *Styles) FormatStatus(status Status) string {
	switch status {
	case StatusFailed:
		return s.Failed.Render(string(status))
	case StatusSkipped:
		return s.Skipped.Render(string(status))
	case StatusWritten:
		return s.Written.Render(string(status))
	case StatusChanged:
		return s.Changed.Render(string(status))
	default:
		return s.Unchanged.Render(string(status))
	}
}

// FormatOutcome formats one unit as a line, followed by an error line when
// the unit failed.
//
//	src/app.ts  changed  (2/3 plugins, 4 edits)
func (s *Styles) FormatOutcome(path string, o runner.UnitOutcome) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("  %s  %s", s.FilePath.Render(path), s.FormatStatus(StatusOf(o))))
	if o.Err == nil && o.Stats.PluginsRun > 0 {
		builder.WriteString("  " + s.Dim.Render(fmt.Sprintf("(%d/%d plugins, %d edits)",
			o.Stats.PluginsChanged, o.Stats.PluginsRun, Edits(o.Stats))))
	}
	if o.BackupCreated {
		builder.WriteString("  " + s.Dim.Render("backup created"))
	}
	builder.WriteString("\n")

	if o.Err != nil {
		builder.WriteString("    " + s.FormatError(o.Err) + "\n")
	}
	return builder.String()
}

// FormatError formats an error, naming the plugin and failure kind when
// the error came from a plugin.
func (s *Styles) FormatError(err error) string {
	perr, ok := rewrite.AsPluginError(err)
	if !ok {
		return s.Message.Render(err.Error())
	}
	return fmt.Sprintf("%s %s %s",
		s.PluginID.Render(perr.PluginID),
		s.Kind.Render("["+perr.Kind.String()+"]"),
		s.Message.Render(perr.Err.Error()),
	)
}

// FormatDiff colors a unified diff line by line.
func (s *Styles) FormatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	lines := strings.SplitAfter(diff, "\n")
	var builder strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		body := strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(body, "+++"), strings.HasPrefix(body, "---"):
			body = s.DiffHeader.Render(body)
		case strings.HasPrefix(body, "@@"):
			body = s.DiffHunk.Render(body)
		case strings.HasPrefix(body, "+"):
			body = s.DiffAdd.Render(body)
		case strings.HasPrefix(body, "-"):
			body = s.DiffRemove.Render(body)
		default:
			body = s.DiffContext.Render(body)
		}
		builder.WriteString(body)
		if strings.HasSuffix(line, "\n") {
			builder.WriteString("\n")
		}
	}
	return builder.String()
}

// Edits counts the text edits recorded in stats.
func Edits(stats rewrite.Stats) int {
	return stats.Replacements + stats.Prepends + stats.ImportEdits
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
