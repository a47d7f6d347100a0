package pretty

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yaklabco/tsweave/pkg/runner"
)

// Table formatting constants.
const (
	tablePadding     = 2
	tableColumnCount = 4 // FILE, STATUS, PLUGINS, EDITS
	minFileWidth     = 20
	statusWidth      = 9
	pluginsWidth     = 7
	editsWidth       = 5
	heavySeparator   = "="
	lightSeparator   = "-"
	defaultTermWidth = 100
	errorIndent      = "   "
)

// TableRow is one unit in the outcome table.
type TableRow struct {
	File    string
	Status  Status
	Plugins string
	Edits   int
	Error   string
}

// TableFormatter formats run outcomes as a styled table.
type TableFormatter struct {
	styles       *Styles
	colorEnabled bool
	termWidth    int
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(styles *Styles, colorEnabled bool, termWidth int) *TableFormatter {
	if termWidth <= 0 {
		termWidth = defaultTermWidth
	}
	return &TableFormatter{
		styles:       styles,
		colorEnabled: colorEnabled,
		termWidth:    termWidth,
	}
}

// Rows converts outcomes to table rows. Unchanged units are left out
// unless all is set. path maps an outcome path to its display form.
func Rows(result *runner.Result, all bool, path func(string) string) []TableRow {
	if result == nil {
		return nil
	}
	var rows []TableRow
	for _, o := range result.Units {
		status := StatusOf(o)
		if status == StatusUnchanged && !all {
			continue
		}
		row := TableRow{
			File:    path(o.Path),
			Status:  status,
			Plugins: fmt.Sprintf("%d/%d", o.Stats.PluginsChanged, o.Stats.PluginsRun),
			Edits:   Edits(o.Stats),
		}
		if o.Err != nil {
			row.Error = o.Err.Error()
		}
		rows = append(rows, row)
	}
	return rows
}

// FormatTable renders rows. Failed rows are followed by their error,
// indented and wrapped to the terminal width.
func (t *TableFormatter) FormatTable(rows []TableRow) string {
	if len(rows) == 0 {
		return ""
	}

	fileWidth := minFileWidth
	for _, row := range rows {
		fileWidth = max(fileWidth, len(row.File))
	}
	fixed := statusWidth + pluginsWidth + editsWidth + tablePadding*tableColumnCount
	if fileWidth+fixed > t.termWidth {
		fileWidth = max(minFileWidth, t.termWidth-fixed)
	}
	total := fileWidth + fixed

	var builder strings.Builder
	builder.WriteString(t.styles.TableHeader.Render(fmt.Sprintf(" %-*s  %-*s  %*s  %*s ",
		fileWidth, "FILE", statusWidth, "STATUS", pluginsWidth, "PLUGINS", editsWidth, "EDITS")))
	builder.WriteString("\n")
	builder.WriteString(t.separator(total, heavySeparator))

	for i, row := range rows {
		if i > 0 && rows[i-1].Error != "" {
			builder.WriteString(t.separator(total, lightSeparator))
		}
		status := t.styles.FormatStatus(row.Status)
		if pad := statusWidth - len(row.Status); pad > 0 {
			status += strings.Repeat(" ", pad)
		}
		builder.WriteString(fmt.Sprintf(" %-*s  %s  %*s  %*d \n",
			fileWidth, truncateFilePath(row.File, fileWidth),
			status,
			pluginsWidth, row.Plugins,
			editsWidth, row.Edits))
		if row.Error != "" {
			for _, line := range wrapWords(row.Error, max(t.termWidth-len(errorIndent), minFileWidth)) {
				builder.WriteString(errorIndent + t.styles.Failed.Render(line) + "\n")
			}
		}
	}

	builder.WriteString(t.separator(total, heavySeparator))
	builder.WriteString(t.legend())
	builder.WriteString("\n")
	return builder.String()
}

func (t *TableFormatter) separator(width int, char string) string {
	return t.styles.TableSeparator.Render(strings.Repeat(char, width)) + "\n"
}

func (t *TableFormatter) legend() string {
	sample := func(style lipgloss.Style, status Status) string {
		if !t.colorEnabled {
			return string(status)
		}
		return style.Render(string(status))
	}
	return t.styles.TableLegend.Render(" PLUGINS = changed/run  ") +
		strings.Join([]string{
			sample(t.styles.Written, StatusWritten),
			sample(t.styles.Changed, StatusChanged),
			sample(t.styles.Skipped, StatusSkipped),
			sample(t.styles.Failed, StatusFailed),
		}, " ")
}

// wrapWords splits str into lines of at most width bytes, breaking at
// spaces. A word longer than width is split.
func wrapWords(str string, width int) []string {
	var lines []string
	var line string
	for _, word := range strings.Fields(str) {
		for len(word) > width {
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			lines = append(lines, word[:width])
			word = word[width:]
		}
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) <= width:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// truncateFilePath truncates a file path, preserving the end (filename) rather than beginning.
func truncateFilePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return path[len(path)-maxLen:]
	}
	return "..." + path[len(path)-maxLen+3:]
}
