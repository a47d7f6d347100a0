package fix

import (
	"fmt"
	"strings"
)

// Diff is a unified line diff between a unit's text before and after rewriting.
type Diff struct {
	Path      string
	Hunks     []Hunk
	Additions int
	Deletions int
}

// Hunk is one contiguous region of a Diff with surrounding context.
type Hunk struct {
	// OldStart and NewStart are 1-based line numbers.
	OldStart, OldCount int
	NewStart, NewCount int
	Lines              []DiffLine
}

// DiffLine is a single line in a hunk.
type DiffLine struct {
	Kind    LineKind
	Content string
}

// LineKind classifies a DiffLine.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdd
	LineRemove
)

func (k LineKind) prefix() byte {
	switch k {
	case LineAdd:
		return '+'
	case LineRemove:
		return '-'
	default:
		return ' '
	}
}

// contextLines is the number of unchanged lines kept around each change.
const contextLines = 3

// GenerateDiff compares before and after line by line.
// Returns nil when both texts have identical lines.
func GenerateDiff(path, before, after string) *Diff {
	oldLines := splitLines(before)
	newLines := splitLines(after)

	ops := diffLines(oldLines, newLines)

	changed := false
	for _, op := range ops {
		if op.Kind != LineContext {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}

	d := &Diff{Path: path, Hunks: groupHunks(ops)}
	for _, op := range ops {
		switch op.Kind {
		case LineAdd:
			d.Additions++
		case LineRemove:
			d.Deletions++
		case LineContext:
		}
	}
	return d
}

// HasChanges reports whether the diff carries any hunk.
func (d *Diff) HasChanges() bool {
	return d != nil && len(d.Hunks) > 0
}

// String renders the diff in unified format with a/ and b/ headers.
func (d *Diff) String() string {
	if !d.HasChanges() {
		return ""
	}

	path := strings.TrimPrefix(d.Path, "/")

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", path, path)
	for _, h := range d.Hunks {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, l := range h.Lines {
			sb.WriteByte(l.Kind.prefix())
			sb.WriteString(l.Content)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// diffLines walks an LCS table and emits one DiffLine per input line.
func diffLines(oldLines, newLines []string) []DiffLine {
	rows, cols := len(oldLines), len(newLines)
	table := make([][]int, rows+1)
	for i := range table {
		table[i] = make([]int, cols+1)
	}
	for i := rows - 1; i >= 0; i-- {
		for j := cols - 1; j >= 0; j-- {
			if oldLines[i] == newLines[j] {
				table[i][j] = table[i+1][j+1] + 1
			} else {
				table[i][j] = max(table[i+1][j], table[i][j+1])
			}
		}
	}

	ops := make([]DiffLine, 0, rows+cols)
	i, j := 0, 0
	for i < rows && j < cols {
		switch {
		case oldLines[i] == newLines[j]:
			ops = append(ops, DiffLine{Kind: LineContext, Content: oldLines[i]})
			i++
			j++
		case table[i+1][j] >= table[i][j+1]:
			ops = append(ops, DiffLine{Kind: LineRemove, Content: oldLines[i]})
			i++
		default:
			ops = append(ops, DiffLine{Kind: LineAdd, Content: newLines[j]})
			j++
		}
	}
	for ; i < rows; i++ {
		ops = append(ops, DiffLine{Kind: LineRemove, Content: oldLines[i]})
	}
	for ; j < cols; j++ {
		ops = append(ops, DiffLine{Kind: LineAdd, Content: newLines[j]})
	}
	return ops
}

func groupHunks(ops []DiffLine) []Hunk {
	type span struct{ from, to int }

	var spans []span
	for idx, op := range ops {
		if op.Kind == LineContext {
			continue
		}
		from := max(0, idx-contextLines)
		to := min(len(ops), idx+contextLines+1)
		if n := len(spans); n > 0 && from <= spans[n-1].to {
			spans[n-1].to = to
			continue
		}
		spans = append(spans, span{from, to})
	}

	hunks := make([]Hunk, 0, len(spans))
	oldLine, newLine, cursor := 1, 1, 0
	for _, s := range spans {
		for ; cursor < s.from; cursor++ {
			oldLine, newLine = advance(ops[cursor].Kind, oldLine, newLine)
		}
		h := Hunk{OldStart: oldLine, NewStart: newLine}
		for ; cursor < s.to; cursor++ {
			h.append(ops[cursor])
			oldLine, newLine = advance(ops[cursor].Kind, oldLine, newLine)
		}
		hunks = append(hunks, h)
	}
	return hunks
}

func advance(kind LineKind, oldLine, newLine int) (int, int) {
	switch kind {
	case LineAdd:
		return oldLine, newLine + 1
	case LineRemove:
		return oldLine + 1, newLine
	default:
		return oldLine + 1, newLine + 1
	}
}

func (h *Hunk) append(l DiffLine) {
	h.Lines = append(h.Lines, l)
	switch l.Kind {
	case LineContext:
		h.OldCount++
		h.NewCount++
	case LineRemove:
		h.OldCount++
	case LineAdd:
		h.NewCount++
	}
}
