// Package fix provides byte ranges, replacements, and the algorithms that apply
// a set of replacements to a source text.
package fix

import "fmt"

// Range is a half-open byte interval [Start, End) into a source text.
type Range struct {
	// Start is the byte index where the range begins (inclusive).
	Start int

	// End is the byte index where the range ends (exclusive).
	End int
}

// Len returns the number of bytes covered by the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Empty reports whether the range covers no bytes (an insertion point).
func (r Range) Empty() bool {
	return r.Start == r.End
}

// Contains reports whether offset falls inside the range.
func (r Range) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// Overlaps reports whether r and other share at least one byte, or whether
// one of them is an insertion point strictly inside the other.
func (r Range) Overlaps(other Range) bool {
	first, second := r, other
	if second.Start < first.Start || (second.Start == first.Start && second.End < first.End) {
		first, second = second, first
	}
	return second.Start < first.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d:%d]", r.Start, r.End)
}

// Replacement substitutes the bytes covered by Range with NewText.
type Replacement struct {
	Range

	// NewText is the replacement text. Empty means deletion.
	NewText string
}

// Replace returns a replacement of bytes [start, end) with text.
func Replace(start, end int, text string) Replacement {
	return Replacement{Range: Range{Start: start, End: end}, NewText: text}
}

// Insert returns a replacement that inserts text at offset.
func Insert(offset int, text string) Replacement {
	return Replace(offset, offset, text)
}

// Delete returns a replacement that removes bytes [start, end).
func Delete(start, end int) Replacement {
	return Replace(start, end, "")
}

// EditBuilder accumulates replacements for a single text.
type EditBuilder struct {
	Edits []Replacement
}

// NewEditBuilder creates a new EditBuilder.
func NewEditBuilder() *EditBuilder {
	return &EditBuilder{
		Edits: make([]Replacement, 0),
	}
}

// ReplaceRange adds an edit that replaces bytes [start, end) with newText.
func (b *EditBuilder) ReplaceRange(start, end int, newText string) {
	b.Edits = append(b.Edits, Replace(start, end, newText))
}

// Insert adds an edit that inserts text at the given offset.
func (b *EditBuilder) Insert(offset int, text string) {
	b.ReplaceRange(offset, offset, text)
}

// Delete adds an edit that deletes bytes [start, end).
func (b *EditBuilder) Delete(start, end int) {
	b.ReplaceRange(start, end, "")
}

// Len returns the number of accumulated edits.
func (b *EditBuilder) Len() int {
	return len(b.Edits)
}
