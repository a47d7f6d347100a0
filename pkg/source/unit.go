// Package source provides the immutable source unit and syntax tree types
// shared by the parser, the semantic model, and the rewrite coordinator.
package source

import (
	"context"
	"sort"

	"github.com/yaklabco/tsweave/pkg/fix"
)

// Language marks the dialect a unit is parsed as.
type Language string

const (
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	JavaScript Language = "javascript"
	JSX        Language = "jsx"
)

// Valid reports whether l is one of the supported dialects.
func (l Language) Valid() bool {
	switch l {
	case TypeScript, TSX, JavaScript, JSX:
		return true
	}
	return false
}

// Unit is one module of source text. A Unit is never mutated: every edit
// produces a new Unit with a higher Version, and the Tree of a new text is
// attached with WithTree once it has been parsed.
type Unit struct {
	// ID is the stable identifier of the unit (normally its path).
	ID string

	// Text is the full source text.
	Text string

	// Language selects the grammar used to parse Text.
	Language Language

	// Version increases by one with every text change.
	Version int

	// Tree is the syntax tree of Text, or nil if not parsed yet.
	Tree *Tree

	// lineStarts holds the byte offset of each line start.
	lineStarts []int
}

// NewUnit creates version 1 of a unit.
func NewUnit(id, text string, lang Language) *Unit {
	return &Unit{
		ID:         id,
		Text:       text,
		Language:   lang,
		Version:    1,
		lineStarts: buildLineStarts(text),
	}
}

// WithText returns the next version of u holding text. The tree is dropped.
func (u *Unit) WithText(text string) *Unit {
	return &Unit{
		ID:         u.ID,
		Text:       text,
		Language:   u.Language,
		Version:    u.Version + 1,
		lineStarts: buildLineStarts(text),
	}
}

// WithVersion returns a copy of u carrying version. The tree is dropped
// because its nodes are stamped with the old version.
func (u *Unit) WithVersion(version int) *Unit {
	return &Unit{
		ID:         u.ID,
		Text:       u.Text,
		Language:   u.Language,
		Version:    version,
		lineStarts: u.lineStarts,
	}
}

// WithTree returns a copy of u with tree attached.
func (u *Unit) WithTree(tree *Tree) *Unit {
	clone := *u
	clone.Tree = tree
	return &clone
}

// Parsed reports whether u carries a tree that matches its current text.
func (u *Unit) Parsed() bool {
	return u.Tree != nil && u.Tree.Version == u.Version
}

// Slice returns the text covered by r.
func (u *Unit) Slice(r fix.Range) string {
	return u.Text[r.Start:r.End]
}

// LineAt converts a byte offset to 1-based line and column numbers.
// Column counts bytes. Returns (0, 0) if the offset is out of range.
func (u *Unit) LineAt(offset int) (int, int) {
	if offset < 0 || offset > len(u.Text) {
		return 0, 0
	}
	starts := u.starts()
	idx := sort.Search(len(starts), func(i int) bool {
		return starts[i] > offset
	}) - 1
	return idx + 1, offset - starts[idx] + 1
}

// LineCount returns the number of lines in the unit.
func (u *Unit) LineCount() int {
	return len(u.starts())
}

func (u *Unit) starts() []int {
	if u.lineStarts == nil {
		return buildLineStarts(u.Text)
	}
	return u.lineStarts
}

func buildLineStarts(text string) []int {
	starts := []int{0}
	for i := range len(text) {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// Parser turns a unit's text into a Tree.
//
// Implementations must be deterministic for a given (language, text) pair
// and safe for concurrent use.
type Parser interface {
	// Parse returns the tree of u.Text stamped with u.Version.
	Parse(ctx context.Context, u *Unit) (*Tree, error)
}

// Reparse parses u with p and returns u with the tree attached.
// A unit that is already parsed is returned as is.
func Reparse(ctx context.Context, p Parser, u *Unit) (*Unit, error) {
	if u.Parsed() {
		return u, nil
	}
	tree, err := p.Parse(ctx, u)
	if err != nil {
		return nil, err
	}
	return u.WithTree(tree), nil
}
