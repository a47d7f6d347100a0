package rewrite

import (
	"github.com/yaklabco/tsweave/pkg/imports"
	"github.com/yaklabco/tsweave/pkg/source"
)

// Generator produces replacement text. It runs at apply time against the
// unit version the replacement is applied to.
type Generator func(u *source.Unit) string

// ReplacementIntent asks for the text of Node to be replaced.
type ReplacementIntent struct {
	Node     *source.Node
	Generate Generator

	// TrimLine removes the whole line when the generated text is empty and
	// the node is the only thing on it.
	TrimLine bool
}

// Result is what a plugin asks the coordinator to do.
type Result struct {
	Replacements []ReplacementIntent

	// Prepend blocks are inserted after the leading run of import
	// declarations, joined by newlines.
	Prepend []string

	Imports []imports.Intent
}

// Empty reports whether r asks for nothing.
func (r *Result) Empty() bool {
	return r == nil || (len(r.Replacements) == 0 && len(r.Prepend) == 0 && len(r.Imports) == 0)
}

// Replace adds a replacement of n with fixed text.
func (r *Result) Replace(n *source.Node, text string) {
	r.Replacements = append(r.Replacements, ReplacementIntent{
		Node:     n,
		Generate: func(*source.Unit) string { return text },
	})
}

// ReplaceFunc adds a replacement of n whose text is produced by gen.
func (r *Result) ReplaceFunc(n *source.Node, gen Generator) {
	r.Replacements = append(r.Replacements, ReplacementIntent{Node: n, Generate: gen})
}

// Remove deletes n, and its line when nothing else is on it.
func (r *Result) Remove(n *source.Node) {
	r.Replacements = append(r.Replacements, ReplacementIntent{
		Node:     n,
		Generate: func(*source.Unit) string { return "" },
		TrimLine: true,
	})
}

// AddPrepend adds a block to prepend.
func (r *Result) AddPrepend(block string) {
	r.Prepend = append(r.Prepend, block)
}

// Import adds an import intent.
func (r *Result) Import(intent imports.Intent) {
	r.Imports = append(r.Imports, intent)
}
