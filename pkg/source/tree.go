package source

import (
	"errors"

	"github.com/yaklabco/tsweave/pkg/fix"
)

// Tree is the syntax tree of one unit version.
type Tree struct {
	// Root is the program node.
	Root *Node

	// Version is the unit version the tree was parsed from.
	Version int

	// HasErrors is set when the parser recovered from syntax errors.
	HasErrors bool
}

// Node is a syntax node. Nodes are produced by a Parser and are only
// meaningful against the unit version they were parsed from.
type Node struct {
	// Kind is the grammar node type, e.g. "import_statement".
	Kind string

	// Field is the name of the field this node occupies in its parent,
	// e.g. "source" or "alias", or empty.
	Field string

	// Range is the byte span of the node in the unit text.
	Range fix.Range

	// Named is false for anonymous tokens such as punctuation.
	Named bool

	// Version is the unit version the node belongs to.
	Version int

	Parent   *Node
	Children []*Node
}

// Text returns the source text of n within u.
func (n *Node) Text(u *Unit) string {
	return u.Slice(n.Range)
}

// ChildByField returns the first child occupying field, or nil.
func (n *Node) ChildByField(field string) *Node {
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// ChildOfKind returns the first child with the given kind, or nil.
func (n *Node) ChildOfKind(kind string) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// NamedChildren returns the named children of n.
func (n *Node) NamedChildren() []*Node {
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Named {
			out = append(out, c)
		}
	}
	return out
}

// Ancestor returns the closest ancestor with one of kinds, or nil.
func (n *Node) Ancestor(kinds ...string) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		for _, k := range kinds {
			if p.Kind == k {
				return p
			}
		}
	}
	return nil
}

// ErrSkipChildren can be returned from a WalkFunc to skip the children of
// the current node without stopping the walk.
var ErrSkipChildren = errors.New("skip children")

// WalkFunc is the function signature for Walk callbacks.
type WalkFunc func(n *Node) error

// Walk performs a pre-order traversal starting at root. A non-nil error
// other than ErrSkipChildren stops the walk and is returned.
func Walk(root *Node, fn WalkFunc) error {
	if root == nil {
		return nil
	}

	if err := fn(root); err != nil {
		if errors.Is(err, ErrSkipChildren) {
			return nil
		}
		return err
	}

	for _, child := range root.Children {
		if err := Walk(child, fn); err != nil {
			return err
		}
	}
	return nil
}

// NodeAt returns the smallest named node whose range contains offset.
func (t *Tree) NodeAt(offset int) *Node {
	if t == nil || t.Root == nil {
		return nil
	}
	cur := t.Root
	for {
		next := (*Node)(nil)
		for _, c := range cur.Children {
			if c.Named && c.Range.Start <= offset && offset < c.Range.End {
				next = c
				break
			}
		}
		if next == nil {
			return cur
		}
		cur = next
	}
}

// Statements returns the top-level statements of the tree, skipping comments.
func (t *Tree) Statements() []*Node {
	if t == nil || t.Root == nil {
		return nil
	}
	out := make([]*Node, 0, len(t.Root.Children))
	for _, c := range t.Root.Children {
		if c.Named && c.Kind != KindComment && c.Kind != KindHashBang {
			out = append(out, c)
		}
	}
	return out
}

// Grammar node kinds referenced outside the parser.
const (
	KindProgram         = "program"
	KindComment         = "comment"
	KindHashBang        = "hash_bang_line"
	KindImport          = "import_statement"
	KindImportClause    = "import_clause"
	KindNamedImports    = "named_imports"
	KindImportSpecifier = "import_specifier"
	KindNamespaceImport = "namespace_import"
	KindIdentifier      = "identifier"
	KindString          = "string"
	KindStringFragment  = "string_fragment"
)
