// Package imports locates and consolidates import declarations of a single
// dependency within a parsed source unit.
package imports

import (
	"strings"

	"github.com/yaklabco/tsweave/pkg/fix"
	"github.com/yaklabco/tsweave/pkg/source"
)

// Specifier is one entry of a named import list.
type Specifier struct {
	// Name is the exported name.
	Name string

	// Alias is the local binding, or empty when it equals Name.
	Alias string

	// TypeOnly marks `type Name` specifiers.
	TypeOnly bool
}

// Local returns the name bound in the importing unit.
func (s Specifier) Local() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

// String renders the specifier as it appears between braces.
func (s Specifier) String() string {
	var sb strings.Builder
	if s.TypeOnly {
		sb.WriteString("type ")
	}
	sb.WriteString(s.Name)
	if s.Alias != "" && s.Alias != s.Name {
		sb.WriteString(" as ")
		sb.WriteString(s.Alias)
	}
	return sb.String()
}

// ParseSpecifier reads "name" or "name as alias".
func ParseSpecifier(text string) Specifier {
	text = strings.TrimSpace(text)
	spec := Specifier{}
	if rest, ok := strings.CutPrefix(text, "type "); ok {
		spec.TypeOnly = true
		text = strings.TrimSpace(rest)
	}
	if name, alias, ok := strings.Cut(text, " as "); ok {
		spec.Name = strings.TrimSpace(name)
		spec.Alias = strings.TrimSpace(alias)
		if spec.Alias == spec.Name {
			spec.Alias = ""
		}
		return spec
	}
	spec.Name = text
	return spec
}

// Declaration is one top-level import statement of a dependency.
type Declaration struct {
	// Range spans the statement, including its semicolon.
	Range fix.Range

	// Default is the default binding, e.g. React in `import React from 'react'`.
	Default string

	// Namespace is the alias of `* as Namespace`, or empty.
	Namespace string

	// Specifiers are the named imports in source order.
	Specifiers []Specifier

	// TypeOnly marks `import type ...` statements, which are never rewritten.
	TypeOnly bool

	// Quote is the quote character of the module specifier.
	Quote byte
}

// SideEffect reports whether the declaration binds nothing (`import 'dep'`).
func (d Declaration) SideEffect() bool {
	return d.Default == "" && d.Namespace == "" && len(d.Specifiers) == 0
}

// Find returns every top-level import of dependency in u, in source order.
// u must be parsed.
func Find(u *source.Unit, dependency string) []Declaration {
	var out []Declaration
	for _, stmt := range u.Tree.Statements() {
		if stmt.Kind != source.KindImport {
			continue
		}
		src := stmt.ChildByField("source")
		if src == nil {
			continue
		}
		quoted := src.Text(u)
		if len(quoted) < 2 || quoted[1:len(quoted)-1] != dependency {
			continue
		}
		out = append(out, declaration(u, stmt, quoted[0]))
	}
	return out
}

func declaration(u *source.Unit, stmt *source.Node, quote byte) Declaration {
	decl := Declaration{Range: stmt.Range, Quote: quote}

	for _, c := range stmt.Children {
		if !c.Named && c.Kind == "type" {
			decl.TypeOnly = true
		}
	}

	clause := stmt.ChildOfKind(source.KindImportClause)
	if clause == nil {
		return decl
	}

	for _, c := range clause.Children {
		switch c.Kind {
		case source.KindIdentifier:
			decl.Default = c.Text(u)
		case source.KindNamespaceImport:
			if id := c.ChildOfKind(source.KindIdentifier); id != nil {
				decl.Namespace = id.Text(u)
			}
		case source.KindNamedImports:
			for _, s := range c.Children {
				if s.Kind != source.KindImportSpecifier {
					continue
				}
				decl.Specifiers = append(decl.Specifiers, specifier(u, s))
			}
		}
	}
	return decl
}

func specifier(u *source.Unit, n *source.Node) Specifier {
	spec := Specifier{}
	if name := n.ChildByField("name"); name != nil {
		spec.Name = name.Text(u)
	}
	if alias := n.ChildByField("alias"); alias != nil {
		spec.Alias = alias.Text(u)
	}
	for _, c := range n.Children {
		if !c.Named && c.Kind == "type" {
			spec.TypeOnly = true
		}
	}
	if spec.Alias == spec.Name {
		spec.Alias = ""
	}
	return spec
}

// InsertionPoint returns the offset before the first statement of u,
// which lies after any leading comments and hashbang line.
func InsertionPoint(u *source.Unit) int {
	if stmts := u.Tree.Statements(); len(stmts) > 0 {
		return stmts[0].Range.Start
	}
	end := 0
	for _, c := range u.Tree.Root.Children {
		if c.Kind == source.KindComment || c.Kind == source.KindHashBang {
			end = c.Range.End
		}
	}
	if end > 0 && end < len(u.Text) && u.Text[end] == '\n' {
		end++
	}
	return end
}

// HashBangEnd returns the offset past the hashbang line of u, including
// its newline, or 0 when u has none.
func HashBangEnd(u *source.Unit) int {
	for _, c := range u.Tree.Root.Children {
		if c.Kind != source.KindHashBang || c.Range.Start != 0 {
			continue
		}
		end := c.Range.End
		if end < len(u.Text) && u.Text[end] == '\n' {
			end++
		}
		return end
	}
	return 0
}

// LeadingImportsEnd returns the end offset of the contiguous run of import
// declarations at the top of u, or 0 when the first statement is not an
// import. Offsets point past the trailing newline of the last import.
func LeadingImportsEnd(u *source.Unit) int {
	end := 0
	for _, stmt := range u.Tree.Statements() {
		if stmt.Kind != source.KindImport {
			break
		}
		end = stmt.Range.End
	}
	if end > 0 && end < len(u.Text) && u.Text[end] == '\n' {
		end++
	}
	return end
}
