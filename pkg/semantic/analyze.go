package semantic

import (
	"slices"
	"unicode"
	"unicode/utf8"

	"github.com/yaklabco/tsweave/pkg/source"
)

// Analyze builds the symbol table of a parsed unit. Resolution is lexical:
// function scopes hoist var and function declarations, blocks scope let,
// const, and class. Names declared nowhere in the unit are free.
func Analyze(u *source.Unit) (*UnitInfo, error) {
	if !u.Parsed() {
		return nil, ErrNotParsed
	}

	a := &analyzer{
		unit:     u,
		declared: make(map[*source.Node]*Symbol),
		skip:     make(map[*source.Node]bool),
		owner:    make(map[*Symbol]*source.Node),
		info: &UnitInfo{
			ID:          u.ID,
			Version:     u.Version,
			Fingerprint: Fingerprint(u.Text),
			Exports:     make(map[string]*Symbol),
		},
	}
	a.visit(u.Tree.Root, nil)
	a.finish()
	return a.info, nil
}

type scope struct {
	parent   *scope
	function bool
	names    map[string]*Symbol
}

func newScope(parent *scope, function bool) *scope {
	return &scope{parent: parent, function: function, names: make(map[string]*Symbol)}
}

func (s *scope) lookup(name string) *Symbol {
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.names[name]; ok {
			return sym
		}
	}
	return nil
}

func (s *scope) functionScope() *scope {
	cur := s
	for !cur.function && cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

type pendingRef struct {
	node  *source.Node
	scope *scope
}

type localExport struct {
	exported string
	local    string
}

type analyzer struct {
	unit   *source.Unit
	info   *UnitInfo
	module *scope

	declared map[*source.Node]*Symbol
	skip     map[*source.Node]bool
	owner    map[*Symbol]*source.Node
	refs     []pendingRef
	locals   []localExport
}

func (a *analyzer) text(n *source.Node) string {
	return n.Text(a.unit)
}

func (a *analyzer) visit(n *source.Node, s *scope) {
	switch n.Kind {
	case source.KindProgram:
		s = newScope(nil, true)
		a.module = s

	case "function_declaration", "generator_function_declaration":
		a.declareName(n.ChildByField("name"), s, KindFunction, n)
		s = newScope(s, true)

	case "function_expression", "function", "generator_function":
		s = newScope(s, true)
		a.declareName(n.ChildByField("name"), s, KindFunction, nil)

	case "arrow_function", "method_definition":
		s = newScope(s, true)
		if p := n.ChildByField("parameter"); p != nil {
			a.declarePattern(p, s, KindParameter, nil)
		}

	case "class_declaration", "abstract_class_declaration":
		a.declareName(n.ChildByField("name"), s, KindClass, n)

	case "class":
		s = newScope(s, false)
		a.declareName(n.ChildByField("name"), s, KindClass, nil)

	case "statement_block", "for_statement", "class_body", "switch_body":
		s = newScope(s, false)

	case "for_in_statement":
		s = newScope(s, false)
		if n.ChildByField("kind") != nil {
			a.declarePattern(n.ChildByField("left"), s, KindVariable, nil)
		}

	case "catch_clause":
		s = newScope(s, false)
		if p := n.ChildByField("parameter"); p != nil {
			a.declarePattern(p, s, KindVariable, nil)
		}

	case "formal_parameters":
		for _, c := range n.NamedChildren() {
			switch c.Kind {
			case "required_parameter", "optional_parameter":
				a.declarePattern(c.ChildByField("pattern"), s, KindParameter, nil)
			default:
				a.declarePattern(c, s, KindParameter, nil)
			}
		}

	case "variable_declarator":
		target := s
		if n.Parent != nil && n.Parent.Kind == "variable_declaration" {
			target = s.functionScope()
		}
		a.declarePattern(n.ChildByField("name"), target, KindVariable, n.Parent)

	case "type_alias_declaration", "interface_declaration", "enum_declaration", "internal_module", "module":
		a.declareName(n.ChildByField("name"), s, KindType, n)

	case source.KindImport:
		a.importBindings(n, s)

	case "export_statement":
		a.exportStatement(n)

	case "labeled_statement", "break_statement", "continue_statement":
		if l := n.ChildByField("label"); l != nil {
			a.skip[l] = true
		}

	case "jsx_opening_element", "jsx_closing_element", "jsx_self_closing_element":
		if name := n.ChildByField("name"); name != nil && name.Kind == source.KindIdentifier && intrinsic(a.text(name)) {
			a.skip[name] = true
		}

	case source.KindIdentifier, "shorthand_property_identifier":
		if _, ok := a.declared[n]; !ok && !a.skip[n] {
			a.refs = append(a.refs, pendingRef{node: n, scope: s})
		}
	}

	for _, c := range n.Children {
		a.visit(c, s)
	}
}

// intrinsic reports whether a JSX tag name is a host element such as div.
func intrinsic(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsLower(r)
}

func (a *analyzer) declare(id *source.Node, s *scope, kind SymbolKind, owner *source.Node) *Symbol {
	sym := &Symbol{
		Name:   a.text(id),
		Kind:   kind,
		UnitID: a.unit.ID,
		Range:  id.Range,
	}
	a.declared[id] = sym
	a.info.Symbols = append(a.info.Symbols, sym)
	if owner != nil {
		a.owner[sym] = owner
	}
	if _, exists := s.names[sym.Name]; !exists {
		s.names[sym.Name] = sym
	}
	return sym
}

func (a *analyzer) declareName(id *source.Node, s *scope, kind SymbolKind, owner *source.Node) {
	if id == nil {
		return
	}
	switch id.Kind {
	case source.KindIdentifier, "type_identifier":
		a.declare(id, s, kind, owner)
	}
}

func (a *analyzer) declarePattern(p *source.Node, s *scope, kind SymbolKind, owner *source.Node) {
	if p == nil {
		return
	}
	switch p.Kind {
	case source.KindIdentifier, "shorthand_property_identifier_pattern":
		a.declare(p, s, kind, owner)
	case "object_pattern", "array_pattern", "rest_pattern":
		for _, c := range p.NamedChildren() {
			a.declarePattern(c, s, kind, owner)
		}
	case "pair_pattern":
		a.declarePattern(p.ChildByField("value"), s, kind, owner)
	case "assignment_pattern", "object_assignment_pattern":
		a.declarePattern(p.ChildByField("left"), s, kind, owner)
	}
}

// unquote strips matching quotes from a string literal. Identifiers are
// returned as is.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == s[len(s)-1] && (s[0] == '\'' || s[0] == '"' || s[0] == '`') {
		return s[1 : len(s)-1]
	}
	return s
}

func (a *analyzer) importBindings(n *source.Node, s *scope) {
	src := n.ChildByField("source")
	if src == nil {
		return
	}
	module := unquote(a.text(src))

	bind := func(id *source.Node, imported string) {
		sym := a.declare(id, s, KindImport, n)
		sym.Module = module
		sym.Imported = imported
	}

	clause := n.ChildOfKind(source.KindImportClause)
	if clause == nil {
		return
	}
	for _, c := range clause.Children {
		switch c.Kind {
		case source.KindIdentifier:
			bind(c, "default")
		case source.KindNamespaceImport:
			if id := c.ChildOfKind(source.KindIdentifier); id != nil {
				bind(id, "*")
			}
		case source.KindNamedImports:
			for _, spec := range c.Children {
				if spec.Kind != source.KindImportSpecifier {
					continue
				}
				name := spec.ChildByField("name")
				alias := spec.ChildByField("alias")
				if name == nil {
					continue
				}
				if alias == nil {
					bind(name, a.text(name))
					continue
				}
				a.skip[name] = true
				bind(alias, a.text(name))
			}
		}
	}
}

func (a *analyzer) exportStatement(n *source.Node) {
	src := n.ChildByField("source")
	module := ""
	if src != nil {
		module = unquote(a.text(src))
	}

	if v := n.ChildByField("value"); v != nil {
		if v.Kind == source.KindIdentifier {
			a.locals = append(a.locals, localExport{exported: "default", local: a.text(v)})
			return
		}
		a.info.Exports["default"] = &Symbol{Name: "default", Kind: KindValue, UnitID: a.unit.ID, Range: v.Range}
		return
	}

	if ns := n.ChildOfKind("namespace_export"); ns != nil {
		for _, c := range ns.NamedChildren() {
			a.skip[c] = true
			name := unquote(a.text(c))
			a.info.Exports[name] = &Symbol{Name: name, Kind: KindImport, UnitID: a.unit.ID, Range: c.Range, Module: module, Imported: "*"}
		}
		return
	}

	clause := n.ChildOfKind("export_clause")
	if clause == nil {
		if module != "" && n.ChildByField("declaration") == nil {
			a.info.StarExports = append(a.info.StarExports, module)
		}
		return
	}

	for _, spec := range clause.Children {
		if spec.Kind != "export_specifier" {
			continue
		}
		name := spec.ChildByField("name")
		if name == nil {
			continue
		}
		exported := a.text(name)
		if alias := spec.ChildByField("alias"); alias != nil {
			a.skip[alias] = true
			exported = unquote(a.text(alias))
		}
		if module != "" {
			a.skip[name] = true
			a.info.Exports[exported] = &Symbol{
				Name: exported, Kind: KindImport, UnitID: a.unit.ID, Range: name.Range,
				Module: module, Imported: unquote(a.text(name)),
			}
			continue
		}
		a.locals = append(a.locals, localExport{exported: exported, local: a.text(name)})
	}
}

func isDefaultExport(stmt *source.Node) bool {
	for _, c := range stmt.Children {
		if !c.Named && c.Kind == "default" {
			return true
		}
	}
	return false
}

func (a *analyzer) finish() {
	info := a.info

	for _, r := range a.refs {
		ref := Reference{Name: a.text(r.node), Range: r.node.Range, Symbol: r.scope.lookup(a.text(r.node))}
		info.References = append(info.References, ref)
		info.sites = append(info.sites, site{rng: ref.Range, sym: ref.Symbol})
	}
	for id, sym := range a.declared {
		info.sites = append(info.sites, site{rng: id.Range, sym: sym})
	}
	slices.SortFunc(info.sites, func(x, y site) int { return x.rng.Start - y.rng.Start })

	for _, sym := range info.Symbols {
		owner := a.owner[sym]
		if sym.Kind == KindImport || owner == nil || owner.Parent == nil || owner.Parent.Kind != "export_statement" {
			continue
		}
		if isDefaultExport(owner.Parent) {
			info.Exports["default"] = sym
			continue
		}
		info.Exports[sym.Name] = sym
	}
	for _, l := range a.locals {
		if sym := a.module.lookup(l.local); sym != nil {
			info.Exports[l.exported] = sym
		}
	}

	info.module = a.module.names
}
