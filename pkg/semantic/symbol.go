// Package semantic provides symbol resolution over parsed source units: a
// per-unit scope analysis, a project-wide Program, and the Overlay that
// serves one edited unit on top of an already analyzed Program.
package semantic

import (
	"errors"
	"sort"

	"github.com/yaklabco/tsweave/pkg/fix"
)

// ErrNotParsed is returned when a unit without a current tree is analyzed.
var ErrNotParsed = errors.New("unit is not parsed")

// SymbolKind classifies a declaration.
type SymbolKind int

const (
	KindVariable SymbolKind = iota
	KindFunction
	KindClass
	KindParameter
	KindImport
	KindType
	KindValue
)

var kindNames = [...]string{"variable", "function", "class", "parameter", "import", "type", "value"}

func (k SymbolKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Symbol is a declared name.
type Symbol struct {
	// Name is the local name.
	Name string

	Kind SymbolKind

	// UnitID is the unit that declares the symbol.
	UnitID string

	// Range is the declaring identifier, or the exported expression for
	// KindValue.
	Range fix.Range

	// Module is the module specifier of an import or re-export.
	Module string

	// Imported is the name taken from Module: "default", "*" for a
	// namespace, or the exported name.
	Imported string
}

// Reference is one use of a name.
type Reference struct {
	Name  string
	Range fix.Range

	// Symbol is the resolved declaration, or nil for a free name.
	Symbol *Symbol
}

// UnitInfo is the analysis of one unit version.
type UnitInfo struct {
	ID          string
	Version     int
	Fingerprint uint64

	// Symbols lists every declaration in source order.
	Symbols []*Symbol

	// References lists every identifier use in source order.
	References []Reference

	// Exports maps exported names to their symbols.
	Exports map[string]*Symbol

	// StarExports lists modules re-exported with `export * from`.
	StarExports []string

	module map[string]*Symbol
	sites  []site
}

type site struct {
	rng fix.Range
	sym *Symbol
}

// SymbolAt returns the symbol declared or referenced by the identifier
// containing offset. The second result is false when offset is not on an
// identifier or the identifier is a free name.
func (i *UnitInfo) SymbolAt(offset int) (*Symbol, bool) {
	idx := sort.Search(len(i.sites), func(k int) bool {
		return i.sites[k].rng.Start > offset
	}) - 1
	if idx < 0 || !i.sites[idx].rng.Contains(offset) {
		return nil, false
	}
	s := i.sites[idx].sym
	return s, s != nil
}

// ModuleSymbol returns the top-level declaration of name.
func (i *UnitInfo) ModuleSymbol(name string) (*Symbol, bool) {
	s, ok := i.module[name]
	return s, ok
}

// Unresolved returns references to names with no declaration in the unit.
func (i *UnitInfo) Unresolved() []Reference {
	var out []Reference
	for _, r := range i.References {
		if r.Symbol == nil {
			out = append(out, r)
		}
	}
	return out
}

// Imports returns the import bindings of the unit in source order.
func (i *UnitInfo) Imports() []*Symbol {
	var out []*Symbol
	for _, s := range i.Symbols {
		if s.Kind == KindImport {
			out = append(out, s)
		}
	}
	return out
}

// ReferencesTo returns every reference resolved to sym.
func (i *UnitInfo) ReferencesTo(sym *Symbol) []Reference {
	var out []Reference
	for _, r := range i.References {
		if r.Symbol == sym {
			out = append(out, r)
		}
	}
	return out
}
