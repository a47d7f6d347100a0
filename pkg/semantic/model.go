package semantic

import (
	"path"
	"strings"
)

// Model answers symbol queries across units.
type Model interface {
	// Unit returns the analysis of id.
	Unit(id string) (*UnitInfo, bool)

	// ResolveModule maps a module specifier used in unit from to the ID of
	// a known unit. Bare package specifiers never resolve.
	ResolveModule(from, spec string) (string, bool)

	// IDs lists the known units in load order.
	IDs() []string
}

// moduleExtensions are tried in order when a relative specifier omits one.
var moduleExtensions = []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"}

// Relative reports whether spec names a unit rather than a package.
func Relative(spec string) bool {
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || strings.HasPrefix(spec, "/")
}

// ModuleCandidates returns the unit IDs a relative specifier may refer to,
// most specific first.
func ModuleCandidates(from, spec string) []string {
	if !Relative(spec) {
		return nil
	}
	base := spec
	if !strings.HasPrefix(spec, "/") {
		base = path.Join(path.Dir(from), spec)
	}

	out := []string{base}
	// ESM TypeScript imports name the emitted file, e.g. './x.js' for x.ts.
	if ext := path.Ext(base); ext == ".js" || ext == ".jsx" || ext == ".mjs" || ext == ".cjs" {
		stem := strings.TrimSuffix(base, ext)
		out = append(out, stem+strings.Replace(ext, "j", "t", 1))
	}
	for _, ext := range moduleExtensions {
		out = append(out, base+ext)
	}
	for _, ext := range moduleExtensions {
		out = append(out, base+"/index"+ext)
	}
	return out
}

func resolveModule(from, spec string, known func(string) bool) (string, bool) {
	for _, c := range ModuleCandidates(from, spec) {
		if known(c) {
			return c, true
		}
	}
	return "", false
}

// Resolve returns the symbol declared or referenced at offset in unit id.
func Resolve(m Model, id string, offset int) (*Symbol, bool) {
	info, ok := m.Unit(id)
	if !ok {
		return nil, false
	}
	return info.SymbolAt(offset)
}

// maxTraceDepth bounds alias chains so cyclic re-exports terminate.
const maxTraceDepth = 32

// Trace resolves the name at offset in unit id and follows import and
// re-export bindings to the declaring unit. When a binding leaves the known
// units, as imports of packages do, the last binding is returned.
func Trace(m Model, id string, offset int) (*Symbol, bool) {
	sym, ok := Resolve(m, id, offset)
	if !ok {
		return nil, false
	}
	return Follow(m, sym), true
}

// Follow walks sym through import bindings to its declaration.
func Follow(m Model, sym *Symbol) *Symbol {
	for range maxTraceDepth {
		if sym.Kind != KindImport || sym.Imported == "*" {
			return sym
		}
		target, ok := m.ResolveModule(sym.UnitID, sym.Module)
		if !ok {
			return sym
		}
		next, ok := exportOf(m, target, sym.Imported, 0)
		if !ok {
			return sym
		}
		sym = next
	}
	return sym
}

func exportOf(m Model, id, name string, depth int) (*Symbol, bool) {
	if depth > maxTraceDepth {
		return nil, false
	}
	info, ok := m.Unit(id)
	if !ok {
		return nil, false
	}
	if sym, ok := info.Exports[name]; ok {
		return sym, true
	}
	if name == "default" {
		return nil, false
	}
	for _, spec := range info.StarExports {
		target, ok := m.ResolveModule(id, spec)
		if !ok {
			continue
		}
		if sym, ok := exportOf(m, target, name, depth+1); ok {
			return sym, true
		}
	}
	return nil, false
}

// InPackage reports whether the name at offset in unit id is bound to
// module pkg, either directly by an import of pkg or by a chain of
// re-exports ending in an import of pkg or in a unit whose ID contains pkg.
func InPackage(m Model, id string, offset int, pkg string) bool {
	sym, ok := Resolve(m, id, offset)
	if !ok {
		return false
	}
	if sym.Kind == KindImport && sym.Module == pkg {
		return true
	}
	traced := Follow(m, sym)
	if traced.Kind == KindImport && traced.Module == pkg {
		return true
	}
	return traced != sym && strings.Contains(traced.UnitID, pkg)
}
