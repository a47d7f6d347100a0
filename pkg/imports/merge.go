package imports

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/yaklabco/tsweave/pkg/fix"
	"github.com/yaklabco/tsweave/pkg/source"
)

// ErrNotParsed is returned when Merge is given a unit without a current tree.
var ErrNotParsed = errors.New("unit is not parsed")

// Intent requests changes to the imports of one dependency.
type Intent struct {
	// Dependency is the module specifier, e.g. "react" or "./util".
	Dependency string

	// Add lists names to import. Entries may use "name as alias".
	Add []string

	// Remove lists names to drop, matched against exported and local names.
	Remove []string

	// Namespace requests `import * as Namespace from Dependency`.
	Namespace string
}

// Empty reports whether the intent asks for nothing.
func (i Intent) Empty() bool {
	return len(i.Add) == 0 && len(i.Remove) == 0 && i.Namespace == ""
}

// AliasConflictError reports two different namespace aliases requested for
// one dependency within a single pass.
type AliasConflictError struct {
	Dependency string
	First      string
	Second     string
}

func (e *AliasConflictError) Error() string {
	return fmt.Sprintf("conflicting namespace aliases for %q: %q and %q", e.Dependency, e.First, e.Second)
}

// MergeIntents folds intents targeting the same dependency into one, so the
// result does not depend on which intent asked first. The returned intents
// are ordered by dependency, with Add and Remove sorted and deduplicated.
func MergeIntents(intents []Intent) ([]Intent, error) {
	byDep := make(map[string]*Intent, len(intents))
	order := make([]string, 0, len(intents))

	for _, in := range intents {
		merged, ok := byDep[in.Dependency]
		if !ok {
			merged = &Intent{Dependency: in.Dependency}
			byDep[in.Dependency] = merged
			order = append(order, in.Dependency)
		}
		merged.Add = append(merged.Add, in.Add...)
		merged.Remove = append(merged.Remove, in.Remove...)

		if in.Namespace == "" {
			continue
		}
		if merged.Namespace != "" && merged.Namespace != in.Namespace {
			first, second := merged.Namespace, in.Namespace
			if second < first {
				first, second = second, first
			}
			return nil, &AliasConflictError{Dependency: in.Dependency, First: first, Second: second}
		}
		merged.Namespace = in.Namespace
	}

	slices.Sort(order)
	out := make([]Intent, 0, len(order))
	for _, dep := range order {
		in := byDep[dep]
		in.Add = sortedUnique(in.Add)
		in.Remove = sortedUnique(in.Remove)
		out = append(out, *in)
	}
	return out, nil
}

func sortedUnique(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := slices.Clone(names)
	slices.Sort(out)
	return slices.Compact(out)
}

// Merge computes the edits that bring the imports of intent.Dependency in u
// in line with intent.
//
// With no existing declaration the requested statements are inserted before
// the first statement. Otherwise the first non type-only declaration is
// rewritten to the union of all existing bindings plus Add minus Remove,
// sorted, and every other declaration is deleted. An empty intent yields no
// edits, and so does a merge that would reproduce the existing text.
func Merge(u *source.Unit, intent Intent) ([]fix.Replacement, error) {
	if intent.Empty() {
		return nil, nil
	}
	if !u.Parsed() {
		return nil, ErrNotParsed
	}

	var found []Declaration
	for _, d := range Find(u, intent.Dependency) {
		if !d.TypeOnly {
			found = append(found, d)
		}
	}

	if len(found) == 0 {
		b := binding{quote: '\''}
		if intent.Namespace != "" {
			b.namespaces = []string{intent.Namespace}
		}
		for _, name := range intent.Add {
			b.add(ParseSpecifier(name))
		}
		text := b.render(intent.Dependency)
		if text == "" {
			return nil, nil
		}
		return []fix.Replacement{fix.Insert(InsertionPoint(u), text+"\n")}, nil
	}

	b := collect(found, intent)
	text := b.render(intent.Dependency)

	edits := make([]fix.Replacement, 0, len(found))
	for i, d := range found {
		if i == 0 && text != "" {
			edits = append(edits, fix.Replace(d.Range.Start, d.Range.End, text))
			continue
		}
		edits = append(edits, fix.Delete(d.Range.Start, lineEnd(u.Text, d.Range.End)))
	}

	out, err := fix.Apply(u.Text, edits)
	if err != nil {
		return nil, err
	}
	if out == u.Text {
		return nil, nil
	}
	return edits, nil
}

// binding is the merged import state of one dependency.
type binding struct {
	defaults   []string
	namespaces []string
	named      []Specifier
	sideEffect bool
	quote      byte
}

func collect(found []Declaration, intent Intent) *binding {
	removed := make(map[string]bool, len(intent.Remove))
	for _, name := range intent.Remove {
		removed[name] = true
	}

	b := &binding{quote: found[0].Quote}
	for _, d := range found {
		if d.Default != "" && !removed[d.Default] && !slices.Contains(b.defaults, d.Default) {
			b.defaults = append(b.defaults, d.Default)
		}
		if d.Namespace != "" && intent.Namespace == "" && !slices.Contains(b.namespaces, d.Namespace) {
			b.namespaces = append(b.namespaces, d.Namespace)
		}
		for _, s := range d.Specifiers {
			if removed[s.Name] || removed[s.Local()] {
				continue
			}
			b.add(s)
		}
		if d.SideEffect() {
			b.sideEffect = true
		}
	}
	if intent.Namespace != "" {
		b.namespaces = []string{intent.Namespace}
	}
	for _, name := range intent.Add {
		b.add(ParseSpecifier(name))
	}

	slices.Sort(b.namespaces)
	return b
}

func (b *binding) add(s Specifier) {
	for _, have := range b.named {
		if have.String() == s.String() {
			return
		}
	}
	b.named = append(b.named, s)
}

// render produces the consolidated statements, namespace form first and
// named form second, joined by newlines. It returns "" when nothing is bound.
func (b *binding) render(dep string) string {
	from := " from " + string(b.quote) + dep + string(b.quote) + ";"

	var stmts []string
	for _, ns := range b.namespaces {
		stmts = append(stmts, "import * as "+ns+from)
	}

	named := make([]string, 0, len(b.named))
	for _, s := range b.named {
		named = append(named, s.String())
	}
	slices.Sort(named)

	var clause []string
	if len(b.defaults) > 0 {
		clause = append(clause, b.defaults[0])
	}
	if len(named) > 0 {
		clause = append(clause, "{ "+strings.Join(named, ", ")+" }")
	}
	if len(clause) > 0 {
		stmts = append(stmts, "import "+strings.Join(clause, ", ")+from)
	}
	if len(b.defaults) > 1 {
		for _, d := range b.defaults[1:] {
			stmts = append(stmts, "import "+d+from)
		}
	}

	if len(stmts) == 0 && b.sideEffect {
		stmts = append(stmts, "import "+string(b.quote)+dep+string(b.quote)+";")
	}
	return strings.Join(stmts, "\n")
}

// lineEnd extends a deletion over one trailing line break so removed
// declarations do not leave blank lines behind.
func lineEnd(text string, end int) int {
	if strings.HasPrefix(text[end:], "\r\n") {
		return end + 2
	}
	if strings.HasPrefix(text[end:], "\n") {
		return end + 1
	}
	return end
}
