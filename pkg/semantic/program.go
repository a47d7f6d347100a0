package semantic

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yaklabco/tsweave/pkg/langdetect"
	"github.com/yaklabco/tsweave/pkg/source"
)

// Program is the base Model: every unit reachable from a set of roots,
// parsed and analyzed once. Units are read through a Loader and relative
// imports are followed transitively.
//
// Program is safe for concurrent reads. Add and Remove take a write lock.
type Program struct {
	parser source.Parser
	loader Loader

	mu      sync.RWMutex
	units   map[string]*source.Unit
	infos   map[string]*UnitInfo
	order   []string
	missing map[string]bool
}

// NewProgram creates an empty program.
func NewProgram(parser source.Parser, loader Loader) *Program {
	return &Program{
		parser:  parser,
		loader:  loader,
		units:   make(map[string]*source.Unit),
		infos:   make(map[string]*UnitInfo),
		missing: make(map[string]bool),
	}
}

// Load reads, parses, and analyzes roots and every unit they import by a
// relative specifier. Roots that cannot be read fail the load; unreachable
// imports are skipped and stay unresolved.
func (p *Program) Load(ctx context.Context, roots ...string) error {
	queue := append([]string(nil), roots...)
	prefetched := make(map[string]string)
	isRoot := make(map[string]bool, len(roots))
	for _, r := range roots {
		isRoot[r] = true
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := queue[0]
		queue = queue[1:]

		if p.has(id) {
			continue
		}

		text, ok := prefetched[id]
		if !ok {
			var err error
			if text, err = p.loader.Load(ctx, id); err != nil {
				if isRoot[id] {
					return err
				}
				continue
			}
		}
		delete(prefetched, id)

		lang, ok := langdetect.Detect(id, []byte(text))
		if !ok {
			lang = source.TypeScript
		}
		info, _, err := p.add(ctx, source.NewUnit(id, text, lang), nil)
		if err != nil {
			return err
		}

		for _, spec := range dependencies(info) {
			if dep, text, ok := p.locate(ctx, id, spec); ok {
				prefetched[dep] = text
				queue = append(queue, dep)
			}
		}
	}
	return nil
}

// locate finds the first candidate of spec the loader can read and returns
// its text. Specifiers that resolve to a known unit report false.
func (p *Program) locate(ctx context.Context, from, spec string) (string, string, bool) {
	candidates := ModuleCandidates(from, spec)
	for _, c := range candidates {
		if p.has(c) {
			return "", "", false
		}
	}
	for _, c := range candidates {
		p.mu.RLock()
		miss := p.missing[c]
		p.mu.RUnlock()
		if miss {
			continue
		}
		if text, err := p.loader.Load(ctx, c); err == nil {
			return c, text, true
		}
		p.mu.Lock()
		p.missing[c] = true
		p.mu.Unlock()
	}
	return "", "", false
}

func dependencies(info *UnitInfo) []string {
	var specs []string
	seen := make(map[string]bool)
	collect := func(spec string) {
		if spec != "" && Relative(spec) && !seen[spec] {
			seen[spec] = true
			specs = append(specs, spec)
		}
	}
	for _, s := range info.Symbols {
		if s.Kind == KindImport {
			collect(s.Module)
		}
	}
	for _, s := range info.Exports {
		if s.Kind == KindImport {
			collect(s.Module)
		}
	}
	for _, spec := range info.StarExports {
		collect(spec)
	}
	return specs
}

// Add parses and analyzes u and stores it, replacing any unit with the
// same ID. It is the host's way to feed in-memory text to the program.
func (p *Program) Add(ctx context.Context, u *source.Unit) (*UnitInfo, error) {
	info, _, err := p.add(ctx, u, nil)
	return info, err
}

// AddIf is Add with a guard: keep is called under the program lock right
// before the store, and u is dropped when it returns false. The bool
// reports whether u was stored.
func (p *Program) AddIf(ctx context.Context, u *source.Unit, keep func() bool) (*UnitInfo, bool, error) {
	return p.add(ctx, u, keep)
}

func (p *Program) add(ctx context.Context, u *source.Unit, keep func() bool) (*UnitInfo, bool, error) {
	u, err := source.Reparse(ctx, p.parser, u)
	if err != nil {
		return nil, false, err
	}
	info, err := Analyze(u)
	if err != nil {
		return nil, false, fmt.Errorf("analyze %s: %w", u.ID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if keep != nil && !keep() {
		return info, false, nil
	}
	if _, exists := p.units[u.ID]; !exists {
		p.order = append(p.order, u.ID)
	}
	p.units[u.ID] = u
	p.infos[u.ID] = info
	delete(p.missing, u.ID)
	return info, true, nil
}

// Remove drops id from the program.
func (p *Program) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.units[id]; !ok {
		return
	}
	delete(p.units, id)
	delete(p.infos, id)
	for i, o := range p.order {
		if o == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *Program) has(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.units[id]
	return ok
}

// Source returns the parsed unit stored under id.
func (p *Program) Source(id string) (*source.Unit, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.units[id]
	return u, ok
}

// Unit implements Model.
func (p *Program) Unit(id string) (*UnitInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	info, ok := p.infos[id]
	return info, ok
}

// ResolveModule implements Model.
func (p *Program) ResolveModule(from, spec string) (string, bool) {
	return resolveModule(from, spec, p.has)
}

// IDs implements Model.
func (p *Program) IDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.order...)
}

// Len returns the number of loaded units.
func (p *Program) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.units)
}

// IsNotFound reports whether err means a unit does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
