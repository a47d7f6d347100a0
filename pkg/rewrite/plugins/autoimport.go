package plugins

import (
	"errors"
	"maps"
	"slices"

	"github.com/yaklabco/tsweave/pkg/imports"
	"github.com/yaklabco/tsweave/pkg/quickcheck"
	"github.com/yaklabco/tsweave/pkg/rewrite"
)

// AutoImportID is the identifier of the auto-import plugin.
const AutoImportID = "auto-import"

// AutoImportAddedKey is the SharedContext key under which auto-import
// counts the imports it added, as a map from name to count.
const AutoImportAddedKey = "auto-import/added"

// AutoImportPlugin imports names that a unit uses without declaring.
type AutoImportPlugin struct {
	rewrite.BasePlugin
	names map[string]string
}

// NewAutoImport creates the auto-import plugin. Option "names" maps a name
// to the module it is imported from.
func NewAutoImport(opts rewrite.Options) (rewrite.Plugin, error) {
	names := opts.StringMap("names", nil)
	if len(names) == 0 {
		return nil, errors.New("auto-import: option names is empty")
	}
	keys := slices.Sorted(maps.Keys(names))
	return &AutoImportPlugin{
		BasePlugin: rewrite.NewBasePlugin(AutoImportID, quickcheck.Patterns(keys...)),
		names:      names,
	}, nil
}

// Transform requests an import for every free reference to a known name.
func (p *AutoImportPlugin) Transform(ctx *rewrite.Context) (*rewrite.Result, error) {
	res := &rewrite.Result{}
	added := make(map[string]bool)
	for _, ref := range ctx.Info().Unresolved() {
		dep, ok := p.names[ref.Name]
		if !ok || added[ref.Name] {
			continue
		}
		added[ref.Name] = true
		res.Import(imports.Intent{Dependency: dep, Add: []string{ref.Name}})
	}
	if len(added) == 0 {
		return nil, nil
	}

	ctx.Shared.Update(AutoImportAddedKey, func(old any, _ bool) any {
		prev, _ := old.(map[string]int)
		next := make(map[string]int, len(prev)+len(added))
		maps.Copy(next, prev)
		for name := range added {
			next[name]++
		}
		return next
	})
	ctx.Logger.Debug("auto-import", "names", len(added))
	return res, nil
}
