package plugins

import (
	"slices"
	"strings"

	"github.com/yaklabco/tsweave/pkg/imports"
	"github.com/yaklabco/tsweave/pkg/quickcheck"
	"github.com/yaklabco/tsweave/pkg/rewrite"
)

// RuntimeHelpersID is the identifier of the runtime-helpers plugin.
const RuntimeHelpersID = "runtime-helpers"

var runtimeHelpers = map[string]string{
	"__assign": `function __assign(target, ...sources) {
  for (const s of sources) {
    if (s != null) Object.assign(target, s);
  }
  return target;
}`,
	"__rest": `function __rest(source, exclude) {
  const out = {};
  for (const key of Object.keys(source)) {
    if (!exclude.includes(key)) out[key] = source[key];
  }
  return out;
}`,
	"__spread": `function __spread(...parts) {
  return [].concat(...parts.map((p) => Array.from(p)));
}`,
}

// RuntimeHelpersPlugin defines the helper functions that lowered code calls
// but does not declare.
type RuntimeHelpersPlugin struct {
	rewrite.BasePlugin
	module string
}

// NewRuntimeHelpers creates the runtime-helpers plugin. With option
// "module" set the helpers are imported from that module instead of being
// inlined.
func NewRuntimeHelpers(opts rewrite.Options) (rewrite.Plugin, error) {
	gate := make([]string, 0, len(runtimeHelpers))
	for name := range runtimeHelpers {
		gate = append(gate, name+"(")
	}
	slices.Sort(gate)
	return &RuntimeHelpersPlugin{
		BasePlugin: rewrite.NewBasePlugin(RuntimeHelpersID, quickcheck.Patterns(gate...)),
		module:     strings.TrimSpace(opts.String("module", "")),
	}, nil
}

// Transform adds every helper the unit calls without declaring it.
func (p *RuntimeHelpersPlugin) Transform(ctx *rewrite.Context) (*rewrite.Result, error) {
	var needed []string
	for _, ref := range ctx.Info().Unresolved() {
		if _, ok := runtimeHelpers[ref.Name]; ok && !slices.Contains(needed, ref.Name) {
			needed = append(needed, ref.Name)
		}
	}
	if len(needed) == 0 {
		return nil, nil
	}
	slices.Sort(needed)

	res := &rewrite.Result{}
	if p.module != "" {
		res.Import(imports.Intent{Dependency: p.module, Add: needed})
		return res, nil
	}
	for _, name := range needed {
		res.AddPrepend(runtimeHelpers[name])
	}
	return res, nil
}
