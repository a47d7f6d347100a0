// Package rewrite coordinates ordered transformation plugins over a single
// source unit. After every plugin that changes the text the unit is
// re-parsed, and the semantic model is refreshed through an overlay before
// the next plugin asks for it.
package rewrite

import (
	"github.com/yaklabco/tsweave/pkg/quickcheck"
)

// Plugin is one transformation. Plugins hold no mutable state of their own;
// anything that must outlive a call belongs in the SharedContext.
type Plugin interface {
	// ID returns the unique identifier for this plugin (e.g., "define").
	ID() string

	// QuickCheck returns the pre-filter for the plugin. The coordinator
	// skips Transform on units the gate rejects.
	QuickCheck() quickcheck.Gate

	// Transform inspects the current unit and returns the edits it wants.
	//
	// Plugins must:
	//   - Reference nodes of ctx.Unit only, never of an earlier version.
	//   - Return a nil or empty Result when there is nothing to change.
	//   - Return an error only for internal failures.
	Transform(ctx *Context) (*Result, error)
}

// Analyzer is implemented by plugins that need a pre-pass over every unit
// before any unit is transformed, typically to collect data into the
// SharedContext that a later transform consumes.
type Analyzer interface {
	Analyze(ctx *Context) error
}

// BasePlugin provides the identity half of the Plugin interface.
// Embed it in plugin implementations and add Transform.
type BasePlugin struct {
	id   string
	gate quickcheck.Gate
}

// NewBasePlugin creates a BasePlugin with the given identifier and gate.
func NewBasePlugin(id string, gate quickcheck.Gate) BasePlugin {
	return BasePlugin{id: id, gate: gate}
}

// ID returns the unique identifier for this plugin.
func (p *BasePlugin) ID() string {
	return p.id
}

// QuickCheck returns the plugin's pre-filter.
func (p *BasePlugin) QuickCheck() quickcheck.Gate {
	return p.gate
}

// Func adapts a function to the Plugin interface.
type Func struct {
	BasePlugin
	fn func(ctx *Context) (*Result, error)
}

// PluginFunc returns a Plugin that runs fn.
func PluginFunc(id string, gate quickcheck.Gate, fn func(ctx *Context) (*Result, error)) *Func {
	return &Func{BasePlugin: NewBasePlugin(id, gate), fn: fn}
}

// Transform calls the wrapped function.
func (f *Func) Transform(ctx *Context) (*Result, error) {
	return f.fn(ctx)
}
