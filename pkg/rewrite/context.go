package rewrite

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/yaklabco/tsweave/pkg/semantic"
	"github.com/yaklabco/tsweave/pkg/source"
)

// Context is what a plugin sees of the unit it transforms.
//
// Context stores context.Context as a field because it is a short-lived
// parameter object created per plugin invocation.
type Context struct {
	// Ctx is the context for cancellation and timeouts.
	Ctx context.Context

	// Unit is the current version of the unit. Its tree is always current.
	Unit *source.Unit

	// Shared is the session-scoped store.
	Shared *SharedContext

	// Logger is scoped to the unit and plugin.
	Logger *log.Logger

	pass *pass
}

// Text returns the current text of the unit.
func (c *Context) Text() string {
	return c.Unit.Text
}

// Tree returns the current syntax tree of the unit.
func (c *Context) Tree() *source.Tree {
	return c.Unit.Tree
}

// Cancelled returns true if the context has been cancelled.
func (c *Context) Cancelled() bool {
	select {
	case <-c.Ctx.Done():
		return true
	default:
		return false
	}
}

// Model returns the semantic model with the current unit text overlaid.
// It is built on first use after each text change.
func (c *Context) Model() semantic.Model {
	m, _ := c.pass.semantic()
	return m
}

// Info returns the analysis of the current unit version.
func (c *Context) Info() *semantic.UnitInfo {
	_, info := c.pass.semantic()
	return info
}

// Resolve returns the symbol declared or referenced at offset.
func (c *Context) Resolve(offset int) (*semantic.Symbol, bool) {
	return c.Info().SymbolAt(offset)
}

// Trace resolves the name at offset and follows imports to the declaration.
func (c *Context) Trace(offset int) (*semantic.Symbol, bool) {
	return semantic.Trace(c.Model(), c.Unit.ID, offset)
}

// InPackage reports whether the name at offset is bound to module pkg.
func (c *Context) InPackage(offset int, pkg string) bool {
	return semantic.InPackage(c.Model(), c.Unit.ID, offset, pkg)
}

// UID returns a session-unique identifier starting with prefix.
func (c *Context) UID(prefix string) string {
	return c.Shared.UID(prefix)
}
