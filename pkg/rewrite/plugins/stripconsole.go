package plugins

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yaklabco/tsweave/pkg/quickcheck"
	"github.com/yaklabco/tsweave/pkg/rewrite"
	"github.com/yaklabco/tsweave/pkg/source"
)

// StripConsoleID is the identifier of the strip-console plugin.
const StripConsoleID = "strip-console"

var defaultConsoleMethods = []string{"log", "debug"}

// StripConsolePlugin removes console calls that stand alone as statements.
type StripConsolePlugin struct {
	rewrite.BasePlugin
	methods map[string]bool
}

// NewStripConsole creates the strip-console plugin. Option "methods" lists
// the console methods to remove, log and debug by default.
func NewStripConsole(opts rewrite.Options) (rewrite.Plugin, error) {
	methods := opts.StringSlice("methods", defaultConsoleMethods)
	if len(methods) == 0 {
		return nil, fmt.Errorf("%s: option methods is empty", StripConsoleID)
	}

	set := make(map[string]bool, len(methods))
	quoted := make([]string, 0, len(methods))
	for _, m := range methods {
		if set[m] {
			continue
		}
		set[m] = true
		quoted = append(quoted, regexp.QuoteMeta(m))
	}
	gate, err := quickcheck.Compile(`console\s*\??\.\s*(` + strings.Join(quoted, "|") + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StripConsoleID, err)
	}

	return &StripConsolePlugin{
		BasePlugin: rewrite.NewBasePlugin(StripConsoleID, gate),
		methods:    set,
	}, nil
}

// Transform removes each matching expression statement.
func (p *StripConsolePlugin) Transform(ctx *rewrite.Context) (*rewrite.Result, error) {
	res := &rewrite.Result{}
	u := ctx.Unit

	err := source.Walk(u.Tree.Root, func(n *source.Node) error {
		if ctx.Cancelled() {
			return ctx.Ctx.Err()
		}
		if n.Kind != "expression_statement" || !p.consoleCall(ctx, n) {
			return nil
		}
		res.Remove(n)
		return source.ErrSkipChildren
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StripConsoleID, err)
	}
	return res, nil
}

func (p *StripConsolePlugin) consoleCall(ctx *rewrite.Context, stmt *source.Node) bool {
	named := stmt.NamedChildren()
	if len(named) == 0 || named[0].Kind != "call_expression" {
		return false
	}
	callee := named[0].ChildByField("function")
	if callee == nil || callee.Kind != "member_expression" {
		return false
	}
	object := callee.ChildByField("object")
	property := callee.ChildByField("property")
	if object == nil || property == nil || object.Kind != source.KindIdentifier {
		return false
	}
	if object.Text(ctx.Unit) != "console" || !p.methods[property.Text(ctx.Unit)] {
		return false
	}
	_, local := ctx.Resolve(object.Range.Start)
	return !local
}
