package plugins

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/yaklabco/tsweave/pkg/quickcheck"
	"github.com/yaklabco/tsweave/pkg/rewrite"
	"github.com/yaklabco/tsweave/pkg/source"
)

// DefineID is the identifier of the define plugin.
const DefineID = "define"

// DefinePlugin replaces references to compile-time constants. A key is
// either an identifier (__DEV__) or a dotted member path
// (process.env.NODE_ENV); it only matches where its leading identifier is
// not declared in the unit.
type DefinePlugin struct {
	rewrite.BasePlugin
	values map[string]string
}

// NewDefine creates the define plugin. Option "values" maps keys to the
// replacement source text.
func NewDefine(opts rewrite.Options) (rewrite.Plugin, error) {
	values := opts.StringMap("values", nil)
	if len(values) == 0 {
		return nil, errors.New("define: option values is empty")
	}
	for key, value := range values {
		if !validPath(key) {
			return nil, fmt.Errorf("define: %q is not an identifier or member path", key)
		}
		if strings.Contains(value, key) {
			return nil, fmt.Errorf("define: value of %q refers to itself", key)
		}
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	return &DefinePlugin{
		BasePlugin: rewrite.NewBasePlugin(DefineID, quickcheck.Patterns(keys...)),
		values:     values,
	}, nil
}

func validPath(key string) bool {
	if key == "" {
		return false
	}
	for _, part := range strings.Split(key, ".") {
		if part == "" || strings.ContainsAny(part, " \t\n()[]{}'\"`;,") {
			return false
		}
	}
	return true
}

// Transform replaces every matching reference.
func (p *DefinePlugin) Transform(ctx *rewrite.Context) (*rewrite.Result, error) {
	res := &rewrite.Result{}
	u := ctx.Unit

	err := source.Walk(u.Tree.Root, func(n *source.Node) error {
		if ctx.Cancelled() {
			return ctx.Ctx.Err()
		}
		if n.Kind != source.KindIdentifier && n.Kind != "member_expression" {
			return nil
		}
		value, ok := p.values[n.Text(u)]
		if !ok || assigned(n) {
			return nil
		}
		root := n
		for root.Kind == "member_expression" {
			root = root.ChildByField("object")
			if root == nil {
				return nil
			}
		}
		if root.Kind != source.KindIdentifier {
			return nil
		}
		if _, local := ctx.Resolve(root.Range.Start); local {
			return nil
		}
		res.Replace(n, value)
		return source.ErrSkipChildren
	})
	if err != nil {
		return nil, fmt.Errorf("define: %w", err)
	}
	return res, nil
}

// assigned reports whether n is written to rather than read.
func assigned(n *source.Node) bool {
	if n.Parent == nil {
		return false
	}
	switch n.Parent.Kind {
	case "assignment_expression", "augmented_assignment_expression":
		return n.Field == "left"
	case "update_expression":
		return true
	}
	return false
}
