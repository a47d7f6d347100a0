// Package treesitter provides a source.Parser implementation backed by the
// tree-sitter TypeScript, TSX, and JavaScript grammars.
package treesitter

import (
	"context"
	"fmt"

	"fortio.org/safecast"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/yaklabco/tsweave/pkg/fix"
	"github.com/yaklabco/tsweave/pkg/source"
)

// Parser implements source.Parser using tree-sitter.
// A fresh sitter.Parser is created per call, so Parser is safe for
// concurrent use.
type Parser struct{}

// New creates a new tree-sitter parser.
func New() *Parser {
	return &Parser{}
}

// Parse converts u.Text into a source.Tree stamped with u.Version.
// Syntax errors do not fail the parse; they set Tree.HasErrors.
func (p *Parser) Parse(ctx context.Context, u *source.Unit) (*source.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse cancelled: %w", err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(grammar(u.Language))

	tree, err := parser.ParseCtx(ctx, nil, []byte(u.Text))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", u.ID, err)
	}

	root := tree.RootNode()
	cursor := sitter.NewTreeCursor(root)

	m := mapper{version: u.Version}
	node, err := m.build(cursor, nil)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", u.ID, err)
	}

	return &source.Tree{
		Root:      node,
		Version:   u.Version,
		HasErrors: root.HasError(),
	}, nil
}

func grammar(lang source.Language) *sitter.Language {
	switch lang {
	case source.TSX:
		return tsx.GetLanguage()
	case source.JavaScript, source.JSX:
		return javascript.GetLanguage()
	case source.TypeScript:
		return typescript.GetLanguage()
	default:
		return typescript.GetLanguage()
	}
}

type mapper struct {
	version int
}

// build converts the node under the cursor and its subtree. The cursor is
// left on the same node it started on.
func (m mapper) build(cursor *sitter.TreeCursor, parent *source.Node) (*source.Node, error) {
	sn := cursor.CurrentNode()

	start, err := safecast.Conv[int](sn.StartByte())
	if err != nil {
		return nil, err
	}
	end, err := safecast.Conv[int](sn.EndByte())
	if err != nil {
		return nil, err
	}

	node := &source.Node{
		Kind:    sn.Type(),
		Field:   cursor.CurrentFieldName(),
		Range:   fix.Range{Start: start, End: end},
		Named:   sn.IsNamed() && !sn.IsMissing(),
		Version: m.version,
		Parent:  parent,
	}

	if cursor.GoToFirstChild() {
		for {
			child, err := m.build(cursor, node)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
			if !cursor.GoToNextSibling() {
				break
			}
		}
		cursor.GoToParent()
	}

	return node, nil
}
