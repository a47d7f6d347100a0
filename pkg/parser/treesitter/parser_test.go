package treesitter

import (
	"context"
	"errors"
	"testing"

	"github.com/yaklabco/tsweave/pkg/source"
)

func TestParser_ParseImports(t *testing.T) {
	text := "// banner\nimport { b, a as c } from './dep';\nconst x = 1;\n"
	u := source.NewUnit("a.ts", text, source.TypeScript)

	tree, err := New().Parse(context.Background(), u)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if tree.Root.Kind != source.KindProgram {
		t.Fatalf("root kind = %q, want program", tree.Root.Kind)
	}
	if tree.Version != u.Version {
		t.Errorf("tree version = %d, want %d", tree.Version, u.Version)
	}
	if tree.HasErrors {
		t.Error("HasErrors = true for valid input")
	}

	stmts := tree.Statements()
	if len(stmts) != 2 {
		t.Fatalf("len(Statements()) = %d, want 2", len(stmts))
	}

	imp := stmts[0]
	if imp.Kind != source.KindImport {
		t.Fatalf("first statement kind = %q", imp.Kind)
	}

	src := imp.ChildByField("source")
	if src == nil {
		t.Fatal("import has no source field")
	}
	if got := src.Text(u); got != "'./dep'" {
		t.Errorf("source text = %q", got)
	}

	var aliases []string
	_ = source.Walk(imp, func(n *source.Node) error {
		if n.Kind == source.KindImportSpecifier {
			if alias := n.ChildByField("alias"); alias != nil {
				aliases = append(aliases, alias.Text(u))
			}
		}
		return nil
	})
	if len(aliases) != 1 || aliases[0] != "c" {
		t.Errorf("aliases = %v, want [c]", aliases)
	}
}

func TestParser_Grammars(t *testing.T) {
	tests := []struct {
		name string
		lang source.Language
		text string
	}{
		{"typescript", source.TypeScript, "let n: number = 1;"},
		{"tsx", source.TSX, "const el = <div className=\"a\" />;"},
		{"javascript", source.JavaScript, "export default function f() { return 1; }"},
		{"jsx", source.JSX, "const el = <App />;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := source.NewUnit("x", tt.text, tt.lang)
			tree, err := New().Parse(context.Background(), u)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if tree.HasErrors {
				t.Errorf("HasErrors = true for %q", tt.text)
			}
		})
	}
}

func TestParser_SyntaxErrorsDoNotFail(t *testing.T) {
	u := source.NewUnit("bad.ts", "const = ;", source.TypeScript)
	tree, err := New().Parse(context.Background(), u)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !tree.HasErrors {
		t.Error("HasErrors = false for invalid input")
	}
}

func TestParser_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Parse(ctx, source.NewUnit("a.ts", "x", source.TypeScript))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Parse() error = %v, want context.Canceled", err)
	}
}

func TestNodeAt(t *testing.T) {
	u := source.NewUnit("a.ts", "foo(bar);", source.TypeScript)
	tree, err := New().Parse(context.Background(), u)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	n := tree.NodeAt(5)
	if n == nil || n.Kind != source.KindIdentifier || n.Text(u) != "bar" {
		t.Errorf("NodeAt(5) = %+v", n)
	}
}
