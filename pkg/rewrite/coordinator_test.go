package rewrite_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yaklabco/tsweave/pkg/fix"
	"github.com/yaklabco/tsweave/pkg/imports"
	"github.com/yaklabco/tsweave/pkg/parser/treesitter"
	"github.com/yaklabco/tsweave/pkg/quickcheck"
	"github.com/yaklabco/tsweave/pkg/rewrite"
	"github.com/yaklabco/tsweave/pkg/semantic"
	"github.com/yaklabco/tsweave/pkg/source"
)

func newUnit(text string) *source.Unit {
	return source.NewUnit("src/app.ts", text, source.TypeScript)
}

func run(t *testing.T, text string, plugins ...rewrite.Plugin) (*rewrite.UnitResult, error) {
	t.Helper()
	c := rewrite.NewCoordinator(treesitter.New())
	return c.TransformUnit(context.Background(), newUnit(text), plugins, rewrite.NewSharedContext(), nil)
}

func mustRun(t *testing.T, text string, plugins ...rewrite.Plugin) *rewrite.UnitResult {
	t.Helper()
	res, err := run(t, text, plugins...)
	if err != nil {
		t.Fatalf("TransformUnit() error = %v", err)
	}
	return res
}

// identifiers returns every identifier node spelled name.
func identifiers(u *source.Unit, name string) []*source.Node {
	var out []*source.Node
	_ = source.Walk(u.Tree.Root, func(n *source.Node) error {
		if n.Kind == source.KindIdentifier && n.Text(u) == name {
			out = append(out, n)
		}
		return nil
	})
	return out
}

func importPlugin(id string, intent imports.Intent) rewrite.Plugin {
	return rewrite.PluginFunc(id, quickcheck.Always, func(*rewrite.Context) (*rewrite.Result, error) {
		return &rewrite.Result{Imports: []imports.Intent{intent}}, nil
	})
}

// replaceIdent replaces every identifier spelled from with to.
func replaceIdent(id, from, to string) rewrite.Plugin {
	return rewrite.PluginFunc(id, quickcheck.Patterns(from), func(ctx *rewrite.Context) (*rewrite.Result, error) {
		res := &rewrite.Result{}
		for _, n := range identifiers(ctx.Unit, from) {
			res.Replace(n, to)
		}
		return res, nil
	})
}

func TestTransformUnit_Examples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		intent  imports.Intent
		want    string
		changed bool
	}{
		{
			name:    "adds import before first statement",
			input:   "const x = 1;",
			intent:  imports.Intent{Dependency: "bar", Add: []string{"foo"}},
			want:    "import { foo } from 'bar';\nconst x = 1;",
			changed: true,
		},
		{
			name:    "merges add and remove",
			input:   "import { a } from 'bar';\n",
			intent:  imports.Intent{Dependency: "bar", Add: []string{"b"}, Remove: []string{"a"}},
			want:    "import { b } from 'bar';\n",
			changed: true,
		},
		{
			name:    "empty intent leaves duplicates alone",
			input:   "import { x } from 'pkg';\nimport { x } from 'pkg';\nx;\n",
			intent:  imports.Intent{Dependency: "pkg"},
			want:    "import { x } from 'pkg';\nimport { x } from 'pkg';\nx;\n",
			changed: false,
		},
		{
			name:    "real intent collapses duplicates",
			input:   "import { x } from 'pkg';\nimport { x } from 'pkg';\nx;\n",
			intent:  imports.Intent{Dependency: "pkg", Add: []string{"x"}},
			want:    "import { x } from 'pkg';\nx;\n",
			changed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := mustRun(t, tt.input, importPlugin("imports", tt.intent))
			if res.Text != tt.want {
				t.Errorf("Text = %q, want %q", res.Text, tt.want)
			}
			if res.Changed != tt.changed {
				t.Errorf("Changed = %v, want %v", res.Changed, tt.changed)
			}
			if !res.Unit.Parsed() {
				t.Error("final unit is not parsed")
			}
		})
	}
}

func TestTransformUnit_OverlappingReplacements(t *testing.T) {
	t.Parallel()

	overlap := rewrite.PluginFunc("overlap", quickcheck.Always, func(ctx *rewrite.Context) (*rewrite.Result, error) {
		stmt := ctx.Tree().Statements()[0]
		x := identifiers(ctx.Unit, "x")[0]
		res := &rewrite.Result{}
		res.Replace(stmt, "let y = 2;")
		res.Replace(x, "z")
		return res, nil
	})

	_, err := run(t, "const x = 1;\n", overlap)

	pe, ok := rewrite.AsPluginError(err)
	if !ok {
		t.Fatalf("error = %v, want *PluginError", err)
	}
	if pe.PluginID != "overlap" || pe.Kind != rewrite.KindMalformed {
		t.Errorf("PluginError = %+v", pe)
	}
	var conflict *fix.ConflictError
	if !errors.As(err, &conflict) {
		t.Errorf("error chain has no ConflictError: %v", err)
	}
	if !rewrite.IsContractViolation(err) {
		t.Error("IsContractViolation() = false")
	}
}

func TestTransformUnit_StaleNode(t *testing.T) {
	t.Parallel()

	var captured *source.Node
	first := rewrite.PluginFunc("first", quickcheck.Always, func(ctx *rewrite.Context) (*rewrite.Result, error) {
		captured = identifiers(ctx.Unit, "x")[0]
		return &rewrite.Result{Prepend: []string{"const y = 0;"}}, nil
	})
	second := rewrite.PluginFunc("second", quickcheck.Always, func(*rewrite.Context) (*rewrite.Result, error) {
		res := &rewrite.Result{}
		res.Replace(captured, "z")
		return res, nil
	})

	_, err := run(t, "const x = 1;\n", first, second)

	if !errors.Is(err, rewrite.ErrStaleNode) {
		t.Fatalf("error = %v, want ErrStaleNode", err)
	}
	pe, _ := rewrite.AsPluginError(err)
	if pe.PluginID != "second" || pe.Kind != rewrite.KindMalformed {
		t.Errorf("PluginError = %+v", pe)
	}
}

func TestTransformUnit_ImportConflict(t *testing.T) {
	t.Parallel()

	conflicting := rewrite.PluginFunc("ns", quickcheck.Always, func(*rewrite.Context) (*rewrite.Result, error) {
		return &rewrite.Result{Imports: []imports.Intent{
			{Dependency: "lib", Namespace: "a"},
			{Dependency: "lib", Namespace: "b"},
		}}, nil
	})

	_, err := run(t, "x;\n", conflicting)

	pe, ok := rewrite.AsPluginError(err)
	if !ok || pe.Kind != rewrite.KindImportConflict || pe.PluginID != "ns" {
		t.Fatalf("error = %v, want import conflict from ns", err)
	}
	var alias *imports.AliasConflictError
	if !errors.As(err, &alias) || alias.Dependency != "lib" {
		t.Errorf("error chain has no AliasConflictError for lib: %v", err)
	}
}

func TestTransformUnit_TransformFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	calls := 0
	failing := rewrite.PluginFunc("failing", quickcheck.Always, func(*rewrite.Context) (*rewrite.Result, error) {
		return nil, boom
	})
	panicking := rewrite.PluginFunc("panicking", quickcheck.Always, func(*rewrite.Context) (*rewrite.Result, error) {
		panic("bad plugin")
	})
	after := rewrite.PluginFunc("after", quickcheck.Always, func(*rewrite.Context) (*rewrite.Result, error) {
		calls++
		return nil, nil
	})

	_, err := run(t, "x;\n", failing, after)
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}
	if pe, _ := rewrite.AsPluginError(err); pe == nil || pe.Kind != rewrite.KindTransform {
		t.Errorf("error kind = %v, want transform", err)
	}
	if rewrite.IsContractViolation(err) {
		t.Error("transform failure reported as contract violation")
	}
	if calls != 0 {
		t.Error("plugin after a failure was run")
	}

	_, err = run(t, "x;\n", panicking)
	if !errors.Is(err, rewrite.ErrPluginPanic) {
		t.Errorf("error = %v, want ErrPluginPanic", err)
	}
}

func TestTransformUnit_IncompleteReplacement(t *testing.T) {
	t.Parallel()

	bad := rewrite.PluginFunc("bad", quickcheck.Always, func(*rewrite.Context) (*rewrite.Result, error) {
		return &rewrite.Result{Replacements: []rewrite.ReplacementIntent{{}}}, nil
	})

	_, err := run(t, "x;\n", bad)
	if !errors.Is(err, rewrite.ErrIncompleteReplacement) {
		t.Errorf("error = %v, want ErrIncompleteReplacement", err)
	}
}

func TestTransformUnit_CategoryOrder(t *testing.T) {
	t.Parallel()

	all := rewrite.PluginFunc("all", quickcheck.Always, func(ctx *rewrite.Context) (*rewrite.Result, error) {
		res := &rewrite.Result{}
		x := identifiers(ctx.Unit, "x")[0]
		res.ReplaceFunc(x, func(u *source.Unit) string {
			return "wrap(" + x.Text(u) + ")"
		})
		res.AddPrepend("function wrap(v) { return v; }")
		res.Import(imports.Intent{Dependency: "a", Add: []string{"c"}})
		return res, nil
	})

	res := mustRun(t, "import { a } from 'a';\nconst y = x;\n", all)

	want := "import { a, c } from 'a';\nfunction wrap(v) { return v; }\nconst y = wrap(x);\n"
	if res.Text != want {
		t.Errorf("Text = %q, want %q", res.Text, want)
	}
	if res.Stats.Reparses != 4 {
		t.Errorf("Reparses = %d, want 4", res.Stats.Reparses)
	}
}

func TestTransformUnit_PrependWithoutImports(t *testing.T) {
	t.Parallel()

	p := rewrite.PluginFunc("prepend", quickcheck.Always, func(*rewrite.Context) (*rewrite.Result, error) {
		return &rewrite.Result{Prepend: []string{"const a = 1;", "const b = 2;\n"}}, nil
	})

	res := mustRun(t, "use(a, b);\n", p)
	if want := "const a = 1;\nconst b = 2;\nuse(a, b);\n"; res.Text != want {
		t.Errorf("Text = %q, want %q", res.Text, want)
	}

	res = mustRun(t, "import a from 'a';", p)
	if want := "import a from 'a';\nconst a = 1;\nconst b = 2;\n"; res.Text != want {
		t.Errorf("Text = %q, want %q", res.Text, want)
	}
}

func TestTransformUnit_PrependAfterHashBang(t *testing.T) {
	t.Parallel()

	p := rewrite.PluginFunc("prepend", quickcheck.Always, func(*rewrite.Context) (*rewrite.Result, error) {
		return &rewrite.Result{Prepend: []string{"const h = 1;"}}, nil
	})

	tests := []struct {
		name, text, want string
	}{
		{
			name: "statements",
			text: "#!/usr/bin/env node\nconsole.log(1);\n",
			want: "#!/usr/bin/env node\nconst h = 1;\nconsole.log(1);\n",
		},
		{
			name: "hashbang only",
			text: "#!/usr/bin/env node",
			want: "#!/usr/bin/env node\nconst h = 1;\n",
		},
		{
			name: "imports",
			text: "#!/usr/bin/env node\nimport a from 'a';\na();\n",
			want: "#!/usr/bin/env node\nimport a from 'a';\nconst h = 1;\na();\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if res := mustRun(t, tt.text, p); res.Text != tt.want {
				t.Errorf("Text = %q, want %q", res.Text, tt.want)
			}
		})
	}
}

func TestTransformUnit_LaterPluginSeesFreshModel(t *testing.T) {
	t.Parallel()

	inject := rewrite.PluginFunc("inject", quickcheck.Always, func(*rewrite.Context) (*rewrite.Result, error) {
		return &rewrite.Result{Prepend: []string{"const injected = 1;"}}, nil
	})

	var kind semantic.SymbolKind
	var found bool
	var declaredAt int
	inspect := rewrite.PluginFunc("inspect", quickcheck.Always, func(ctx *rewrite.Context) (*rewrite.Result, error) {
		offset := strings.Index(ctx.Text(), "injected)")
		sym, ok := ctx.Resolve(offset)
		found = ok
		if ok {
			kind = sym.Kind
			declaredAt = sym.Range.Start
		}
		return nil, nil
	})

	res := mustRun(t, "use(injected);\n", inject, inspect)

	if !found {
		t.Fatal("inspect did not resolve the injected declaration")
	}
	if kind != semantic.KindVariable {
		t.Errorf("kind = %v, want variable", kind)
	}
	if want := strings.Index(res.Text, "injected"); declaredAt != want {
		t.Errorf("declared at %d, want %d", declaredAt, want)
	}
	if res.Stats.Overlays != 1 {
		t.Errorf("Overlays = %d, want 1", res.Stats.Overlays)
	}
}

func TestTransformUnit_ModelAcrossUnits(t *testing.T) {
	t.Parallel()

	files := semantic.MapLoader{
		"src/app.ts":   "import { flag } from './flags';\nif (flag) {}\n",
		"src/flags.ts": "export const flag = true;\n",
	}
	program := semantic.NewProgram(treesitter.New(), files)
	if err := program.Load(context.Background(), "src/app.ts"); err != nil {
		t.Fatal(err)
	}

	var declaredIn string
	trace := rewrite.PluginFunc("trace", quickcheck.Always, func(ctx *rewrite.Context) (*rewrite.Result, error) {
		if sym, ok := ctx.Trace(strings.Index(ctx.Text(), "flag)")); ok {
			declaredIn = sym.UnitID
		}
		return nil, nil
	})

	c := rewrite.NewCoordinator(treesitter.New())
	unit, _ := program.Source("src/app.ts")
	res, err := c.TransformUnit(context.Background(), unit, []rewrite.Plugin{trace}, nil, program)
	if err != nil {
		t.Fatal(err)
	}
	if declaredIn != "src/flags.ts" {
		t.Errorf("traced to %q, want src/flags.ts", declaredIn)
	}
	if res.Stats.Overlays != 0 {
		t.Errorf("Overlays = %d, want 0 for an unchanged unit", res.Stats.Overlays)
	}
}

func TestTransformUnit_QuickCheckSoundness(t *testing.T) {
	t.Parallel()

	text := "const x = 1;\n"
	calls := 0
	gated := rewrite.PluginFunc("gated", quickcheck.Patterns("__DEV__"), func(*rewrite.Context) (*rewrite.Result, error) {
		calls++
		return &rewrite.Result{}, nil
	})
	ungated := rewrite.PluginFunc("ungated", quickcheck.Always, func(*rewrite.Context) (*rewrite.Result, error) {
		return &rewrite.Result{}, nil
	})
	tail := importPlugin("tail", imports.Intent{Dependency: "z", Add: []string{"q"}})

	skipped := mustRun(t, text, gated, tail)
	ran := mustRun(t, text, ungated, tail)

	if calls != 0 {
		t.Error("gated plugin was called")
	}
	if skipped.Text != ran.Text || skipped.Changed != ran.Changed {
		t.Errorf("skipping changed the result: %q vs %q", skipped.Text, ran.Text)
	}
	if skipped.Stats.PluginsSkipped != 1 {
		t.Errorf("PluginsSkipped = %d, want 1", skipped.Stats.PluginsSkipped)
	}
}

func TestTransformUnit_Idempotent(t *testing.T) {
	t.Parallel()

	plugins := []rewrite.Plugin{
		replaceIdent("define", "__DEV__", "false"),
		importPlugin("imports", imports.Intent{Dependency: "lib", Add: []string{"b", "a"}}),
		importPlugin("ns", imports.Intent{Dependency: "ns-lib", Namespace: "ns"}),
	}

	first := mustRun(t, "if (__DEV__) { log(); }\n", plugins...)
	if !first.Changed {
		t.Fatal("first pass changed nothing")
	}
	second := mustRun(t, first.Text, plugins...)
	if second.Changed {
		t.Errorf("second pass changed the text:\n%s\n->\n%s", first.Text, second.Text)
	}
}

func TestTransformUnit_ImportDeterminism(t *testing.T) {
	t.Parallel()

	p1 := importPlugin("p1", imports.Intent{Dependency: "lib", Add: []string{"zeta", "alpha"}})
	p2 := importPlugin("p2", imports.Intent{Dependency: "lib", Add: []string{"mid"}, Remove: []string{"old"}})
	p3 := importPlugin("p3", imports.Intent{Dependency: "lib", Add: []string{"beta"}})

	input := "import { old } from 'lib';\nrun();\n"
	orders := [][]rewrite.Plugin{{p1, p2, p3}, {p3, p2, p1}, {p2, p1, p3}}

	var want string
	for i, order := range orders {
		res := mustRun(t, input, order...)
		if i == 0 {
			want = res.Text
			continue
		}
		if res.Text != want {
			t.Errorf("order %d: %q, want %q", i, res.Text, want)
		}
	}
	if !strings.HasPrefix(want, "import { alpha, beta, mid, zeta } from 'lib';") {
		t.Errorf("merged import = %q", want)
	}
}

func TestTransformUnit_RemoveTrimsLine(t *testing.T) {
	t.Parallel()

	strip := rewrite.PluginFunc("strip", quickcheck.Always, func(ctx *rewrite.Context) (*rewrite.Result, error) {
		res := &rewrite.Result{}
		for _, stmt := range ctx.Tree().Statements() {
			if strings.HasPrefix(stmt.Text(ctx.Unit), "debug(") {
				res.Remove(stmt)
			}
		}
		return res, nil
	})

	res := mustRun(t, "a();\n  debug(1);\nb(); debug(2);\n", strip)
	if want := "a();\nb(); \n"; res.Text != want {
		t.Errorf("Text = %q, want %q", res.Text, want)
	}
}

func TestTransformUnit_NoPlugins(t *testing.T) {
	t.Parallel()

	res := mustRun(t, "const x = 1;\n")
	if res.Changed || res.Text != "const x = 1;\n" {
		t.Errorf("result = %+v", res)
	}
	if res.Tree() == nil {
		t.Error("Tree() = nil")
	}
}

func TestTransformUnit_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := rewrite.NewCoordinator(treesitter.New())
	_, err := c.TransformUnit(ctx, newUnit("x;\n"), []rewrite.Plugin{replaceIdent("r", "x", "y")}, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

type collector struct {
	rewrite.BasePlugin
}

func (c *collector) Analyze(ctx *rewrite.Context) error {
	ctx.Shared.Update("units", func(old any, _ bool) any {
		n, _ := old.(int)
		return n + 1
	})
	return nil
}

func (c *collector) Transform(*rewrite.Context) (*rewrite.Result, error) {
	return nil, nil
}

func TestAnalyzeUnit(t *testing.T) {
	t.Parallel()

	shared := rewrite.NewSharedContext()
	c := rewrite.NewCoordinator(treesitter.New())
	plugins := []rewrite.Plugin{
		&collector{BasePlugin: rewrite.NewBasePlugin("collector", quickcheck.Patterns("never"))},
		replaceIdent("plain", "x", "y"),
	}

	for _, text := range []string{"a;\n", "b;\n"} {
		if err := c.AnalyzeUnit(context.Background(), newUnit(text), plugins, shared, nil); err != nil {
			t.Fatal(err)
		}
	}

	if n, _ := rewrite.Value[int](shared, "units"); n != 2 {
		t.Errorf("analyzed units = %d, want 2", n)
	}
}
