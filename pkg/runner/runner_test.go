package runner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yaklabco/tsweave/pkg/config"
	"github.com/yaklabco/tsweave/pkg/fsutil"
	"github.com/yaklabco/tsweave/pkg/parser/treesitter"
	"github.com/yaklabco/tsweave/pkg/quickcheck"
	"github.com/yaklabco/tsweave/pkg/rewrite"
	"github.com/yaklabco/tsweave/pkg/runner"
	"github.com/yaklabco/tsweave/pkg/semantic"
	"github.com/yaklabco/tsweave/pkg/source"
)

// renameVar renames every identifier spelled from.
func renameVar(from, to string) rewrite.Plugin {
	return rewrite.PluginFunc("rename", quickcheck.Patterns(from), func(ctx *rewrite.Context) (*rewrite.Result, error) {
		res := &rewrite.Result{}
		_ = source.Walk(ctx.Unit.Tree.Root, func(n *source.Node) error {
			if n.Kind == source.KindIdentifier && n.Text(ctx.Unit) == from {
				res.Replace(n, to)
			}
			return nil
		})
		return res, nil
	})
}

func failOn(marker string) rewrite.Plugin {
	return rewrite.PluginFunc("fail", quickcheck.Patterns(marker), func(*rewrite.Context) (*rewrite.Result, error) {
		return nil, errors.New("cannot transform")
	})
}

func newRunner(plugins ...rewrite.Plugin) *runner.Runner {
	r := runner.New(treesitter.New(), plugins)
	r.Loader = semantic.MapLoader{}
	return r
}

func options(dir string, mutate func(*config.Config)) runner.Options {
	cfg := config.NewConfig()
	if mutate != nil {
		mutate(cfg)
	}
	opts := runner.OptionsFromConfig(cfg, nil)
	opts.WorkingDir = dir
	return opts
}

func TestRun_NoFiles(t *testing.T) {
	t.Parallel()

	res, err := newRunner().Run(context.Background(), options(t.TempDir(), nil))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Stats.FilesDiscovered != 0 || len(res.Units) != 0 {
		t.Errorf("Run() = %+v, want empty", res.Stats)
	}
}

func TestRun_DryRun(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"a.ts": "const old = 1;\n",
		"b.ts": "const keep = 2;\n",
	})
	res, err := newRunner(renameVar("old", "fresh")).Run(context.Background(), options(dir, func(c *config.Config) {
		c.DryRun = true
		c.Write = true
	}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Stats.FilesProcessed != 2 || res.Stats.FilesChanged != 1 || res.Stats.FilesWritten != 0 {
		t.Errorf("stats = %+v", res.Stats)
	}
	a := res.Units[0]
	if !a.Changed || a.Text != "const fresh = 1;\n" {
		t.Errorf("a.ts outcome = %+v", a)
	}
	if a.Diff == nil || !a.Diff.HasChanges() {
		t.Error("a.ts has no diff")
	}
	if res.Units[1].Changed || res.Units[1].Diff != nil {
		t.Errorf("b.ts outcome = %+v", res.Units[1])
	}

	if got, _ := os.ReadFile(filepath.Join(dir, "a.ts")); string(got) != "const old = 1;\n" {
		t.Errorf("dry run wrote %q", got)
	}
}

func TestRun_Write(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{"src/a.ts": "let old;\n"})
	res, err := newRunner(renameVar("old", "fresh")).Run(context.Background(), options(dir, func(c *config.Config) {
		c.Write = true
	}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := res.Units[0]
	if !out.Written || !out.BackupCreated {
		t.Errorf("outcome = %+v", out)
	}
	path := filepath.Join(dir, "src", "a.ts")
	if got, _ := os.ReadFile(path); string(got) != "let fresh;\n" {
		t.Errorf("content = %q", got)
	}
	if got, _ := os.ReadFile(path + fsutil.BackupSuffix); string(got) != "let old;\n" {
		t.Errorf("backup = %q", got)
	}

	// A second run finds nothing left to do.
	res, err = newRunner(renameVar("old", "fresh")).Run(context.Background(), options(dir, func(c *config.Config) {
		c.Write = true
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.HasChanges() {
		t.Errorf("second run changed files: %+v", res.Stats)
	}
}

func TestRun_NoBackups(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{"a.ts": "old;\n"})
	_, err := newRunner(renameVar("old", "fresh")).Run(context.Background(), options(dir, func(c *config.Config) {
		c.Write = true
		c.NoBackups = true
	}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.ts") + fsutil.BackupSuffix); !os.IsNotExist(err) {
		t.Errorf("backup exists: %v", err)
	}
}

func TestRun_Policy(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"a.ts": "old; BOOM;\n",
		"b.ts": "old;\n",
	}

	t.Run("recoverable", func(t *testing.T) {
		t.Parallel()
		dir := writeTree(t, files)
		res, err := newRunner(renameVar("old", "fresh"), failOn("BOOM")).Run(context.Background(), options(dir, func(c *config.Config) {
			c.Write = true
		}))
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !res.HasFailures() || len(res.Failures()) != 1 {
			t.Fatalf("failures = %+v", res.Failures())
		}

		failed := res.Units[0]
		pe, ok := rewrite.AsPluginError(failed.Err)
		if !ok || pe.PluginID != "fail" {
			t.Errorf("a.ts error = %v", failed.Err)
		}
		if got, _ := os.ReadFile(filepath.Join(dir, "a.ts")); string(got) != files["a.ts"] {
			t.Errorf("failed unit was modified: %q", got)
		}
		if !res.Units[1].Written {
			t.Error("healthy unit was not written")
		}
	})

	t.Run("fatal", func(t *testing.T) {
		t.Parallel()
		dir := writeTree(t, files)
		res, err := newRunner(failOn("BOOM")).Run(context.Background(), options(dir, func(c *config.Config) {
			c.Policy = config.PolicyFatal
		}))
		var pe *rewrite.PluginError
		if !errors.As(err, &pe) {
			t.Fatalf("Run() error = %v, want *PluginError", err)
		}
		if res == nil || res.Stats.FilesDiscovered != 2 {
			t.Errorf("partial result = %+v", res)
		}
	})
}

// traceCallee records where the callee of each unit's first call is declared.
func traceCallee() rewrite.Plugin {
	return rewrite.PluginFunc("trace", quickcheck.Patterns("("), func(ctx *rewrite.Context) (*rewrite.Result, error) {
		var callee *source.Node
		_ = source.Walk(ctx.Unit.Tree.Root, func(n *source.Node) error {
			if callee == nil && n.Kind == "call_expression" {
				callee = n.ChildByField("function")
			}
			return nil
		})
		if callee == nil {
			return nil, nil
		}
		if sym, ok := ctx.Trace(callee.Range.Start); ok {
			ctx.Shared.Set("decl:"+filepath.Base(ctx.Unit.ID), filepath.Base(sym.UnitID)+":"+sym.Kind.String())
		}
		return nil, nil
	})
}

func TestRun_ResolvesAcrossUnits(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"src/app.ts":        "import { greet } from './util';\ngreet();\n",
		"src/util/index.ts": "export { greet } from './greet';\n",
		"src/util/greet.ts": "export function greet() {}\n",
	})
	res, err := newRunner(traceCallee()).Run(context.Background(), options(dir, nil))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got, _ := rewrite.Value[string](res.Shared, "decl:app.ts")
	if got != "greet.ts:function" {
		t.Errorf("greet() in app.ts resolves to %q, want greet.ts:function", got)
	}
}

type counter struct {
	rewrite.BasePlugin
}

func (c *counter) Analyze(ctx *rewrite.Context) error {
	ctx.Shared.Update("seen", func(old any, _ bool) any {
		n, _ := old.(int)
		return n + 1
	})
	return nil
}

func (c *counter) Transform(ctx *rewrite.Context) (*rewrite.Result, error) {
	n, _ := rewrite.Value[int](ctx.Shared, "seen")
	ctx.Shared.Set("seen-at-transform:"+filepath.Base(ctx.Unit.ID), n)
	return nil, nil
}

func TestRun_AnalyzeBeforeTransform(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{"a.ts": "a;\n", "b.ts": "b;\n", "c.ts": "c;\n"})
	res, err := newRunner(&counter{BasePlugin: rewrite.NewBasePlugin("counter", quickcheck.Always)}).
		Run(context.Background(), options(dir, nil))
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.ts", "b.ts", "c.ts"} {
		if n, _ := rewrite.Value[int](res.Shared, "seen-at-transform:"+name); n != 3 {
			t.Errorf("%s saw %d analyzed units, want 3", name, n)
		}
	}
}

func TestRun_SerialMatchesParallel(t *testing.T) {
	t.Parallel()

	files := make(map[string]string)
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files[name+".ts"] = "const old = '" + name + "';\n"
	}

	texts := func(jobs int) string {
		dir := writeTree(t, files)
		opts := options(dir, nil)
		opts.Jobs = jobs
		res, err := newRunner(renameVar("old", "fresh")).Run(context.Background(), opts)
		if err != nil {
			t.Fatal(err)
		}
		var b strings.Builder
		for _, u := range res.Units {
			b.WriteString(filepath.Base(u.Path) + "=" + u.Text)
		}
		return b.String()
	}

	if serial, parallel := texts(1), texts(8); serial != parallel {
		t.Errorf("serial %q != parallel %q", serial, parallel)
	}
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{"a.ts": "a;\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newRunner().Run(ctx, options(dir, nil)); err == nil {
		t.Error("Run() with cancelled context returned nil error")
	}
}
