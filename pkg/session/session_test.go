package session_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/tsweave/internal/logging"
	"github.com/yaklabco/tsweave/pkg/config"
	"github.com/yaklabco/tsweave/pkg/parser/treesitter"
	"github.com/yaklabco/tsweave/pkg/quickcheck"
	"github.com/yaklabco/tsweave/pkg/rewrite"
	"github.com/yaklabco/tsweave/pkg/semantic"
	"github.com/yaklabco/tsweave/pkg/session"
	"github.com/yaklabco/tsweave/pkg/source"
)

func firstIdent(u *source.Unit, name string) *source.Node {
	var found *source.Node
	_ = source.Walk(u.Tree.Root, func(n *source.Node) error {
		if found == nil && n.Kind == source.KindIdentifier && n.Text(u) == name {
			found = n
		}
		return nil
	})
	return found
}

func rename(from, to string) rewrite.Plugin {
	return rewrite.PluginFunc("rename", quickcheck.Patterns(from), func(ctx *rewrite.Context) (*rewrite.Result, error) {
		res := &rewrite.Result{}
		if n := firstIdent(ctx.Unit, from); n != nil {
			res.Replace(n, to)
		}
		return res, nil
	})
}

// traceKind records the kind of the declaration "flag" resolves to.
func traceKind() rewrite.Plugin {
	return rewrite.PluginFunc("trace", quickcheck.Patterns("flag"), func(ctx *rewrite.Context) (*rewrite.Result, error) {
		n := firstIdent(ctx.Unit, "flag")
		if n == nil {
			return nil, nil
		}
		if sym, ok := ctx.Trace(n.Range.Start); ok {
			ctx.Shared.Set("kind", sym.Kind.String())
			ctx.Shared.Set("unit", sym.UnitID)
		}
		return nil, nil
	})
}

func failing() rewrite.Plugin {
	return rewrite.PluginFunc("broken", quickcheck.Always, func(*rewrite.Context) (*rewrite.Result, error) {
		return nil, errors.New("boom")
	})
}

func newSession(t *testing.T, files semantic.MapLoader, opts session.Options) *session.Session {
	t.Helper()
	return session.New(treesitter.New(), files, opts)
}

func TestTransform(t *testing.T) {
	t.Parallel()

	s := newSession(t, nil, session.Options{Plugins: []rewrite.Plugin{rename("a", "b")}})

	res, err := s.Transform(context.Background(), "src/x.ts", "const a = 1;\n")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "const b = 1;\n", res.Text)
	assert.Equal(t, 1, res.Version)
	assert.Equal(t, 1, res.Stats.PluginsChanged)

	res, err = s.Transform(context.Background(), "src/x.ts", "const c = 1;\n")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, "const c = 1;\n", res.Text)
	assert.Equal(t, 2, res.Version)
}

func TestTransform_LogFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := newSession(t, nil, session.Options{
		Plugins: []rewrite.Plugin{rename("a", "b")},
		Logger:  logging.NewWriter(&buf, "debug"),
	})

	_, err := s.Transform(context.Background(), "src/x.ts", "const a = 1;\n")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, logging.FieldUnit+"=src/x.ts")
	assert.Contains(t, out, logging.FieldVersion+"=1")
	assert.Contains(t, out, logging.FieldPlugin+"=rename")
	assert.Contains(t, out, logging.FieldChanged+"=true")
}

func TestTransform_SeesEditsOfOtherUnits(t *testing.T) {
	t.Parallel()

	files := semantic.MapLoader{
		"src/app.ts":   "import { flag } from './flags';\nuse(flag);\n",
		"src/flags.ts": "export const flag = 1;\n",
	}
	s := newSession(t, files, session.Options{Plugins: []rewrite.Plugin{traceKind()}})
	ctx := context.Background()
	require.NoError(t, s.Load(ctx, "src/app.ts"))
	assert.Equal(t, []string{"src/app.ts", "src/flags.ts"}, s.Program().IDs())

	_, err := s.Transform(ctx, "src/app.ts", files["src/app.ts"])
	require.NoError(t, err)
	kind, _ := rewrite.Value[string](s.Shared(), "kind")
	unit, _ := rewrite.Value[string](s.Shared(), "unit")
	assert.Equal(t, "variable", kind)
	assert.Equal(t, "src/flags.ts", unit)

	_, err = s.Transform(ctx, "src/flags.ts", "export function flag() {}\n")
	require.NoError(t, err)
	_, err = s.Transform(ctx, "src/app.ts", files["src/app.ts"])
	require.NoError(t, err)
	kind, _ = rewrite.Value[string](s.Shared(), "kind")
	assert.Equal(t, "function", kind)
}

func TestTransform_Stale(t *testing.T) {
	t.Parallel()

	var s *session.Session
	interrupt := rewrite.PluginFunc("interrupt", quickcheck.Always, func(ctx *rewrite.Context) (*rewrite.Result, error) {
		s.Invalidate(ctx.Unit.ID)
		return nil, nil
	})
	s = newSession(t, nil, session.Options{Plugins: []rewrite.Plugin{interrupt}})

	res, err := s.Transform(context.Background(), "src/x.ts", "x;\n")
	require.ErrorIs(t, err, session.ErrStale)
	assert.Nil(t, res)
}

// gateParser holds back the parse of one text until release is closed.
type gateParser struct {
	source.Parser
	text    string
	entered chan struct{}
	release chan struct{}
}

func (p *gateParser) Parse(ctx context.Context, u *source.Unit) (*source.Tree, error) {
	if u.Text == p.text {
		close(p.entered)
		<-p.release
	}
	return p.Parser.Parse(ctx, u)
}

func TestTransform_SupersededEditKeepsNewerProgram(t *testing.T) {
	t.Parallel()

	const older = "export const old = 1;\n"
	const newer = "export const fresh = 2;\n"
	parser := &gateParser{
		Parser:  treesitter.New(),
		text:    older,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := session.New(parser, nil, session.Options{})

	errs := make(chan error, 1)
	go func() {
		_, err := s.Transform(context.Background(), "a.ts", older)
		errs <- err
	}()
	<-parser.entered

	res, err := s.Transform(context.Background(), "a.ts", newer)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Version)

	close(parser.release)
	require.ErrorIs(t, <-errs, session.ErrStale)

	unit, ok := s.Program().Source("a.ts")
	require.True(t, ok)
	assert.Equal(t, newer, unit.Text)
	assert.Equal(t, 2, unit.Version)
}

func TestTransform_Policy(t *testing.T) {
	t.Parallel()

	t.Run("recoverable serves original", func(t *testing.T) {
		t.Parallel()
		s := newSession(t, nil, session.Options{
			Plugins: []rewrite.Plugin{rename("a", "b"), failing()},
			Policy:  config.PolicyRecoverable,
		})

		res, err := s.Transform(context.Background(), "src/x.ts", "a;\n")
		require.NoError(t, err)
		assert.False(t, res.Changed)
		assert.Equal(t, "a;\n", res.Text)

		pe, ok := rewrite.AsPluginError(res.Err)
		require.True(t, ok)
		assert.Equal(t, "broken", pe.PluginID)
		assert.Equal(t, rewrite.KindTransform, pe.Kind)
	})

	t.Run("fatal returns error", func(t *testing.T) {
		t.Parallel()
		s := newSession(t, nil, session.Options{
			Plugins: []rewrite.Plugin{failing()},
			Policy:  config.PolicyFatal,
		})

		res, err := s.Transform(context.Background(), "src/x.ts", "a;\n")
		require.Error(t, err)
		assert.Nil(t, res)
		pe, ok := rewrite.AsPluginError(err)
		require.True(t, ok)
		assert.Equal(t, "src/x.ts", pe.UnitID)
	})
}

type counter struct {
	rewrite.BasePlugin
}

func (c *counter) Analyze(ctx *rewrite.Context) error {
	ctx.Shared.Update("analyzed", func(old any, _ bool) any {
		n, _ := old.(int)
		return n + 1
	})
	return nil
}

func (c *counter) Transform(*rewrite.Context) (*rewrite.Result, error) {
	return nil, nil
}

func TestLoadRemoveReset(t *testing.T) {
	t.Parallel()

	files := semantic.MapLoader{
		"src/a.ts": "import { b } from './b';\nb();\n",
		"src/b.ts": "export function b() {}\n",
	}
	s := newSession(t, files, session.Options{
		Plugins: []rewrite.Plugin{&counter{BasePlugin: rewrite.NewBasePlugin("counter", quickcheck.Always)}},
	})
	ctx := context.Background()

	require.NoError(t, s.Load(ctx, "src/a.ts"))
	n, _ := rewrite.Value[int](s.Shared(), "analyzed")
	assert.Equal(t, 2, n)

	uid := s.Shared().UID("tmp")

	s.Remove("src/b.ts")
	assert.Equal(t, 1, s.Program().Len())

	require.NoError(t, s.Reset(ctx))
	n, _ = rewrite.Value[int](s.Shared(), "analyzed")
	assert.Equal(t, 2, n, "reset clears shared state before analyzing again")
	assert.Equal(t, 2, s.Program().Len())
	assert.Equal(t, 0, s.Cache().Len())
	assert.NotEqual(t, uid, s.Shared().UID("tmp"))
}

func TestLoad_MissingRoot(t *testing.T) {
	t.Parallel()

	s := newSession(t, semantic.MapLoader{}, session.Options{})
	err := s.Load(context.Background(), "src/missing.ts")
	require.Error(t, err)
	assert.True(t, semantic.IsNotFound(err))
}
