package runner_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/yaklabco/tsweave/pkg/runner"
)

// writeTree creates files under dir and returns dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("setup mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("setup write: %v", err)
		}
	}
	return dir
}

func relAll(t *testing.T, dir string, paths []string) []string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	tree := map[string]string{
		"src/app.ts":                  "",
		"src/view.tsx":                "",
		"src/legacy.js":               "",
		"src/app.test.ts":             "",
		"src/.hidden.ts":              "",
		"lib/index.mjs":               "",
		"README.md":                   "",
		"node_modules/react/index.js": "",
		".cache/x.ts":                 "",
		"dist/out.js":                 "",
		"types/global.d.ts":           "",
	}

	tests := []struct {
		name string
		opts runner.Options
		want []string
	}{
		{
			name: "defaults",
			want: []string{"dist/out.js", "lib/index.mjs", "src/app.test.ts", "src/app.ts", "src/legacy.js", "src/view.tsx", "types/global.d.ts"},
		},
		{
			name: "exclude directory and base name globs",
			opts: runner.Options{ExcludeGlobs: []string{"**/dist/**", "*.test.ts", "types/**"}},
			want: []string{"lib/index.mjs", "src/app.ts", "src/legacy.js", "src/view.tsx"},
		},
		{
			name: "include glob",
			opts: runner.Options{IncludeGlobs: []string{"src/*.ts"}},
			want: []string{"src/app.test.ts", "src/app.ts"},
		},
		{
			name: "custom extensions",
			opts: runner.Options{Extensions: []string{".TSX"}},
			want: []string{"src/view.tsx"},
		},
		{
			name: "explicit paths are deduplicated",
			opts: runner.Options{Paths: []string{"src", "src/app.ts", "lib"}},
			want: []string{"lib/index.mjs", "src/app.test.ts", "src/app.ts", "src/legacy.js", "src/view.tsx"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := writeTree(t, tree)
			opts := tt.opts
			opts.WorkingDir = dir

			got, err := runner.Discover(context.Background(), opts)
			if err != nil {
				t.Fatalf("Discover() error = %v", err)
			}
			if rel := relAll(t, dir, got); !slices.Equal(rel, tt.want) {
				t.Errorf("Discover() = %v, want %v", rel, tt.want)
			}
		})
	}
}

func TestDiscover_ExplicitFileSkipsExcluded(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{"gen/api.ts": ""})
	got, err := runner.Discover(context.Background(), runner.Options{
		Paths:        []string{"gen/api.ts"},
		WorkingDir:   dir,
		ExcludeGlobs: []string{"gen/**"},
	})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Discover() = %v, want none", got)
	}
}

func TestDiscover_Errors(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{"a.ts": ""})

	if _, err := runner.Discover(context.Background(), runner.Options{
		Paths:      []string{"missing"},
		WorkingDir: dir,
	}); err == nil {
		t.Error("expected error for a missing path")
	}

	if _, err := runner.Discover(context.Background(), runner.Options{
		WorkingDir:   dir,
		ExcludeGlobs: []string{"[a-"},
	}); err == nil {
		t.Error("expected error for an invalid glob")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := runner.Discover(ctx, runner.Options{WorkingDir: dir}); err == nil {
		t.Error("expected error for a cancelled context")
	}
}

func TestDiscover_DirectorySymlinks(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{"real/a.ts": ""})
	outside := writeTree(t, map[string]string{"b.ts": ""})
	if err := os.Symlink(outside, filepath.Join(dir, "linked")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	got, err := runner.Discover(context.Background(), runner.Options{WorkingDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("without FollowSymlinks got %v", got)
	}

	got, err = runner.Discover(context.Background(), runner.Options{WorkingDir: dir, FollowSymlinks: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("with FollowSymlinks got %v", got)
	}
}

func TestSelector(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sel, err := runner.NewSelector(runner.Options{
		WorkingDir:   dir,
		ExcludeGlobs: []string{"dist/**", "*.test.ts"},
	})
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}

	files := []struct {
		rel  string
		want bool
	}{
		{"src/app.ts", true},
		{"app.tsx", true},
		{"src/app.test.ts", false},
		{"src/.hidden.ts", false},
		{"README.md", false},
		{"node_modules/react/index.js", false},
		{".git/hooks/x.js", false},
		{"dist/out.js", false},
	}
	for _, f := range files {
		if got := sel.Selects(filepath.Join(dir, filepath.FromSlash(f.rel))); got != f.want {
			t.Errorf("Selects(%s) = %v, want %v", f.rel, got, f.want)
		}
	}

	dirs := []struct {
		rel  string
		want bool
	}{
		{"src", true},
		{"src/components", true},
		{"node_modules", false},
		{"node_modules/react", false},
		{".cache", false},
		{"dist", false},
	}
	for _, d := range dirs {
		if got := sel.Descends(filepath.Join(dir, filepath.FromSlash(d.rel))); got != d.want {
			t.Errorf("Descends(%s) = %v, want %v", d.rel, got, d.want)
		}
	}

	if !sel.Descends(dir) {
		t.Error("the working directory itself must be walked")
	}
}

func TestNewSelector_InvalidGlob(t *testing.T) {
	t.Parallel()

	if _, err := runner.NewSelector(runner.Options{ExcludeGlobs: []string{"[a-"}}); err == nil {
		t.Fatal("expected an error for an invalid glob")
	}
}
