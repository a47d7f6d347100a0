package runner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	pathpkg "path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// skippedDirs are never descended into.
var skippedDirs = []string{"node_modules"}

// Discover finds the source files selected by opts. It returns sorted,
// deduplicated absolute paths.
func Discover(ctx context.Context, opts Options) ([]string, error) {
	d, err := newDiscoverer(opts)
	if err != nil {
		return nil, err
	}
	workDir := d.workDir

	for _, input := range opts.effectivePaths() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("discovery cancelled: %w", err)
		}

		abs := input
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(workDir, abs)
		}
		abs = filepath.Clean(abs)

		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", input, err)
		}
		if info.IsDir() {
			if err := d.walk(ctx, abs); err != nil {
				return nil, err
			}
			continue
		}
		// Files named explicitly bypass include globs but not excludes.
		if d.hasExtension(abs) && !d.exclude.match(d.rel(abs), false) {
			d.add(abs)
		}
	}

	slices.Sort(d.files)
	return d.files, nil
}

func newDiscoverer(opts Options) (*discoverer, error) {
	workDir, err := resolveWorkDir(opts.WorkingDir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	include, err := compileGlobs(opts.IncludeGlobs)
	if err != nil {
		return nil, err
	}
	exclude, err := compileGlobs(opts.ExcludeGlobs)
	if err != nil {
		return nil, err
	}
	return &discoverer{
		workDir:    workDir,
		extensions: opts.effectiveExtensions(),
		include:    include,
		exclude:    exclude,
		follow:     opts.FollowSymlinks,
		seen:       make(map[string]bool),
	}, nil
}

func resolveWorkDir(workDir string) (string, error) {
	if workDir == "" {
		return os.Getwd()
	}
	return filepath.Abs(workDir)
}

type discoverer struct {
	workDir    string
	extensions []string
	include    globSet
	exclude    globSet
	follow     bool

	files []string
	seen  map[string]bool
}

func (d *discoverer) add(path string) {
	if !d.seen[path] {
		d.seen[path] = true
		d.files = append(d.files, path)
	}
}

func (d *discoverer) rel(path string) string {
	rel, err := filepath.Rel(d.workDir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (d *discoverer) hasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range d.extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func (d *discoverer) walk(ctx context.Context, root string) error {
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if os.IsPermission(walkErr) {
				return nil
			}
			return walkErr
		}

		name := entry.Name()
		rel := d.rel(path)

		if entry.IsDir() {
			if path == root {
				return nil
			}
			if d.skipsDir(name, rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		if entry.Type()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(path)
			if err != nil {
				return nil //nolint:nilerr // broken symlinks are skipped
			}
			info, err := os.Stat(target)
			if err != nil {
				return nil //nolint:nilerr // unreadable targets are skipped
			}
			if info.IsDir() {
				if !d.follow || d.exclude.match(rel, true) {
					return nil
				}
				// Walk the target; WalkDir does not follow a symlinked root.
				return d.walk(ctx, target)
			}
		}

		if !d.hasExtension(path) || d.exclude.match(rel, false) {
			return nil
		}
		if len(d.include) > 0 && !d.include.match(rel, false) {
			return nil
		}
		d.add(path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk directory %s: %w", root, err)
	}
	return nil
}

func (d *discoverer) skipsDir(name, rel string) bool {
	return strings.HasPrefix(name, ".") || slices.Contains(skippedDirs, name) || d.exclude.match(rel, true)
}

// Selector applies the discovery rules of an Options to one path at a
// time, for hosts that learn about files from change notifications.
type Selector struct {
	d *discoverer
}

// NewSelector compiles the discovery rules of opts.
func NewSelector(opts Options) (*Selector, error) {
	d, err := newDiscoverer(opts)
	if err != nil {
		return nil, err
	}
	return &Selector{d: d}, nil
}

// Selects reports whether Discover would return the file at the absolute
// path, given that its directory was walked.
func (s *Selector) Selects(path string) bool {
	d := s.d
	rel := d.rel(path)
	dir, name := pathpkg.Split(rel)
	if strings.HasPrefix(name, ".") || !d.hasExtension(path) || d.exclude.match(rel, false) {
		return false
	}
	if len(d.include) > 0 && !d.include.match(rel, false) {
		return false
	}
	return s.descendsRel(strings.TrimSuffix(dir, "/"))
}

// Descends reports whether Discover would walk into the directory at the
// absolute path.
func (s *Selector) Descends(dir string) bool {
	return s.descendsRel(s.d.rel(dir))
}

func (s *Selector) descendsRel(rel string) bool {
	if rel == "" || rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return true
	}
	parts := strings.Split(rel, "/")
	for i, name := range parts {
		if s.d.skipsDir(name, strings.Join(parts[:i+1], "/")) {
			return false
		}
	}
	return true
}

// globSet matches slash-separated relative paths. A pattern without a
// slash also matches the base name; a pattern starting with "**/" also
// matches at the top level.
type globSet []glob.Glob

func compileGlobs(patterns []string) (globSet, error) {
	var out globSet
	for _, p := range patterns {
		p = filepath.ToSlash(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		variants := []string{p}
		if rest, ok := strings.CutPrefix(p, "**/"); ok {
			variants = append(variants, rest)
		}
		if !strings.Contains(p, "/") {
			variants = append(variants, "**/"+p)
		}
		for _, v := range variants {
			g, err := glob.Compile(v, '/')
			if err != nil {
				return nil, fmt.Errorf("invalid glob %q: %w", p, err)
			}
			out = append(out, g)
		}
	}
	return out, nil
}

// match reports whether rel, or for a directory rel with a trailing slash,
// matches any pattern.
func (s globSet) match(rel string, dir bool) bool {
	for _, g := range s {
		if g.Match(rel) || (dir && g.Match(rel+"/")) {
			return true
		}
	}
	return false
}
