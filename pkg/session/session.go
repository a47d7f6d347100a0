// Package session is the interactive host: it keeps a semantic program,
// an analysis cache, and a SharedContext alive across edits and transforms
// one edited unit per change notification.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/yaklabco/tsweave/internal/logging"
	"github.com/yaklabco/tsweave/pkg/config"
	"github.com/yaklabco/tsweave/pkg/langdetect"
	"github.com/yaklabco/tsweave/pkg/rewrite"
	"github.com/yaklabco/tsweave/pkg/semantic"
	"github.com/yaklabco/tsweave/pkg/source"
)

// ErrStale is returned by Transform when a newer edit of the same unit, or
// an invalidation, arrived before the transform finished. The result of the
// superseded transform is discarded.
var ErrStale = errors.New("unit changed during transform")

// Options configures a Session.
type Options struct {
	// Plugins run in order on every edit.
	Plugins []rewrite.Plugin

	// Policy decides whether a plugin failure is returned (fatal) or
	// reported in Result.Err with the unit served unmodified (recoverable).
	Policy config.FailurePolicy

	// Logger receives session events. Optional.
	Logger *log.Logger
}

// Result is what a host serves for one edit.
type Result struct {
	ID      string
	Version int

	// Changed is false when Text is the edited text as given.
	Changed bool

	// Text is the content to serve.
	Text string

	// Err is the plugin failure that left the unit unmodified under the
	// recoverable policy.
	Err error

	Stats rewrite.Stats
}

// Session holds the state shared by all transforms between resets.
type Session struct {
	coord   *rewrite.Coordinator
	program *semantic.Program
	cache   *semantic.Cache
	shared  *rewrite.SharedContext
	plugins []rewrite.Plugin
	policy  config.FailurePolicy
	logger  *log.Logger

	mu       sync.Mutex
	roots    []string
	versions map[string]int
}

// New creates a session. Units not edited through Transform are read by
// loader when a root or an import needs them.
func New(parser source.Parser, loader semantic.Loader, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	policy := opts.Policy
	if policy == "" {
		policy = config.PolicyRecoverable
	}

	cache := semantic.NewCache()
	coord := rewrite.NewCoordinator(parser)
	coord.Cache = cache
	coord.Logger = logger

	return &Session{
		coord:    coord,
		program:  semantic.NewProgram(parser, loader),
		cache:    cache,
		shared:   rewrite.NewSharedContext(),
		plugins:  opts.Plugins,
		policy:   policy,
		logger:   logger,
		versions: make(map[string]int),
	}
}

// Shared returns the session's SharedContext.
func (s *Session) Shared() *rewrite.SharedContext {
	return s.shared
}

// Program returns the base semantic model.
func (s *Session) Program() *semantic.Program {
	return s.program
}

// Cache returns the analysis cache used for edited units.
func (s *Session) Cache() *semantic.Cache {
	return s.cache
}

// Load reads roots and their relative imports into the program and runs
// the plugins' Analyze hooks over every loaded unit. Reset reloads the
// same roots.
func (s *Session) Load(ctx context.Context, roots ...string) error {
	s.mu.Lock()
	s.roots = append(s.roots, roots...)
	s.mu.Unlock()

	if err := s.program.Load(ctx, roots...); err != nil {
		return fmt.Errorf("load program: %w", err)
	}
	return s.analyzeAll(ctx)
}

func (s *Session) analyzeAll(ctx context.Context) error {
	for _, id := range s.program.IDs() {
		unit, ok := s.program.Source(id)
		if !ok {
			continue
		}
		err := s.coord.AnalyzeUnit(ctx, unit, s.plugins, s.shared, s.program)
		if err != nil && s.policy == config.PolicyFatal {
			return err
		}
		if err != nil {
			s.logger.Warn("analyze failed", logging.FieldUnit, id, logging.FieldError, err)
		}
	}
	return nil
}

// Transform runs the plugins over the new text of unit id. The text also
// replaces the unit in the program, so later transforms of other units
// resolve against it.
func (s *Session) Transform(ctx context.Context, id, text string) (*Result, error) {
	version := s.bump(id)
	logger := s.logger.With(logging.FieldUnit, id, logging.FieldVersion, version)

	lang, ok := langdetect.Detect(id, []byte(text))
	if !ok {
		lang = source.TypeScript
	}
	unit := source.NewUnit(id, text, lang).WithVersion(version)

	// A superseded edit must never replace the unit in the shared program.
	_, stored, err := s.program.AddIf(ctx, unit, func() bool { return s.current(id, version) })
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", id, err)
	}
	if !stored {
		logger.Debug("discarding stale edit")
		return nil, fmt.Errorf("%s v%d: %w", id, version, ErrStale)
	}
	if parsed, ok := s.program.Source(id); ok && parsed.Version == version {
		unit = parsed
	}

	res, err := s.coord.TransformUnit(ctx, unit, s.plugins, s.shared, s.program)
	if !s.current(id, version) {
		logger.Debug("discarding stale result")
		return nil, fmt.Errorf("%s v%d: %w", id, version, ErrStale)
	}

	if err != nil {
		if _, ok := rewrite.AsPluginError(err); !ok || s.policy == config.PolicyFatal {
			return nil, err
		}
		logger.Warn("serving unmodified", logging.FieldError, err)
		return &Result{ID: id, Version: version, Text: text, Err: err}, nil
	}

	logger.Debug("transformed", logging.FieldChanged, res.Changed)
	return &Result{
		ID:      id,
		Version: version,
		Changed: res.Changed,
		Text:    res.Text,
		Stats:   res.Stats,
	}, nil
}

// Invalidate drops everything cached for id. Transforms of id in flight
// return ErrStale.
func (s *Session) Invalidate(id string) {
	s.bump(id)
	s.cache.Invalidate(id)
	s.logger.Debug("invalidated", logging.FieldUnit, id)
}

// Remove invalidates id and drops it from the program, as when the unit
// is deleted.
func (s *Session) Remove(id string) {
	s.Invalidate(id)
	s.program.Remove(id)
}

// Reset clears the SharedContext and the cache, marks every transform in
// flight stale, and reloads the program from the roots given to Load.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	for id := range s.versions {
		s.versions[id]++
	}
	roots := append([]string(nil), s.roots...)
	s.mu.Unlock()

	s.shared.Reset()
	s.cache.Reset()
	for _, id := range s.program.IDs() {
		s.program.Remove(id)
	}
	s.logger.Debug("reset", logging.FieldRoots, len(roots))

	if len(roots) == 0 {
		return nil
	}
	if err := s.program.Load(ctx, roots...); err != nil {
		return fmt.Errorf("reload program: %w", err)
	}
	return s.analyzeAll(ctx)
}

func (s *Session) bump(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[id]++
	return s.versions[id]
}

func (s *Session) current(id string, version int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[id] == version
}
