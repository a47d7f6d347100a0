package rewrite

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/yaklabco/tsweave/pkg/fix"
	"github.com/yaklabco/tsweave/pkg/imports"
	"github.com/yaklabco/tsweave/pkg/semantic"
	"github.com/yaklabco/tsweave/pkg/source"
)

// Log field names, kept equal to the host's structured logging fields.
const (
	fieldUnit    = "unit"
	fieldPlugin  = "plugin"
	fieldVersion = "version"
	fieldError   = "error"
)

// Stats counts the work done for one unit.
type Stats struct {
	PluginsRun     int `json:"plugins_run"`
	PluginsSkipped int `json:"plugins_skipped"`
	PluginsChanged int `json:"plugins_changed"`

	Replacements int `json:"replacements"`
	Prepends     int `json:"prepends"`
	ImportEdits  int `json:"import_edits"`

	Reparses int `json:"reparses"`
	Overlays int `json:"overlays"`
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.PluginsRun += other.PluginsRun
	s.PluginsSkipped += other.PluginsSkipped
	s.PluginsChanged += other.PluginsChanged
	s.Replacements += other.Replacements
	s.Prepends += other.Prepends
	s.ImportEdits += other.ImportEdits
	s.Reparses += other.Reparses
	s.Overlays += other.Overlays
}

// UnitResult is the outcome of one pass over a unit.
type UnitResult struct {
	// Changed is true when Text differs from the input text.
	Changed bool

	// Text is the final text.
	Text string

	// Unit is the final unit, parsed.
	Unit *source.Unit

	Stats Stats
}

// Tree returns the final syntax tree.
func (r *UnitResult) Tree() *source.Tree {
	return r.Unit.Tree
}

// Coordinator runs plugin lists over units.
type Coordinator struct {
	// Parser re-parses the unit after every change.
	Parser source.Parser

	// Cache memoizes unit analyses across calls. Optional.
	Cache *semantic.Cache

	// Logger receives debug traces of the pass. Optional.
	Logger *log.Logger
}

// NewCoordinator creates a coordinator over parser.
func NewCoordinator(parser source.Parser) *Coordinator {
	return &Coordinator{Parser: parser}
}

func (c *Coordinator) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.New(io.Discard)
}

func (c *Coordinator) analyze(u *source.Unit) (*semantic.UnitInfo, error) {
	if c.Cache != nil {
		return c.Cache.Analyze(u)
	}
	return semantic.Analyze(u)
}

// TransformUnit runs plugins over unit in order.
//
// Each plugin sees the text left by the one before it, a tree parsed from
// that text, and a model with that text overlaid on model. The first
// plugin error stops the pass; the error is a *PluginError naming the
// plugin. A nil model resolves names within the unit only.
func (c *Coordinator) TransformUnit(
	ctx context.Context,
	unit *source.Unit,
	plugins []Plugin,
	shared *SharedContext,
	model semantic.Model,
) (*UnitResult, error) {
	p, err := c.begin(ctx, unit, shared, model)
	if err != nil {
		return nil, err
	}
	original := unit.Text

	for _, plugin := range plugins {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("transform %s cancelled: %w", unit.ID, err)
		}

		logger := p.logger.With(fieldPlugin, plugin.ID())
		if !plugin.QuickCheck().Match(p.unit.Text) {
			p.stats.PluginsSkipped++
			logger.Debug("skipped by quick-check")
			continue
		}

		p.stats.PluginsRun++
		version := p.unit.Version
		if err := p.run(ctx, plugin, logger); err != nil {
			return nil, err
		}
		if p.unit.Version != version {
			p.stats.PluginsChanged++
			logger.Debug("applied", fieldVersion, p.unit.Version)
		}
	}

	return &UnitResult{
		Changed: p.unit.Text != original,
		Text:    p.unit.Text,
		Unit:    p.unit,
		Stats:   p.stats,
	}, nil
}

// AnalyzeUnit runs the Analyze hook of every plugin that has one. Hosts
// call it for all units before transforming any of them.
func (c *Coordinator) AnalyzeUnit(
	ctx context.Context,
	unit *source.Unit,
	plugins []Plugin,
	shared *SharedContext,
	model semantic.Model,
) error {
	p, err := c.begin(ctx, unit, shared, model)
	if err != nil {
		return err
	}
	for _, plugin := range plugins {
		analyzer, ok := plugin.(Analyzer)
		if !ok {
			continue
		}
		pctx := p.context(ctx, p.logger.With(fieldPlugin, plugin.ID()))
		err := protect(func() error { return analyzer.Analyze(pctx) })
		if err != nil {
			return p.fail(plugin, KindTransform, err)
		}
	}
	return nil
}

func (c *Coordinator) begin(ctx context.Context, unit *source.Unit, shared *SharedContext, model semantic.Model) (*pass, error) {
	if shared == nil {
		shared = NewSharedContext()
	}
	p := &pass{
		coord:  c,
		base:   model,
		shared: shared,
		unit:   unit,
		logger: c.logger().With(fieldUnit, unit.ID),
	}
	if !unit.Parsed() {
		if err := p.reparse(ctx, unit); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// pass is the state of one unit moving through a plugin list.
type pass struct {
	coord  *Coordinator
	base   semantic.Model
	shared *SharedContext
	logger *log.Logger

	unit  *source.Unit
	stats Stats

	// model and info are built lazily for the unit version in modelVersion.
	model        semantic.Model
	info         *semantic.UnitInfo
	modelVersion int
}

func (p *pass) context(ctx context.Context, logger *log.Logger) *Context {
	return &Context{Ctx: ctx, Unit: p.unit, Shared: p.shared, Logger: logger, pass: p}
}

func (p *pass) fail(plugin Plugin, kind ErrorKind, err error) error {
	return &PluginError{PluginID: plugin.ID(), UnitID: p.unit.ID, Kind: kind, Err: err}
}

// semantic returns the model for the current unit version. When the base
// already holds the current text it is used as is; otherwise only this
// unit is analyzed and overlaid.
func (p *pass) semantic() (semantic.Model, *semantic.UnitInfo) {
	if p.model != nil && p.modelVersion == p.unit.Version {
		return p.model, p.info
	}

	if p.base != nil {
		if info, ok := p.base.Unit(p.unit.ID); ok && info.Fingerprint == semantic.Fingerprint(p.unit.Text) {
			p.model, p.info, p.modelVersion = p.base, info, p.unit.Version
			return p.model, p.info
		}
	}

	info, err := p.coord.analyze(p.unit)
	if err != nil {
		// The unit is always parsed here, so this is a parser bug.
		p.logger.Error("analyze failed", fieldError, err)
		info = &semantic.UnitInfo{ID: p.unit.ID, Version: p.unit.Version, Exports: map[string]*semantic.Symbol{}}
	}
	p.model = semantic.NewOverlay(p.base, info)
	p.info = info
	p.modelVersion = p.unit.Version
	p.stats.Overlays++
	p.logger.Debug("overlay refreshed", fieldVersion, p.unit.Version)
	return p.model, p.info
}

func (p *pass) reparse(ctx context.Context, u *source.Unit) error {
	parsed, err := source.Reparse(ctx, p.coord.Parser, u)
	if err != nil {
		return fmt.Errorf("reparse %s: %w", u.ID, err)
	}
	p.unit = parsed
	p.stats.Reparses++
	return nil
}

func (p *pass) setText(ctx context.Context, text string) error {
	if text == p.unit.Text {
		return nil
	}
	return p.reparse(ctx, p.unit.WithText(text))
}

// run transforms with one plugin and applies its result: replacements,
// then prepends, then imports, re-parsing after each category that
// changed the text.
func (p *pass) run(ctx context.Context, plugin Plugin, logger *log.Logger) error {
	var res *Result
	err := protect(func() error {
		var err error
		res, err = plugin.Transform(p.context(ctx, logger))
		return err
	})
	if err != nil {
		return p.fail(plugin, KindTransform, err)
	}
	if res.Empty() {
		return nil
	}

	if len(res.Replacements) > 0 {
		var edits []fix.Replacement
		var kind ErrorKind
		err := protect(func() error {
			var err error
			edits, kind, err = p.resolve(res.Replacements)
			return err
		})
		if err != nil {
			return p.fail(plugin, kind, err)
		}
		text, err := fix.Apply(p.unit.Text, edits)
		if err != nil {
			return p.fail(plugin, KindMalformed, err)
		}
		if err := p.setText(ctx, text); err != nil {
			return err
		}
		p.stats.Replacements += len(edits)
	}

	if len(res.Prepend) > 0 {
		if err := p.setText(ctx, prepend(p.unit, res.Prepend)); err != nil {
			return err
		}
		p.stats.Prepends += len(res.Prepend)
	}

	if len(res.Imports) > 0 {
		intents, err := imports.MergeIntents(res.Imports)
		if err != nil {
			return p.fail(plugin, KindImportConflict, err)
		}
		for _, intent := range intents {
			edits, err := imports.Merge(p.unit, intent)
			if err != nil {
				return p.fail(plugin, KindMalformed, err)
			}
			if len(edits) == 0 {
				continue
			}
			text, err := fix.Apply(p.unit.Text, edits)
			if err != nil {
				return p.fail(plugin, KindMalformed, err)
			}
			if err := p.setText(ctx, text); err != nil {
				return err
			}
			p.stats.ImportEdits += len(edits)
		}
	}
	return nil
}

// resolve turns intents into replacements against the current unit.
// Generators run here, after every node has been checked.
func (p *pass) resolve(intents []ReplacementIntent) ([]fix.Replacement, ErrorKind, error) {
	for i, in := range intents {
		if in.Node == nil || in.Generate == nil {
			return nil, KindMalformed, fmt.Errorf("replacement %d: %w", i, ErrIncompleteReplacement)
		}
		if in.Node.Version != p.unit.Version {
			return nil, KindMalformed, fmt.Errorf("replacement %d at %s: %w (node v%d, unit v%d)",
				i, in.Node.Range, ErrStaleNode, in.Node.Version, p.unit.Version)
		}
	}

	edits := make([]fix.Replacement, 0, len(intents))
	for _, in := range intents {
		text := in.Generate(p.unit)
		rng := in.Node.Range
		if text == "" && in.TrimLine {
			rng = lineSpan(p.unit.Text, rng)
		}
		edits = append(edits, fix.Replacement{Range: rng, NewText: text})
	}
	return edits, KindTransform, nil
}

// lineSpan widens r to its whole line, newline included, when only
// whitespace surrounds it on that line.
func lineSpan(text string, r fix.Range) fix.Range {
	start := strings.LastIndexByte(text[:r.Start], '\n') + 1
	if strings.TrimSpace(text[start:r.Start]) != "" {
		return r
	}
	end := len(text)
	if nl := strings.IndexByte(text[r.End:], '\n'); nl >= 0 {
		end = r.End + nl + 1
	}
	if strings.TrimSpace(text[r.End:end]) != "" {
		return r
	}
	return fix.Range{Start: start, End: end}
}

// prepend inserts blocks after the leading imports of u, or after its
// hashbang line when it has no leading imports.
func prepend(u *source.Unit, blocks []string) string {
	block := strings.Join(blocks, "\n")
	if !strings.HasSuffix(block, "\n") {
		block += "\n"
	}
	at := imports.LeadingImportsEnd(u)
	if at == 0 {
		at = imports.HashBangEnd(u)
	}
	if at > 0 && u.Text[at-1] != '\n' {
		block = "\n" + block
	}
	return u.Text[:at] + block + u.Text[at:]
}

// protect converts a panic in plugin code into an error.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPluginPanic, r)
		}
	}()
	return fn()
}
