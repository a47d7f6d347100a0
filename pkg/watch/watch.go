// Package watch is a file-watching host: it keeps a session over the files
// discovery selects and transforms each one again when it changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/yaklabco/tsweave/internal/logging"
	"github.com/yaklabco/tsweave/pkg/fix"
	"github.com/yaklabco/tsweave/pkg/fsutil"
	"github.com/yaklabco/tsweave/pkg/runner"
	"github.com/yaklabco/tsweave/pkg/session"
)

// DefaultDebounce is how long a burst of notifications for one file is
// collected before the file is processed.
const DefaultDebounce = 100 * time.Millisecond

// Event reports the handling of one changed or removed file.
type Event struct {
	// Outcome describes the transform; Path is always set.
	Outcome runner.UnitOutcome

	// Removed is true when the file disappeared and left the session.
	Removed bool
}

// Watcher transforms files as they change.
type Watcher struct {
	// Session holds the program and shared state across changes.
	Session *session.Session

	// Options select the files and directories to watch, as for a batch run.
	Options runner.Options

	// Write rewrites changed files in place.
	Write bool

	// Backup configures backups made before writing.
	Backup fsutil.BackupConfig

	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration

	// OnEvent receives every processed file. Optional.
	OnEvent func(Event)

	// OnReady is called once the initial load finished and the watches
	// are in place. Optional.
	OnReady func(files []string)

	Logger *log.Logger
}

func (w *Watcher) logger() *log.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return log.New(io.Discard)
}

func (w *Watcher) emit(e Event) {
	if w.OnEvent != nil {
		w.OnEvent(e)
	}
}

// Run loads the selected files into the session, then processes change
// notifications until ctx is done. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Session == nil {
		return errors.New("watch: nil session")
	}
	sel, err := runner.NewSelector(w.Options)
	if err != nil {
		return err
	}
	files, err := runner.Discover(ctx, w.Options)
	if err != nil {
		return err
	}

	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = filepath.ToSlash(f)
	}
	if err := w.Session.Load(ctx, ids...); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	for _, dir := range w.watchDirs(files) {
		w.addTree(fsw, sel, dir)
	}
	if w.OnReady != nil {
		w.OnReady(files)
	}
	w.logger().Info("watching", logging.FieldFilesDiscovered, len(files))

	return w.loop(ctx, fsw, sel)
}

// watchDirs returns the directories named by the options plus the parent
// of every file named explicitly.
func (w *Watcher) watchDirs(files []string) []string {
	workDir := w.Options.WorkingDir
	paths := w.Options.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}

	var dirs []string
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(workDir, p)
		}
		info, err := os.Stat(p)
		switch {
		case err != nil:
			continue
		case info.IsDir():
			dirs = append(dirs, filepath.Clean(p))
		default:
			dirs = append(dirs, filepath.Dir(p))
		}
	}
	for _, f := range files {
		dirs = append(dirs, filepath.Dir(f))
	}
	slices.Sort(dirs)
	return slices.Compact(dirs)
}

// addTree watches root and every directory below it that discovery walks.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, sel *runner.Selector, root string) {
	_ = filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil || !entry.IsDir() {
			return nil //nolint:nilerr // unreadable entries are not watched
		}
		if path != root && !sel.Descends(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			w.logger().Warn("cannot watch directory", logging.FieldPath, path, logging.FieldError, err)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, sel *runner.Selector) error {
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger().Warn("watch error", logging.FieldError, err)

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if sel.Descends(ev.Name) {
						w.addTree(fsw, sel, ev.Name)
					}
					continue
				}
			}
			if !sel.Selects(ev.Name) {
				continue
			}
			pending[ev.Name] = true
			timer.Reset(debounce)

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			slices.Sort(paths)
			for _, p := range paths {
				if err := w.process(ctx, p); err != nil {
					return err
				}
			}
		}
	}
}

// process transforms the current content of path, or drops it from the
// session when it no longer exists. Only fatal-policy plugin failures and
// cancellation are returned.
func (w *Watcher) process(ctx context.Context, path string) error {
	id := filepath.ToSlash(path)
	outcome := runner.UnitOutcome{Path: path}

	content, snap, err := fsutil.ReadFile(ctx, path)
	if errors.Is(err, fsutil.ErrNotFound) {
		w.Session.Remove(id)
		w.logger().Debug("removed", logging.FieldPath, path)
		w.emit(Event{Outcome: outcome, Removed: true})
		return nil
	}
	if err != nil {
		outcome.Err = err
		w.emit(Event{Outcome: outcome})
		return nil
	}

	res, err := w.Session.Transform(ctx, id, string(content))
	switch {
	case errors.Is(err, session.ErrStale):
		return nil
	case err != nil:
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	outcome.Stats = res.Stats
	outcome.Err = res.Err
	if res.Changed {
		outcome.Changed = true
		outcome.Text = res.Text
		outcome.Diff = fix.GenerateDiff(path, string(content), res.Text)
		if w.Write {
			w.write(ctx, snap, &outcome)
		}
	}
	w.emit(Event{Outcome: outcome})
	return nil
}

func (w *Watcher) write(ctx context.Context, snap *fsutil.Snapshot, outcome *runner.UnitOutcome) {
	res, err := fsutil.SafeWrite(ctx, snap, []byte(outcome.Text), w.Backup)
	outcome.Written = res.Written
	outcome.BackupCreated = res.BackupCreated
	switch {
	case errors.Is(err, fsutil.ErrModified):
		// A newer notification for the file is already on its way.
		outcome.Skipped = true
	case err != nil:
		outcome.Err = err
	}
}
