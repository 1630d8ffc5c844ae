// Package watcher watches a component directory tree for external file
// changes, filtering noise and suppressing the sync engine's own
// writes.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/viewsmith/viewsmith/pkg/model"
)

// Op is the logical file operation an event reports.
type Op int

const (
	OpChange Op = iota
	OpRemove
)

func (o Op) String() string {
	if o == OpRemove {
		return "remove"
	}
	return "change"
}

// Event is one observed file change. Content is populated for changes,
// empty for removals.
type Event struct {
	Path    string
	ID      string
	Op      Op
	Content string
}

// ignoreTTL is how long a self-write marker suppresses events for a
// path. Long enough to cover the editor's own write plus the notify
// latency, short enough that a real external edit right after still
// surfaces.
const ignoreTTL = time.Second

// debounceDelay coalesces the bursts of notifications most editors and
// file systems produce for a single save.
const debounceDelay = 100 * time.Millisecond

// skipDirs are dependency and build directories never worth watching.
var skipDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
	"build":        true,
	"vendor":       true,
}

// Watcher watches a directory tree for component file changes.
type Watcher struct {
	root   string
	ext    string
	logger *slog.Logger

	fsw    *fsnotify.Watcher
	events chan Event

	mu      sync.Mutex
	ignores map[string]time.Time
	timers  map[string]*time.Timer

	closeOnce sync.Once
}

// New creates a watcher over the directory tree rooted at root, for
// files with the given extension (".tsx").
func New(root, ext string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:    root,
		ext:     ext,
		logger:  logger,
		fsw:     fsw,
		events:  make(chan Event, 64),
		ignores: map[string]time.Time{},
		timers:  map[string]*time.Timer{},
	}
	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Events returns the channel delivering observed changes.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Ignore marks a path so its next change notification is suppressed.
// The marker expires on first use or after a short TTL, so the sync
// engine's own write never loops back as an external change.
func (w *Watcher) Ignore(path string) {
	w.mu.Lock()
	w.ignores[filepath.Clean(path)] = time.Now().Add(ignoreTTL)
	w.mu.Unlock()
}

// Run consumes notifications until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// Close stops the watcher and its pending debounce timers.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		for _, t := range w.timers {
			t.Stop()
		}
		w.timers = map[string]*time.Timer{}
		w.mu.Unlock()
		_ = w.fsw.Close()
		close(w.events)
	})
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	// New subdirectories join the watch set.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.skippable(path) {
				_ = w.addRecursive(path)
			}
			return
		}
	}

	if filepath.Ext(path) != w.ext || w.skippable(path) {
		return
	}

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.cancelPending(path)
		w.emit(Event{Path: path, ID: model.IDFromPath(w.root, path), Op: OpRemove})
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		if w.consumeIgnore(path) {
			w.logger.Debug("suppressed self-write notification", "path", path)
			return
		}
		w.debounce(path)
	}
}

// debounce schedules (or reschedules) the change emission for a path.
func (w *Watcher) debounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.emitChange(path)
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
}

func (w *Watcher) emitChange(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		// Removed between the notification and the read.
		w.emit(Event{Path: path, ID: model.IDFromPath(w.root, path), Op: OpRemove})
		return
	}
	w.emit(Event{
		Path:    path,
		ID:      model.IDFromPath(w.root, path),
		Op:      OpChange,
		Content: string(content),
	})
}

func (w *Watcher) emit(ev Event) {
	defer func() {
		// The events channel closes on shutdown; a late debounce timer
		// must not crash the process.
		_ = recover()
	}()
	select {
	case w.events <- ev:
	default:
		w.logger.Warn("event channel full, dropping notification", "path", ev.Path)
	}
}

// consumeIgnore reports whether a live self-write marker exists for the
// path. A single save fans out as a create+write notification burst, so
// the marker survives its first hit and expires once the burst settles.
func (w *Watcher) consumeIgnore(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	deadline, ok := w.ignores[path]
	if !ok {
		return false
	}
	if !time.Now().Before(deadline) {
		delete(w.ignores, path)
		return false
	}
	w.ignores[path] = time.Now().Add(debounceDelay)
	return true
}

// addRecursive adds a directory and its subdirectories to the watch
// set, skipping hidden and dependency directories.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.skippable(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// skippable filters hidden paths and dependency directories.
func (w *Watcher) skippable(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") || skipDirs[seg] {
			return true
		}
	}
	return false
}
