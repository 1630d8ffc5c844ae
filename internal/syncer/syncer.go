// Package syncer keeps visual edits and on-disk component files
// consistent in both directions. It buffers edits per component,
// flushes after a quiet period, detects divergence by content hash
// before every write, and consumes the watcher's stream for edits made
// elsewhere.
//
// One state machine owns everything for a component identifier;
// different identifiers proceed fully independently.
package syncer

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/viewsmith/viewsmith/internal/state"
	"github.com/viewsmith/viewsmith/internal/watcher"
	"github.com/viewsmith/viewsmith/pkg/generator"
	"github.com/viewsmith/viewsmith/pkg/model"
	"github.com/viewsmith/viewsmith/pkg/mutate"
	"github.com/viewsmith/viewsmith/pkg/parser"
)

// State is the per-identifier sync state.
type State int

const (
	StateClean State = iota
	StateDirty
	StateSaving
	StateConflicted
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateSaving:
		return "saving"
	case StateConflicted:
		return "conflicted"
	}
	return "unknown"
}

// Strategy selects how a conflict is resolved.
type Strategy string

const (
	// StrategyKeepVisual forces the pending visual edit onto disk.
	StrategyKeepVisual Strategy = "keep_visual"
	// StrategyKeepDisk discards the pending edit and reloads the file.
	StrategyKeepDisk Strategy = "keep_disk"
	// StrategyMerge is a placeholder; it currently behaves like
	// StrategyKeepDisk and reports the limitation.
	StrategyMerge Strategy = "merge"
)

// Conflict reasons.
const (
	ReasonExternalChange  = "external-change"
	ReasonDivergentOnDisk = "divergent-on-disk"
)

// ConflictInfo describes a detected divergence.
type ConflictInfo struct {
	ID           string                `json:"id"`
	Reason       string                `json:"reason"`
	PendingModel *model.ComponentModel `json:"pendingModel,omitempty"`
	DiskText     string                `json:"diskText,omitempty"`
	DiskHash     string                `json:"diskHash,omitempty"`
}

// ErrorInfo describes a recoverable per-identifier failure.
type ErrorInfo struct {
	ID  string
	Op  string
	Err error
}

// Callbacks deliver engine notifications. All are fire-and-forget and
// may be nil. They run outside the engine's per-component lock, so a
// callback may call back into the engine.
type Callbacks struct {
	OnExternalChange func(id string, m *model.ComponentModel)
	OnConflict       func(info ConflictInfo)
	OnError          func(info ErrorInfo)
}

// Journal persists sync bookkeeping across restarts. May be nil.
type Journal interface {
	UpsertComponent(id, path, hash string) error
	DeleteComponent(id string) error
	RecordSave(id, hash string, bytes int, mode string) error
	RecordConflict(id, reason string) error
	MarkConflictResolved(id, strategy string) error
}

// DefaultDebounce is the quiet period after the last edit before a
// pending change flushes to disk.
const DefaultDebounce = 500 * time.Millisecond

// Config configures an Engine.
type Config struct {
	ComponentsDir string
	Extension     string // ".tsx" when empty
	Debounce      time.Duration

	Parser    *parser.Parser
	Generator *generator.Generator
	Watcher   *watcher.Watcher // optional
	Journal   Journal          // optional
	Logger    *slog.Logger
	Callbacks Callbacks
}

// Engine is the sync engine. Construct one per session; there is no
// shared global state.
type Engine struct {
	cfg Config

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

// entry is the single owned record for one component identifier. Its
// mutex serializes every mutation, flush and conflict transition.
type entry struct {
	mu sync.Mutex

	id   string
	path string

	st        State
	lastHash  string
	lastText  string
	lastModel *model.ComponentModel
	pending   *model.ComponentModel
	timer     *time.Timer
	conflict  *ConflictInfo
}

// New creates a sync engine.
func New(cfg Config) (*Engine, error) {
	if cfg.ComponentsDir == "" {
		return nil, errors.New("syncer: components directory is required")
	}
	if cfg.Extension == "" {
		cfg.Extension = ".tsx"
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Parser == nil {
		cfg.Parser = parser.New()
	}
	if cfg.Generator == nil {
		cfg.Generator = generator.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{cfg: cfg, entries: map[string]*entry{}}, nil
}

// SetCallbacks replaces the engine's callbacks. Call before Run; the
// engine does not synchronize callback replacement against in-flight
// flushes.
func (e *Engine) SetCallbacks(cb Callbacks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.Callbacks = cb
}

// PathFor maps a component identifier to its file path: a nested
// identifier maps to a nested path.
func (e *Engine) PathFor(id string) string {
	return filepath.Join(e.cfg.ComponentsDir, filepath.FromSlash(id)+e.cfg.Extension)
}

func (e *Engine) entryFor(id string) *entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	en, ok := e.entries[id]
	if !ok {
		en = &entry{id: id, path: e.PathFor(id)}
		e.entries[id] = en
	}
	return en
}

func (e *Engine) lookup(id string) (*entry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	en, ok := e.entries[id]
	return en, ok
}

// Load reads and parses a component file, records its hash as the
// last-known sync point, and returns the model.
func (e *Engine) Load(id string) (*model.ComponentModel, error) {
	en := e.entryFor(id)
	en.mu.Lock()
	defer en.mu.Unlock()

	data, err := os.ReadFile(en.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read component %s: %w", id, err)
	}
	text := string(data)

	m := e.cfg.Parser.Parse(en.path, text)
	m.ID = id
	if info, err := os.Stat(en.path); err == nil {
		m.ModTime = info.ModTime()
	}

	en.st = StateClean
	en.lastHash = model.Hash(text)
	en.lastText = text
	en.lastModel = m
	en.pending = nil
	en.conflict = nil
	en.stopTimerLocked()

	e.journalUpsert(id, en.path, en.lastHash)
	e.cfg.Logger.Debug("component loaded", "id", id, "hash", en.lastHash[:12])
	return m.Clone(), nil
}

// Create writes a brand-new component file via fresh generation and
// loads it.
func (e *Engine) Create(id string) (*model.ComponentModel, error) {
	path := e.PathFor(id)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("component %s already exists", id)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create component directory: %w", err)
	}
	text := e.cfg.Generator.Fresh(model.New(id, path))
	if e.cfg.Watcher != nil {
		e.cfg.Watcher.Ignore(path)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write component %s: %w", id, err)
	}
	return e.Load(id)
}

// Edit stores the model as the pending visual state and (re)starts the
// quiet-period timer. Rapid edits coalesce: only the most recent
// pending value is kept. Edits against a conflicted component stay
// buffered until the conflict is resolved.
func (e *Engine) Edit(m *model.ComponentModel) error {
	if m == nil || m.ID == "" {
		return errors.New("syncer: edit requires a model with an identifier")
	}
	en := e.entryFor(m.ID)
	en.mu.Lock()
	defer en.mu.Unlock()

	en.pending = m.Clone()
	if en.st == StateConflicted {
		return nil
	}
	en.st = StateDirty
	en.restartTimerLocked(e)
	return nil
}

// State reports the sync state for an identifier.
func (e *Engine) State(id string) State {
	en, ok := e.lookup(id)
	if !ok {
		return StateClean
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.st
}

// Model returns the last synced model for an identifier, if loaded.
func (e *Engine) Model(id string) (*model.ComponentModel, bool) {
	en, ok := e.lookup(id)
	if !ok {
		return nil, false
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	if en.lastModel == nil {
		return nil, false
	}
	return en.lastModel.Clone(), true
}

// Discover walks the components directory and returns every component
// identifier found.
func (e *Engine) Discover() ([]string, error) {
	var ids []string
	err := filepath.WalkDir(e.cfg.ComponentsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != e.cfg.ComponentsDir {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == e.cfg.Extension {
			ids = append(ids, model.IDFromPath(e.cfg.ComponentsDir, path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover components: %w", err)
	}
	return ids, nil
}

// Close cancels all outstanding timers and closes the watcher. No
// partial flush is attempted.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	entries := make([]*entry, 0, len(e.entries))
	for _, en := range e.entries {
		entries = append(entries, en)
	}
	e.mu.Unlock()

	for _, en := range entries {
		en.mu.Lock()
		en.stopTimerLocked()
		en.mu.Unlock()
	}
	if e.cfg.Watcher != nil {
		e.cfg.Watcher.Close()
	}
}

// ---------- timers ----------

func (en *entry) restartTimerLocked(e *Engine) {
	en.stopTimerLocked()
	en.timer = time.AfterFunc(e.cfg.Debounce, func() {
		e.flush(en)
	})
}

func (en *entry) stopTimerLocked() {
	if en.timer != nil {
		en.timer.Stop()
		en.timer = nil
	}
}

// ---------- journal helpers ----------

func (e *Engine) journalUpsert(id, path, hash string) {
	if e.cfg.Journal == nil {
		return
	}
	if err := e.cfg.Journal.UpsertComponent(id, path, hash); err != nil {
		e.cfg.Logger.Warn("journal upsert failed", "id", id, "error", err)
	}
}

func (e *Engine) journalSave(id, hash string, bytes int, mode string) {
	if e.cfg.Journal == nil {
		return
	}
	if err := e.cfg.Journal.RecordSave(id, hash, bytes, mode); err != nil {
		e.cfg.Logger.Warn("journal save record failed", "id", id, "error", err)
	}
}

func (e *Engine) journalConflict(id, reason string) {
	if e.cfg.Journal == nil {
		return
	}
	if err := e.cfg.Journal.RecordConflict(id, reason); err != nil {
		e.cfg.Logger.Warn("journal conflict record failed", "id", id, "error", err)
	}
}

// ---------- callbacks ----------

func (e *Engine) notifyConflict(info ConflictInfo) {
	if e.cfg.Callbacks.OnConflict != nil {
		e.cfg.Callbacks.OnConflict(info)
	}
}

func (e *Engine) notifyError(id, op string, err error) {
	e.cfg.Logger.Error("sync error", "id", id, "op", op, "error", err)
	if e.cfg.Callbacks.OnError != nil {
		e.cfg.Callbacks.OnError(ErrorInfo{ID: id, Op: op, Err: err})
	}
}

func (e *Engine) notifyExternalChange(id string, m *model.ComponentModel) {
	if e.cfg.Callbacks.OnExternalChange != nil {
		e.cfg.Callbacks.OnExternalChange(id, m)
	}
}

// ---------- rendering ----------

// render produces the new file text for a pending model against the
// just-read disk text. The mutation engine runs first (precise,
// identifier-matched edits); structural patching is the fallback; fresh
// generation is the last resort.
func (e *Engine) render(en *entry, pending *model.ComponentModel, diskText string) (string, string) {
	if en.lastModel != nil && en.lastModel.Root != nil && pending.Root != nil {
		muts, err := mutate.Diff(en.lastModel.Root, pending.Root, diskText, e.cfg.Generator)
		if err == nil {
			if text, err := mutate.Apply(diskText, muts); err == nil {
				// Reconcile metadata on the mutated text; markup is
				// already aligned so only the meta literal can change.
				if patched, err := e.cfg.Generator.Patch(pending, text); err == nil {
					return patched, state.SaveModeMutation
				}
				return text, state.SaveModeMutation
			}
		}
		e.cfg.Logger.Debug("mutation path unavailable, falling back to patch", "id", en.id)
	}

	if text, err := e.cfg.Generator.Patch(pending, diskText); err == nil {
		return text, state.SaveModePatch
	}
	e.cfg.Logger.Debug("patch generation unavailable, regenerating", "id", en.id)
	return e.cfg.Generator.Fresh(pending), state.SaveModeFresh
}
