package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/viewsmith/viewsmith/internal/watcher"
	"github.com/viewsmith/viewsmith/pkg/model"
)

// flush writes the pending model to disk after the quiet period. It
// re-reads the file first and refuses to write over content it has not
// seen.
func (e *Engine) flush(en *entry) {
	en.mu.Lock()
	notify := e.flushLocked(en)
	en.mu.Unlock()
	for _, fn := range notify {
		fn()
	}
}

// flushLocked runs the write under en.mu and returns the callback
// dispatches to invoke once the lock is released, so callbacks may call
// back into the engine.
func (e *Engine) flushLocked(en *entry) []func() {
	if en.st != StateDirty || en.pending == nil {
		return nil
	}
	en.st = StateSaving
	en.stopTimerLocked()
	pending := en.pending

	diskText, diskHash, err := e.readDisk(en.path)
	if err != nil {
		if os.IsNotExist(err) && en.lastHash == "" {
			// Resolution forced a write over a deleted file; fresh
			// generation recreates it.
			diskText, diskHash = "", ""
		} else {
			en.st = StateDirty
			return []func(){func() { e.notifyError(en.id, "read", err) }}
		}
	}

	if en.lastHash != "" && diskHash != en.lastHash {
		en.st = StateConflicted
		en.conflict = &ConflictInfo{
			ID:           en.id,
			Reason:       ReasonDivergentOnDisk,
			PendingModel: pending.Clone(),
			DiskText:     diskText,
			DiskHash:     diskHash,
		}
		e.journalConflict(en.id, ReasonDivergentOnDisk)
		e.cfg.Logger.Warn("write refused, file changed on disk", "id", en.id)
		info := *en.conflict
		return []func(){func() { e.notifyConflict(info) }}
	}

	newText, mode := e.render(en, pending, diskText)
	if e.cfg.Watcher != nil {
		e.cfg.Watcher.Ignore(en.path)
	}
	if err := os.WriteFile(en.path, []byte(newText), 0o644); err != nil {
		en.st = StateDirty
		wrapped := fmt.Errorf("failed to write component %s: %w", en.id, err)
		return []func(){func() { e.notifyError(en.id, "write", wrapped) }}
	}

	en.lastHash = model.Hash(newText)
	en.lastText = newText
	synced := e.cfg.Parser.Parse(en.path, newText)
	synced.ID = en.id
	en.lastModel = synced
	en.st = StateClean

	// An edit that arrived mid-flush replaced pending; keep it dirty.
	if en.pending == pending {
		en.pending = nil
	} else if en.pending != nil {
		en.st = StateDirty
		en.restartTimerLocked(e)
	}

	e.journalUpsert(en.id, en.path, en.lastHash)
	e.journalSave(en.id, en.lastHash, len(newText), mode)
	e.cfg.Logger.Info("component saved", "id", en.id, "mode", mode, "bytes", len(newText))
	return nil
}

// Flush forces an immediate flush of any pending edit, bypassing the
// quiet period.
func (e *Engine) Flush(id string) {
	en, ok := e.lookup(id)
	if !ok {
		return
	}
	e.flush(en)
}

func (e *Engine) readDisk(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	text := string(data)
	return text, model.Hash(text), nil
}

// Resolve settles a conflict for an identifier. keep_visual clears the
// last-known hash and forces the pending write; keep_disk discards the
// pending edit and reloads from disk. The returned model is the state
// the visual surface should display afterwards.
func (e *Engine) Resolve(id string, strategy Strategy) (*model.ComponentModel, error) {
	en, ok := e.lookup(id)
	if !ok {
		return nil, fmt.Errorf("unknown component %s", id)
	}
	en.mu.Lock()
	m, notify, err := e.resolveLocked(en, strategy)
	en.mu.Unlock()
	for _, fn := range notify {
		fn()
	}
	return m, err
}

func (e *Engine) resolveLocked(en *entry, strategy Strategy) (*model.ComponentModel, []func(), error) {
	id := en.id
	if en.st != StateConflicted {
		return nil, nil, fmt.Errorf("component %s is not conflicted", id)
	}

	var notify []func()
	switch strategy {
	case StrategyMerge:
		notify = append(notify, func() {
			e.notifyError(id, "resolve", errors.New("merge resolution is not implemented, keeping disk content"))
		})
		fallthrough
	case StrategyKeepDisk:
		en.pending = nil
		en.conflict = nil
		en.stopTimerLocked()
		diskText, diskHash, err := e.readDisk(en.path)
		if err != nil {
			return nil, notify, fmt.Errorf("failed to reload component %s: %w", id, err)
		}
		m := e.cfg.Parser.Parse(en.path, diskText)
		m.ID = id
		en.lastHash = diskHash
		en.lastText = diskText
		en.lastModel = m
		en.st = StateClean
		e.markResolved(id, strategy)
		e.journalUpsert(id, en.path, diskHash)
		return m.Clone(), notify, nil
	case StrategyKeepVisual:
		if en.pending == nil {
			return nil, nil, fmt.Errorf("component %s has no pending edit to keep", id)
		}
		en.conflict = nil
		en.lastHash = ""
		// The last synced model's spans describe text that is no longer
		// on disk; dropping it keeps the mutation path out of the forced
		// write.
		en.lastModel = nil
		en.st = StateDirty
		notify = append(notify, e.flushLocked(en)...)
		if en.st != StateClean {
			return nil, notify, fmt.Errorf("failed to force pending write for %s", id)
		}
		e.markResolved(id, strategy)
		return en.lastModel.Clone(), notify, nil
	default:
		return nil, nil, fmt.Errorf("unknown resolution strategy %q", strategy)
	}
}

func (e *Engine) markResolved(id string, strategy Strategy) {
	if e.cfg.Journal == nil {
		return
	}
	if err := e.cfg.Journal.MarkConflictResolved(id, string(strategy)); err != nil {
		e.cfg.Logger.Warn("journal resolve record failed", "id", id, "error", err)
	}
}

// Conflict returns the open conflict for an identifier, if any.
func (e *Engine) Conflict(id string) (ConflictInfo, bool) {
	en, ok := e.lookup(id)
	if !ok {
		return ConflictInfo{}, false
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	if en.conflict == nil {
		return ConflictInfo{}, false
	}
	return *en.conflict, true
}

// Run consumes watcher events until the context is cancelled or the
// watcher closes. It returns the watcher's run error, if any.
func (e *Engine) Run(ctx context.Context) error {
	if e.cfg.Watcher == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	done := make(chan error, 1)
	go func() {
		done <- e.cfg.Watcher.Run(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return <-done
		case ev, ok := <-e.cfg.Watcher.Events():
			if !ok {
				return <-done
			}
			e.handleEvent(ev)
		}
	}
}

// handleEvent folds one watcher event into the state machine.
func (e *Engine) handleEvent(ev watcher.Event) {
	en := e.entryFor(ev.ID)
	en.mu.Lock()
	notify := e.applyEventLocked(en, ev)
	en.mu.Unlock()
	for _, fn := range notify {
		fn()
	}
}

func (e *Engine) applyEventLocked(en *entry, ev watcher.Event) []func() {
	if ev.Op == watcher.OpRemove {
		en.stopTimerLocked()
		en.st = StateClean
		en.pending = nil
		en.conflict = nil
		en.lastHash = ""
		en.lastText = ""
		en.lastModel = nil
		if e.cfg.Journal != nil {
			if err := e.cfg.Journal.DeleteComponent(ev.ID); err != nil {
				e.cfg.Logger.Warn("journal delete failed", "id", ev.ID, "error", err)
			}
		}
		e.cfg.Logger.Info("component removed", "id", ev.ID)
		return nil
	}

	diskHash := model.Hash(ev.Content)
	if diskHash == en.lastHash {
		return nil
	}

	if en.st == StateConflicted {
		// The conflict stays open; only its disk side moved.
		en.conflict.DiskText = ev.Content
		en.conflict.DiskHash = diskHash
		e.cfg.Logger.Warn("external change while conflicted", "id", ev.ID)
		info := *en.conflict
		return []func(){func() { e.notifyConflict(info) }}
	}

	if en.st == StateDirty || en.st == StateSaving {
		en.stopTimerLocked()
		en.st = StateConflicted
		en.conflict = &ConflictInfo{
			ID:       ev.ID,
			Reason:   ReasonExternalChange,
			DiskText: ev.Content,
			DiskHash: diskHash,
		}
		if en.pending != nil {
			en.conflict.PendingModel = en.pending.Clone()
		}
		e.journalConflict(ev.ID, ReasonExternalChange)
		e.cfg.Logger.Warn("external change while edit pending", "id", ev.ID)
		info := *en.conflict
		return []func(){func() { e.notifyConflict(info) }}
	}

	m := e.cfg.Parser.Parse(ev.Path, ev.Content)
	m.ID = ev.ID
	en.lastHash = diskHash
	en.lastText = ev.Content
	en.lastModel = m
	en.st = StateClean
	e.journalUpsert(ev.ID, ev.Path, diskHash)
	e.cfg.Logger.Debug("external change applied", "id", ev.ID)
	synced := m.Clone()
	return []func(){func() { e.notifyExternalChange(ev.ID, synced) }}
}
