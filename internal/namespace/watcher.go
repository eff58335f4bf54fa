// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package namespace

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// =============================================================================
// SOURCE
// =============================================================================

// Source hands out the current tree. A tree is never modified once built, so
// replacing it only affects sessions created after the swap.
type Source struct {
	tree atomic.Pointer[Tree]
}

// NewSource returns a Source serving t.
func NewSource(t *Tree) *Source {
	s := &Source{}
	s.tree.Store(t)
	return s
}

// Tree returns the current tree.
func (s *Source) Tree() *Tree {
	return s.tree.Load()
}

// Swap installs t and returns the previous tree.
func (s *Source) Swap(t *Tree) *Tree {
	return s.tree.Swap(t)
}

// =============================================================================
// WATCHER
// =============================================================================

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// Watcher rebuilds a Source whenever its description file changes.
// An invalid description is logged and the previous tree stays in place.
type Watcher struct {
	path     string
	source   *Source
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger

	// OnReload is called after every successful rebuild (optional)
	OnReload func(*Tree)

	mu      sync.Mutex
	pending *time.Timer
}

// NewWatcher prepares a watcher for the description at path.
func NewWatcher(path string, source *Source, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		path:     abs,
		source:   source,
		watcher:  fw,
		debounce: DefaultDebounce,
		logger:   logger,
	}, nil
}

// SetDebounce changes the settle delay. Call before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run watches until ctx is cancelled. The parent directory is watched rather
// than the file itself because editors usually replace files on save.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.pending != nil {
				w.pending.Stop()
			}
			w.mu.Unlock()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("tree watcher error", zap.Error(err))
		}
	}
}

// schedule (re)starts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, w.Reload)
}

// Reload rebuilds the tree from disk now.
func (w *Watcher) Reload() {
	t, err := LoadTree(w.path)
	if err != nil {
		w.logger.Warn("tree description rejected, keeping previous tree",
			zap.String("path", w.path), zap.Error(err))
		return
	}
	w.source.Swap(t)
	w.logger.Info("tree description reloaded",
		zap.String("path", w.path), zap.Int("nodes", t.Size()))
	if w.OnReload != nil {
		w.OnReload(t)
	}
}
