// Package watcher turns filesystem events into debounced FileChange
// batches. It is a thin adapter in front of the decision engine; all
// selection logic lives elsewhere.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"testpilot/internal/types"
)

// DefaultDebounce batches rapid editor saves into one change set.
const DefaultDebounce = 500 * time.Millisecond

// Watcher observes a directory tree and delivers change batches.
type Watcher struct {
	fs       *fsnotify.Watcher
	root     string
	debounce time.Duration
}

// New creates a watcher over root and all its subdirectories, skipping
// dot-directories and node_modules.
func New(root string, debounce time.Duration) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{fs: fs, root: root, debounce: debounce}
	if err := w.addRecursive(root); err != nil {
		_ = fs.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || name == "node_modules") {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Run delivers debounced batches to handle until the context ends.
// Watcher errors are logged, not fatal: a missed event only means a
// broader selection on the next batch.
func (w *Watcher) Run(ctx context.Context, handle func([]types.FileChange)) error {
	defer func() { _ = w.fs.Close() }()

	pending := make(map[string]types.FileChange)
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := make([]types.FileChange, 0, len(pending))
		for _, change := range pending {
			batch = append(batch, change)
		}
		pending = make(map[string]types.FileChange)
		handle(batch)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				flush()
				return nil
			}
			change, relevant := w.translate(event)
			if !relevant {
				continue
			}
			pending[change.Path] = change
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			flush()

		case err, ok := <-w.fs.Errors:
			if !ok {
				flush()
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) translate(event fsnotify.Event) (types.FileChange, bool) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		rel = event.Name
	}
	rel = filepath.ToSlash(rel)

	if strings.HasPrefix(filepath.Base(rel), ".") {
		return types.FileChange{}, false
	}

	change := types.FileChange{Path: rel, Timestamp: time.Now()}
	switch {
	case event.Op.Has(fsnotify.Create):
		change.Kind = types.ChangeAdded
		// New directories need watching too.
		if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
			_ = w.addRecursive(event.Name)
			return types.FileChange{}, false
		}
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		change.Kind = types.ChangeDeleted
	case event.Op.Has(fsnotify.Write):
		change.Kind = types.ChangeModified
	default:
		return types.FileChange{}, false
	}
	return change, true
}
