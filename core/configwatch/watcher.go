package configwatch

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ChangeFunc is invoked with the path of a file that changed. A returned
// error is logged; the file keeps being watched either way.
type ChangeFunc func(path string) error

// Watcher polls files for modification time or size changes and invokes
// callbacks.
type Watcher struct {
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]*watchEntry
}

type watchEntry struct {
	stamp stamp
	cbs   []ChangeFunc
}

type stamp struct {
	modTime time.Time
	size    int64
}

// New creates a Watcher that polls at the given interval.
func New(interval time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		interval: interval,
		logger:   logger,
		entries:  make(map[string]*watchEntry),
	}
}

// Watch registers cb for path. The file does not need to exist at watch
// time; its first appearance counts as a change.
func (w *Watcher) Watch(path string, cb ChangeFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entries[path]
	if !ok {
		e = &watchEntry{stamp: fileStamp(path)}
		w.entries[path] = e
	}
	e.cbs = append(e.cbs, cb)
}

// Unwatch drops every callback registered for path.
func (w *Watcher) Unwatch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entries, path)
}

// Run polls until the context is cancelled. It blocks, so call it in a goroutine.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

type firing struct {
	path string
	cbs  []ChangeFunc
}

func (w *Watcher) poll() {
	var due []firing

	w.mu.Lock()
	for path, e := range w.entries {
		current := fileStamp(path)

		// Missing (possibly mid-save) or unchanged.
		if current.modTime.IsZero() || current == e.stamp {
			continue
		}
		e.stamp = current
		due = append(due, firing{path: path, cbs: append([]ChangeFunc(nil), e.cbs...)})
	}
	w.mu.Unlock()

	for _, f := range due {
		w.logger.Info("config file changed", "path", f.path)
		for _, cb := range f.cbs {
			if err := cb(f.path); err != nil {
				w.logger.Error("config reload failed", "path", f.path, "error", err)
			}
		}
	}
}

// fileStamp returns the file's modification time and size, or zero if it
// can't be read.
func fileStamp(path string) stamp {
	info, err := os.Stat(path)
	if err != nil {
		return stamp{}
	}
	return stamp{modTime: info.ModTime(), size: info.Size()}
}
