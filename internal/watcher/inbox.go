package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	pipeerr "github.com/theolab/theoindex/internal/errors"
)

// InboxWatcher is the hybrid implementation: fsnotify when the platform
// supports it, mtime polling otherwise.
type InboxWatcher struct {
	opts      Options
	logger    *slog.Logger
	debouncer *Debouncer
	errors    chan error
	stopCh    chan struct{}

	fsw         *fsnotify.Watcher
	useFsnotify bool

	mu        sync.Mutex
	stopped   bool
	dir       string
	snapshots map[string]fileSnapshot
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

var _ Watcher = (*InboxWatcher)(nil)

// NewInboxWatcher creates the watcher, preferring fsnotify and falling back
// to polling when the notify backend cannot initialize.
func NewInboxWatcher(opts Options, logger *slog.Logger) (*InboxWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.WithDefaults()

	w := &InboxWatcher{
		opts:      opts,
		logger:    logger,
		debouncer: NewDebouncer(opts.DebounceWindow),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		snapshots: make(map[string]fileSnapshot),
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("fsnotify_unavailable", slog.String("error", err.Error()))
		return w, nil
	}
	w.fsw = fsw
	w.useFsnotify = true
	return w, nil
}

// Start watches the inbox until the context ends or Stop is called.
func (w *InboxWatcher) Start(ctx context.Context, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return pipeerr.New(pipeerr.ErrCodeInvalidInput, "resolve inbox path", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return pipeerr.New(pipeerr.ErrCodeFileNotFound, "inbox directory missing", err).
			WithDetail("inbox", abs)
	}
	w.mu.Lock()
	w.dir = abs
	w.mu.Unlock()

	w.logger.Info("watching_inbox",
		slog.String("dir", abs),
		slog.Bool("fsnotify", w.useFsnotify),
		slog.Duration("debounce", w.opts.DebounceWindow))

	if w.useFsnotify {
		return w.runFsnotify(ctx, abs)
	}
	return w.runPolling(ctx, abs)
}

func (w *InboxWatcher) runFsnotify(ctx context.Context, dir string) error {
	if err := w.addRecursive(dir); err != nil {
		return pipeerr.New(pipeerr.ErrCodeInternal, "register inbox watches", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleFsEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.reportError(err)
		}
	}
}

func (w *InboxWatcher) handleFsEvent(ev fsnotify.Event) {
	// New subdirectories need their own watch before files land in them.
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(ev.Name)
			return
		}
	}
	if !w.opts.watches(ev.Name) {
		return
	}

	var op Operation
	switch {
	case ev.Op.Has(fsnotify.Create):
		op = OpCreate
	case ev.Op.Has(fsnotify.Write):
		op = OpModify
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		op = OpDelete
	default:
		return
	}
	w.debouncer.Add(FileEvent{Path: ev.Name, Operation: op, Timestamp: time.Now()})
}

func (w *InboxWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

func (w *InboxWatcher) runPolling(ctx context.Context, dir string) error {
	// Baseline scan so pre-existing files do not fire as creates.
	w.detectChanges(dir, true)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			w.detectChanges(dir, false)
		}
	}
}

// detectChanges diffs the inbox against the last snapshot. During the
// baseline pass it only records state.
func (w *InboxWatcher) detectChanges(dir string, baseline bool) {
	seen := make(map[string]fileSnapshot)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !w.opts.watches(path) {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		seen[path] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
		return nil
	})
	if err != nil {
		w.reportError(err)
		return
	}

	w.mu.Lock()
	prev := w.snapshots
	w.snapshots = seen
	w.mu.Unlock()
	if baseline {
		return
	}

	now := time.Now()
	for path, snap := range seen {
		old, existed := prev[path]
		switch {
		case !existed:
			w.debouncer.Add(FileEvent{Path: path, Operation: OpCreate, Timestamp: now})
		case old.modTime != snap.modTime || old.size != snap.size:
			w.debouncer.Add(FileEvent{Path: path, Operation: OpModify, Timestamp: now})
		}
	}
	for path := range prev {
		if _, ok := seen[path]; !ok {
			w.debouncer.Add(FileEvent{Path: path, Operation: OpDelete, Timestamp: now})
		}
	}
}

func (w *InboxWatcher) reportError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// Stop shuts the watcher down. Safe to call more than once.
func (w *InboxWatcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.mu.Unlock()

	close(w.stopCh)
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	w.debouncer.Stop()
	close(w.errors)
	return nil
}

// Events returns debounced batches of inbox changes.
func (w *InboxWatcher) Events() <-chan []FileEvent { return w.debouncer.Output() }

// Errors returns non-fatal watch errors.
func (w *InboxWatcher) Errors() <-chan error { return w.errors }
