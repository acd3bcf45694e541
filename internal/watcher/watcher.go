// Package watcher monitors CV drop directories and feeds file events to the
// ingestor. Files are debounced so a CV still being written is ingested once,
// after the writes settle.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// DropWatcher watches drop directories for candidate CV files. onIngest is
// called with the file path once writes to it settle; onRemove is called when
// a watched file disappears.
type DropWatcher struct {
	extensions []string
	recursive  bool
	onIngest   func(path string)
	onRemove   func(path string)
	debounce   time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	roots   []string
	fsw     *fsnotify.Watcher
	pending map[string]*time.Timer
	done    chan struct{}
	closed  sync.Once
}

// Option configures a DropWatcher.
type Option func(*DropWatcher)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *DropWatcher) { w.logger = logger }
}

// WithDebounce overrides the write-settle window. Used in tests.
func WithDebounce(d time.Duration) Option {
	return func(w *DropWatcher) { w.debounce = d }
}

// New creates a watcher over the given drop directories. extensions filters
// which files are reported (empty means all).
func New(roots, extensions []string, recursive bool, onIngest, onRemove func(path string), opts ...Option) *DropWatcher {
	w := &DropWatcher{
		roots:      append([]string(nil), roots...),
		extensions: extensions,
		recursive:  recursive,
		onIngest:   onIngest,
		onRemove:   onRemove,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		pending:    make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. Missing drop directories are created. The watcher
// runs until ctx is cancelled or Stop is called.
func (w *DropWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw

	for _, root := range w.roots {
		if err := w.watchRootLocked(root); err != nil {
			_ = fsw.Close()
			w.fsw = nil
			return err
		}
	}

	w.logger.Info("watching drop directories",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions))
	go w.loop(ctx, fsw)
	return nil
}

// SyncExisting reports every matching file already present in the watched
// roots through onIngest. Call after Start to pick up CVs dropped while the
// server was down.
func (w *DropWatcher) SyncExisting() {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	for _, root := range roots {
		w.syncDir(root)
	}
}

// Stop stops the watcher and cancels pending debounced ingests.
func (w *DropWatcher) Stop() {
	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	if w.fsw != nil {
		_ = w.fsw.Close()
		w.fsw = nil
	}
	w.mu.Unlock()
	w.closed.Do(func() { close(w.done) })
}

func (w *DropWatcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watch error", zap.Error(err))
			}
		}
	}
}

func (w *DropWatcher) handle(ev fsnotify.Event) {
	path := ev.Name
	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.watchNewDir(path)
			return
		}
		if w.matches(path) {
			w.schedule(path)
		}
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.cancel(path)
		if w.matches(path) && w.onRemove != nil {
			w.onRemove(path)
		}
	}
}

// schedule (re)arms the debounce timer for path; onIngest fires once the file
// has been quiet for the debounce window.
func (w *DropWatcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.logger.Debug("drop settled", zap.String("path", path))
		if w.onIngest != nil {
			w.onIngest(path)
		}
	})
}

func (w *DropWatcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// watchNewDir starts watching a directory created inside a root and reports
// any files it already contains, covering CVs moved in as whole directories.
func (w *DropWatcher) watchNewDir(dir string) {
	w.mu.Lock()
	fsw := w.fsw
	recursive := w.recursive
	w.mu.Unlock()
	if fsw == nil || !recursive {
		return
	}

	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if aerr := fsw.Add(path); aerr != nil {
				w.logger.Warn("failed to watch new directory", zap.String("path", path), zap.Error(aerr))
			}
		}
		return nil
	})
	w.syncDir(dir)
}

func (w *DropWatcher) watchRootLocked(root string) error {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	if !w.recursive {
		return w.fsw.Add(root)
	}
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

func (w *DropWatcher) syncDir(root string) {
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if w.matches(path) && w.onIngest != nil {
			w.onIngest(path)
		}
		return nil
	})
}

func (w *DropWatcher) matches(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range w.extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
