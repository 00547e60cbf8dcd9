// Package watch triggers rebuilds when sources change: fsnotify events for
// the docs directory and OpenAPI files, and a periodic refresh for documents
// that live behind a URL.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/openapi-docs-gen/internal/logfields"
)

// DefaultDebounce is used when a Watcher is created with a zero debounce.
const DefaultDebounce = 300 * time.Millisecond

// RebuildFunc is called once per debounced batch of changes with the
// changed paths, sorted.
type RebuildFunc func(ctx context.Context, changed []string) error

// Watcher watches directories recursively and individual files. Single
// files are watched through their parent directory so that editors which
// replace files on save keep being tracked.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	rebuild  RebuildFunc
	logger   *slog.Logger

	dirs  []string
	files map[string]struct{}

	mu      sync.Mutex
	timer   *time.Timer
	changed map[string]struct{}
	request chan struct{}
}

// NewWatcher starts watching paths. Each path may be a directory or a file.
func NewWatcher(paths []string, debounce time.Duration, rebuild RebuildFunc, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: debounce,
		rebuild:  rebuild,
		logger:   logger,
		files:    make(map[string]struct{}),
		changed:  make(map[string]struct{}),
		request:  make(chan struct{}, 1),
	}

	for _, p := range paths {
		if err := w.add(p); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve watch path %s: %w", path, err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	if st.IsDir() {
		w.dirs = append(w.dirs, abs)
		return addDirsRecursive(w.fsw, abs, w.logger)
	}
	w.files[abs] = struct{}{}
	if err := w.fsw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	return nil
}

// Run processes events until ctx is canceled. Rebuilds run one at a time;
// changes arriving during a rebuild are batched into the next one.
func (w *Watcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx)
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logfields.Error(err))
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	w.stopTimer()
	err := w.fsw.Close()
	if errors.Is(err, fsnotify.ErrClosed) {
		return nil
	}
	return err
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if shouldIgnoreEvent(ev.Name) || !w.relevant(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() && w.inDirs(ev.Name) {
			_ = addDirsRecursive(w.fsw, ev.Name, w.logger)
		}
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	w.trigger(ev.Name)
}

// relevant reports whether path is inside a watched directory or is one of
// the individually watched files.
func (w *Watcher) relevant(path string) bool {
	if _, ok := w.files[path]; ok {
		return true
	}
	return w.inDirs(path)
}

func (w *Watcher) inDirs(path string) bool {
	for _, d := range w.dirs {
		if path == d || strings.HasPrefix(path, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) trigger(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.changed[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.request <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) takeChanged() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.changed))
	for p := range w.changed {
		out = append(out, p)
	}
	w.changed = make(map[string]struct{})
	sort.Strings(out)
	return out
}

// worker serializes rebuilds. The request channel holds at most one pending
// signal, so bursts during a rebuild collapse into a single follow-up run.
func (w *Watcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.request:
			changed := w.takeChanged()
			if len(changed) == 0 {
				continue
			}
			w.logger.Info("Change detected; rebuilding site", logfields.Count(len(changed)))
			if err := w.rebuild(ctx, changed); err != nil {
				w.logger.Warn("rebuild failed", logfields.Error(err))
			}
		}
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string, logger *slog.Logger) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			logger.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent filters hidden, editor swap and OS metadata files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
